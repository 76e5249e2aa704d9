package telegram

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// UpdateDecoder is satisfied by *tgbotapi.BotAPI.
type UpdateDecoder interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// WebhookPath derives a stable, hard-to-guess path from the bot token.
func WebhookPath(token string) string {
	return "/webhook/" + shortHash(token)
}

// SetWebhook points Telegram at baseURL+path and drops updates queued while offline.
func (r *Router) SetWebhook(baseURL, path string) error {
	public := strings.TrimRight(baseURL, "/") + path
	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	_, err = r.Bot.Request(wh)
	return err
}

// WebhookHandler acknowledges each update at once and processes it in the
// background, since a correction can outlast Telegram's delivery timeout.
func (r *Router) WebhookHandler(dec UpdateDecoder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		upd, err := dec.HandleUpdate(req)
		if err != nil {
			r.logger.Warn("bad webhook update", zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		r.dispatch(req.Context(), *upd)
		w.WriteHeader(http.StatusOK)
	})
}

func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
