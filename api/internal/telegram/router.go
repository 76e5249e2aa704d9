package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"typing-assistant/api/internal/correction"
	"typing-assistant/api/internal/llm"
)

// Sender is the part of *tgbotapi.BotAPI the router needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// UpdateRecorder is satisfied by observe.Metrics.
type UpdateRecorder interface {
	RecordBotUpdate(command string)
}

var commandTasks = map[string]correction.TaskKind{
	"word":     correction.TaskWord,
	"sentence": correction.TaskSentence,
	"command":  correction.TaskCommand,
	"spacing":  correction.TaskSpacing,
}

const helpText = `Send a command followed by your text:

/word <words> - fix misspelled words
/sentence <text> - fix grammar and spelling
/command <text> - turn a garbled command into a clean one
/spacing <text> - fix spacing
/engine [name] - show or switch the AI engine for this chat
/health - check the bot is alive`

type Router struct {
	Bot      Sender
	Engines  *llm.Engines
	Manager  *llm.Manager
	Req      *correction.Requestor
	Recorder UpdateRecorder

	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewRouter(bot Sender, req *correction.Requestor, engs *llm.Engines, mgr *llm.Manager, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		Bot:     bot,
		Engines: engs,
		Manager: mgr,
		Req:     req,
		logger:  logger,
	}
}

// RegisterCommands publishes the command list shown in Telegram clients.
func (r *Router) RegisterCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "word", Description: "Correct misspelled words"},
		tgbotapi.BotCommand{Command: "sentence", Description: "Correct a sentence"},
		tgbotapi.BotCommand{Command: "command", Description: "Correct a command"},
		tgbotapi.BotCommand{Command: "spacing", Description: "Correct spacing"},
		tgbotapi.BotCommand{Command: "engine", Description: "Show or switch the AI engine"},
		tgbotapi.BotCommand{Command: "help", Description: "How to use the bot"},
	)
	_, err := r.Bot.Request(cfg)
	return err
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	cid := msg.Chat.ID
	cmd := msg.Command()
	if r.Recorder != nil {
		r.Recorder.RecordBotUpdate(cmd)
	}

	if !msg.IsCommand() {
		r.reply(msg, "Use a command, for example /word helo wrld. Send /help for the full list.")
		return
	}

	if kind, ok := commandTasks[cmd]; ok {
		r.handleTask(ctx, msg, kind)
		return
	}

	switch cmd {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngine(msg)
	default:
		r.send(cid, "Unknown command. Send /help for the list.")
	}
}

func (r *Router) handleTask(ctx context.Context, msg *tgbotapi.Message, kind correction.TaskKind) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		r.reply(msg, fmt.Sprintf("Usage: /%s <text>", msg.Command()))
		return
	}

	var eng llm.Engine
	if r.Manager != nil {
		eng = r.Manager.Get(msg.Chat.ID)
	}
	res := r.Req.ProcessWith(ctx, eng, "telegram", correction.Request{Task: kind, Input: text})
	r.reply(msg, FormatResult(res))
}

func (r *Router) handleEngine(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	if r.Manager == nil || r.Engines == nil {
		r.send(cid, "Engine switching is not available.")
		return
	}

	args := strings.Fields(msg.CommandArguments())
	available := strings.Join(r.Engines.Names(), " | ")
	if len(args) == 0 {
		cur := r.Manager.Get(cid)
		if cur == nil {
			r.send(cid, "No engine configured. Available: "+available)
			return
		}
		r.send(cid, fmt.Sprintf("Current engine: %s (%s)\nUsage: /engine {%s|default}", cur.Name(), cur.GetModel(), available))
		return
	}

	name := strings.ToLower(args[0])
	if name == "default" || name == "reset" {
		r.Manager.Reset(cid)
		if def := r.Manager.Default(); def != nil {
			r.send(cid, "✅ Engine: "+def.Name()+" (default)")
		}
		return
	}

	eng, err := r.Engines.GetEngine(name)
	if err != nil {
		r.send(cid, "Unknown engine. Available: "+available)
		return
	}
	r.Manager.Set(cid, eng)
	r.send(cid, fmt.Sprintf("✅ Engine: %s (%s)", eng.Name(), eng.GetModel()))
}

func (r *Router) send(chatID int64, text string) {
	r.deliver(tgbotapi.NewMessage(chatID, truncate(text)))
}

func (r *Router) reply(to *tgbotapi.Message, text string) {
	m := tgbotapi.NewMessage(to.Chat.ID, truncate(text))
	m.ReplyToMessageID = to.MessageID
	r.deliver(m)
}

func (r *Router) deliver(m tgbotapi.MessageConfig) {
	if _, err := r.Bot.Send(m); err != nil {
		r.logger.Warn("telegram send failed", zap.Int64("chat_id", m.ChatID), zap.Error(err))
	}
}

// Wait blocks until every update dispatched by the webhook handler is done.
func (r *Router) Wait() { r.wg.Wait() }

// dispatch handles upd on its own goroutine so a slow correction in one chat
// does not hold up the others. The work outlives ctx; Wait drains it.
func (r *Router) dispatch(ctx context.Context, upd tgbotapi.Update) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.HandleUpdate(ctx, upd)
	}()
}
