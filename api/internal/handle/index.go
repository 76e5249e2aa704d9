package handle

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"typing-assistant/api/internal/correction"
)

func taskForAction(action string) (correction.TaskKind, bool) {
	for _, k := range correction.AllTasks {
		if k.Action() == action {
			return k, true
		}
	}
	return "", false
}

// Index serves the four-block form. A POST with a known action runs one
// correction and fills that block; anything else renders the empty form.
func (h *Handle) Index(w http.ResponseWriter, r *http.Request) {
	var res *correction.Result

	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
			return
		}
		if kind, ok := taskForAction(r.PostForm.Get("action")); ok {
			out := h.req.Process(r.Context(), "web", correction.Request{
				Task:  kind,
				Input: r.PostForm.Get("input_text"),
			})
			res = &out
		}
	}

	var buf bytes.Buffer
	if err := renderPage(&buf, res); err != nil {
		h.logger.Error("render page", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
