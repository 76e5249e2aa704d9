package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"typing-assistant/api/internal/correction"
	"typing-assistant/api/internal/llm"
	"typing-assistant/api/internal/store"
)

type CorrectRequest struct {
	Task   string `json:"task"`
	Text   string `json:"text"`
	Engine string `json:"engine,omitempty"`
}

// Correct answers 200 even when the upstream failed; the failure travels in the body.
func (h *Handle) Correct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var in CorrectRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	kind, ok := correction.ParseTaskKind(in.Task)
	if !ok {
		http.Error(w, "unknown task: "+in.Task, http.StatusBadRequest)
		return
	}

	var eng llm.Engine
	if strings.TrimSpace(in.Engine) != "" {
		if h.engs == nil {
			http.Error(w, "engine selection is not available", http.StatusBadRequest)
			return
		}
		e, err := h.engs.GetEngine(in.Engine)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		eng = e
	}

	res := h.req.ProcessWith(r.Context(), eng, "api", correction.Request{Task: kind, Input: in.Text})
	writeJSON(w, http.StatusOK, res)
}

func (h *Handle) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "history is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("history query failed", zap.Error(err))
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handle) HistoryEntry(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "history is not configured", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	res, err := h.history.Get(r.Context(), id.String())
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case err != nil:
		h.logger.Error("history lookup failed", zap.String("id", id.String()), zap.Error(err))
		http.Error(w, "history error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *Handle) EngineList(w http.ResponseWriter, r *http.Request) {
	out := struct {
		Default string   `json:"default"`
		Engines []string `json:"engines"`
	}{Engines: []string{}}
	if h.req != nil && h.req.Engine != nil {
		out.Default = h.req.Engine.Name()
	}
	if h.engs != nil {
		out.Engines = h.engs.Names()
	}
	writeJSON(w, http.StatusOK, out)
}
