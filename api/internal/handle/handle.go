package handle

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"typing-assistant/api/internal/correction"
	"typing-assistant/api/internal/llm"
)

const maxBodyBytes = 1 << 20

// HistoryReader is satisfied by store.HistoryRepo.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]correction.Result, error)
	Get(ctx context.Context, id string) (correction.Result, error)
}

type Handle struct {
	req     *correction.Requestor
	engs    *llm.Engines
	history HistoryReader
	logger  *zap.Logger
}

// New wires the handlers. history may be nil when no database is configured.
func New(req *correction.Requestor, engs *llm.Engines, history HistoryReader, logger *zap.Logger) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handle{
		req:     req,
		engs:    engs,
		history: history,
		logger:  logger,
	}
}

// Register mounts every route on mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("POST /{$}", h.Index)
	mux.HandleFunc("POST /v1/correct", h.Correct)
	mux.HandleFunc("GET /v1/history", h.History)
	mux.HandleFunc("GET /v1/history/{id}", h.HistoryEntry)
	mux.HandleFunc("GET /v1/engines", h.EngineList)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
