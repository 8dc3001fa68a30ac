package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/iabetor/pispeak/internal/history"
	"github.com/iabetor/pispeak/internal/speak"
)

// Speaker 是 HTTP 层依赖的播报能力，由 *speak.Service 实现。
type Speaker interface {
	Speak(ctx context.Context, text string, volume float64) (*speak.Result, error)
	EngineName() string
}

// HistoryStore 记录并查询播报历史，由 *history.Store 实现。
type HistoryStore interface {
	Record(ctx context.Context, e *history.Entry) error
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// NewRouter 组装全部路由。hist 为 nil 时不记录历史，也不注册 /history。
func NewRouter(speaker Speaker, hist HistoryStore) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	h := &handler{speaker: speaker, history: hist}
	r.Post("/speak", h.speak)
	r.Get("/healthz", h.healthz)
	if hist != nil {
		r.Get("/history", h.recent)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, detailResponse{Detail: "Not Found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, detailResponse{Detail: "Method Not Allowed"})
	})

	return r
}
