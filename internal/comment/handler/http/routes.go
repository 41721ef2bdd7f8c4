package http

import (
	stdhttp "net/http"

	"github.com/gorilla/mux"
)

func (h *Handler) Routes() stdhttp.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		writeJSON(w, stdhttp.StatusOK, map[string]any{"result": "ok"})
	}).Methods(stdhttp.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(stdhttp.MethodGet)
	}

	r.HandleFunc("/api/comments/article/{articleId}", h.GetThread).Methods(stdhttp.MethodGet)
	r.HandleFunc("/api/comments/{id}/subtree", h.GetSubtree).Methods(stdhttp.MethodGet)
	r.HandleFunc("/api/comments/{id}/path", h.GetPath).Methods(stdhttp.MethodGet)

	r.Handle("/api/comments", h.requireUser(h.CreateComment)).Methods(stdhttp.MethodPost)
	r.Handle("/api/comments/{id}", h.requireUser(h.UpdateComment)).Methods(stdhttp.MethodPut)
	r.Handle("/api/comments/{id}", h.requireUser(h.DeleteComment)).Methods(stdhttp.MethodDelete)
	r.Handle("/api/comments/{id}/like", h.requireUser(h.LikeComment)).Methods(stdhttp.MethodPost)

	r.NotFoundHandler = stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		writeJSON(w, stdhttp.StatusNotFound, map[string]any{"error": "not found"})
	})
	r.MethodNotAllowedHandler = stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		writeJSON(w, stdhttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	})

	r.Use(h.recoverPanic, h.requestID, h.instrument, h.rateLimit, h.identify, h.timeout)
	return r
}
