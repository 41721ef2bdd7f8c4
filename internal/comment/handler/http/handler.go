package http

import (
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/service"
	"github.com/MyNameIsWhaaat/commentthread/internal/metrics"
)

type Config struct {
	RequestTimeout time.Duration
	// RateLimit is the sustained number of requests per second allowed per
	// client IP. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

type Handler struct {
	svc      service.CommentService
	log      zerolog.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
	cfg      Config
	limiter  *ipLimiter
}

func New(svc service.CommentService, log zerolog.Logger, m *metrics.Metrics, cfg Config) *Handler {
	h := &Handler{
		svc:      svc,
		log:      log,
		metrics:  m,
		validate: validator.New(),
		cfg:      cfg,
	}
	if cfg.RateLimit > 0 {
		h.limiter = newIPLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return h
}

// Close stops the background work started by New. The handler keeps serving
// afterwards; idle rate limit buckets are just no longer evicted.
func (h *Handler) Close() {
	if h.limiter != nil {
		h.limiter.stop()
	}
}

type createCommentRequest struct {
	Content         string `json:"content" validate:"required"`
	ArticleID       string `json:"articleId" validate:"required"`
	ParentCommentID string `json:"parentCommentId"`
}

type updateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *Handler) GetThread(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	articleID := mux.Vars(r)["articleId"]
	q := r.URL.Query()

	if q.Get("page") == "" && q.Get("limit") == "" && q.Get("sort") == "" {
		roots, err := h.svc.GetThread(r.Context(), articleID)
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		writeJSON(w, stdhttp.StatusOK, model.ThreadPage{
			ArticleID: articleID,
			Items:     roots,
			Page:      1,
			Total:     len(roots),
		})
		return
	}

	page, ok := queryInt(w, q.Get("page"), 1, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(w, q.Get("limit"), 20, "limit")
	if !ok {
		return
	}

	tp, err := h.svc.GetThreadPage(r.Context(), articleID, page, limit, model.Sort(q.Get("sort")))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, tp)
}

func (h *Handler) CreateComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req createCommentRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.svc.Create(r.Context(), service.CreateInput{
		ArticleID: req.ArticleID,
		AuthorID:  userID(r.Context()),
		ParentID:  req.ParentCommentID,
		Content:   req.Content,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusCreated, c)
}

func (h *Handler) UpdateComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req updateCommentRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], userID(r.Context()), req.Content)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, c)
}

func (h *Handler) DeleteComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	res, err := h.svc.Delete(r.Context(), mux.Vars(r)["id"], userID(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, res)
}

func (h *Handler) LikeComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	res, err := h.svc.ToggleLike(r.Context(), mux.Vars(r)["id"], userID(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, res)
}

func (h *Handler) GetSubtree(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	n, err := h.svc.GetSubtree(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, n)
}

func (h *Handler) GetPath(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	items, err := h.svc.GetPath(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, map[string]any{"items": items})
}

// decode reads a JSON body into dst and runs the struct validations. It
// writes the error response itself and reports whether the handler may go on.
func (h *Handler) decode(w stdhttp.ResponseWriter, r *stdhttp.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, stdhttp.StatusBadRequest, map[string]any{"error": "bad json"})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, stdhttp.StatusBadRequest, map[string]any{"error": "invalid input", "fields": fields})
			return false
		}
		writeJSON(w, stdhttp.StatusBadRequest, map[string]any{"error": "invalid input"})
		return false
	}
	return true
}

func (h *Handler) serviceError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, stdhttp.StatusBadRequest, map[string]any{"error": "invalid input"})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, stdhttp.StatusNotFound, map[string]any{"error": "not found"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, stdhttp.StatusForbidden, map[string]any{"error": "forbidden"})
	case errors.Is(err, service.ErrStorage):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("storage_error")
		writeJSON(w, stdhttp.StatusServiceUnavailable, map[string]any{"error": "temporarily unavailable"})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("internal_error")
		writeJSON(w, stdhttp.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(w stdhttp.ResponseWriter, raw string, def int, name string) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, stdhttp.StatusBadRequest, map[string]any{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}
