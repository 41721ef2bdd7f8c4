package http

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	headerRequestID = "X-Request-Id"
	// headerUserID carries the identity resolved by the upstream gateway.
	headerUserID = "X-User-Id"
)

type ctxKey int

const userKey ctxKey = iota

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}

func (h *Handler) recoverPanic(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				h.serviceError(w, r, fmt.Errorf("panic: %v", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestID tags the request, the response and the request logger with an id,
// reusing the one sent by the client when present.
func (h *Handler) requestID(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		l := h.log.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}

// instrument logs every request and feeds the HTTP metrics, labelled by route
// template so that ids do not blow up cardinality.
func (h *Handler) instrument(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		m := httpsnoop.CaptureMetrics(next, w, r)

		if h.metrics != nil {
			h.metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(m.Code)).Inc()
			h.metrics.HTTPDuration.WithLabelValues(route, r.Method).Observe(m.Duration.Seconds())
		}
		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", m.Code).
			Int64("bytes", m.Written).
			Dur("duration", m.Duration).
			Msg("http_request")
	})
}

func (h *Handler) rateLimit(next stdhttp.Handler) stdhttp.Handler {
	if h.limiter == nil {
		return next
	}
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !h.limiter.allow(ip) {
			writeJSON(w, stdhttp.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) identify(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		id := r.Header.Get(headerUserID)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// timeout bounds every store call made on behalf of the request.
func (h *Handler) timeout(next stdhttp.Handler) stdhttp.Handler {
	if h.cfg.RequestTimeout <= 0 {
		return next
	}
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireUser(next stdhttp.HandlerFunc) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if userID(r.Context()) == "" {
			writeJSON(w, stdhttp.StatusUnauthorized, map[string]any{"error": "authentication required"})
			return
		}
		next(w, r)
	})
}
