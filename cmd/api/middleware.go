package main

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mcclellann/bankLoan/pkg/models"
	"go.uber.org/zap"
)

type ctxKey int

const actorKey ctxKey = iota

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(start)),
		}
		if a := actorFrom(r.Context()); a != nil {
			fields = append(fields, zap.Stringer("user_id", a.UserID()))
		}
		switch {
		case rec.status >= 500:
			s.logger.Error("request", fields...)
		case rec.status >= 400:
			s.logger.Warn("request", fields...)
		default:
			s.logger.Info("request", fields...)
		}
	})
}

// recoverPanics turns a handler panic into a 500.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.logger.Error("panic recovered",
					zap.Any("panic", v),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				writeFail(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate requires a bearer token and stores the resolved actor on the
// request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeFail(w, http.StatusUnauthorized, "unauthorized", "Authentication credentials were not provided", nil)
			return
		}
		actor, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		h, ok := r.Context().Value(actorKey).(*actorHolder)
		if !ok {
			h = &actorHolder{}
			r = r.WithContext(context.WithValue(r.Context(), actorKey, h))
		}
		h.actor = actor
		next.ServeHTTP(w, r)
	})
}

type actorHolder struct {
	actor *models.Actor
}

// withActorHolder installs the slot authenticate fills, so the request
// logger outside it can see who made the request.
func withActorHolder(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, &actorHolder{})))
	})
}

func actorFrom(ctx context.Context) *models.Actor {
	h, ok := ctx.Value(actorKey).(*actorHolder)
	if !ok {
		return nil
	}
	return h.actor
}
