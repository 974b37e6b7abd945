package api

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/campusconnect/campusconnect/internal/session"
	"github.com/campusconnect/campusconnect/pkg/apierror"
	"github.com/campusconnect/campusconnect/pkg/response"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionHeader carries the session id on API requests.
const SessionHeader = "X-Session-ID"

type contextKey string

const requestIDKey contextKey = "request_id"

// Recovery turns panics into 500 responses.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("panic", err).
					Str("requestId", RequestIDFrom(r.Context())).
					Bytes("stack", debug.Stack()).
					Msg("recovered from panic")
				response.Error(w, apierror.InternalError("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// RequestID tags each request with the caller's X-Request-ID or a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request id stored by RequestID.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Logging logs one line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Str("requestId", RequestIDFrom(r.Context())).
			Msg("http request")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// SessionLoader resolves the X-Session-ID header into a session on the
// request context. Requests without the header pass through; an unknown or
// ended session is rejected.
func SessionLoader(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" || sessions == nil {
				next.ServeHTTP(w, r)
				return
			}

			s, err := sessions.Get(id)
			if errors.Is(err, session.ErrNotFound) {
				response.Error(w, apierror.Unauthorized("session expired or unknown"))
				return
			}
			if err != nil {
				log.Error().Err(err).Msg("failed to load session")
				response.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
		})
	}
}
