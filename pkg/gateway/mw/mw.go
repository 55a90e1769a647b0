// Package mw provides the gateway's HTTP middleware: request ids, API key
// auth, panic recovery, access logging, and CORS.
package mw

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/echolabs-ai/echotwin/pkg/core"
	"github.com/echolabs-ai/echotwin/pkg/gateway/config"
)

type ctxKeyRequestID struct{}

// RequestIDFrom extracts the request id set by the RequestID middleware.
func RequestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyRequestID{}).(string)
	return id, ok && id != ""
}

// WithRequestID stores a request id on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// RequestID assigns each request an id, honoring X-Request-ID when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = "req_" + randHex(10)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// Auth enforces Authorization: Bearer against the configured key set.
// An empty key set disables auth.
func Auth(cfg config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(cfg.APIKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		reqID, _ := RequestIDFrom(r.Context())
		token, ok := parseBearer(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, &core.Error{
				Type:      core.ErrValidation,
				Message:   "missing bearer token",
				Param:     "Authorization",
				RequestID: reqID,
			})
			return
		}
		if _, ok := cfg.APIKeys[token]; !ok {
			writeJSONError(w, http.StatusUnauthorized, &core.Error{
				Type:      core.ErrValidation,
				Message:   "invalid api key",
				RequestID: reqID,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseBearer(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	return token, token != ""
}

// Recover turns handler panics into 500s.
func Recover(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if logger != nil {
					logger.Error("panic", "panic", v)
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// AccessLog logs one line per request.
func AccessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(sw, r)
		if logger == nil {
			return
		}
		reqID, _ := RequestIDFrom(r.Context())
		logger.Info("request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// CORS applies the configured allowed-origin set. An empty set disables CORS
// handling entirely.
func CORS(cfg config.Config, next http.Handler) http.Handler {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			_, allowed := cfg.CORSAllowedOrigins[origin]
			if !allowed {
				_, allowed = cfg.CORSAllowedOrigins["*"]
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func randHex(nbytes int) string {
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand should not fail in practice; fall back to time-based entropy.
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000000000")))
	}
	return hex.EncodeToString(b)
}

type errorEnvelope struct {
	Error *core.Error `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, err *core.Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: err})
}
