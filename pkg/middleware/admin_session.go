package middleware

import (
	"context"
	"net/http"
	"strings"

	"stayloft/pkg/logger"
	"stayloft/pkg/sealer"
)

const AdminSubjectKey contextKey = "admin_subject"

// AdminSession asserts a valid admin session before any mutating admin
// operation. The token is an opaque sealed value issued by the login
// endpoint; anything that fails to unseal, or has expired, is rejected
// without detail.
func AdminSession(sessionKey string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				rejectUnauthorized(w, log, r, "Missing Authorization header")
				return
			}

			subject, err := sealer.ParseSessionToken(sessionKey, token)
			if err != nil {
				rejectUnauthorized(w, log, r, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), AdminSubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if found {
		return token
	}

	return ""
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	requestID := ""
	if rid := r.Context().Value(RequestIDKey); rid != nil {
		if id, ok := rid.(string); ok {
			requestID = id
		}
	}

	log.Warn("Admin session verification failed",
		"request_id", requestID,
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
