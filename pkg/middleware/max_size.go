package middleware

import "net/http"

// MaxRequestSize caps the request body; handlers reading past the
// limit get an error from the body reader instead of buffering an
// arbitrarily large payload.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
