package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// maxRequestIDLength bounds client-supplied identifiers.
const maxRequestIDLength = 128

// RequestID tags every request with an identifier that the report pipeline
// carries into its log fields, so an execution-ledger row or a slow-query
// warning can be traced back to the originating HTTP call. A client-supplied
// X-Request-ID is kept only when it is safe to log; anything else is replaced
// with a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !safeRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(domain.WithRequestID(r.Context(), id)))
	})
}

// safeRequestID accepts only identifiers that cannot forge log lines: ASCII
// letters, digits, hyphens, and underscores, at most maxRequestIDLength bytes.
func safeRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
