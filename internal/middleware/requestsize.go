package middleware

import (
	"net/http"
)

// DefaultMaxRequestSize caps request bodies at 1 MiB. Every request this
// service accepts is a small JSON document; actual file bytes go straight to
// the blob store and never pass through here.
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize rejects request bodies larger than maxBytes. Bodies with a
// declared Content-Length over the cap are refused before reading; chunked
// bodies are cut off by MaxBytesReader once they exceed it.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()

			next.ServeHTTP(w, r)
		})
	}
}
