package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// etagCacheControl forces revalidation: city views change every tick, so
// a stored copy is only reusable after a 304.
const etagCacheControl = "no-cache"

type etagResponseWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *etagResponseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *etagResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.buf.Write(b)
}

// ETag hashes successful GET bodies into a strong ETag and answers a
// matching If-None-Match with 304 Not Modified. Handlers that already set
// an ETag keep theirs.
func ETag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		etw := &etagResponseWriter{ResponseWriter: w}
		next.ServeHTTP(etw, r)
		if etw.status == 0 {
			etw.status = http.StatusOK
		}

		if etw.status != http.StatusOK {
			w.WriteHeader(etw.status)
			_, _ = w.Write(etw.buf.Bytes())
			return
		}

		etag := w.Header().Get("ETag")
		if etag == "" {
			sum := sha256.Sum256(etw.buf.Bytes())
			etag = `"` + hex.EncodeToString(sum[:16]) + `"`
			w.Header().Set("ETag", etag)
		}
		w.Header().Set("Cache-Control", etagCacheControl)

		if matchesETag(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(etw.buf.Bytes())
	})
}

// matchesETag applies the weak comparison If-None-Match requires.
func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
