package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// minCompressSize skips compression for tiny bodies such as control acks.
const minCompressSize = 512

var (
	gzipPool = sync.Pool{New: func() any { return gzip.NewWriter(io.Discard) }}
	brPool   = sync.Pool{New: func() any { return brotli.NewWriterLevel(io.Discard, brotli.DefaultCompression) }}
)

type compressWriter struct {
	http.ResponseWriter
	encoding string
	status   int
	buf      []byte
	enc      io.WriteCloser
	release  func()
}

func (w *compressWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *compressWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.enc != nil {
		return w.enc.Write(b)
	}
	w.buf = append(w.buf, b...)
	if len(w.buf) < minCompressSize {
		return len(b), nil
	}
	w.start()
	if _, err := w.enc.Write(w.buf); err != nil {
		return 0, err
	}
	w.buf = nil
	return len(b), nil
}

func (w *compressWriter) start() {
	h := w.Header()
	h.Set("Content-Encoding", w.encoding)
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
	w.ResponseWriter.WriteHeader(w.status)

	switch w.encoding {
	case "br":
		bw := brPool.Get().(*brotli.Writer)
		bw.Reset(w.ResponseWriter)
		w.enc = bw
		w.release = func() { brPool.Put(bw) }
	default:
		gz := gzipPool.Get().(*gzip.Writer)
		gz.Reset(w.ResponseWriter)
		w.enc = gz
		w.release = func() { gzipPool.Put(gz) }
	}
}

// finish flushes the encoder, or writes a short body uncompressed.
func (w *compressWriter) finish() {
	if w.enc != nil {
		_ = w.enc.Close()
		w.release()
		return
	}
	if w.status == 0 {
		return
	}
	w.ResponseWriter.WriteHeader(w.status)
	if len(w.buf) > 0 {
		_, _ = w.ResponseWriter.Write(w.buf)
	}
}

// negotiateEncoding prefers brotli over gzip.
func negotiateEncoding(accept string) string {
	var gz bool
	for _, part := range strings.Split(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "br":
			return "br"
		case "gzip":
			gz = true
		}
	}
	if gz {
		return "gzip"
	}
	return ""
}

// Compress encodes response bodies with brotli or gzip according to
// Accept-Encoding. Websocket upgrades and HEAD requests pass through.
func Compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" || r.Method == http.MethodHead ||
			strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		cw := &compressWriter{ResponseWriter: w, encoding: encoding}
		defer cw.finish()
		next.ServeHTTP(cw, r)
	})
}
