/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see gateway.go for full license header)
 ***************************************************************************** */

package gateway

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/Nehonix-Team/dynagate/internal/config"
)

type compressionResponseWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w compressionResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

// CompressionMiddleware transparently Brotli- or gzip-encodes responses
// when the client's Accept-Encoding allows it. The gateway applies it to the
// admin listener only (the admin API and the static UI); the proxy listeners
// are not wrapped, so proxied upstream bodies — see internal/proxy, which
// streams them unmodified — keep the backend's own Content-Encoding.
func CompressionMiddleware(next http.Handler, cfg config.Compression) http.Handler {
	if !cfg.Enabled {
		return next
	}

	enabled := make(map[string]bool, len(cfg.Algorithms))
	for _, alg := range cfg.Algorithms {
		enabled[strings.TrimSpace(alg)] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acceptEncoding := r.Header.Get("Accept-Encoding")

		if enabled["br"] && strings.Contains(acceptEncoding, "br") {
			w.Header().Set("Content-Encoding", "br")
			w.Header().Add("Vary", "Accept-Encoding")
			br := brotli.NewWriter(w)
			defer br.Close()
			next.ServeHTTP(compressionResponseWriter{Writer: br, ResponseWriter: w}, r)
			return
		}

		if enabled["gzip"] && strings.Contains(acceptEncoding, "gzip") {
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Add("Vary", "Accept-Encoding")
			gz := gzip.NewWriter(w)
			defer gz.Close()
			next.ServeHTTP(compressionResponseWriter{Writer: gz, ResponseWriter: w}, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
