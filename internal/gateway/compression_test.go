/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see gateway.go for full license header)
 ***************************************************************************** */

package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Nehonix-Team/dynagate/internal/config"
)

func TestCompressionMiddlewareSkippedWhenDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain"))
	})
	h := CompressionMiddleware(next, config.Compression{Enabled: false, Algorithms: []string{"gzip"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Empty(t, rr.Header().Get("Content-Encoding"))
	require.Equal(t, "plain", rr.Body.String())
}

func TestCompressionMiddlewareEncodesWhenEnabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain"))
	})
	h := CompressionMiddleware(next, config.Compression{Enabled: true, Algorithms: []string{"gzip"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
}
