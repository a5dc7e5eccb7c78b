package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Nehonix-Team/dynagate/internal/service"
	"github.com/stretchr/testify/require"
)

func TestServeHTTPForwardsRequestAndResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/widgets", r.URL.Path)
		require.Equal(t, "bar", r.Header.Get("X-Foo"))
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Reply", "ok")
		w.WriteHeader(http.StatusCreated)
		w.Write(append([]byte("echo:"), body...))
	}))
	defer upstream.Close()

	target, _ := url.Parse(upstream.URL)
	engine := NewEngine(NewTransport(true))
	st := service.NewState(false)

	req := httptest.NewRequest(http.MethodPost, "/widgets", strings.NewReader("payload"))
	req.Header.Set("X-Foo", "bar")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req, target, st)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "ok", rec.Header().Get("X-Reply"))
	require.Equal(t, "echo:payload", rec.Body.String())
	require.Equal(t, int64(0), st.ActiveConnections())
}

func TestServeHTTPReturns502OnUnreachableUpstream(t *testing.T) {
	target, _ := url.Parse("http://127.0.0.1:1")
	engine := NewEngine(NewTransport(true))
	st := service.NewState(false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req, target, st)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, int64(0), st.ActiveConnections())
}

func TestServeHTTPStripsHopByHopHeaders(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Connection"))
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	target, _ := url.Parse(upstream.URL)
	engine := NewEngine(NewTransport(true))
	st := service.NewState(false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Connection", "keep-alive")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req, target, st)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSanitizeHeaderValueStripsCRLF(t *testing.T) {
	require.Equal(t, "cleanvalue", sanitizeHeaderValue("clean\r\nvalue"))
	require.Equal(t, "plain", sanitizeHeaderValue("plain"))
}

func TestSpoolBodyRejectsOversizedBody(t *testing.T) {
	big := io.NopCloser(strings.NewReader(strings.Repeat("a", 10)))
	_, _, err := spoolBody(big, spoolHardCap+1)
	require.ErrorIs(t, err, errBodyTooLarge)
}

func TestSpoolBodyKeepsSmallBodyInMemory(t *testing.T) {
	r := io.NopCloser(strings.NewReader("hello world"))
	body, cleanup, err := spoolBody(r, 11)
	require.NoError(t, err)
	defer cleanup()
	data, _ := io.ReadAll(body)
	require.Equal(t, "hello world", string(data))
}
