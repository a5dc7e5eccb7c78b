package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/stretchr/testify/require"
)

func testConfig(upstreamURL string) *config.Config {
	cfg := &config.Config{
		Host: "127.0.0.1",
		Port: 3000,
		Services: map[string]config.Service{
			"api": {
				Name:         "api",
				Base:         upstreamURL,
				IdleTimeout:  config.Duration(time.Minute),
				StartTimeout: config.Duration(time.Second),
				ProxyOnly:    true,
				HealthCheck:  config.HealthCheck{Type: config.HealthNone},
				Routes:       []config.RouteSpec{{Host: "api.local", Target: upstreamURL}},
			},
		},
	}
	return cfg
}

func TestMainHandlerRoutesByHost(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello from upstream"))
	}))
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	gw, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "api.local"
	rec := httptest.NewRecorder()
	gw.mainHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello from upstream", rec.Body.String())
}

func TestMainHandlerReturns404ForUnknownHost(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	gw, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.local"
	rec := httptest.NewRecorder()
	gw.mainHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoverMiddlewareConvertsPanicTo500(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	gw, err := New(cfg)
	require.NoError(t, err)

	panicky := gw.recoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	panicky.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunShutsDownOnContextCancel(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	cfg.Port = 0 // let the OS pick a free port for this test
	gw, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = gw.Run(ctx)
	require.NoError(t, err)
}
