package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/Nehonix-Team/dynagate/internal/executor"
	"github.com/stretchr/testify/require"
)

func TestProbeNoneAlwaysHealthy(t *testing.T) {
	p := New(executor.New())
	ok, err := p.Probe(context.Background(), config.Service{HealthCheck: config.HealthCheck{Type: config.HealthNone}})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProbeTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	p := New(executor.New())
	svc := config.Service{
		Base:        "http://" + ln.Addr().String(),
		HealthCheck: config.HealthCheck{Type: config.HealthTCP, Timeout: config.Duration(time.Second)},
	}
	ok, err := p.Probe(context.Background(), svc)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProbeTCPUnreachable(t *testing.T) {
	p := New(executor.New())
	svc := config.Service{
		Base:        "http://127.0.0.1:1",
		HealthCheck: config.HealthCheck{Type: config.HealthTCP, Timeout: config.Duration(100 * time.Millisecond)},
	}
	ok, err := p.Probe(context.Background(), svc)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProbeHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(executor.New())
	svc := config.Service{
		Base:        srv.URL,
		HealthCheck: config.HealthCheck{Type: config.HealthHTTP, ExpectedStatus: 200, Timeout: config.Duration(time.Second)},
	}
	ok, err := p.Probe(context.Background(), svc)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProbeCommand(t *testing.T) {
	p := New(executor.New())
	svc := config.Service{
		Name:        "svc",
		HealthCheck: config.HealthCheck{Type: config.HealthCommand, Command: "true"},
	}
	ok, err := p.Probe(context.Background(), svc)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWaitHealthyTimesOut(t *testing.T) {
	p := New(executor.New())
	svc := config.Service{
		Name:         "svc",
		Base:         "http://127.0.0.1:1",
		StartTimeout: config.Duration(200 * time.Millisecond),
		HealthCheck:  config.HealthCheck{Type: config.HealthTCP, Timeout: config.Duration(50 * time.Millisecond)},
	}
	err := p.WaitHealthy(context.Background(), svc)
	require.Error(t, err)
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(true, 2, 50*time.Millisecond)
	require.True(t, cb.Allow())
	cb.RecordFailure()
	require.True(t, cb.Allow())
	cb.RecordFailure()
	require.False(t, cb.Allow())
	time.Sleep(60 * time.Millisecond)
	require.True(t, cb.Allow())
}
