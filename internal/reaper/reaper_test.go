package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/Nehonix-Team/dynagate/internal/service"
	"github.com/stretchr/testify/require"
)

func testService(name string, idle time.Duration) config.Service {
	return config.Service{
		Name:         name,
		Base:         "http://127.0.0.1:1",
		IdleTimeout:  config.Duration(idle),
		StartTimeout: config.Duration(time.Second),
		Commands:     config.Commands{Start: "true", Stop: "true", Check: "true"},
		HealthCheck:  config.HealthCheck{Type: config.HealthNone},
	}
}

func TestSweepStopsIdleService(t *testing.T) {
	svc := testService("api", 10*time.Millisecond)
	m := service.NewManager(map[string]config.Service{"api": svc})
	require.NoError(t, m.EnsureOnline(context.Background(), "api"))

	time.Sleep(30 * time.Millisecond)

	r := New(m)
	r.sweep(context.Background())

	require.Eventually(t, func() bool {
		_, st, _ := m.Service("api")
		return st.Status() == service.StatusOffline
	}, time.Second, 10*time.Millisecond)
}

func TestSweepSkipsServiceWithActiveConnections(t *testing.T) {
	svc := testService("api", 10*time.Millisecond)
	m := service.NewManager(map[string]config.Service{"api": svc})
	require.NoError(t, m.EnsureOnline(context.Background(), "api"))

	_, st, _ := m.Service("api")
	st.IncConnections()
	time.Sleep(30 * time.Millisecond)

	r := New(m)
	r.sweep(context.Background())
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, service.StatusOnline, st.Status())
}

func TestSweepSkipsProxyOnlyService(t *testing.T) {
	svc := testService("api", time.Millisecond)
	svc.ProxyOnly = true
	m := service.NewManager(map[string]config.Service{"api": svc})

	time.Sleep(10 * time.Millisecond)
	r := New(m)
	r.sweep(context.Background())
	time.Sleep(20 * time.Millisecond)

	_, st, _ := m.Service("api")
	require.Equal(t, service.StatusOnline, st.Status())
}
