package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/stretchr/testify/require"
)

func testService(name string) config.Service {
	return config.Service{
		Name:         name,
		Base:         "http://127.0.0.1:1",
		IdleTimeout:  config.Duration(time.Minute),
		StartTimeout: config.Duration(2 * time.Second),
		Commands: config.Commands{
			Start: "true",
			Stop:  "true",
			Check: "true",
		},
		HealthCheck: config.HealthCheck{Type: config.HealthNone},
	}
}

func TestEnsureOnlineStartsOfflineService(t *testing.T) {
	svc := testService("api")
	m := NewManager(map[string]config.Service{"api": svc})

	_, st, _ := m.Service("api")
	require.Equal(t, StatusOffline, st.Status())

	err := m.EnsureOnline(context.Background(), "api")
	require.NoError(t, err)
	require.Equal(t, StatusOnline, st.Status())
	require.Equal(t, uint64(1), st.StartCount())
}

func TestEnsureOnlineIsIdempotentWhenAlreadyOnline(t *testing.T) {
	svc := testService("api")
	m := NewManager(map[string]config.Service{"api": svc})
	require.NoError(t, m.EnsureOnline(context.Background(), "api"))
	require.NoError(t, m.EnsureOnline(context.Background(), "api"))

	_, st, _ := m.Service("api")
	require.Equal(t, uint64(1), st.StartCount())
}

func TestEnsureOnlineSingleFlightsConcurrentStarts(t *testing.T) {
	svc := testService("api")
	m := NewManager(map[string]config.Service{"api": svc})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, m.EnsureOnline(context.Background(), "api"))
		}()
	}
	wg.Wait()

	_, st, _ := m.Service("api")
	require.Equal(t, StatusOnline, st.Status())
	require.Equal(t, uint64(1), st.StartCount())
}

func TestStartFailureReturnsToOffline(t *testing.T) {
	svc := testService("api")
	svc.Commands.Start = "exit 1"
	m := NewManager(map[string]config.Service{"api": svc})

	err := m.EnsureOnline(context.Background(), "api")
	require.Error(t, err)

	_, st, _ := m.Service("api")
	require.Equal(t, StatusOffline, st.Status())
}

func TestStopTransitionsToOffline(t *testing.T) {
	svc := testService("api")
	m := NewManager(map[string]config.Service{"api": svc})
	require.NoError(t, m.EnsureOnline(context.Background(), "api"))

	require.NoError(t, m.Stop(context.Background(), "api"))
	_, st, _ := m.Service("api")
	require.Equal(t, StatusOffline, st.Status())
	require.Greater(t, st.TotalUptime(), time.Duration(0))
}

func TestStopFailureStillReachesOffline(t *testing.T) {
	svc := testService("api")
	svc.Commands.Stop = "exit 3"
	m := NewManager(map[string]config.Service{"api": svc})
	require.NoError(t, m.EnsureOnline(context.Background(), "api"))

	require.NoError(t, m.Stop(context.Background(), "api"))
	_, st, _ := m.Service("api")
	require.Equal(t, StatusOffline, st.Status())
}

func TestProxyOnlyServiceStartsOnline(t *testing.T) {
	svc := testService("api")
	svc.ProxyOnly = true
	m := NewManager(map[string]config.Service{"api": svc})

	_, st, _ := m.Service("api")
	require.Equal(t, StatusOnline, st.Status())
	require.NoError(t, m.EnsureOnline(context.Background(), "api"))

	require.Error(t, m.Stop(context.Background(), "api"))
}

func TestReconcileStopsRemovedAndRegistersAdded(t *testing.T) {
	svc := testService("api")
	m := NewManager(map[string]config.Service{"api": svc})
	require.NoError(t, m.EnsureOnline(context.Background(), "api"))

	newSvc := testService("web")
	added, removed := m.Reconcile(context.Background(), map[string]config.Service{"web": newSvc})
	require.Equal(t, []string{"web"}, added)
	require.Equal(t, []string{"api"}, removed)

	_, _, ok := m.Service("api")
	require.False(t, ok)
	_, st, ok := m.Service("web")
	require.True(t, ok)
	require.Equal(t, StatusOffline, st.Status())
}

func TestConnectionAccounting(t *testing.T) {
	st := NewState(false)
	require.Equal(t, int64(0), st.ActiveConnections())
	st.IncConnections()
	st.IncConnections()
	require.Equal(t, int64(2), st.ActiveConnections())
	st.DecConnections()
	require.Equal(t, int64(1), st.ActiveConnections())
	st.DecConnections()
	require.Equal(t, int64(0), st.ActiveConnections())
}
