/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see state.go for full license header)
 ***************************************************************************** */

package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/Nehonix-Team/dynagate/internal/executor"
	"github.com/Nehonix-Team/dynagate/internal/health"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/singleflight"
)

// stoppingWaitCap bounds how long a handler will wait for a concurrent
// stop to finish before giving up and returning 503 (see DESIGN.md open
// question #2 — not yet config-exposed).
const stoppingWaitCap = 30 * time.Second

// Manager owns the descriptors for every configured service and drives
// each one's State through start/stop/check commands. Start is coordinated
// per service name via a single-flight group so concurrent first-requests
// never race to spawn the same backend twice.
type Manager struct {
	exec   *executor.Executor
	prober *health.Prober

	mu       sync.RWMutex
	services map[string]config.Service
	states   map[string]*State

	startGroup singleflight.Group
}

// NewManager builds a Manager for the given set of service descriptors.
func NewManager(services map[string]config.Service) *Manager {
	exec := executor.New()
	m := &Manager{
		exec:     exec,
		prober:   health.New(exec),
		services: services,
		states:   make(map[string]*State, len(services)),
	}
	for name, svc := range services {
		m.states[name] = NewState(svc.ProxyOnly)
	}
	return m
}

// Service returns the descriptor and state for name, if configured.
func (m *Manager) Service(name string) (config.Service, *State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	svc, ok := m.services[name]
	if !ok {
		return config.Service{}, nil, false
	}
	return svc, m.states[name], true
}

// All returns every configured service name.
func (m *Manager) All() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	return names
}

// EnsureOnline brings svc to StatusOnline if it isn't already, coordinating
// with any concurrent caller for the same service via single-flight. It
// returns once the service is online and health-probed ready, or an error
// if the start command or health wait failed.
func (m *Manager) EnsureOnline(ctx context.Context, name string) error {
	svc, st, ok := m.Service(name)
	if !ok {
		return fmt.Errorf("service: unknown service %q", name)
	}
	if svc.ProxyOnly {
		return nil
	}

	if st.Status() == StatusStopping {
		if err := m.waitForOffline(ctx, st); err != nil {
			return err
		}
	}
	if st.Status() == StatusOnline {
		return nil
	}

	// singleflight.Group is itself the at-most-one-concurrent-start
	// primitive: every concurrent caller for this name shares the one
	// doStart call in flight, regardless of how each observed st.Status()
	// a moment ago.
	_, err, _ := m.startGroup.Do(name, func() (interface{}, error) {
		if st.Status() == StatusOnline {
			return nil, nil
		}
		if !st.compareAndSetStatus(StatusOffline, StatusStarting) {
			// Shouldn't happen: singleflight already serialized this key,
			// and the only other writer of this transition is doStart itself.
			return nil, fmt.Errorf("service: %q is in an unexpected state for start", name)
		}
		return nil, m.doStart(ctx, svc, st)
	})
	return err
}

func (m *Manager) doStart(ctx context.Context, svc config.Service, st *State) error {
	log.Printf("[service %s] starting", svc.Name)
	// The start outlives the triggering request: a client abort does not
	// cancel it, only StartTimeout bounds it.
	startCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(svc.StartTimeout))
	defer cancel()

	res := m.exec.Run(startCtx, svc.Commands.Start, executor.Options{
		Cwd:   svc.Commands.Cwd,
		Env:   svc.Commands.Env,
		Label: svc.Name,
	})
	if res.ExitCode != 0 {
		st.setStatus(StatusOffline)
		return fmt.Errorf("service: %q start command failed (exit %d): %s", svc.Name, res.ExitCode, res.Stderr)
	}
	recordAdvisoryPID(st, res.PID)

	if err := m.prober.WaitHealthy(startCtx, svc); err != nil {
		st.setStatus(StatusOffline)
		return fmt.Errorf("service: %q failed to become healthy: %w", svc.Name, err)
	}

	st.markOnline()
	log.Printf("[service %s] online", svc.Name)
	return nil
}

// Stop transitions svc from online to offline, running its stop command.
// Stop failures are logged but never block the transition back to offline,
// per the spec's best-effort stop semantics.
func (m *Manager) Stop(ctx context.Context, name string) error {
	svc, st, ok := m.Service(name)
	if !ok {
		return fmt.Errorf("service: unknown service %q", name)
	}
	if svc.ProxyOnly {
		return fmt.Errorf("service: %q is proxyOnly and cannot be stopped", name)
	}
	if !st.compareAndSetStatus(StatusOnline, StatusStopping) {
		return fmt.Errorf("service: %q is not online", name)
	}

	log.Printf("[service %s] stopping", svc.Name)
	res := m.exec.Run(ctx, svc.Commands.Stop, executor.Options{
		Cwd:   svc.Commands.Cwd,
		Env:   svc.Commands.Env,
		Label: svc.Name,
	})
	if res.ExitCode != 0 {
		log.Printf("[service %s] stop command exited %d: %s", svc.Name, res.ExitCode, res.Stderr)
	}
	st.markOfflineAfterStop()
	log.Printf("[service %s] offline", svc.Name)
	return nil
}

// IsRunning runs the service's check command and reports its exit status.
func (m *Manager) IsRunning(ctx context.Context, name string) (bool, error) {
	svc, _, ok := m.Service(name)
	if !ok {
		return false, fmt.Errorf("service: unknown service %q", name)
	}
	if svc.Commands.Check == "" {
		return svc.ProxyOnly, nil
	}
	return m.exec.Check(ctx, svc.Commands.Check, executor.Options{
		Cwd: svc.Commands.Cwd, Env: svc.Commands.Env, Label: svc.Name,
	}), nil
}

// recordAdvisoryPID stores the start command's own PID on st if gopsutil
// confirms a process by that number is still running. The start command is
// an arbitrary shell string that frequently backgrounds the real process
// (`nohup … &`, `docker run -d`), so this PID may belong to a shell that has
// already exited by the time this check runs, or to an intermediary rather
// than the final backend — it is advisory only, exposed for the admin
// plane's pid? field, and is never used to gate readiness or liveness.
func recordAdvisoryPID(st *State, pid int) {
	if pid <= 0 {
		return
	}
	running, err := process.PidExists(int32(pid))
	if err != nil || !running {
		return
	}
	st.SetPID(pid)
}

func (m *Manager) waitForOffline(ctx context.Context, st *State) error {
	deadline := time.Now().Add(stoppingWaitCap)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for st.Status() == StatusStopping {
		if time.Now().After(deadline) {
			return fmt.Errorf("service: timed out waiting for stop to complete")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Reconcile replaces the manager's service set with newServices, the result
// of a config hot-reload. Services present in both sets keep their existing
// runtime State (so an in-flight or already-started service is undisturbed);
// services removed from newServices are stopped (best-effort, if running)
// and dropped; newly present services are registered offline. It returns the
// added and removed service names for the caller to log.
func (m *Manager) Reconcile(ctx context.Context, newServices map[string]config.Service) (added, removed []string) {
	m.mu.Lock()
	type stopJob struct {
		svc config.Service
		st  *State
	}
	var toStop []stopJob
	for name, svc := range m.services {
		if _, ok := newServices[name]; !ok {
			removed = append(removed, name)
			toStop = append(toStop, stopJob{svc: svc, st: m.states[name]})
			delete(m.states, name)
		}
	}
	for name := range newServices {
		if _, ok := m.services[name]; !ok {
			added = append(added, name)
			m.states[name] = NewState(newServices[name].ProxyOnly)
		}
	}
	m.services = newServices
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, job := range toStop {
		wg.Add(1)
		go func(svc config.Service, st *State) {
			defer wg.Done()
			if svc.ProxyOnly || st.Status() != StatusOnline {
				return
			}
			if !st.compareAndSetStatus(StatusOnline, StatusStopping) {
				return
			}
			log.Printf("[service %s] reload: stopping removed service", svc.Name)
			res := m.exec.Run(ctx, svc.Commands.Stop, executor.Options{
				Cwd: svc.Commands.Cwd, Env: svc.Commands.Env, Label: svc.Name,
			})
			if res.ExitCode != 0 {
				log.Printf("[service %s] reload stop command exited %d: %s", svc.Name, res.ExitCode, res.Stderr)
			}
			st.markOfflineAfterStop()
		}(job.svc, job.st)
	}
	wg.Wait()
	return added, removed
}

// StopAll performs a best-effort, concurrent stop of every online or
// starting non-proxyOnly service. Used on graceful shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, name := range m.All() {
		svc, st, ok := m.Service(name)
		if !ok || svc.ProxyOnly {
			continue
		}
		if st.Status() != StatusOnline && st.Status() != StatusStarting {
			continue
		}
		wg.Add(1)
		go func(name string, st *State) {
			defer wg.Done()
			// A service still starting is stopped once its start settles.
			for st.Status() == StatusStarting {
				select {
				case <-ctx.Done():
					return
				case <-time.After(50 * time.Millisecond):
				}
			}
			if st.Status() != StatusOnline {
				return
			}
			if err := m.Stop(ctx, name); err != nil {
				log.Printf("[service %s] shutdown stop failed: %v", name, err)
			}
		}(name, st)
	}
	wg.Wait()
}
