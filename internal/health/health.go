/* *****************************************************************************
 * Nehonix XyPriss System CLI
 *
 * ACCESS RESTRICTIONS:
 * - This software is exclusively for use by Authorized Personnel of NEHONIX
 * - Intended for Internal Use only within NEHONIX operations
 * - No rights granted to unauthorized individuals or entities
 * - All modifications are works made for hire assigned to NEHONIX
 *
 * PROHIBITED ACTIVITIES:
 * - Copying, distributing, or sublicensing without written permission
 * - Reverse engineering, decompiling, or disassembling
 * - Creating derivative works without explicit authorization
 * - External use or commercial distribution outside NEHONIX
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 * For questions or permissions, contact:
 * NEHONIX Legal Department
 * Email: legal@nehonix.com
 * Website: www.nehonix.com
 ***************************************************************************** */

// Package health probes a service's upstream for readiness using one of
// several strategies: a raw TCP connect, an HTTP GET, an arbitrary shell
// command, or an always-pass check.
package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/Nehonix-Team/dynagate/internal/executor"
)

const (
	// breakerThreshold is how many consecutive failed probes open the
	// breaker for a service during a WaitHealthy wait.
	breakerThreshold = 8
	// breakerCooldown bounds how long probing is skipped once open.
	breakerCooldown = 2 * time.Second
)

// Prober evaluates whether a service's upstream is ready to receive traffic.
type Prober struct {
	exec       *executor.Executor
	httpClient *http.Client

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// New builds a Prober. exec may be shared with the service manager.
func New(exec *executor.Executor) *Prober {
	return &Prober{
		exec:       exec,
		httpClient: &http.Client{},
		breakers:   make(map[string]*CircuitBreaker),
	}
}

// breakerFor returns the per-service circuit breaker used to pace repeated
// probing within a single WaitHealthy wait, creating it on first use.
func (p *Prober) breakerFor(name string) *CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()
	cb, ok := p.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(true, breakerThreshold, breakerCooldown)
		p.breakers[name] = cb
	}
	return cb
}

// Probe runs a single check attempt for the given service and reports success.
func (p *Prober) Probe(ctx context.Context, svc config.Service) (bool, error) {
	switch svc.HealthCheck.Type {
	case config.HealthNone:
		return true, nil
	case config.HealthTCP:
		return p.probeTCP(ctx, svc)
	case config.HealthHTTP:
		return p.probeHTTP(ctx, svc)
	case config.HealthCommand:
		return p.probeCommand(ctx, svc)
	default:
		return false, fmt.Errorf("health: unknown check type %q", svc.HealthCheck.Type)
	}
}

func (p *Prober) probeTCP(ctx context.Context, svc config.Service) (bool, error) {
	target, err := url.Parse(svc.Base)
	if err != nil {
		return false, fmt.Errorf("health: parse base: %w", err)
	}
	host := target.Hostname()
	port := target.Port()
	if port == "" {
		if target.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	timeout := time.Duration(svc.HealthCheck.Timeout)
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return false, nil
	}
	_ = conn.Close()
	return true, nil
}

func (p *Prober) probeHTTP(ctx context.Context, svc config.Service) (bool, error) {
	target := svc.HealthCheck.URL
	if target == "" {
		target = svc.Base
	}
	timeout := time.Duration(svc.HealthCheck.Timeout)
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("health: build request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()

	expected := svc.HealthCheck.ExpectedStatus
	if expected == 0 {
		expected = 200
	}
	return resp.StatusCode == expected, nil
}

func (p *Prober) probeCommand(ctx context.Context, svc config.Service) (bool, error) {
	if svc.HealthCheck.Command == "" {
		return false, fmt.Errorf("health: command check requires a command")
	}
	res := p.exec.Run(ctx, svc.HealthCheck.Command, executor.Options{
		Cwd:     svc.Commands.Cwd,
		Env:     svc.Commands.Env,
		Timeout: time.Duration(svc.HealthCheck.Timeout),
		Label:   svc.Name,
	})
	return res.ExitCode == 0, nil
}

// WaitHealthy polls Probe until it succeeds or svc.StartTimeout elapses. A
// per-service circuit breaker paces the loop once probes fail repeatedly in
// a row, so a service that is clearly not coming up doesn't get hammered
// with probe attempts for the remainder of the wait.
func (p *Prober) WaitHealthy(ctx context.Context, svc config.Service) error {
	deadline := time.Now().Add(time.Duration(svc.StartTimeout))
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	cb := p.breakerFor(svc.Name)
	// Each wait starts with a closed breaker; failures from an earlier wait
	// do not carry over.
	cb.RecordSuccess()
	for {
		if cb.Allow() {
			ok, err := p.Probe(ctx, svc)
			if err != nil {
				return err
			}
			if ok {
				cb.RecordSuccess()
				return nil
			}
			cb.RecordFailure()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("health: service %q did not become healthy within %s", svc.Name, svc.StartTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
