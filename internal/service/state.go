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

// Package service owns the per-service runtime state machine
// (offline/starting/online/stopping) and the Service Manager that drives it
// through start/stop/health-check commands.
package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/config"
)

// Status is a service's point-in-time lifecycle state.
type Status int32

const (
	StatusOffline Status = iota
	StatusStarting
	StatusOnline
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusOffline:
		return "offline"
	case StatusStarting:
		return "starting"
	case StatusOnline:
		return "online"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// State is the mutable runtime record for a single service. status and
// activeConnections are exposed as atomics for the hot, lock-free read path;
// the remaining fields (timestamps, counters) are guarded by mu since they
// only change together during a state transition.
type State struct {
	status            int32 // atomic Status
	activeConnections int64 // atomic

	mu           sync.RWMutex
	lastAccess   time.Time
	startTime    time.Time
	startCount   uint64
	totalUptime  time.Duration
	pid          int
}

// NewState returns a State in StatusOffline, or StatusOnline when proxyOnly.
func NewState(proxyOnly bool) *State {
	s := &State{lastAccess: time.Now()}
	if proxyOnly {
		atomic.StoreInt32(&s.status, int32(StatusOnline))
		s.startTime = time.Now()
	}
	return s
}

func (s *State) Status() Status { return Status(atomic.LoadInt32(&s.status)) }

func (s *State) setStatus(st Status) { atomic.StoreInt32(&s.status, int32(st)) }

// compareAndSetStatus performs the transition only if the current status
// matches from; it is the synchronization point that keeps the state
// machine's edges (§4.5) exclusive of one another.
func (s *State) compareAndSetStatus(from, to Status) bool {
	return atomic.CompareAndSwapInt32(&s.status, int32(from), int32(to))
}

func (s *State) ActiveConnections() int64 { return atomic.LoadInt64(&s.activeConnections) }

// IncConnections records one more in-flight stream (HTTP, SSE, or WebSocket).
func (s *State) IncConnections() {
	atomic.AddInt64(&s.activeConnections, 1)
	s.Touch()
}

// DecConnections releases one in-flight stream. Guarded callers must ensure
// this is called exactly once per IncConnections (the proxy engine wraps it
// in a sync.Once per stream).
func (s *State) DecConnections() {
	atomic.AddInt64(&s.activeConnections, -1)
	s.Touch()
}

// Touch records traffic against this service, resetting its idle clock.
func (s *State) Touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

func (s *State) LastAccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

func (s *State) StartTime() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startTime, !s.startTime.IsZero()
}

func (s *State) StartCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startCount
}

func (s *State) TotalUptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uptime := s.totalUptime
	if !s.startTime.IsZero() && s.Status() == StatusOnline {
		uptime += time.Since(s.startTime)
	}
	return uptime
}

func (s *State) PID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pid
}

func (s *State) SetPID(pid int) {
	s.mu.Lock()
	s.pid = pid
	s.mu.Unlock()
}

// markOnline transitions from ∈{offline,starting} to online, recording a
// fresh startTime and incrementing startCount.
func (s *State) markOnline() {
	s.mu.Lock()
	s.startTime = time.Now()
	s.startCount++
	s.mu.Unlock()
	s.setStatus(StatusOnline)
}

// markOfflineAfterStop folds the just-finished online interval into
// totalUptime and clears startTime, then sets status to offline.
func (s *State) markOfflineAfterStop() {
	s.mu.Lock()
	if !s.startTime.IsZero() {
		s.totalUptime += time.Since(s.startTime)
		s.startTime = time.Time{}
	}
	s.pid = 0
	s.mu.Unlock()
	s.setStatus(StatusOffline)
}

// Snapshot is a point-in-time, lock-consistent view of a service for the
// admin plane and metrics exporter.
type Snapshot struct {
	Name              string
	Base              string
	Status            Status
	LastAccessTime    time.Time
	ActiveConnections int64
	IdleTimeout       time.Duration
	StartTimeout      time.Duration
	ProxyOnly         bool
	StartCount        uint64
	TotalUptime       time.Duration
	PID               int
}

// Snapshot builds a Snapshot for svc from its current State.
func (s *State) Snapshot(svc config.Service) Snapshot {
	return Snapshot{
		Name:              svc.Name,
		Base:              svc.Base,
		Status:            s.Status(),
		LastAccessTime:    s.LastAccess(),
		ActiveConnections: s.ActiveConnections(),
		IdleTimeout:       time.Duration(svc.IdleTimeout),
		StartTimeout:      time.Duration(svc.StartTimeout),
		ProxyOnly:         svc.ProxyOnly,
		StartCount:        s.StartCount(),
		TotalUptime:       s.TotalUptime(),
		PID:               s.PID(),
	}
}
