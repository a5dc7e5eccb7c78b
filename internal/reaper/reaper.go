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

// Package reaper periodically stops services that have sat idle — zero
// active connections, past their configured idle window — freeing their
// process until the next request pulls them back up.
package reaper

import (
	"context"
	"log"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/service"
)

// sweepInterval is how often the reaper checks every service for idleness.
const sweepInterval = 3 * time.Second

// Reaper owns the background sweep loop.
type Reaper struct {
	manager *service.Manager
	stop    chan struct{}
}

// New builds a Reaper bound to manager. It does not start sweeping until Run.
func New(manager *service.Manager) *Reaper {
	return &Reaper{manager: manager, stop: make(chan struct{})}
}

// Run blocks, sweeping every sweepInterval until ctx is canceled or Stop is
// called.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// Stop ends the sweep loop.
func (r *Reaper) Stop() {
	close(r.stop)
}

func (r *Reaper) sweep(ctx context.Context) {
	for _, name := range r.manager.All() {
		svc, st, ok := r.manager.Service(name)
		if !ok || svc.ProxyOnly {
			continue
		}
		if st.Status() != service.StatusOnline {
			continue
		}
		if st.ActiveConnections() != 0 {
			continue
		}
		if time.Since(st.LastAccess()) <= time.Duration(svc.IdleTimeout) {
			continue
		}

		go func(name string) {
			log.Printf("[reaper] %s idle for >%s with no active connections, stopping", name, svc.IdleTimeout)
			if err := r.manager.Stop(ctx, name); err != nil {
				log.Printf("[reaper] failed to stop %s: %v", name, err)
			}
		}(name)
	}
}
