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

// Package gateway wires the routing table, service manager, and proxy
// engine into the Listener Set (§4.9): the main host-routed listener, one
// listener per port-bound route, and an optional admin listener.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/admin"
	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/Nehonix-Team/dynagate/internal/proxy"
	"github.com/Nehonix-Team/dynagate/internal/reaper"
	"github.com/Nehonix-Team/dynagate/internal/routing"
	"github.com/Nehonix-Team/dynagate/internal/service"
)

// Gateway owns every net/http server the process runs and the background
// idle reaper.
type Gateway struct {
	cfg     *config.Config
	manager *service.Manager
	table   atomic.Pointer[routing.Table]
	engine  *proxy.Engine
	reaper  *reaper.Reaper
	admin   *admin.Server

	servers []*http.Server
	mu      sync.Mutex
}

// New builds a Gateway ready to Run.
func New(cfg *config.Config) (*Gateway, error) {
	table, err := routing.Build(cfg.Services)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	manager := service.NewManager(cfg.Services)
	transport := proxy.NewTransport(true)
	engine := proxy.NewEngine(transport)

	var adminSrv *admin.Server
	if cfg.AdminAPI.Enabled {
		adminSrv = admin.New(cfg.AdminAPI, manager, table)
	}

	g := &Gateway{
		cfg:     cfg,
		manager: manager,
		engine:  engine,
		reaper:  reaper.New(manager),
		admin:   adminSrv,
	}
	g.table.Store(table)
	return g, nil
}

// Reload rebuilds the routing table and reconciles the service set from a
// freshly loaded configuration: services no longer present are stopped and
// dropped, newly added ones are registered offline, and descriptors for
// services that still exist are refreshed in place. It does not add or
// remove the port-bound listeners themselves — a new or removed port route
// only takes full effect (its dedicated net.Listener binding) after a
// restart; Reload logs this when it detects a port-route set change.
func (g *Gateway) Reload(ctx context.Context, cfg *config.Config) error {
	table, err := routing.Build(cfg.Services)
	if err != nil {
		return fmt.Errorf("gateway: reload: %w", err)
	}

	oldPorts := g.table.Load().PortRoutes()
	added, removed := g.manager.Reconcile(ctx, cfg.Services)
	g.table.Store(table)
	g.cfg = cfg

	for _, name := range added {
		log.Printf("[gateway] reload: service %q added", name)
	}
	for _, name := range removed {
		log.Printf("[gateway] reload: service %q removed", name)
	}
	newPorts := table.PortRoutes()
	portsChanged := len(newPorts) != len(oldPorts)
	for port := range newPorts {
		if _, ok := oldPorts[port]; !ok {
			portsChanged = true
		}
	}
	if portsChanged {
		log.Printf("[gateway] reload: port-bound route set changed; restart the process to bind/unbind listeners")
	}
	return nil
}

// Run binds every listener in the Listener Set and blocks until ctx is
// canceled, at which point it drains connections and stops every
// non-proxyOnly service before returning.
func (g *Gateway) Run(ctx context.Context) error {
	go g.reaper.Run(ctx)

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	mainAddr := fmt.Sprintf("%s:%d", g.cfg.Host, g.cfg.Port)
	// The proxy listeners are not wrapped in CompressionMiddleware so that
	// upstream bodies reach the client exactly as the backend sent them.
	g.startServer(&wg, errCh, mainAddr, g.mainHandler())
	log.Printf("[gateway] main listener on http://%s", mainAddr)

	for port, route := range g.table.Load().PortRoutes() {
		addr := fmt.Sprintf("%s:%d", g.cfg.Host, port)
		g.startServer(&wg, errCh, addr, g.portHandler(port))
		log.Printf("[gateway] port listener for %q on http://%s", route.Service, addr)
	}

	if g.admin != nil {
		adminAddr := fmt.Sprintf("%s:%d", g.cfg.AdminAPI.Host, g.cfg.AdminAPI.Port)
		g.startServer(&wg, errCh, adminAddr, CompressionMiddleware(g.admin.Handler(), g.cfg.Compression))
		log.Printf("[gateway] admin listener on http://%s", adminAddr)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Printf("[gateway] listener error: %v", err)
		}
	}

	g.shutdown()
	wg.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	g.manager.StopAll(stopCtx)
	g.reaper.Stop()
	return nil
}

func (g *Gateway) startServer(wg *sync.WaitGroup, errCh chan<- error, addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  0, // streaming proxy — bounded per-upstream by the transport instead
		WriteTimeout: 0,
		IdleTimeout:  30 * time.Second,
	}
	g.mu.Lock()
	g.servers = append(g.servers, srv)
	g.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
}

func (g *Gateway) shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, srv := range g.servers {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = srv.Shutdown(ctx)
		cancel()
	}
}

// Manager exposes the service manager for the admin plane and CLI commands.
func (g *Gateway) Manager() *service.Manager { return g.manager }

// Table exposes the current routing table for the admin plane.
func (g *Gateway) Table() *routing.Table { return g.table.Load() }
