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

// Package admin implements the gateway's optional control plane: a REST API
// for inspecting and driving service lifecycle, a Prometheus metrics
// endpoint, and a small embedded status UI. It binds its own listener,
// separate from the proxy's Listener Set, and is only started when
// adminApi.enabled is set.
package admin

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/Nehonix-Team/dynagate/internal/routing"
	"github.com/Nehonix-Team/dynagate/internal/service"
)

// Server is the admin plane's HTTP handler, independent of the net/http
// listener that serves it (the caller — internal/gateway — owns the
// *http.Server and its lifecycle alongside the proxy listeners).
type Server struct {
	cfg     config.AdminAPI
	manager *service.Manager
	table   *routing.Table
	metrics *collector
	events  *eventBroker
}

// New builds an admin Server. cfg is the validated adminApi config block.
func New(cfg config.AdminAPI, manager *service.Manager, table *routing.Table) *Server {
	return &Server{
		cfg:     cfg,
		manager: manager,
		table:   table,
		metrics: newCollector(manager),
		events:  newEventBroker(),
	}
}

// RecordRequest feeds the process-wide requests_total/errors_total counters
// exposed at GET /_dynapm/api/metrics. The gateway calls this once per
// dispatched request, regardless of which service handled it.
func (s *Server) RecordRequest(isError bool) {
	s.metrics.recordRequest(isError)
}

// Handler builds the full admin mux with rate limiting, IP allowlisting,
// and bearer-token auth applied in that order (cheapest rejection first).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /_dynapm/api/services", s.handleListServices)
	mux.HandleFunc("GET /_dynapm/api/services/{name}", s.handleGetService)
	mux.HandleFunc("POST /_dynapm/api/services/{name}/stop", s.handleStopService)
	mux.HandleFunc("POST /_dynapm/api/services/{name}/start", s.handleStartService)
	mux.HandleFunc("GET /_dynapm/api/events", s.handleEvents)
	mux.Handle("GET /_dynapm/api/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /_dynapm/", http.StripPrefix("/_dynapm/", http.FileServer(http.FS(staticFS))))

	var h http.Handler = mux
	h = s.authMiddleware(h)
	h = s.allowlistMiddleware(h)
	h = s.rateLimitMiddleware(h)
	return h
}
