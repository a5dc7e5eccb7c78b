/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see gateway.go for full license header)
 ***************************************************************************** */

package gateway

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Nehonix-Team/dynagate/internal/routing"
)

// mainHandler resolves traffic on the primary listener by Host header. The
// table is re-read on every request (a single atomic load) so a config
// reload (§ Reload) takes effect for the next request with no listener
// restart.
func (g *Gateway) mainHandler() http.Handler {
	return g.recoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := g.table.Load().ResolveHost(r.Host)
		if !ok {
			http.NotFound(w, r)
			return
		}
		g.dispatch(w, r, route)
	}))
}

// portHandler serves whatever route is currently bound to port, regardless
// of Host header. Re-resolved per request for the same reload reason as
// mainHandler.
func (g *Gateway) portHandler(port int) http.Handler {
	return g.recoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := g.table.Load().ResolvePort(port)
		if !ok {
			http.NotFound(w, r)
			return
		}
		g.dispatch(w, r, route)
	}))
}

func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request, route routing.Route) {
	_, st, ok := g.manager.Service(route.Service)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if g.cfg.Logging.EnableRequestLog {
		log.Printf("[gateway] %s %s -> %s", r.Method, r.URL.Path, route.Service)
	}

	st.Touch()

	ready := func() error {
		return g.manager.EnsureOnline(r.Context(), route.Service)
	}

	if websocket.IsWebSocketUpgrade(r) {
		if g.cfg.Logging.EnableWebSocketLog {
			log.Printf("[gateway] websocket upgrade %s -> %s", r.URL.Path, route.Service)
		}
		g.recordRequest(false)
		g.engine.ServeWebSocket(w, r, route.Target, st, ready)
		return
	}

	if err := ready(); err != nil {
		log.Printf("[gateway] %s failed to come online: %v", route.Service, err)
		http.Error(w, "503 Service Unavailable", http.StatusServiceUnavailable)
		g.recordRequest(true)
		return
	}

	g.recordRequest(false)
	g.engine.ServeHTTP(w, r, route.Target, st)
}

// recordRequest feeds the admin plane's process-wide request/error counters
// when the admin plane is enabled; a no-op otherwise.
func (g *Gateway) recordRequest(isError bool) {
	if g.admin != nil {
		g.admin.RecordRequest(isError)
	}
}

// recoverMiddleware turns a panicking handler goroutine into a logged 500
// instead of crashing the process, mirroring the gateway's "never crash on
// a single bad request" process-level contract.
func (g *Gateway) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[gateway] recovered panic handling %s %s: %v", r.Method, r.URL.Path, rec)
				http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
