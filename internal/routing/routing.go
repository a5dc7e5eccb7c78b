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

// Package routing resolves inbound traffic to the service that owns it.
// Unlike a path-based router, lookups here key on the Host header or on the
// listener's bound port — there is no hierarchy to walk, so a pair of flat
// maps built once at startup is the whole data structure.
package routing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Nehonix-Team/dynagate/internal/config"
)

// Route is one resolved ingress surface: the owning service plus the
// upstream target this specific route forwards to.
type Route struct {
	Service   string
	Target    *url.URL
	RawTarget string
}

// Table is the immutable routing index built from configuration.
type Table struct {
	hostnames map[string]Route
	ports     map[int]Route
}

// Build constructs a Table from the service map. Config.Load has already
// validated that hosts/ports are collision-free, but Build revalidates so it
// can also be used for a programmatically-assembled service set (e.g. tests,
// or a future hot-reload path that merges in a partial update).
func Build(services map[string]config.Service) (*Table, error) {
	t := &Table{
		hostnames: make(map[string]Route),
		ports:     make(map[int]Route),
	}
	for name, svc := range services {
		for _, r := range svc.Routes {
			target, err := url.Parse(r.Target)
			if err != nil {
				return nil, fmt.Errorf("routing: service %q: invalid target %q: %w", name, r.Target, err)
			}
			route := Route{Service: name, Target: target, RawTarget: r.Target}
			switch {
			case r.Host != "":
				h := strings.ToLower(r.Host)
				if existing, ok := t.hostnames[h]; ok && existing.Service != name {
					return nil, fmt.Errorf("routing: hostname %q already routed to %q", h, existing.Service)
				}
				t.hostnames[h] = route
			case r.Port != 0:
				if existing, ok := t.ports[r.Port]; ok && existing.Service != name {
					return nil, fmt.Errorf("routing: port %d already routed to %q", r.Port, existing.Service)
				}
				t.ports[r.Port] = route
			default:
				return nil, fmt.Errorf("routing: service %q has a route with neither host nor port", name)
			}
		}
	}
	return t, nil
}

// ResolveHost looks up a route by Host header, stripping any port suffix and
// lower-casing for comparison.
func (t *Table) ResolveHost(hostHeader string) (Route, bool) {
	host := hostHeader
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	r, ok := t.hostnames[strings.ToLower(host)]
	return r, ok
}

// ResolvePort looks up the single route pre-bound to a port listener.
func (t *Table) ResolvePort(port int) (Route, bool) {
	r, ok := t.ports[port]
	return r, ok
}

// PortRoutes returns every port-bound route, keyed by port, for the
// Listener Set to bind a dedicated listener to each.
func (t *Table) PortRoutes() map[int]Route {
	out := make(map[int]Route, len(t.ports))
	for k, v := range t.ports {
		out[k] = v
	}
	return out
}

// Services returns the distinct set of service names referenced anywhere in
// the table, unioning host and port routes (DESIGN.md open question #1). The
// admin plane itself lists services from the service manager, not from here.
func (t *Table) Services() []string {
	seen := make(map[string]struct{})
	for _, r := range t.hostnames {
		seen[r.Service] = struct{}{}
	}
	for _, r := range t.ports {
		seen[r.Service] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	return out
}
