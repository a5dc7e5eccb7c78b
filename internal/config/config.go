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

// Package config loads and validates the gateway's YAML configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it can be loaded from either a
// time.ParseDuration string ("30s", "5m") or a bare YAML integer, which is
// interpreted as whole seconds.
type Duration time.Duration

// String supports both Printf's %s verb and fmt.Stringer call sites that
// otherwise expect a time.Duration.
func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts a duration string or a bare integer (seconds).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// The integer form is tried first: yaml.v3 decodes any scalar, including
	// a bare integer, into a string.
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: duration must be a string (e.g. \"30s\") or an integer number of seconds: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// HealthCheckType selects how a service's readiness is determined.
type HealthCheckType string

const (
	HealthTCP     HealthCheckType = "tcp"
	HealthHTTP    HealthCheckType = "http"
	HealthCommand HealthCheckType = "command"
	HealthNone    HealthCheckType = "none"
)

// HealthCheck describes a single probe strategy for a service.
type HealthCheck struct {
	Type           HealthCheckType `yaml:"type"`
	URL            string          `yaml:"url,omitempty"`
	ExpectedStatus int             `yaml:"expectedStatus,omitempty"`
	Command        string          `yaml:"command,omitempty"`
	Timeout        Duration        `yaml:"timeout,omitempty"`
}

func (h *HealthCheck) applyDefaults() {
	if h.Type == "" {
		h.Type = HealthTCP
	}
	if h.ExpectedStatus == 0 {
		h.ExpectedStatus = 200
	}
	if h.Timeout == 0 {
		if h.Type == HealthHTTP {
			h.Timeout = Duration(5 * time.Second)
		} else {
			h.Timeout = Duration(3 * time.Second)
		}
	}
}

// Commands holds the shell commands the Service Manager runs for a service.
type Commands struct {
	Start string            `yaml:"start"`
	Stop  string            `yaml:"stop"`
	Check string            `yaml:"check"`
	Cwd   string            `yaml:"cwd,omitempty"`
	Env   map[string]string `yaml:"env,omitempty"`
}

// RouteSpec is one ingress surface for a service: either a hostname or a port.
type RouteSpec struct {
	Host   string `yaml:"host,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	Target string `yaml:"target,omitempty"`
}

// Service is one entry under the top-level `services` map.
type Service struct {
	Name         string      `yaml:"-"`
	Base         string      `yaml:"base"`
	Host         string      `yaml:"host,omitempty"`
	Port         int         `yaml:"port,omitempty"`
	Routes       []RouteSpec `yaml:"routes,omitempty"`
	IdleTimeout  Duration    `yaml:"idleTimeout,omitempty"`
	StartTimeout Duration    `yaml:"startTimeout,omitempty"`
	Commands     Commands    `yaml:"commands"`
	HealthCheck  HealthCheck `yaml:"healthCheck,omitempty"`
	ProxyOnly    bool        `yaml:"proxyOnly,omitempty"`
}

func (s *Service) applyDefaults() {
	if s.IdleTimeout == 0 {
		s.IdleTimeout = Duration(5 * time.Minute)
	}
	if s.StartTimeout == 0 {
		s.StartTimeout = Duration(30 * time.Second)
	}
	s.HealthCheck.applyDefaults()
}

// AdminAPI configures the optional control-plane listener.
type AdminAPI struct {
	Enabled    bool     `yaml:"enabled,omitempty"`
	Host       string   `yaml:"host,omitempty"`
	Port       int      `yaml:"port,omitempty"`
	AuthToken  string   `yaml:"authToken,omitempty"`
	AllowedIPs []string `yaml:"allowedIps,omitempty"`
	RateLimit  float64  `yaml:"rateLimit,omitempty"`
}

// Logging toggles the gateway's optional verbose log lines; all default to off,
// mirroring the donor CLI's opt-in verbosity flags.
type Logging struct {
	EnableRequestLog     bool `yaml:"enableRequestLog,omitempty"`
	EnableWebSocketLog   bool `yaml:"enableWebSocketLog,omitempty"`
	EnablePerformanceLog bool `yaml:"enablePerformanceLog,omitempty"`
}

// Compression toggles the response compression middleware.
type Compression struct {
	Enabled    bool     `yaml:"enabled,omitempty"`
	Algorithms []string `yaml:"algorithms,omitempty"`
}

// Config is the fully validated, defaulted gateway configuration.
type Config struct {
	Host        string             `yaml:"host"`
	Port        int                `yaml:"port"`
	Services    map[string]Service `yaml:"services"`
	AdminAPI    AdminAPI           `yaml:"adminApi,omitempty"`
	Logging     Logging            `yaml:"logging,omitempty"`
	Compression Compression        `yaml:"compression,omitempty"`

	// ConfigPath is the source file, recorded for the watcher's reload path.
	ConfigPath string `yaml:"-"`
}

// Load reads and validates a gateway configuration file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ConfigPath = path

	if err := cfg.applyDefaultsAndValidate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaultsAndValidate() error {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 3000
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("config: at least one service must be configured")
	}
	if c.Compression.Algorithms == nil {
		c.Compression.Algorithms = []string{"br", "gzip"}
	}
	if c.AdminAPI.Enabled {
		if c.AdminAPI.Port == 0 {
			return fmt.Errorf("config: adminApi.port is required when adminApi.enabled is true")
		}
		if c.AdminAPI.Host == "" {
			c.AdminAPI.Host = c.Host
		}
		if c.AdminAPI.RateLimit == 0 {
			c.AdminAPI.RateLimit = 20
		}
		if c.AdminAPI.Port == c.Port {
			return fmt.Errorf("config: adminApi.port must differ from the main listener port")
		}
	}

	usedPorts := map[int]string{c.Port: "<main>"}
	if c.AdminAPI.Enabled {
		usedPorts[c.AdminAPI.Port] = "<admin>"
	}
	usedHosts := map[string]string{}

	for name, svc := range c.Services {
		svc.Name = name
		if svc.Base == "" {
			return fmt.Errorf("config: service %q: base is required", name)
		}
		if _, err := url.Parse(svc.Base); err != nil {
			return fmt.Errorf("config: service %q: invalid base url: %w", name, err)
		}
		if svc.Commands.Start == "" || svc.Commands.Stop == "" || svc.Commands.Check == "" {
			if !svc.ProxyOnly {
				return fmt.Errorf("config: service %q: start, stop, and check commands are all required unless proxyOnly is set", name)
			}
		}
		svc.applyDefaults()

		if len(svc.Routes) == 0 {
			svc.Routes = defaultRoutes(svc)
		}
		for i := range svc.Routes {
			r := &svc.Routes[i]
			if r.Target == "" {
				r.Target = svc.Base
			}
			switch {
			case r.Host != "":
				h := strings.ToLower(r.Host)
				if owner, ok := usedHosts[h]; ok {
					return fmt.Errorf("config: hostname %q is routed to both %q and %q", h, owner, name)
				}
				usedHosts[h] = name
			case r.Port != 0:
				if owner, ok := usedPorts[r.Port]; ok {
					return fmt.Errorf("config: port %d is routed to both %q and %q", r.Port, owner, name)
				}
				usedPorts[r.Port] = name
			default:
				return fmt.Errorf("config: service %q: each route needs a host or a port", name)
			}
		}

		c.Services[name] = svc
	}
	return nil
}

// defaultRoutes derives routes from a service's host/port shorthand fields,
// falling back to the map key as a hostname when neither is present.
func defaultRoutes(svc Service) []RouteSpec {
	if svc.Host != "" || svc.Port != 0 {
		var routes []RouteSpec
		if svc.Host != "" {
			routes = append(routes, RouteSpec{Host: svc.Host, Target: svc.Base})
		}
		if svc.Port != 0 {
			routes = append(routes, RouteSpec{Port: svc.Port, Target: svc.Base})
		}
		return routes
	}
	return []RouteSpec{{Host: svc.Name, Target: svc.Base}}
}
