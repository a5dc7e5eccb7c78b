/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see admin.go for full license header)
 ***************************************************************************** */

package admin

import (
	"net"
	"net/http"
	"strings"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/tomasen/realip"
)

// rateLimitMiddleware applies a per-caller-IP ceiling ahead of every other
// check, so an abusive caller is turned away before the allowlist/token
// checks spend any work on it.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	rate := s.cfg.RateLimit
	if rate <= 0 {
		rate = 20
	}
	lmt := tollbooth.NewLimiter(rate, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "X-Real-IP"})
	return tollbooth.LimitHandler(lmt, next)
}

// allowlistMiddleware rejects callers whose resolved address doesn't match
// one of cfg.AllowedIPs (exact match or CIDR). An empty allowlist disables
// this check. realip.FromRequest honours X-Forwarded-For/X-Real-IP the same
// way the reverse proxy sets them outbound, so this works correctly behind
// an operator-controlled front proxy.
func (s *Server) allowlistMiddleware(next http.Handler) http.Handler {
	if len(s.cfg.AllowedIPs) == 0 {
		return next
	}
	nets := make([]*net.IPNet, 0, len(s.cfg.AllowedIPs))
	ips := make([]net.IP, 0, len(s.cfg.AllowedIPs))
	for _, entry := range s.cfg.AllowedIPs {
		if strings.Contains(entry, "/") {
			if _, n, err := net.ParseCIDR(entry); err == nil {
				nets = append(nets, n)
				continue
			}
		}
		if ip := net.ParseIP(entry); ip != nil {
			ips = append(ips, ip)
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := net.ParseIP(realip.FromRequest(r))
		if caller == nil {
			http.Error(w, "403 Forbidden", http.StatusForbidden)
			return
		}
		for _, ip := range ips {
			if ip.Equal(caller) {
				next.ServeHTTP(w, r)
				return
			}
		}
		for _, n := range nets {
			if n.Contains(caller) {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "403 Forbidden", http.StatusForbidden)
	})
}

// authMiddleware rejects callers missing a matching Authorization bearer
// token. Disabled when no token is configured — the operator is expected to
// pair the admin plane with the IP allowlist or an external auth proxy in
// that case.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	want := "Bearer " + s.cfg.AuthToken
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != want {
			http.Error(w, "401 Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
