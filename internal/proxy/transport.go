/* *****************************************************************************
 * Nehonix XyPriss System CLI
 *
 * Proxy Package - on-demand reverse proxy for lazily started services
 * ***************************************************************************** */

// Package proxy performs HTTP request forwarding and WebSocket bridging for
// a single resolved route, with explicit backpressure and bounded body
// buffering (§4.6, §4.7 of the gateway design).
package proxy

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

const (
	defaultMaxIdleConns        = 512
	defaultMaxIdleConnsPerHost = 64
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultDialTimeout         = 5 * time.Second

	// spoolMemThreshold is how much of a request body is held in memory
	// before spilling to a temp file (§4.6 item 1).
	spoolMemThreshold = 2 << 20 // 2 MiB
	// spoolHardCap rejects a request body larger than this with 413.
	spoolHardCap = 64 << 20 // 64 MiB
)

// NewTransport builds the single shared *http.Transport used for every
// forwarded request, tuned the same way the donor proxy's transport was:
// bounded idle-connection pools, TLS verification disabled for the typical
// local-loopback deployment this gateway targets.
func NewTransport(insecureSkipVerify bool) *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: insecureSkipVerify}, //nolint:gosec
	}
}

// hopByHopHeaders are stripped before forwarding in either direction,
// per RFC 7230 §6.1.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}
