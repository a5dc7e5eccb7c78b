/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see transport.go for full license header)
 ***************************************************************************** */

package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Nehonix-Team/dynagate/internal/service"
)

// Engine forwards HTTP requests and bridges WebSocket connections to a
// resolved route's target, accounting active connections against the
// owning service's State for the idle reaper.
type Engine struct {
	transport *http.Transport
	client    *http.Client
}

// NewEngine builds an Engine around a shared transport.
func NewEngine(transport *http.Transport) *Engine {
	return &Engine{
		transport: transport,
		client:    &http.Client{Transport: transport},
	}
}

// ServeHTTP forwards r to target on behalf of st, streaming both the
// request and response bodies and keeping activeConnections accurate for
// exactly the lifetime of the call.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request, target *url.URL, st *service.State) {
	body, cleanup, err := spoolBody(r.Body, r.ContentLength)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			http.Error(w, "413 Payload Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "400 Bad Request", http.StatusBadRequest)
		return
	}
	defer cleanup()

	outReq, err := buildUpstreamRequest(r, target, body)
	if err != nil {
		http.Error(w, "502 Bad Gateway", http.StatusBadGateway)
		return
	}

	st.IncConnections()
	var decOnce sync.Once
	defer decOnce.Do(st.DecConnections)

	resp, err := e.client.Do(outReq)
	if err != nil {
		if isClientGone(r.Context(), err) {
			return
		}
		log.Printf("[proxy] upstream %s unreachable: %v", target.Host, err)
		http.Error(w, "502 Bad Gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	streamResponseBody(w, resp.Body)
}

// buildUpstreamRequest clones r onto target, stripping hop-by-hop headers
// and sanitizing every forwarded value against CRLF injection (§4.6 item 2).
func buildUpstreamRequest(r *http.Request, target *url.URL, body io.ReadCloser) (*http.Request, error) {
	outURL := *target
	outURL.Path = singleJoiningSlash(target.Path, r.URL.Path)
	outURL.RawQuery = r.URL.RawQuery

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, outURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("proxy: build upstream request: %w", err)
	}

	outReq.Header = make(http.Header, len(r.Header))
	for k, vv := range r.Header {
		if isHopByHop(k) {
			continue
		}
		for _, v := range vv {
			outReq.Header.Add(k, sanitizeHeaderValue(v))
		}
	}
	outReq.Host = target.Host
	outReq.ContentLength = r.ContentLength

	if ip := clientIP(r); ip != "" {
		if outReq.Header.Get("X-Forwarded-For") == "" {
			outReq.Header.Set("X-Forwarded-For", ip)
		}
		if outReq.Header.Get("X-Real-IP") == "" {
			outReq.Header.Set("X-Real-IP", ip)
		}
	}
	return outReq, nil
}

func copyResponseHeaders(dst, src http.Header) {
	for k, vv := range src {
		if isHopByHop(k) {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// streamResponseBody copies the upstream response to the client one chunk
// at a time, flushing after each write so SSE and chunked responses reach
// the client promptly. The blocking Write call onto the client connection
// IS the backpressure mechanism (§4.6 item 6) — there is no separate
// pause/resume signal to implement in a synchronous-goroutine model.
func streamResponseBody(w http.ResponseWriter, body io.Reader) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

func isHopByHop(header string) bool {
	for _, h := range hopByHopHeaders {
		if strings.EqualFold(h, header) {
			return true
		}
	}
	return false
}

// sanitizeHeaderValue strips CR/LF to prevent header/response splitting via
// a value that passed through from the client unchanged.
func sanitizeHeaderValue(v string) string {
	if !strings.ContainsAny(v, "\r\n") {
		return v
	}
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.Trim(host, "[]")
}

// isClientGone reports whether a transport error is really just the client
// having disconnected — the request context is what gets canceled when an
// http.Server notices the client connection closed mid-flight.
func isClientGone(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled)
}
