/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see transport.go for full license header)
 ***************************************************************************** */

package proxy

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Nehonix-Team/dynagate/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(*http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// queuedMessage is one client→upstream frame buffered during the window
// between accepting the client's handshake and the upstream dial completing.
type queuedMessage struct {
	messageType int
	payload     []byte
}

// ServeWebSocket implements the two-phase upgrade/bridge of §4.7: the
// client's handshake is completed immediately (onReady is the caller's hook
// to first ensure the service is online, which may block on a start), then
// the upstream connection is dialed and the two sides are bridged
// bidirectionally until either closes.
func (e *Engine) ServeWebSocket(w http.ResponseWriter, r *http.Request, target *url.URL, st *service.State, onReady func() error) {
	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[proxy] websocket: client upgrade failed: %v", err)
		return
	}
	defer clientConn.Close()

	st.IncConnections()
	var decOnce sync.Once
	defer decOnce.Do(st.DecConnections)

	// Queue client frames that arrive before the upstream is connected
	// instead of dropping them.
	queue := make(chan queuedMessage, 64)
	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		for {
			mt, msg, err := clientConn.ReadMessage()
			if err != nil {
				close(queue)
				return
			}
			queue <- queuedMessage{mt, msg}
		}
	}()

	if err := onReady(); err != nil {
		log.Printf("[proxy] websocket: service not ready: %v", err)
		_ = clientConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "upstream not ready"))
		return
	}

	upstreamURL := wsURL(target, r)
	header := http.Header{}
	for k, vv := range r.Header {
		if isHopByHop(k) || strings.EqualFold(k, "Host") ||
			strings.EqualFold(k, "Sec-WebSocket-Key") || strings.EqualFold(k, "Sec-WebSocket-Version") ||
			strings.EqualFold(k, "Sec-WebSocket-Extensions") {
			continue
		}
		for _, v := range vv {
			header.Add(k, sanitizeHeaderValue(v))
		}
	}
	if ip := clientIP(r); ip != "" {
		header.Set("X-Forwarded-For", ip)
	}

	dialer := websocket.Dialer{}
	upstreamConn, _, err := dialer.Dial(upstreamURL, header)
	if err != nil {
		log.Printf("[proxy] websocket: upstream dial %s: %v", upstreamURL, err)
		_ = clientConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "upstream unreachable"))
		return
	}
	defer upstreamConn.Close()

	var closeOnce sync.Once
	done := make(chan struct{})
	closeBoth := func() {
		closeOnce.Do(func() {
			close(done)
			clientConn.Close()
			upstreamConn.Close()
		})
	}

	// Drain whatever the client sent during the start/dial window, in order,
	// then keep forwarding directly.
	go func() {
		defer closeBoth()
		for msg := range queue {
			if err := upstreamConn.WriteMessage(msg.messageType, msg.payload); err != nil {
				return
			}
		}
	}()

	go func() {
		defer closeBoth()
		for {
			mt, msg, err := upstreamConn.ReadMessage()
			if err != nil {
				return
			}
			if err := clientConn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}()

	<-done
	<-queueDone
}

// wsURL derives the upstream WebSocket URL from target's scheme and the
// client's original path/query.
func wsURL(target *url.URL, r *http.Request) string {
	scheme := "ws"
	if target.Scheme == "https" {
		scheme = "wss"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     target.Host,
		Path:     singleJoiningSlash(target.Path, r.URL.Path),
		RawQuery: r.URL.RawQuery,
	}
	return u.String()
}
