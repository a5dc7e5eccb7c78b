package proxy

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Nehonix-Team/dynagate/internal/service"
)

func TestServeWebSocketBridgesMessages(t *testing.T) {
	// Upstream echo server.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
	defer upstream.Close()

	target, _ := url.Parse(upstream.URL)
	engine := NewEngine(NewTransport(true))
	st := service.NewState(false)

	gatewaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		engine.ServeWebSocket(w, r, target, st, func() error { return nil })
	}))
	defer gatewaySrv.Close()

	wsURL := "ws" + strings.TrimPrefix(gatewaySrv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer clientConn.Close()

	require.NoError(t, clientConn.WriteMessage(websocket.TextMessage, []byte("ping")))
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := clientConn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "ping", string(msg))
}

func TestServeWebSocketClosesOnNotReady(t *testing.T) {
	target, _ := url.Parse("http://127.0.0.1:1")
	engine := NewEngine(NewTransport(true))
	st := service.NewState(false)

	gatewaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		engine.ServeWebSocket(w, r, target, st, func() error { return errNotReady })
	}))
	defer gatewaySrv.Close()

	wsURL := "ws" + strings.TrimPrefix(gatewaySrv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer clientConn.Close()

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = clientConn.ReadMessage()
	require.Error(t, err)
	require.Equal(t, int64(0), st.ActiveConnections())
}

var errNotReady = errors.New("service not ready")
