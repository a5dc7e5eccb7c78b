/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see admin.go for full license header)
 ***************************************************************************** */

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Nehonix-Team/dynagate/internal/config"
	"github.com/Nehonix-Team/dynagate/internal/service"
)

// serviceView is the JSON shape returned by the services list/detail
// endpoints, matching the admin plane's external interface.
type serviceView struct {
	Name              string  `json:"name"`
	Base              string  `json:"base"`
	Status            string  `json:"status"`
	UptimeSeconds     float64 `json:"uptime"`
	LastAccessTime    string  `json:"lastAccessTime"`
	ActiveConnections int64   `json:"activeConnections"`
	IdleTimeout       string  `json:"idleTimeout"`
	ProxyOnly         bool    `json:"proxyOnly"`
	PID               int     `json:"pid,omitempty"`

	StartTimeout string `json:"startTimeout,omitempty"`
	HealthCheck  string `json:"healthCheck,omitempty"`
	StartCount   uint64 `json:"startCount,omitempty"`
	TotalUptime  string `json:"totalUptime,omitempty"`
}

func toView(snap service.Snapshot, detailed bool) serviceView {
	v := serviceView{
		Name:              snap.Name,
		Base:              snap.Base,
		Status:            snap.Status.String(),
		UptimeSeconds:     snap.TotalUptime.Seconds(),
		LastAccessTime:    snap.LastAccessTime.UTC().Format(time.RFC3339),
		ActiveConnections: snap.ActiveConnections,
		IdleTimeout:       snap.IdleTimeout.String(),
		ProxyOnly:         snap.ProxyOnly,
		PID:               snap.PID,
	}
	if detailed {
		v.StartTimeout = snap.StartTimeout.String()
		v.StartCount = snap.StartCount
		v.TotalUptime = snap.TotalUptime.String()
	}
	return v
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	names := s.manager.All()
	views := make([]serviceView, 0, len(names))
	for _, name := range names {
		svc, st, ok := s.manager.Service(name)
		if !ok {
			continue
		}
		views = append(views, toView(st.Snapshot(svc), false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": views})
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	svc, st, ok := s.manager.Service(name)
	if !ok {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}
	view := toView(st.Snapshot(svc), true)
	view.HealthCheck = string(svc.HealthCheck.Type)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStopService(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, _, ok := s.manager.Service(name); !ok {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}
	if err := s.manager.Stop(r.Context(), name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.events.publish(name, "stopped")
	writeJSON(w, http.StatusOK, map[string]any{"service": name, "status": "offline"})
}

func (s *Server) handleStartService(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	svc, st, ok := s.manager.Service(name)
	if !ok {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}
	if st.Status() == service.StatusOnline || st.Status() == service.StatusStarting {
		http.Error(w, "400 Bad Request: already online or starting", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), startTimeoutOrDefault(svc))
	defer cancel()
	if err := s.manager.EnsureOnline(ctx, name); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.events.publish(name, "started")
	writeJSON(w, http.StatusOK, map[string]any{"service": name, "status": "online"})
}

func startTimeoutOrDefault(svc config.Service) time.Duration {
	if svc.StartTimeout > 0 {
		return time.Duration(svc.StartTimeout) + 2*time.Second
	}
	return 32 * time.Second
}

// handleEvents serves a server-sent-events stream. The initial implementation
// only emits a "connected" event plus a notification for each start/stop
// performed through this admin API; start and stop driven by traffic or
// by the idle reaper are not published.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := s.events.subscribe()
	defer s.events.unsubscribe(sub)

	writeSSE(w, "connected", map[string]any{})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-sub:
			writeSSE(w, "service", evt)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	data, _ := json.Marshal(v)
	_, _ = w.Write([]byte("event: " + event + "\ndata: " + string(data) + "\n\n"))
}
