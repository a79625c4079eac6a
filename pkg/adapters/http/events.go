package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/lemon/pkg/domain"
)

// subscribeEvents handles GET /api/events (SSE). The optional "watch" query
// parameter limits the stream to a comma-separated list of change kinds.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("subscribeEvents: Streaming not supported")
		return
	}

	sess := sessionFrom(r)
	ch, cancel := sess.Subscribe()
	defer cancel()

	watch := make(map[domain.ChangeKind]bool)
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			watch[domain.ChangeKind(strings.TrimSpace(k))] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	s.Logger.Debug("SSE: Subscribed", "session_id", sess.ID())
	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("SSE: Client disconnected", "session_id", sess.ID())
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !watch[ev.Kind] {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Error("SSE: Encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
