package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/seltree/internal/logging"
)

// StreamManager fans agent updates out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // agent ID -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for agentID. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(agentID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[agentID]; !ok {
		sm.subscribers[agentID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[agentID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[agentID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, agentID)
			}
		}
	}
}

// Subscribers returns how many channels listen to agentID.
func (sm *StreamManager) Subscribers(agentID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[agentID])
}

// Broadcast sends msg to every subscriber of agentID, dropping it for
// subscribers whose buffer is full.
func (sm *StreamManager) Broadcast(agentID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[agentID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "agent_id", agentID)
		}
	}
}

// SubscribeEvents handles GET /events. With ?agent_id= it streams snapshot
// diffs of that agent; without it streams definition reloads.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" && s.Watcher == nil {
		http.Error(w, "agent_id is required", http.StatusBadRequest)
		return
	}

	var events <-chan string
	if agentID == "" {
		ch, err := s.Watcher.Watch(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
			return
		}
		events = ch
	} else {
		ch, cancel := s.Streams.Subscribe(agentID)
		defer cancel()
		events = ch
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
