package websocket

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/domain/ports"
	"github.com/declview/hotview/internal/hub"
	"github.com/declview/hotview/internal/security"
	"github.com/declview/hotview/internal/sync"
)

// StatusProvider supplies daemon status for heartbeat events.
type StatusProvider interface {
	WatcherStatus() string
	UptimeSeconds() int64
}

// Server manages WebSocket clients. It does not listen itself: the HTTP
// server mounts HandleWebSocket at /ws, and Start only runs the heartbeat
// broadcaster.
type Server struct {
	upgrader       websocket.Upgrader
	eventHub       ports.EventHub
	commandHandler CommandHandler
	statusProvider StatusProvider

	mu       sync.RWMutex
	clients  map[string]*Client
	filtered map[string]*hub.FilteredSubscriber

	heartbeatDone chan struct{}
	heartbeatSeq  int64
	startTime     time.Time
}

// NewServer creates a WebSocket server broadcasting events from eventHub.
// The origin checker guards the upgrade handshake.
func NewServer(eventHub ports.EventHub, checker *security.OriginChecker) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checker.CheckOriginFunc(),
		},
		eventHub:      eventHub,
		clients:       make(map[string]*Client),
		filtered:      make(map[string]*hub.FilteredSubscriber),
		heartbeatDone: make(chan struct{}),
		startTime:     time.Now(),
	}
}

// SetCommandHandler sets the handler for incoming client messages.
func (s *Server) SetCommandHandler(h CommandHandler) {
	s.commandHandler = h
}

// SetStatusProvider sets the status provider for heartbeat events.
func (s *Server) SetStatusProvider(provider StatusProvider) {
	s.statusProvider = provider
}

// Start starts the heartbeat broadcaster.
func (s *Server) Start() {
	go s.heartbeatLoop()
}

// Stop stops the heartbeat broadcaster and closes all clients.
func (s *Server) Stop() {
	close(s.heartbeatDone)

	s.mu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]*Client)
	s.filtered = make(map[string]*hub.FilteredSubscriber)
	s.mu.Unlock()
}

// HandleWebSocket upgrades the request and registers the client. Each
// client is subscribed to the event hub through a resource filter, so
// the subscribe command can narrow what it receives.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(conn, s.commandHandler, func(id string) {
		if s.eventHub != nil {
			s.eventHub.Unsubscribe(id)
		}
		s.removeClient(id)
	})

	filtered := hub.NewFilteredSubscriber(NewClientSubscriber(client))

	s.mu.Lock()
	s.clients[client.ID()] = client
	s.filtered[client.ID()] = filtered
	s.mu.Unlock()

	if s.eventHub != nil {
		s.eventHub.Subscribe(filtered)
	}

	log.Info().
		Str("client_id", client.ID()).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("client connected")

	client.Start()
}

func (s *Server) removeClient(id string) {
	s.mu.Lock()
	delete(s.clients, id)
	delete(s.filtered, id)
	s.mu.Unlock()
	log.Info().Str("client_id", id).Msg("client disconnected")
}

// Broadcast sends a raw message to every connected client.
func (s *Server) Broadcast(message []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		client.Send(message)
	}
}

// SendEvent delivers an event to a single client, bypassing the hub.
// Command responses use this so only the requester sees them.
func (s *Server) SendEvent(clientID string, event events.Event) error {
	s.mu.RLock()
	client := s.clients[clientID]
	s.mu.RUnlock()

	if client == nil {
		return nil
	}

	data, err := event.ToJSON()
	if err != nil {
		return err
	}
	client.Send(data)
	return nil
}

// FilteredSubscriber returns the resource filter for a client, or nil.
func (s *Server) FilteredSubscriber(clientID string) *hub.FilteredSubscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered[clientID]
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// GetClient returns a client by ID.
func (s *Server) GetClient(id string) *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients[id]
}

// heartbeatLoop broadcasts periodic heartbeat events to connected clients.
func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.heartbeatDone:
			return

		case <-ticker.C:
			s.broadcastHeartbeat()
		}
	}
}

func (s *Server) broadcastHeartbeat() {
	if s.ClientCount() == 0 {
		return
	}

	status := events.WatcherStatusStopped
	uptime := int64(time.Since(s.startTime).Seconds())
	if s.statusProvider != nil {
		status = s.statusProvider.WatcherStatus()
		uptime = s.statusProvider.UptimeSeconds()
	}

	seq := atomic.AddInt64(&s.heartbeatSeq, 1)
	heartbeat := events.NewHeartbeatEvent(seq, status, uptime)

	data, err := heartbeat.ToJSON()
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize heartbeat")
		return
	}

	s.Broadcast(data)
	log.Trace().Int64("seq", seq).Msg("heartbeat sent")
}
