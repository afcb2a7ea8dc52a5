package events

import "time"

// WatcherStatus values reported in status and heartbeat events.
const (
	WatcherStatusWatching = "watching"
	WatcherStatusStopped  = "stopped"
)

// StatusResponsePayload is the payload for status_response events.
type StatusResponsePayload struct {
	WatcherStatus    string `json:"watcher_status"`
	ConnectedClients int    `json:"connected_clients"`
	ProjectPath      string `json:"project_path"`
	ProjectName      string `json:"project_name"`
	DaemonVersion    string `json:"daemon_version"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	RegisteredViews  int    `json:"registered_views"`
	WatchedFiles     int    `json:"watched_files"`
}

// GraphResponsePayload is the payload for graph_response events.
type GraphResponsePayload struct {
	Format string `json:"format"`
	Graph  string `json:"graph"`
	Roots  int    `json:"roots"`
}

// HeartbeatPayload is the payload for heartbeat events. Heartbeats let
// clients detect connection trouble at the application level, beyond
// WebSocket ping/pong frames.
type HeartbeatPayload struct {
	ServerTime    string `json:"server_time"`
	Sequence      int64  `json:"sequence"`
	WatcherStatus string `json:"watcher_status"`
	Uptime        int64  `json:"uptime_seconds"`
}

// NewStatusResponseEvent creates a new status_response event.
func NewStatusResponseEvent(payload StatusResponsePayload, requestID string) *BaseEvent {
	return NewEventWithRequestID(EventTypeStatusResponse, payload, requestID)
}

// NewGraphResponseEvent creates a new graph_response event.
func NewGraphResponseEvent(format, graph string, roots int, requestID string) *BaseEvent {
	return NewEventWithRequestID(EventTypeGraphResponse, GraphResponsePayload{
		Format: format,
		Graph:  graph,
		Roots:  roots,
	}, requestID)
}

// NewHeartbeatEvent creates a new heartbeat event.
func NewHeartbeatEvent(sequence int64, watcherStatus string, uptimeSeconds int64) *BaseEvent {
	return NewEvent(EventTypeHeartbeat, HeartbeatPayload{
		ServerTime:    time.Now().UTC().Format(time.RFC3339),
		Sequence:      sequence,
		WatcherStatus: watcherStatus,
		Uptime:        uptimeSeconds,
	})
}
