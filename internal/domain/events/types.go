// Package events defines all event types used in hotview.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Reload events
	EventTypeReloadQueued   EventType = "reload_queued"
	EventTypeViewReloaded   EventType = "view_reloaded"
	EventTypeStyleRefreshed EventType = "style_refreshed"
	EventTypeReloadFailed   EventType = "reload_failed"

	// Graph events
	EventTypeGraphUpdated EventType = "graph_updated"

	// Watch lifecycle events
	EventTypeWatchStarted EventType = "watch_started"
	EventTypeWatchStopped EventType = "watch_stopped"

	// Response events
	EventTypeStatusResponse EventType = "status_response"
	EventTypeGraphResponse  EventType = "graph_response"
	EventTypeSubscribed     EventType = "subscribed"
	EventTypeError          EventType = "error"

	// Connection events
	EventTypeHeartbeat EventType = "heartbeat"
	EventTypePong      EventType = "pong"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)

	// GetResource returns the resource path the event relates to (may be empty).
	GetResource() string

	// GetSessionID returns the watch session ID (may be empty).
	GetSessionID() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType EventType   `json:"event"`
	EventTime time.Time   `json:"timestamp"`
	Resource  string      `json:"resource,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload"`
	RequestID string      `json:"request_id,omitempty"`
}

// SetContext sets the resource and session context for an event.
func (e *BaseEvent) SetContext(resource, sessionID string) {
	e.Resource = resource
	e.SessionID = sessionID
}

// GetResource returns the resource path.
func (e *BaseEvent) GetResource() string {
	return e.Resource
}

// GetSessionID returns the session ID.
func (e *BaseEvent) GetSessionID() string {
	return e.SessionID
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// NewEventWithRequestID creates a new event with a request ID for correlation.
func NewEventWithRequestID(eventType EventType, payload interface{}, requestID string) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
		RequestID: requestID,
	}
}

// NewEventWithContext creates a new event with resource and session context.
func NewEventWithContext(eventType EventType, payload interface{}, resource, sessionID string) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Resource:  resource,
		SessionID: sessionID,
		Payload:   payload,
	}
}
