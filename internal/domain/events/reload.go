package events

// ReloadTrigger identifies what kind of change triggered a reload.
type ReloadTrigger string

const (
	TriggerViewChange  ReloadTrigger = "view_change"
	TriggerStyleChange ReloadTrigger = "style_change"
	TriggerManual      ReloadTrigger = "manual"
)

// ReloadQueuedPayload is the payload for reload_queued events.
type ReloadQueuedPayload struct {
	Resource string        `json:"resource"`
	Trigger  ReloadTrigger `json:"trigger"`
}

// ViewReloadedPayload is the payload for view_reloaded events.
type ViewReloadedPayload struct {
	Resource   string        `json:"resource"`
	Affected   []string      `json:"affected,omitempty"`
	Components int           `json:"components"`
	DurationMS int64         `json:"duration_ms"`
	Trigger    ReloadTrigger `json:"trigger"`
}

// StyleRefreshedPayload is the payload for style_refreshed events.
type StyleRefreshedPayload struct {
	Stylesheet string   `json:"stylesheet"`
	Views      []string `json:"views,omitempty"`
	Components int      `json:"components"`
	DurationMS int64    `json:"duration_ms"`
}

// ReloadFailedPayload is the payload for reload_failed events.
type ReloadFailedPayload struct {
	Resource  string `json:"resource"`
	Component string `json:"component,omitempty"`
	Error     string `json:"error"`
}

// GraphUpdatedPayload is the payload for graph_updated events.
type GraphUpdatedPayload struct {
	Root        string `json:"root"`
	Includes    int    `json:"includes"`
	Stylesheets int    `json:"stylesheets"`
}

// WatchStartedPayload is the payload for watch_started events.
type WatchStartedPayload struct {
	Project string `json:"project"`
	Roots   int    `json:"roots"`
}

// WatchStoppedPayload is the payload for watch_stopped events.
type WatchStoppedPayload struct {
	Project  string `json:"project"`
	UptimeMS int64  `json:"uptime_ms"`
}

// ErrorPayload is the payload for error events.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewReloadQueuedEvent creates a new reload_queued event.
func NewReloadQueuedEvent(resource string, trigger ReloadTrigger) *BaseEvent {
	return NewEventWithContext(EventTypeReloadQueued, ReloadQueuedPayload{
		Resource: resource,
		Trigger:  trigger,
	}, resource, "")
}

// NewViewReloadedEvent creates a new view_reloaded event.
func NewViewReloadedEvent(resource string, affected []string, components int, durationMS int64, trigger ReloadTrigger) *BaseEvent {
	return NewEventWithContext(EventTypeViewReloaded, ViewReloadedPayload{
		Resource:   resource,
		Affected:   affected,
		Components: components,
		DurationMS: durationMS,
		Trigger:    trigger,
	}, resource, "")
}

// NewStyleRefreshedEvent creates a new style_refreshed event.
func NewStyleRefreshedEvent(stylesheet string, views []string, components int, durationMS int64) *BaseEvent {
	return NewEventWithContext(EventTypeStyleRefreshed, StyleRefreshedPayload{
		Stylesheet: stylesheet,
		Views:      views,
		Components: components,
		DurationMS: durationMS,
	}, stylesheet, "")
}

// NewReloadFailedEvent creates a new reload_failed event.
func NewReloadFailedEvent(resource, component string, err error) *BaseEvent {
	return NewEventWithContext(EventTypeReloadFailed, ReloadFailedPayload{
		Resource:  resource,
		Component: component,
		Error:     err.Error(),
	}, resource, "")
}

// NewGraphUpdatedEvent creates a new graph_updated event.
func NewGraphUpdatedEvent(root string, includes, stylesheets int) *BaseEvent {
	return NewEventWithContext(EventTypeGraphUpdated, GraphUpdatedPayload{
		Root:        root,
		Includes:    includes,
		Stylesheets: stylesheets,
	}, root, "")
}

// NewWatchStartedEvent creates a new watch_started event.
func NewWatchStartedEvent(project string, roots int, sessionID string) *BaseEvent {
	return NewEventWithContext(EventTypeWatchStarted, WatchStartedPayload{
		Project: project,
		Roots:   roots,
	}, "", sessionID)
}

// NewWatchStoppedEvent creates a new watch_stopped event.
func NewWatchStoppedEvent(project string, uptimeMS int64, sessionID string) *BaseEvent {
	return NewEventWithContext(EventTypeWatchStopped, WatchStoppedPayload{
		Project:  project,
		UptimeMS: uptimeMS,
	}, "", sessionID)
}

// NewErrorEventWithRequestID creates a new error event correlated to a
// request. An empty requestID leaves the correlation field out.
func NewErrorEventWithRequestID(code, message, requestID string) *BaseEvent {
	return NewEventWithRequestID(EventTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	}, requestID)
}
