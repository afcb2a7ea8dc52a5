package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/security"
	wsserver "github.com/declview/hotview/internal/server/websocket"
)

// commandTestApp bootstraps a daemon without its HTTP listener and bridges
// the WebSocket server onto an httptest server instead, so command handling
// can be exercised over a real connection without binding a fixed port.
func commandTestApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()

	app, err := New(testConfig(t), "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := app.bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap() error = %v", err)
	}

	ws := wsserver.NewServer(app.Engine().Hub(), security.NewOriginChecker(nil, true))
	ws.SetCommandHandler(app.handleCommand)
	ws.SetStatusProvider(app)
	app.wsServer = ws

	ts := httptest.NewServer(http.HandlerFunc(ws.HandleWebSocket))
	t.Cleanup(func() {
		_ = app.shutdown()
		ts.Close()
	})
	return app, ts
}

func dialApp(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendCommand(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

type wireEvent struct {
	Event     string          `json:"event"`
	Resource  string          `json:"resource"`
	RequestID string          `json:"request_id"`
	Payload   json.RawMessage `json:"payload"`
}

// readUntil discards events until one of the wanted type arrives. Clients
// share the hub with the watcher, so unrelated broadcasts may interleave.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) wireEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() waiting for %s: %v", eventType, err)
		}
		var event wireEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if event.Event == eventType {
			return event
		}
	}
	t.Fatalf("no %s event within deadline", eventType)
	return wireEvent{}
}

func TestCommands_GetStatus(t *testing.T) {
	_, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":"get_status","request_id":"r1"}`)
	event := readUntil(t, conn, string(events.EventTypeStatusResponse))

	if event.RequestID != "r1" {
		t.Errorf("request_id = %q, want r1", event.RequestID)
	}
	var payload events.StatusResponsePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.WatcherStatus != events.WatcherStatusWatching {
		t.Errorf("watcher_status = %q, want watching", payload.WatcherStatus)
	}
	if payload.RegisteredViews != 2 {
		t.Errorf("registered_views = %d, want 2", payload.RegisteredViews)
	}
	if payload.DaemonVersion != "test" {
		t.Errorf("daemon_version = %q, want test", payload.DaemonVersion)
	}
	if payload.ConnectedClients != 1 {
		t.Errorf("connected_clients = %d, want 1", payload.ConnectedClients)
	}
}

func TestCommands_GetGraph_DOT(t *testing.T) {
	_, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":"get_graph","request_id":"g1","payload":{"format":"dot"}}`)
	event := readUntil(t, conn, string(events.EventTypeGraphResponse))

	if event.RequestID != "g1" {
		t.Errorf("request_id = %q, want g1", event.RequestID)
	}
	var payload events.GraphResponsePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Format != "dot" {
		t.Errorf("format = %q, want dot", payload.Format)
	}
	if payload.Roots != 2 {
		t.Errorf("roots = %d, want 2", payload.Roots)
	}
	if !strings.Contains(payload.Graph, "digraph includes {") {
		t.Errorf("graph missing digraph header:\n%s", payload.Graph)
	}
	if !strings.Contains(payload.Graph, `"app/Main.view" -> "app/Header.view";`) {
		t.Errorf("graph missing include edge:\n%s", payload.Graph)
	}
}

func TestCommands_GetGraph_SubgraphRoot(t *testing.T) {
	_, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":"get_graph","request_id":"g2","payload":{"root":"app/Main.view"}}`)
	event := readUntil(t, conn, string(events.EventTypeGraphResponse))

	var payload events.GraphResponsePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Format != "text" {
		t.Errorf("format = %q, want text default", payload.Format)
	}
	if !strings.Contains(payload.Graph, "app/Header.view") {
		t.Errorf("subgraph missing include:\n%s", payload.Graph)
	}
	if strings.Contains(payload.Graph, "lib/Table.view") {
		t.Errorf("subgraph leaked unrelated root:\n%s", payload.Graph)
	}
}

func TestCommands_GetGraph_UnknownFormat(t *testing.T) {
	_, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":"get_graph","request_id":"g3","payload":{"format":"png"}}`)
	event := readUntil(t, conn, string(events.EventTypeError))

	if event.RequestID != "g3" {
		t.Errorf("request_id = %q, want g3", event.RequestID)
	}
	var payload events.ErrorPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Code != "INVALID_PAYLOAD" {
		t.Errorf("code = %q, want INVALID_PAYLOAD", payload.Code)
	}
}

func TestCommands_ReloadBroadcasts(t *testing.T) {
	_, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":"reload","request_id":"r2","payload":{"resource":"app/Main.view"}}`)
	event := readUntil(t, conn, string(events.EventTypeViewReloaded))

	if event.Resource != "app/Main.view" {
		t.Errorf("resource = %q, want app/Main.view", event.Resource)
	}
}

func TestCommands_ReloadUnknownResource(t *testing.T) {
	_, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":"reload","request_id":"r3","payload":{"resource":"app/Missing.view"}}`)
	event := readUntil(t, conn, string(events.EventTypeError))

	if event.RequestID != "r3" {
		t.Errorf("request_id = %q, want r3", event.RequestID)
	}
	var payload events.ErrorPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Code != "NOT_REGISTERED" {
		t.Errorf("code = %q, want NOT_REGISTERED", payload.Code)
	}
}

func TestCommands_SubscribeFiltersBroadcasts(t *testing.T) {
	app, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":"subscribe","request_id":"s1","payload":{"resources":["lib/"]}}`)
	event := readUntil(t, conn, string(events.EventTypeSubscribed))
	if event.RequestID != "s1" {
		t.Errorf("request_id = %q, want s1", event.RequestID)
	}
	var payload struct {
		Resources []string `json:"resources"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Resources) != 1 || payload.Resources[0] != "lib/" {
		t.Errorf("resources = %v, want [lib/]", payload.Resources)
	}

	// A reload outside the filter must not reach this client.
	if err := app.reloadResource("app/Main.view"); err != nil {
		t.Fatalf("reloadResource() error = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var leaked wireEvent
		if err := json.Unmarshal(data, &leaked); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if strings.HasPrefix(leaked.Resource, "app/") {
			t.Fatalf("filtered client received %s for %s", leaked.Event, leaked.Resource)
		}
	}

	// The read deadline poisons the connection, so reconnect for the
	// positive half of the check.
	conn2 := dialApp(t, ts)
	sendCommand(t, conn2, `{"command":"subscribe","payload":{"resources":["lib/"]}}`)
	readUntil(t, conn2, string(events.EventTypeSubscribed))

	if err := app.reloadResource("lib/Table.view"); err != nil {
		t.Fatalf("reloadResource() error = %v", err)
	}
	reloaded := readUntil(t, conn2, string(events.EventTypeViewReloaded))
	if reloaded.Resource != "lib/Table.view" {
		t.Errorf("resource = %q, want lib/Table.view", reloaded.Resource)
	}

	// An empty list clears the filter again.
	sendCommand(t, conn2, `{"command":"subscribe","payload":{"resources":[]}}`)
	cleared := readUntil(t, conn2, string(events.EventTypeSubscribed))
	if err := json.Unmarshal(cleared.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Resources) != 0 {
		t.Errorf("resources after clear = %v, want empty", payload.Resources)
	}

	if err := app.reloadResource("app/Main.view"); err != nil {
		t.Fatalf("reloadResource() error = %v", err)
	}
	reloaded = readUntil(t, conn2, string(events.EventTypeViewReloaded))
	if reloaded.Resource != "app/Main.view" {
		t.Errorf("resource = %q, want app/Main.view after clearing filter", reloaded.Resource)
	}
}

func TestCommands_Ping(t *testing.T) {
	_, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":"ping","request_id":"p1"}`)
	event := readUntil(t, conn, string(events.EventTypePong))

	if event.RequestID != "p1" {
		t.Errorf("request_id = %q, want p1", event.RequestID)
	}
	var payload struct {
		ServerTime string `json:"server_time"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, payload.ServerTime); err != nil {
		t.Errorf("server_time %q is not RFC3339: %v", payload.ServerTime, err)
	}
}

func TestCommands_UnknownCommand(t *testing.T) {
	_, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":"launch_missiles","request_id":"u1"}`)
	event := readUntil(t, conn, string(events.EventTypeError))

	var payload events.ErrorPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Code != "UNKNOWN_COMMAND" {
		t.Errorf("code = %q, want UNKNOWN_COMMAND", payload.Code)
	}
}

func TestCommands_MalformedMessage(t *testing.T) {
	_, ts := commandTestApp(t)
	conn := dialApp(t, ts)

	sendCommand(t, conn, `{"command":`)
	event := readUntil(t, conn, string(events.EventTypeError))

	var payload events.ErrorPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Code != "INVALID_COMMAND" {
		t.Errorf("code = %q, want INVALID_COMMAND", payload.Code)
	}
}
