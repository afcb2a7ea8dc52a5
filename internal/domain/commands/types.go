// Package commands defines all command types used in hotview.
package commands

import "encoding/json"

// CommandType represents the type of command.
type CommandType string

const (
	CommandGetStatus CommandType = "get_status"
	CommandGetGraph  CommandType = "get_graph"
	CommandReload    CommandType = "reload"
	CommandSubscribe CommandType = "subscribe"
	CommandPing      CommandType = "ping"
)

// Command represents a command received from a client.
type Command struct {
	Command   CommandType     `json:"command"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ReloadPayload is the payload for the reload command. Resource selects the
// view to reload; an empty resource reloads every registered root.
type ReloadPayload struct {
	Resource string `json:"resource,omitempty"`
}

// GetGraphPayload is the payload for the get_graph command.
type GetGraphPayload struct {
	Format string `json:"format,omitempty"` // "text", "dot" or "mermaid"
	Root   string `json:"root,omitempty"`   // limit output to one root
}

// SubscribePayload is the payload for the subscribe command. Resources lists
// the resource path prefixes the client wants reload events for; an empty
// list restores the default of receiving everything.
type SubscribePayload struct {
	Resources []string `json:"resources,omitempty"`
}

// ParseCommand parses a JSON message into a Command.
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// ParseReloadPayload parses the payload for the reload command.
func (c *Command) ParseReloadPayload() (*ReloadPayload, error) {
	if len(c.Payload) == 0 {
		return &ReloadPayload{}, nil
	}
	var payload ReloadPayload
	if err := json.Unmarshal(c.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ParseGetGraphPayload parses the payload for the get_graph command.
func (c *Command) ParseGetGraphPayload() (*GetGraphPayload, error) {
	if len(c.Payload) == 0 {
		return &GetGraphPayload{}, nil
	}
	var payload GetGraphPayload
	if err := json.Unmarshal(c.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ParseSubscribePayload parses the payload for the subscribe command.
func (c *Command) ParseSubscribePayload() (*SubscribePayload, error) {
	if len(c.Payload) == 0 {
		return &SubscribePayload{}, nil
	}
	var payload SubscribePayload
	if err := json.Unmarshal(c.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
