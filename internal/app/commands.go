package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/domain"
	"github.com/declview/hotview/internal/domain/commands"
	"github.com/declview/hotview/internal/domain/events"
)

// handleCommand processes one WebSocket message from a client. Responses go
// back to the requesting client only; reload activity itself reaches every
// subscriber through the hub.
func (a *App) handleCommand(clientID string, message []byte) {
	cmd, err := commands.ParseCommand(message)
	if err != nil {
		a.sendError(clientID, domain.ErrCodeInvalidCommand, "message is not a valid command", "")
		return
	}

	log.Debug().
		Str("client_id", clientID).
		Str("command", string(cmd.Command)).
		Msg("command received")

	switch cmd.Command {
	case commands.CommandGetStatus:
		a.sendEvent(clientID, events.NewStatusResponseEvent(a.statusPayload(), cmd.RequestID))

	case commands.CommandGetGraph:
		a.handleGetGraph(clientID, cmd)

	case commands.CommandReload:
		a.handleReload(clientID, cmd)

	case commands.CommandSubscribe:
		a.handleSubscribe(clientID, cmd)

	case commands.CommandPing:
		a.sendEvent(clientID, events.NewEventWithRequestID(events.EventTypePong, map[string]interface{}{
			"server_time": time.Now().UTC().Format(time.RFC3339),
		}, cmd.RequestID))

	default:
		a.sendError(clientID, domain.ErrCodeUnknownCommand, fmt.Sprintf("unknown command: %s", cmd.Command), cmd.RequestID)
	}
}

func (a *App) handleGetGraph(clientID string, cmd *commands.Command) {
	payload, err := cmd.ParseGetGraphPayload()
	if err != nil {
		a.sendError(clientID, domain.ErrCodeInvalidPayload, "invalid get_graph payload", cmd.RequestID)
		return
	}

	format := payload.Format
	if format == "" {
		format = "text"
	}

	graph := a.engine.Graph()
	if payload.Root != "" {
		graph = graph.Subgraph(payload.Root)
	}

	var rendered string
	switch format {
	case "text":
		rendered = graph.Text()
	case "dot":
		rendered = graph.DOT()
	case "mermaid":
		rendered = graph.Mermaid()
	default:
		a.sendError(clientID, domain.ErrCodeInvalidPayload, fmt.Sprintf("unknown graph format: %s", format), cmd.RequestID)
		return
	}

	a.sendEvent(clientID, events.NewGraphResponseEvent(format, rendered, len(graph.Roots()), cmd.RequestID))
}

func (a *App) handleReload(clientID string, cmd *commands.Command) {
	payload, err := cmd.ParseReloadPayload()
	if err != nil {
		a.sendError(clientID, domain.ErrCodeInvalidPayload, "invalid reload payload", cmd.RequestID)
		return
	}

	switch err := a.reloadResource(payload.Resource); {
	case err == nil:
		// The hub broadcasts reload_queued and view_reloaded to every
		// subscriber, the requester included.
	case errors.Is(err, domain.ErrNotRegistered):
		a.sendError(clientID, domain.ErrCodeNotRegistered, fmt.Sprintf("no live component for resource: %s", payload.Resource), cmd.RequestID)
	case errors.Is(err, domain.ErrInvalidResourcePath):
		a.sendError(clientID, domain.ErrCodeInvalidResource, fmt.Sprintf("invalid resource path: %s", payload.Resource), cmd.RequestID)
	default:
		a.sendError(clientID, domain.ErrCodeReloadFailed, err.Error(), cmd.RequestID)
	}
}

func (a *App) handleSubscribe(clientID string, cmd *commands.Command) {
	payload, err := cmd.ParseSubscribePayload()
	if err != nil {
		a.sendError(clientID, domain.ErrCodeInvalidPayload, "invalid subscribe payload", cmd.RequestID)
		return
	}

	if a.wsServer == nil {
		return
	}
	filtered := a.wsServer.FilteredSubscriber(clientID)
	if filtered == nil {
		return
	}

	// The new list replaces the previous filter; an empty list restores
	// the default of receiving everything.
	filtered.SubscribeAll()
	for _, resource := range payload.Resources {
		filtered.SubscribeResource(resource)
	}

	a.sendEvent(clientID, events.NewEventWithRequestID(events.EventTypeSubscribed, map[string]interface{}{
		"resources": filtered.Resources(),
	}, cmd.RequestID))

	log.Debug().
		Str("client_id", clientID).
		Strs("resources", filtered.Resources()).
		Msg("client subscription updated")
}

// sendError sends an error event to a specific client.
func (a *App) sendError(clientID, code, message, requestID string) {
	a.sendEvent(clientID, events.NewErrorEventWithRequestID(code, message, requestID))
}

// sendEvent sends an event to a specific client.
func (a *App) sendEvent(clientID string, event events.Event) {
	if a.wsServer == nil {
		return
	}
	if err := a.wsServer.SendEvent(clientID, event); err != nil {
		log.Debug().Err(err).Str("client_id", clientID).Msg("failed to send event to client")
	}
}
