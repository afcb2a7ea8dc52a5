package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/declview/hotview/internal/domain/commands"
	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/security"
)

var (
	eventResources []string
	eventsJSON     bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream reload events from a running daemon",
	Long: `Connect to a running hotview daemon and print its event stream.

Each reload, style refresh, and watcher state change is printed as it
happens. Heartbeats are hidden unless --verbose is set.

Examples:
  # Stream every event
  hotview events

  # Only events for views under app/
  hotview events --resource app/

  # Raw JSON, one event per line
  hotview events --json`,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringSliceVar(&eventResources, "resource", nil, "Only stream events for resources under these prefixes")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Print raw event JSON, one per line")

	rootCmd.AddCommand(eventsCmd)
}

// streamEvent mirrors the daemon's wire format for display purposes.
type streamEvent struct {
	Event     string                 `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Resource  string                 `json:"resource,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	wsURL := security.WebSocketURL(fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port))
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("no running hotview daemon at %s:%d (start one with `hotview watch`): %w",
			cfg.Server.Host, cfg.Server.Port, err)
	}
	defer conn.Close()

	if len(eventResources) > 0 {
		if err := subscribeResources(conn, eventResources); err != nil {
			return fmt.Errorf("subscribe failed: %w", err)
		}
	}
	fmt.Fprintf(os.Stderr, "Connected to %s (Ctrl+C to stop)\n", wsURL)

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.Kitchen,
	}))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if eventsJSON {
				fmt.Println(string(data))
				continue
			}
			logStreamEvent(logger, data)
		}
	}()

	select {
	case <-done:
		return fmt.Errorf("daemon closed the connection")
	case <-interrupt:
		fmt.Fprintln(os.Stderr, "\nDisconnecting")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return nil
	}
}

// subscribeResources narrows the stream before any events arrive.
func subscribeResources(conn *websocket.Conn, resources []string) error {
	payload, err := json.Marshal(commands.SubscribePayload{Resources: resources})
	if err != nil {
		return err
	}
	msg, err := json.Marshal(commands.Command{
		Command:   commands.CommandSubscribe,
		RequestID: "cli-subscribe",
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}

func logStreamEvent(logger *slog.Logger, data []byte) {
	var evt streamEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		logger.Warn("unparseable event", "error", err)
		return
	}

	attrs := make([]any, 0, 2+2*len(evt.Payload))
	if evt.Resource != "" {
		attrs = append(attrs, "resource", evt.Resource)
	}
	keys := make([]string, 0, len(evt.Payload))
	for k := range evt.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, evt.Payload[k])
	}

	switch events.EventType(evt.Event) {
	case events.EventTypeHeartbeat, events.EventTypePong:
		logger.Debug(evt.Event, attrs...)
	case events.EventTypeError, events.EventTypeReloadFailed:
		logger.Error(evt.Event, attrs...)
	default:
		logger.Info(evt.Event, attrs...)
	}
}
