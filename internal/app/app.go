// Package app wires the reload engine, the servers, and pairing into the
// hotview daemon.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/declview/hotview"
	"github.com/declview/hotview/internal/config"
	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/hub"
	"github.com/declview/hotview/internal/pairing"
	"github.com/declview/hotview/internal/security"
	httpserver "github.com/declview/hotview/internal/server/http"
	"github.com/declview/hotview/internal/server/websocket"
	"github.com/declview/hotview/internal/sync"
)

// App composes the engine with the daemon surfaces: project scan, HTTP and
// WebSocket servers, and pairing.
type App struct {
	cfg     *config.Config
	version string

	engine        *hotview.Engine
	httpServer    *httpserver.Server
	wsServer      *websocket.Server
	qrGenerator   *pairing.QRGenerator
	registrations []*hotview.Registration

	sessionID string
	startTime time.Time

	mu      sync.RWMutex
	running bool
}

// New creates the daemon around an engine configured from cfg.
func New(cfg *config.Config, version string) (*App, error) {
	opts := []hotview.Option{
		hotview.WithDebounce(time.Duration(cfg.Watcher.DebounceMS) * time.Millisecond),
	}
	if len(cfg.Watcher.StyleExtensions) > 0 {
		opts = append(opts, hotview.WithStyleExtensions(cfg.Watcher.StyleExtensions...))
	}
	if profiles := ProfilesFromConfig(cfg.Resolver.Profiles); len(profiles) > 0 {
		opts = append(opts, hotview.WithProfiles(profiles...))
	}

	return &App{
		cfg:       cfg,
		version:   version,
		engine:    hotview.New(opts...),
		sessionID: uuid.New().String(),
	}, nil
}

// ProfilesFromConfig converts configured build layouts into engine
// profiles. The CLI shares it to build an offline resolver.
func ProfilesFromConfig(configured []config.ProfileConfig) []hotview.Profile {
	profiles := make([]hotview.Profile, 0, len(configured))
	for _, p := range configured {
		profiles = append(profiles, hotview.Profile{
			Name:         p.Name,
			OutputMarker: p.OutputMarker,
			SourceDir:    p.SourceDir,
			OutputDir:    p.OutputDir,
		})
	}
	return profiles
}

// Start starts the daemon and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := a.bootstrap(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return a.shutdown()
}

// bootstrap brings every component up without blocking.
func (a *App) bootstrap(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	logSub := hub.NewLogSubscriber("internal-logger", func(event events.Event) {
		log.Trace().
			Str("event_type", string(event.Type())).
			Time("timestamp", event.Timestamp()).
			Msg("event broadcast")
	})
	a.engine.Hub().Subscribe(logSub)

	if err := a.engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	roots, err := a.scanProject()
	if err != nil {
		log.Warn().Err(err).Msg("project scan finished with errors")
	}

	if a.cfg.Server.Enabled {
		if err := a.startServers(); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	a.engine.Hub().Publish(events.NewWatchStartedEvent(a.cfg.Project.Name, roots, a.sessionID))

	log.Info().
		Str("session_id", a.sessionID).
		Str("project_path", a.cfg.Project.Path).
		Str("project_name", a.cfg.Project.Name).
		Int("roots", roots).
		Msg("watch session started")

	a.printConnectionInfo()

	return nil
}

// startServers brings up the WebSocket bridge and the HTTP API on the
// single configured port.
func (a *App) startServers() error {
	checker := security.NewOriginChecker(a.cfg.Server.AllowedOrigins, true)

	a.wsServer = websocket.NewServer(a.engine.Hub(), checker)
	a.wsServer.SetCommandHandler(a.handleCommand)
	a.wsServer.SetStatusProvider(a)
	a.wsServer.Start()

	if a.cfg.Pairing.Enabled {
		a.qrGenerator = pairing.NewQRGenerator(a.cfg.Server.Host, a.cfg.Server.Port, a.sessionID, a.cfg.Project.Name)
		if a.cfg.Server.ExternalURL != "" {
			a.qrGenerator.SetExternalURL(a.cfg.Server.ExternalURL)
			log.Info().Str("external_url", a.cfg.Server.ExternalURL).Msg("using external URL for pairing")
		}
	}

	a.httpServer = httpserver.New(a.cfg.Server.Host, a.cfg.Server.Port, checker)
	a.httpServer.SetStatusFunc(a.statusPayload)
	a.httpServer.SetGraphFunc(a.engine.Graph)
	a.httpServer.SetResolveFunc(a.engine.ResolveSource)
	a.httpServer.SetReloadFunc(a.reloadResource)
	a.httpServer.SetWebSocketHandler(a.wsServer.HandleWebSocket)
	if a.qrGenerator != nil {
		a.httpServer.SetPairingGenerator(a.qrGenerator)
	}

	return a.httpServer.Start()
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false

	log.Info().Msg("shutting down")

	uptimeMS := time.Since(a.startTime).Milliseconds()
	a.engine.Hub().Publish(events.NewWatchStoppedEvent(a.cfg.Project.Name, uptimeMS, a.sessionID))

	// Give the stop event time to reach subscribers.
	time.Sleep(100 * time.Millisecond)

	for _, reg := range a.registrations {
		reg.Release()
	}
	a.registrations = nil

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error stopping http server")
		}
		cancel()
	}

	if a.wsServer != nil {
		a.wsServer.Stop()
	}

	if err := a.engine.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping engine")
	}

	return nil
}

// statusPayload builds the status snapshot served over HTTP and WebSocket.
func (a *App) statusPayload() events.StatusResponsePayload {
	return events.StatusResponsePayload{
		WatcherStatus:    a.WatcherStatus(),
		ConnectedClients: a.clientCount(),
		ProjectPath:      a.cfg.Project.Path,
		ProjectName:      a.cfg.Project.Name,
		DaemonVersion:    a.version,
		UptimeSeconds:    a.UptimeSeconds(),
		RegisteredViews:  len(a.engine.Resources()),
		WatchedFiles:     a.engine.WatchedFiles(),
	}
}

// reloadResource reloads one registered root, or every root when resource
// is empty.
func (a *App) reloadResource(resource string) error {
	if resource != "" {
		return a.engine.Reload(resource)
	}

	var firstErr error
	for _, res := range a.engine.Resources() {
		if err := a.engine.Reload(res); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *App) clientCount() int {
	if a.wsServer == nil {
		return 0
	}
	return a.wsServer.ClientCount()
}

// WatcherStatus returns the watcher state for status and heartbeat
// payloads. Implements websocket.StatusProvider.
func (a *App) WatcherStatus() string {
	if a.engine.WatcherRunning() {
		return events.WatcherStatusWatching
	}
	return events.WatcherStatusStopped
}

// UptimeSeconds returns how long the daemon has been running.
// Implements websocket.StatusProvider.
func (a *App) UptimeSeconds() int64 {
	return int64(time.Since(a.startTime).Seconds())
}

// printConnectionInfo prints connection details to the console.
func (a *App) printConnectionInfo() {
	if !a.cfg.Server.Enabled {
		log.Info().Msg("server disabled, watching without remote clients")
		return
	}

	httpURL := fmt.Sprintf("http://%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	usingExternal := false
	if a.cfg.Server.ExternalURL != "" {
		httpURL = a.cfg.Server.ExternalURL
		usingExternal = true
	}
	wsURL := security.WebSocketURL(httpURL)

	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    hotview ready                           ║")
	fmt.Println("╠════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Session ID: %-46s ║\n", a.sessionID[:8]+"...")
	fmt.Printf("║  Project:    %-46s ║\n", truncateString(a.cfg.Project.Name, 46))
	fmt.Println("╠════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API:        %-46s ║\n", truncateString(httpURL, 46))
	fmt.Printf("║  WebSocket:  %-46s ║\n", truncateString(wsURL, 46))
	if usingExternal {
		fmt.Println("║  (using external URL for port forwarding)                  ║")
	}
	fmt.Println("╚════════════════════════════════════════════════════════════╝")
	fmt.Println()

	if a.cfg.Pairing.Enabled && a.cfg.Pairing.TerminalQR && a.qrGenerator != nil {
		a.qrGenerator.PrintToTerminal()
	}
}

// SessionID returns the daemon's watch session ID.
func (a *App) SessionID() string {
	return a.sessionID
}

// Engine returns the reload engine.
func (a *App) Engine() *hotview.Engine {
	return a.engine
}

// Config returns the configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Running reports whether the daemon has been started and not shut down.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// truncateString truncates a string to maxLen characters.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
