package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/declview/hotview/internal/app"
	"github.com/declview/hotview/internal/config"
)

var (
	projectPath string
	port        int
	externalURL string
	debounceMS  int
	noServer    bool
)

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a project and serve reload events",
	Long: `Watch a project's view and style files and serve reload events to
connected preview shells.

The daemon scans the project for root views (views no other view
includes), watches every file each root expands, and broadcasts
view_reloaded and style_refreshed events over WebSocket the moment a
change settles.

Example:
  hotview watch                          # Watch the current directory
  hotview watch --project /path/to/app
  hotview watch --port 9000              # Custom port
  hotview watch --no-server              # Watch and log, serve nothing

VS Code Port Forwarding:
  When using VS Code port forwarding, copy the forwarded URL and pass it:

  hotview watch --external-url https://your-tunnel.devtunnels.ms

  Pairing output then advertises the tunnel instead of the LAN address.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&projectPath, "project", "", "path to project (default: current directory)")
	watchCmd.Flags().IntVar(&port, "port", 0, "server port for HTTP and WebSocket (default: 8645)")
	watchCmd.Flags().StringVar(&externalURL, "external-url", "", "external URL for tunnels (e.g., https://tunnel.devtunnels.ms)")
	watchCmd.Flags().IntVar(&debounceMS, "debounce", 0, "debounce window in milliseconds (default: 200)")
	watchCmd.Flags().BoolVar(&noServer, "no-server", false, "watch and log only, do not serve HTTP or WebSocket")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with flags
	if projectPath != "" {
		abs, absErr := filepath.Abs(projectPath)
		if absErr != nil {
			return fmt.Errorf("invalid project path: %w", absErr)
		}
		cfg.Project.Path = abs
		cfg.Project.Name = filepath.Base(abs)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if externalURL != "" {
		cfg.Server.ExternalURL = strings.TrimRight(externalURL, "/")
	}
	if debounceMS > 0 {
		cfg.Watcher.DebounceMS = debounceMS
	}
	if noServer {
		cfg.Server.Enabled = false
	}

	// Re-validate after overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Setup logging
	setupLogging(cfg)

	log.Info().
		Str("version", version).
		Str("project", cfg.Project.Path).
		Int("port", cfg.Server.Port).
		Bool("server", cfg.Server.Enabled).
		Msg("starting hotview")

	// Create the daemon
	daemon, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	// Start the daemon
	if err := daemon.Start(ctx); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	log.Info().Msg("hotview stopped")
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func setupLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Logging.Format == "console" || verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Add verbose logging if flag is set
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Project Path:     %s\n", cfg.Project.Path)
	fmt.Printf("Project Name:     %s\n", cfg.Project.Name)
	fmt.Printf("Port:             %d\n", cfg.Server.Port)
	fmt.Printf("Host:             %s\n", cfg.Server.Host)
	fmt.Printf("Server Enabled:   %t\n", cfg.Server.Enabled)
	fmt.Printf("Debounce (ms):    %d\n", cfg.Watcher.DebounceMS)
	fmt.Printf("View Extensions:  %s\n", strings.Join(cfg.Watcher.ViewExtensions, ", "))
	fmt.Printf("Style Extensions: %s\n", strings.Join(cfg.Watcher.StyleExtensions, ", "))
	fmt.Printf("Log Level:        %s\n", cfg.Logging.Level)
	fmt.Printf("Log Format:       %s\n", cfg.Logging.Format)
}
