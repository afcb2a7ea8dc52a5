// Package config loads and validates daemon configuration from YAML files,
// environment variables, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the hotview daemon.
type Config struct {
	Project  ProjectConfig  `mapstructure:"project" yaml:"project"`
	Watcher  WatcherConfig  `mapstructure:"watcher" yaml:"watcher"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Pairing  PairingConfig  `mapstructure:"pairing" yaml:"pairing"`
}

// ProjectConfig identifies the project the daemon watches.
type ProjectConfig struct {
	// Path is the project root. Empty means the current working directory;
	// Load resolves it to an absolute path.
	Path string `mapstructure:"path" yaml:"path"`
	// Name is the display name used in status output and pairing payloads.
	// Defaults to the base name of Path.
	Name string `mapstructure:"name" yaml:"name"`
}

// WatcherConfig controls file watching and debounce behavior.
type WatcherConfig struct {
	// DebounceMS is the quiet window in milliseconds after the last write
	// before a change callback fires.
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	// ViewExtensions lists the file extensions treated as view markup.
	ViewExtensions []string `mapstructure:"view_extensions" yaml:"view_extensions"`
	// StyleExtensions lists the file extensions treated as stylesheets.
	StyleExtensions []string `mapstructure:"style_extensions" yaml:"style_extensions"`
}

// ResolverConfig supplies custom build layouts tried before the built-ins.
type ResolverConfig struct {
	Profiles []ProfileConfig `mapstructure:"profiles" yaml:"profiles,omitempty"`
}

// ProfileConfig describes one custom build layout for the path resolver.
type ProfileConfig struct {
	// Name identifies the profile in logs and resolve output.
	Name string `mapstructure:"name" yaml:"name"`
	// OutputMarker is the path fragment identifying build output,
	// e.g. "out/res". Segments may contain globs.
	OutputMarker string `mapstructure:"output_marker" yaml:"output_marker"`
	// SourceDir replaces the marker when mapping output back to source.
	SourceDir string `mapstructure:"source_dir" yaml:"source_dir"`
	// OutputDir replaces SourceDir in the inverse direction. Empty disables
	// source-to-output mapping for this profile.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir,omitempty"`
}

// ServerConfig controls the daemon's HTTP and WebSocket endpoint.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
	// AllowedOrigins lists origins accepted for WebSocket upgrades and CORS
	// beyond loopback. Entries may use a leading wildcard ("*.example.com").
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins,omitempty"`
	// ExternalURL overrides the advertised http(s) base URL when the daemon
	// sits behind a tunnel or reverse proxy.
	ExternalURL string `mapstructure:"external_url" yaml:"external_url,omitempty"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// PairingConfig controls how connection details are advertised.
type PairingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// TerminalQR prints a QR code to the terminal on startup.
	TerminalQR bool `mapstructure:"terminal_qr" yaml:"terminal_qr"`
}

// Load reads configuration from the given file path. When configPath is
// empty it searches the working directory, ~/.hotview, and /etc/hotview for
// a config.yaml. Environment variables with the HOTVIEW_ prefix override
// file values (HOTVIEW_SERVER_PORT=9000 sets server.port).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".hotview"))
		}
		v.AddConfigPath("/etc/hotview")
	}

	v.SetEnvPrefix("HOTVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// No config file on the search path is fine, defaults apply.
		// An explicit path that cannot be read is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.postProcess(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project.path", "")
	v.SetDefault("project.name", "")

	v.SetDefault("watcher.debounce_ms", 200)
	v.SetDefault("watcher.view_extensions", []string{".view"})
	v.SetDefault("watcher.style_extensions", []string{".style"})

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8645)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.external_url", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("pairing.enabled", true)
	v.SetDefault("pairing.terminal_qr", true)
}

// postProcess resolves derived values after unmarshalling.
func (c *Config) postProcess() error {
	if c.Project.Path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		c.Project.Path = cwd
	}

	abs, err := filepath.Abs(c.Project.Path)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}
	c.Project.Path = abs

	if c.Project.Name == "" {
		c.Project.Name = filepath.Base(c.Project.Path)
	}

	c.Server.ExternalURL = strings.TrimRight(c.Server.ExternalURL, "/")

	return nil
}

// GetConfigDir returns the user-level configuration directory (~/.hotview).
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".hotview"), nil
}

// EnsureConfigDir creates the user-level configuration directory if missing.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}
