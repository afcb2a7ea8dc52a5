package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validateProject(&c.Project); err != nil {
		return err
	}
	if err := validateWatcher(&c.Watcher); err != nil {
		return err
	}
	if err := validateResolver(&c.Resolver); err != nil {
		return err
	}
	if err := validateServer(&c.Server); err != nil {
		return err
	}
	if err := validateLogging(&c.Logging); err != nil {
		return err
	}
	return nil
}

func validateProject(cfg *ProjectConfig) error {
	if cfg.Path == "" {
		return fmt.Errorf("project.path cannot be empty")
	}

	info, err := os.Stat(cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("project.path does not exist: %s", cfg.Path)
		}
		return fmt.Errorf("project.path is not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project.path is not a directory: %s", cfg.Path)
	}

	return nil
}

func validateWatcher(cfg *WatcherConfig) error {
	if cfg.DebounceMS < 0 {
		return fmt.Errorf("watcher.debounce_ms cannot be negative")
	}
	if cfg.DebounceMS > 10000 {
		return fmt.Errorf("watcher.debounce_ms cannot exceed 10000ms")
	}

	if len(cfg.ViewExtensions) == 0 {
		return fmt.Errorf("watcher.view_extensions cannot be empty")
	}
	if err := validateExtensions("watcher.view_extensions", cfg.ViewExtensions); err != nil {
		return err
	}
	if err := validateExtensions("watcher.style_extensions", cfg.StyleExtensions); err != nil {
		return err
	}

	return nil
}

func validateExtensions(key string, exts []string) error {
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("%s entries must start with '.' followed by a name, got %q", key, ext)
		}
	}
	return nil
}

func validateResolver(cfg *ResolverConfig) error {
	seen := make(map[string]bool, len(cfg.Profiles))
	for i, p := range cfg.Profiles {
		if p.Name == "" {
			return fmt.Errorf("resolver.profiles[%d].name cannot be empty", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("resolver.profiles has duplicate name %q", p.Name)
		}
		seen[p.Name] = true

		if p.OutputMarker == "" {
			return fmt.Errorf("resolver.profiles[%d].output_marker cannot be empty", i)
		}
		if p.SourceDir == "" {
			return fmt.Errorf("resolver.profiles[%d].source_dir cannot be empty", i)
		}
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Host == "" {
		return fmt.Errorf("server.host cannot be empty")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Port)
	}

	if cfg.ExternalURL != "" {
		u, err := url.Parse(cfg.ExternalURL)
		if err != nil {
			return fmt.Errorf("server.external_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("server.external_url must use http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("server.external_url is missing a host")
		}
	}

	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch cfg.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, got %q", cfg.Level)
	}

	switch cfg.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", cfg.Format)
	}

	return nil
}
