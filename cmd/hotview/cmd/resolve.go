package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/declview/hotview"
	"github.com/declview/hotview/internal/app"
	"github.com/declview/hotview/internal/config"
)

var resolveJSON bool

// resolveCmd maps a runtime location back to its source file.
var resolveCmd = &cobra.Command{
	Use:   "resolve <location>",
	Short: "Map a runtime location to its source file",
	Long: `Map a runtime view location (a build output path, an archive entry, or
a plain file path) back to the source file the daemon would watch.

If a hotview daemon is running, its resolver answers. Otherwise the
resolution runs locally against the configured build profiles.

Examples:
  hotview resolve out/res/app/Main.view
  hotview resolve /app/build/processedResources/views/Main.view --json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output resolution as JSON")
}

type resolveResult struct {
	Location   string `json:"location"`
	SourcePath string `json:"source_path"`
	Resolved   bool   `json:"resolved"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	location := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := resolveFromServer(cfg, location)
	if err != nil {
		// No daemon to ask, resolve against the configured profiles.
		engine := hotview.New(hotview.WithProfiles(app.ProfilesFromConfig(cfg.Resolver.Profiles)...))
		path, ok := engine.ResolveSource(location)
		result = &resolveResult{Location: location, SourcePath: path, Resolved: ok}
	}

	if resolveJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		if !result.Resolved {
			return fmt.Errorf("could not resolve %s", location)
		}
		return nil
	}

	if !result.Resolved {
		return fmt.Errorf("could not resolve %s (file missing or no matching build profile)", location)
	}
	fmt.Println(result.SourcePath)
	return nil
}

func resolveFromServer(cfg *config.Config, location string) (*resolveResult, error) {
	query := url.Values{}
	query.Set("location", location)
	endpoint := fmt.Sprintf("http://%s:%d/api/resolve?%s", cfg.Server.Host, cfg.Server.Port, query.Encode())

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var result resolveResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
