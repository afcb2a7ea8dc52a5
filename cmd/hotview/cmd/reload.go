package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// reloadCmd asks a running daemon to reload views.
var reloadCmd = &cobra.Command{
	Use:   "reload [resource]",
	Short: "Trigger a reload on the running daemon",
	Long: `Ask the running hotview daemon to reload a registered root view, or
every registered root when no resource is given.

Connected preview shells receive the resulting view_reloaded events.

Examples:
  hotview reload                  # Reload every registered root
  hotview reload app/Main.view    # Reload one root`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReload,
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	resource := ""
	if len(args) == 1 {
		resource = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	body, err := json.Marshal(map[string]string{"resource": resource})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("http://%s:%d/api/reload", cfg.Server.Host, cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("no running hotview daemon at %s:%d (start one with `hotview watch`): %w",
			cfg.Server.Host, cfg.Server.Port, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		var errBody struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			return fmt.Errorf("reload rejected: %s", errBody.Error)
		}
		return fmt.Errorf("reload rejected with status %d", resp.StatusCode)
	}

	if resource == "" {
		fmt.Println("Reload queued for every registered root")
	} else {
		fmt.Printf("Reload queued: %s\n", resource)
	}
	return nil
}
