package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/declview/hotview/internal/app"
	"github.com/declview/hotview/internal/config"
)

var (
	doctorJSON        bool
	doctorStrict      bool
	doctorHTTPTimeout int
)

type doctorStatus string

const (
	doctorStatusOK   doctorStatus = "ok"
	doctorStatusWarn doctorStatus = "warn"
	doctorStatusFail doctorStatus = "fail"
)

type doctorCheck struct {
	ID          string                 `json:"id"`
	Status      doctorStatus           `json:"status"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Remediation string                 `json:"remediation,omitempty"`
}

type doctorSummary struct {
	Total int `json:"total"`
	OK    int `json:"ok"`
	Warn  int `json:"warn"`
	Fail  int `json:"fail"`
}

type doctorReport struct {
	Version      string        `json:"version"`
	GeneratedAt  string        `json:"generated_at"`
	Overall      doctorStatus  `json:"overall_status"`
	Summary      doctorSummary `json:"summary"`
	Checks       []doctorCheck `json:"checks"`
	SearchConfig []string      `json:"config_search_paths,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run local diagnostics with remediation hints",
	Long: `Run read-only diagnostics against the local hotview setup and print
actionable hints.

By default the output is human-readable text.
Use --json for machine-readable output.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output machine-readable JSON")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "return non-zero on warnings")
	doctorCmd.Flags().IntVar(&doctorHTTPTimeout, "http-timeout", 2, "health endpoint timeout in seconds")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := collectDoctorReport()

	if doctorJSON {
		if err := printDoctorJSON(report); err != nil {
			return err
		}
	} else {
		printDoctorText(report)
	}

	if report.Summary.Fail > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
	}
	if doctorStrict && report.Summary.Warn > 0 {
		return fmt.Errorf("doctor strict mode failed with %d warning(s)", report.Summary.Warn)
	}
	return nil
}

func collectDoctorReport() doctorReport {
	checks := make([]doctorCheck, 0, 8)

	cfg := defaultDoctorConfig()
	loadedCfg, cfgCheck := checkConfigLoad(cfgFile)
	checks = append(checks, cfgCheck)
	if loadedCfg != nil {
		cfg = loadedCfg
	}

	checks = append(checks, checkConfigDirectory())
	checks = append(checks, checkProjectPath(cfg.Project.Path))
	checks = append(checks, checkProjectViews(cfg))
	checks = append(checks, checkHealthEndpoint(cfg.Server.Host, cfg.Server.Port, doctorHTTPTimeout))

	summary := summarizeDoctorChecks(checks)
	return doctorReport{
		Version:      "1.0",
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Overall:      overallStatus(summary),
		Summary:      summary,
		Checks:       checks,
		SearchConfig: configSearchPaths(cfgFile),
	}
}

func checkConfigLoad(path string) (*config.Config, doctorCheck) {
	cfg, err := config.Load(path)
	searchPaths := configSearchPaths(path)
	if err != nil {
		return nil, doctorCheck{
			ID:      "config.load",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to load config: %v", err),
			Details: map[string]interface{}{
				"config_path":  strings.TrimSpace(path),
				"search_paths": searchPaths,
			},
			Remediation: "Fix the config file syntax, or run `hotview config init --force` to regenerate defaults.",
		}
	}

	source := findFirstExistingPath(searchPaths)
	msg := "Configuration loaded using built-in defaults and environment overrides"
	if source != "" {
		msg = "Configuration loaded successfully"
	}

	return cfg, doctorCheck{
		ID:      "config.load",
		Status:  doctorStatusOK,
		Message: msg,
		Details: map[string]interface{}{
			"loaded_from":  source,
			"search_paths": searchPaths,
		},
	}
}

func checkConfigDirectory() doctorCheck {
	dir, err := config.GetConfigDir()
	if err != nil {
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to resolve config directory: %v", err),
			Remediation: "Verify your HOME environment and filesystem permissions.",
		}
	}

	info, statErr := os.Stat(dir)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return doctorCheck{
				ID:      "config.directory",
				Status:  doctorStatusWarn,
				Message: "Config directory does not exist yet",
				Details: map[string]interface{}{
					"path": dir,
				},
				Remediation: "Run `hotview config init` to create initial local configuration.",
			}
		}
		return doctorCheck{
			ID:      "config.directory",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to access config directory: %v", statErr),
			Details: map[string]interface{}{
				"path": dir,
			},
			Remediation: "Fix directory permissions or create the directory manually.",
		}
	}

	if !info.IsDir() {
		return doctorCheck{
			ID:      "config.directory",
			Status:  doctorStatusFail,
			Message: "Config path exists but is not a directory",
			Details: map[string]interface{}{
				"path": dir,
			},
			Remediation: "Remove the file and recreate directory with `mkdir -p ~/.hotview`.",
		}
	}

	return doctorCheck{
		ID:      "config.directory",
		Status:  doctorStatusOK,
		Message: "Config directory is available",
		Details: map[string]interface{}{
			"path": dir,
		},
	}
}

func checkProjectPath(path string) doctorCheck {
	if strings.TrimSpace(path) == "" {
		return doctorCheck{
			ID:          "project.path",
			Status:      doctorStatusFail,
			Message:     "project.path is empty",
			Remediation: "Set `project.path` in config or run hotview from inside the project.",
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doctorCheck{
				ID:      "project.path",
				Status:  doctorStatusFail,
				Message: "Configured project path does not exist",
				Details: map[string]interface{}{
					"path": path,
				},
				Remediation: "Update `project.path` in config or run hotview from a valid project.",
			}
		}
		return doctorCheck{
			ID:      "project.path",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to inspect project path: %v", err),
			Details: map[string]interface{}{
				"path": path,
			},
			Remediation: "Check filesystem permissions and path validity.",
		}
	}

	if !info.IsDir() {
		return doctorCheck{
			ID:      "project.path",
			Status:  doctorStatusFail,
			Message: "Configured project path is not a directory",
			Details: map[string]interface{}{
				"path": path,
			},
			Remediation: "Set `project.path` to a directory path.",
		}
	}

	return doctorCheck{
		ID:      "project.path",
		Status:  doctorStatusOK,
		Message: "Configured project path is valid",
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

func checkProjectViews(cfg *config.Config) doctorCheck {
	if _, err := os.Stat(cfg.Project.Path); err != nil {
		return doctorCheck{
			ID:          "project.views",
			Status:      doctorStatusWarn,
			Message:     "Skipped, project path is not accessible",
			Remediation: "Fix the `project.path` check first.",
		}
	}

	disc, err := app.Discover(cfg.Project.Path, cfg.Watcher.ViewExtensions)
	if err != nil {
		return doctorCheck{
			ID:      "project.views",
			Status:  doctorStatusWarn,
			Message: fmt.Sprintf("Project scan was incomplete: %v", err),
			Details: map[string]interface{}{
				"views_found": len(disc.Views),
			},
			Remediation: "Check read permissions under the project tree.",
		}
	}

	if len(disc.Views) == 0 {
		return doctorCheck{
			ID:      "project.views",
			Status:  doctorStatusWarn,
			Message: "No view files found in the project",
			Details: map[string]interface{}{
				"path":       cfg.Project.Path,
				"extensions": cfg.Watcher.ViewExtensions,
			},
			Remediation: "Check `project.path` and `watcher.view_extensions` match your project layout.",
		}
	}

	if len(disc.Roots) == 0 {
		return doctorCheck{
			ID:      "project.views",
			Status:  doctorStatusWarn,
			Message: fmt.Sprintf("Found %d views but no roots, every view is included by another", len(disc.Views)),
			Details: map[string]interface{}{
				"views": len(disc.Views),
			},
			Remediation: "Look for include cycles between your view files.",
		}
	}

	return doctorCheck{
		ID:      "project.views",
		Status:  doctorStatusOK,
		Message: fmt.Sprintf("Found %d views with %d root(s)", len(disc.Views), len(disc.Roots)),
		Details: map[string]interface{}{
			"views": len(disc.Views),
			"roots": len(disc.Roots),
		},
	}
}

func checkHealthEndpoint(host string, port, timeoutSeconds int) doctorCheck {
	if strings.TrimSpace(host) == "" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = 8645
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 2
	}

	endpoint := fmt.Sprintf("http://%s:%d/healthz", host, port)
	client := &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return doctorCheck{
			ID:      "server.health_endpoint",
			Status:  doctorStatusWarn,
			Message: fmt.Sprintf("Health endpoint is not reachable: %v", err),
			Details: map[string]interface{}{
				"url": endpoint,
			},
			Remediation: "Start hotview with `hotview watch` and verify host/port configuration.",
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return doctorCheck{
			ID:      "server.health_endpoint",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Health endpoint returned non-200 status: %d", resp.StatusCode),
			Details: map[string]interface{}{
				"url":         endpoint,
				"status_code": resp.StatusCode,
				"body":        strings.TrimSpace(string(body)),
			},
			Remediation: "Check daemon logs (`hotview watch -v`) to diagnose HTTP startup issues.",
		}
	}

	return doctorCheck{
		ID:      "server.health_endpoint",
		Status:  doctorStatusOK,
		Message: "Health endpoint is reachable",
		Details: map[string]interface{}{
			"url":         endpoint,
			"status_code": resp.StatusCode,
		},
	}
}

func summarizeDoctorChecks(checks []doctorCheck) doctorSummary {
	summary := doctorSummary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case doctorStatusOK:
			summary.OK++
		case doctorStatusWarn:
			summary.Warn++
		case doctorStatusFail:
			summary.Fail++
		}
	}
	return summary
}

func overallStatus(summary doctorSummary) doctorStatus {
	if summary.Fail > 0 {
		return doctorStatusFail
	}
	if summary.Warn > 0 {
		return doctorStatusWarn
	}
	return doctorStatusOK
}

func printDoctorJSON(report doctorReport) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func printDoctorText(report doctorReport) {
	fmt.Printf("hotview doctor v%s\n", report.Version)
	fmt.Printf("generated_at: %s\n", report.GeneratedAt)
	fmt.Printf("overall: %s  (ok=%d warn=%d fail=%d total=%d)\n\n",
		strings.ToUpper(string(report.Overall)),
		report.Summary.OK,
		report.Summary.Warn,
		report.Summary.Fail,
		report.Summary.Total,
	)

	for _, check := range report.Checks {
		label := "[OK]"
		if check.Status == doctorStatusWarn {
			label = "[WARN]"
		}
		if check.Status == doctorStatusFail {
			label = "[FAIL]"
		}

		fmt.Printf("%s %s: %s\n", label, check.ID, check.Message)
		if check.Remediation != "" && check.Status != doctorStatusOK {
			fmt.Printf("  fix: %s\n", check.Remediation)
		}
	}

	fmt.Println()
	fmt.Println("Tip: run `hotview doctor --json` for machine-readable output.")
}

func defaultDoctorConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8645,
		},
		Watcher: config.WatcherConfig{
			ViewExtensions: []string{".view"},
		},
	}
}

func configSearchPaths(explicit string) []string {
	if strings.TrimSpace(explicit) != "" {
		return []string{explicit}
	}

	home := userHomeDir()
	return []string{
		filepath.Join(".", "config.yaml"),
		filepath.Join(home, ".hotview", "config.yaml"),
		"/etc/hotview/config.yaml",
	}
}

func findFirstExistingPath(paths []string) string {
	for _, candidate := range paths {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
