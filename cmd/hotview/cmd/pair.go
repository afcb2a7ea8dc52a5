package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/declview/hotview/internal/config"
	"github.com/declview/hotview/internal/pairing"
	"github.com/declview/hotview/internal/security"
)

var (
	pairJSON        bool
	pairURL         bool
	pairRefresh     bool
	pairExternalURL string
)

// pairCmd displays QR code for preview shell pairing.
var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Display QR code for preview shell pairing",
	Long: `Display a QR code a preview shell scans to connect to the daemon.

If a hotview daemon is running, its session information is used.
Otherwise pairing info is generated from the configuration.

Examples:
  hotview pair              # Display QR code in terminal
  hotview pair --json       # Output pairing info as JSON
  hotview pair --url        # Output connection URLs only
  hotview pair --refresh    # Generate new session ID`,
	RunE: runPair,
}

func init() {
	rootCmd.AddCommand(pairCmd)

	pairCmd.Flags().BoolVar(&pairJSON, "json", false, "output pairing info as JSON")
	pairCmd.Flags().BoolVar(&pairURL, "url", false, "output connection URLs only")
	pairCmd.Flags().BoolVar(&pairRefresh, "refresh", false, "generate new session ID (ignore running daemon)")
	pairCmd.Flags().StringVar(&pairExternalURL, "external-url", "", "override external URL for pairing output")
}

func runPair(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var info *pairing.PairingInfo

	// Ask the running daemon first (unless --refresh) so the QR carries
	// its live session ID.
	if !pairRefresh {
		info, _ = getPairingFromServer(cfg)
	}

	if info == nil {
		info = generatePairingInfo(cfg, pairExternalURL)
		if pairRefresh {
			fmt.Fprintln(os.Stderr, "Generated new session ID (not connected to running daemon)")
		} else {
			fmt.Fprintln(os.Stderr, "No running hotview daemon found, using config defaults")
		}
	} else {
		fmt.Fprintln(os.Stderr, "Connected to running hotview daemon")
	}

	if pairExternalURL != "" {
		applyExternalURL(info, pairExternalURL)
	}

	if pairJSON {
		return outputJSON(info)
	}
	if pairURL {
		return outputURL(info)
	}
	return outputQR(info)
}

func getPairingFromServer(cfg *config.Config) (*pairing.PairingInfo, error) {
	endpoint := fmt.Sprintf("http://%s:%d/api/pair", cfg.Server.Host, cfg.Server.Port)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var info pairing.PairingInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func generatePairingInfo(cfg *config.Config, externalURL string) *pairing.PairingInfo {
	sessionID := uuid.New().String()

	project := cfg.Project.Name
	if project == "" {
		project = filepath.Base(cfg.Project.Path)
	}

	gen := pairing.NewQRGenerator(cfg.Server.Host, cfg.Server.Port, sessionID, project)

	if externalURL != "" {
		gen.SetExternalURL(externalURL)
	} else if cfg.Server.ExternalURL != "" {
		gen.SetExternalURL(cfg.Server.ExternalURL)
	}

	return gen.GetPairingInfo()
}

func applyExternalURL(info *pairing.PairingInfo, externalURL string) {
	if info == nil || externalURL == "" {
		return
	}
	base := strings.TrimRight(externalURL, "/")
	info.HTTP = base
	info.WebSocket = security.WebSocketURL(base)
}

func outputJSON(info *pairing.PairingInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func outputURL(info *pairing.PairingInfo) error {
	fmt.Printf("WebSocket: %s\n", info.WebSocket)
	fmt.Printf("HTTP:      %s\n", info.HTTP)
	return nil
}

func outputQR(info *pairing.PairingInfo) error {
	jsonData, err := json.Marshal(info)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════════════════╗")
	fmt.Println("║                   hotview Pairing                          ║")
	fmt.Println("╠════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  WebSocket: %-47s ║\n", truncate(info.WebSocket, 47))
	fmt.Printf("║  HTTP:      %-47s ║\n", truncate(info.HTTP, 47))
	fmt.Printf("║  Session:   %-47s ║\n", truncate(info.SessionID, 47))
	fmt.Printf("║  Project:   %-47s ║\n", truncate(info.Project, 47))
	fmt.Println("╚════════════════════════════════════════════════════════════╝")

	qrStr, err := generateQRString(string(jsonData))
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	fmt.Println()
	fmt.Println("  Scan with a preview shell:")
	fmt.Println()
	for _, line := range splitLines(qrStr) {
		if line != "" {
			fmt.Printf("  %s\n", line)
		}
	}
	fmt.Println()

	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func generateQRString(data string) (string, error) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return qr.ToSmallString(false), nil
}
