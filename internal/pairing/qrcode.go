// Package pairing connects preview shells to the daemon by QR code.
package pairing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/declview/hotview/internal/security"
)

// PairingInfo is the payload encoded in the QR code. A preview shell
// scans it, opens the WebSocket endpoint and starts receiving reload
// events for the named project.
type PairingInfo struct {
	WebSocket string `json:"ws"`
	HTTP      string `json:"http"`
	SessionID string `json:"session"`
	Project   string `json:"project"`
}

// QRGenerator renders pairing QR codes for the daemon's endpoints.
type QRGenerator struct {
	host        string
	port        int
	sessionID   string
	project     string
	externalURL string
}

// NewQRGenerator creates a generator for the daemon listening on
// host:port. The WebSocket endpoint shares the port at /ws.
func NewQRGenerator(host string, port int, sessionID, project string) *QRGenerator {
	return &QRGenerator{
		host:      host,
		port:      port,
		sessionID: sessionID,
		project:   project,
	}
}

// SetExternalURL overrides the advertised base URL, for editor port
// forwarding or tunnels. The WebSocket URL is derived from it.
func (g *QRGenerator) SetExternalURL(httpURL string) {
	g.externalURL = strings.TrimRight(strings.TrimSpace(httpURL), "/")
}

// GetPairingInfo returns the payload the QR code encodes.
func (g *QRGenerator) GetPairingInfo() *PairingInfo {
	httpURL := fmt.Sprintf("http://%s:%d", g.host, g.port)
	if g.externalURL != "" {
		httpURL = g.externalURL
	}

	return &PairingInfo{
		WebSocket: security.WebSocketURL(httpURL),
		HTTP:      httpURL,
		SessionID: g.sessionID,
		Project:   g.project,
	}
}

// GenerateJSON returns the pairing payload as JSON.
func (g *QRGenerator) GenerateJSON() (string, error) {
	data, err := json.Marshal(g.GetPairingInfo())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GenerateTerminal renders the QR code as a terminal string.
func (g *QRGenerator) GenerateTerminal() (string, error) {
	payload, err := g.GenerateJSON()
	if err != nil {
		return "", err
	}

	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", err
	}

	return qr.ToSmallString(false), nil
}

// GeneratePNG renders the QR code as a PNG of the given pixel size.
func (g *QRGenerator) GeneratePNG(size int) ([]byte, error) {
	payload, err := g.GenerateJSON()
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(payload, qrcode.Medium, size)
}

// PrintToTerminal prints the QR code with a short caption.
func (g *QRGenerator) PrintToTerminal() {
	qrStr, err := g.GenerateTerminal()
	if err != nil {
		fmt.Printf("  [QR code unavailable: %v]\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Scan with a preview shell to pair:")
	fmt.Println()

	for _, line := range strings.Split(qrStr, "\n") {
		if line != "" {
			fmt.Printf("  %s\n", line)
		}
	}

	fmt.Println()
}
