package security

import (
	"net/url"
	"strings"
)

// WebSocketURL derives the daemon's WebSocket endpoint from an HTTP base
// URL, switching the scheme and appending the /ws mount. Pairing uses it
// to encode forwarded or tunneled endpoints into the QR code.
func WebSocketURL(httpURL string) string {
	base := strings.TrimRight(strings.TrimSpace(httpURL), "/")
	if base == "" {
		return "/ws"
	}

	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" {
		return base + "/ws"
	}

	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/ws"

	return parsed.String()
}
