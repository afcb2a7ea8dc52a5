// Package security implements the daemon's network trust policy: origin
// checks for WebSocket upgrades and URL helpers for pairing.
package security

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker validates the Origin header on WebSocket upgrades and
// browser API calls. The default posture is loopback-only; explicit
// allowed origins open the daemon up for LAN preview shells.
type OriginChecker struct {
	allowed      []string
	loopbackOnly bool
}

// NewOriginChecker creates an origin checker. When loopbackOnly is set,
// loopback origins pass regardless of the allowed list.
func NewOriginChecker(allowed []string, loopbackOnly bool) *OriginChecker {
	return &OriginChecker{
		allowed:      allowed,
		loopbackOnly: loopbackOnly,
	}
}

// CheckOrigin reports whether the request's origin is allowed.
// Requests without an Origin header pass; browsers omit it for
// same-origin requests and non-browser clients never send it.
func (oc *OriginChecker) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if oc.loopbackOnly && IsLoopbackHost(parsed.Hostname()) {
		return true
	}

	for _, allowed := range oc.allowed {
		if matchOrigin(origin, parsed.Hostname(), allowed) {
			return true
		}
	}

	// With no allowed list configured, a daemon bound to loopback rejects
	// everything non-loopback; a daemon opened to the LAN accepts anything.
	if len(oc.allowed) == 0 {
		return !oc.loopbackOnly
	}

	return false
}

// CheckOriginFunc returns a function suitable for websocket.Upgrader.CheckOrigin.
func (oc *OriginChecker) CheckOriginFunc() func(r *http.Request) bool {
	return oc.CheckOrigin
}

// IsLoopbackHost reports whether host names the local machine.
func IsLoopbackHost(host string) bool {
	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasSuffix(host, ".localhost")
}

// matchOrigin matches an origin against an allowed pattern: exact origin
// match, or wildcard subdomain match when the pattern starts with "*.".
func matchOrigin(origin, originHost, allowed string) bool {
	if origin == allowed {
		return true
	}
	if strings.HasPrefix(allowed, "*.") {
		domain := allowed[2:]
		return originHost == domain || strings.HasSuffix(originHost, "."+domain)
	}
	return false
}
