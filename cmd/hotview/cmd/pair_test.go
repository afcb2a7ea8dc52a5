package cmd

import (
	"testing"

	"github.com/declview/hotview/internal/config"
	"github.com/declview/hotview/internal/pairing"
)

func TestApplyExternalURL(t *testing.T) {
	info := &pairing.PairingInfo{
		WebSocket: "ws://127.0.0.1:8645/ws",
		HTTP:      "http://127.0.0.1:8645",
	}

	applyExternalURL(info, "https://abc123x4-8645.asse.devtunnels.ms/")

	if info.HTTP != "https://abc123x4-8645.asse.devtunnels.ms" {
		t.Errorf("HTTP = %q", info.HTTP)
	}
	if info.WebSocket != "wss://abc123x4-8645.asse.devtunnels.ms/ws" {
		t.Errorf("WebSocket = %q", info.WebSocket)
	}
}

func TestGeneratePairingInfo(t *testing.T) {
	cfg := &config.Config{
		Project: config.ProjectConfig{Path: "/work/demo-app", Name: "demo-app"},
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 8645},
	}

	info := generatePairingInfo(cfg, "")
	if info.HTTP != "http://127.0.0.1:8645" {
		t.Errorf("HTTP = %q", info.HTTP)
	}
	if info.WebSocket != "ws://127.0.0.1:8645/ws" {
		t.Errorf("WebSocket = %q", info.WebSocket)
	}
	if info.Project != "demo-app" {
		t.Errorf("Project = %q", info.Project)
	}
	if info.SessionID == "" {
		t.Error("SessionID is empty")
	}

	second := generatePairingInfo(cfg, "")
	if second.SessionID == info.SessionID {
		t.Error("session IDs should differ between generations")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("abcdefghijk", 8); got != "abcde..." {
		t.Errorf("truncate(long) = %q", got)
	}
}
