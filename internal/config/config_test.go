package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "laserview.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseViewerFlagsDefaults(t *testing.T) {
	cfg, err := ParseViewerFlags(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Transport != "ws" || cfg.HandoffCapacity != 1 || cfg.TPS != 60 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !strings.HasPrefix(cfg.ViewerID, "viewer-") {
		t.Fatalf("expected generated viewer id, got %q", cfg.ViewerID)
	}
}

func TestParseViewerFlagsFileThenFlags(t *testing.T) {
	path := writeConfig(t, `
transport = "webrtc"
signaling_url = "ws://signal:8080"
viewer_id = "bench"
tps = 120
inbox_frames = 4
`)
	cfg, err := ParseViewerFlags([]string{"-config", path, "-tps", "30"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Transport != "webrtc" || cfg.ViewerID != "bench" || cfg.InboxFrames != 4 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.TPS != 30 {
		t.Fatalf("explicit flag should win over file: tps=%d", cfg.TPS)
	}
	if cfg.ListenAddr != ":8090" {
		t.Fatalf("unset keys keep defaults: listen=%q", cfg.ListenAddr)
	}
}

func TestParseViewerFlagsValidation(t *testing.T) {
	cases := [][]string{
		{"-transport", "udp"},
		{"-handoff", "0"},
		{"-tps", "0"},
		{"-path", "stream"},
	}
	for _, args := range cases {
		if _, err := ParseViewerFlags(args); err == nil {
			t.Fatalf("%v: expected validation error", args)
		}
	}
}

func TestParseViewerFlagsBadFile(t *testing.T) {
	if _, err := ParseViewerFlags([]string{"-config", filepath.Join(t.TempDir(), "missing.toml")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := writeConfig(t, "tps = \"fast\"")
	if _, err := ParseViewerFlags([]string{"-config", path}); err == nil {
		t.Fatalf("expected error for wrong type")
	}
}

func TestParsePatternFlags(t *testing.T) {
	cfg, err := ParsePatternFlags([]string{"-shape", "square", "-points", "64"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Shape != "square" || cfg.Points != 64 || cfg.FPS != 30 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !strings.HasPrefix(cfg.SourceID, "source-") {
		t.Fatalf("expected generated source id, got %q", cfg.SourceID)
	}

	if _, err := ParsePatternFlags([]string{"-transport", "webrtc"}); err == nil {
		t.Fatalf("webrtc without viewer id should fail")
	}
}
