package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadServiceConfigExample(t *testing.T) {
	cfg, err := loadServiceConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("loadServiceConfig: %v", err)
	}

	if cfg.Node != "demo-node" {
		t.Fatalf("node = %q", cfg.Node)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %q", cfg.LogLevel)
	}
	if cfg.AdminListenAddr != "127.0.0.1:9090" {
		t.Fatalf("admin_listen_addr = %q", cfg.AdminListenAddr)
	}
	if cfg.ViewportWidth != 1920 || cfg.ViewportHeight != 1080 {
		t.Fatalf("viewport = %dx%d", cfg.ViewportWidth, cfg.ViewportHeight)
	}
	if cfg.DevicePixelRatio != 2.0 {
		t.Fatalf("device_pixel_ratio = %v", cfg.DevicePixelRatio)
	}
	if cfg.BundlePath != "assets/bundle.zip" {
		t.Fatalf("bundle_path = %q", cfg.BundlePath)
	}
	if cfg.FrameInterval != 8*time.Millisecond {
		t.Fatalf("frame_interval = %v", cfg.FrameInterval)
	}
}

func TestLoadServiceConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("loadServiceConfig: %v", err)
	}

	want := defaultServiceConfig()
	if cfg != want {
		t.Fatalf("defaults not applied: got %+v want %+v", cfg, want)
	}
}

func TestLoadServiceConfigMillisecondOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ms.toml")
	if err := os.WriteFile(path, []byte("frame_interval_ms = 33\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("loadServiceConfig: %v", err)
	}
	if cfg.FrameInterval != 33*time.Millisecond {
		t.Fatalf("frame_interval = %v", cfg.FrameInterval)
	}
}

func TestLoadServiceConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero viewport": "viewport_width = 0\n",
		"bad ratio":     "device_pixel_ratio = -1.0\n",
		"bad interval":  "frame_interval = \"soon\"\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := loadServiceConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
