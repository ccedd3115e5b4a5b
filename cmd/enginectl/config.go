package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// serviceConfig drives the demo host: viewport shape, frame pacing, the
// optional asset bundle, and the admin HTTP surface.
type serviceConfig struct {
	Node            string
	LogLevel        string
	AdminListenAddr string

	ViewportWidth    int
	ViewportHeight   int
	DevicePixelRatio float64

	BundlePath    string
	FrameInterval time.Duration
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		Node:             "engine.local",
		LogLevel:         "info",
		AdminListenAddr:  "127.0.0.1:7080",
		ViewportWidth:    1280,
		ViewportHeight:   720,
		DevicePixelRatio: 1.0,
		FrameInterval:    16 * time.Millisecond,
	}
}

type fileConfig struct {
	Node             string  `toml:"node"`
	LogLevel         string  `toml:"log_level"`
	AdminListenAddr  string  `toml:"admin_listen_addr"`
	ViewportWidth    int     `toml:"viewport_width"`
	ViewportHeight   int     `toml:"viewport_height"`
	DevicePixelRatio float64 `toml:"device_pixel_ratio"`
	BundlePath       string  `toml:"bundle_path"`
	FrameInterval    string  `toml:"frame_interval"`
	FrameIntervalMS  int64   `toml:"frame_interval_ms"`
}

func loadServiceConfig(path string) (serviceConfig, error) {
	cfg := defaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load engine config: %w", err)
	}

	if meta.IsDefined("node") {
		if node := strings.TrimSpace(raw.Node); node != "" {
			cfg.Node = node
		}
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("admin_listen_addr") {
		cfg.AdminListenAddr = strings.TrimSpace(raw.AdminListenAddr)
	}
	if meta.IsDefined("viewport_width") {
		cfg.ViewportWidth = raw.ViewportWidth
	}
	if meta.IsDefined("viewport_height") {
		cfg.ViewportHeight = raw.ViewportHeight
	}
	if meta.IsDefined("device_pixel_ratio") {
		cfg.DevicePixelRatio = raw.DevicePixelRatio
	}
	if meta.IsDefined("bundle_path") {
		cfg.BundlePath = strings.TrimSpace(raw.BundlePath)
	}
	if meta.IsDefined("frame_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.FrameInterval))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse frame_interval: %w", err)
		}
		cfg.FrameInterval = d
	}
	if meta.IsDefined("frame_interval_ms") {
		cfg.FrameInterval = time.Duration(raw.FrameIntervalMS) * time.Millisecond
	}

	if err := cfg.validate(); err != nil {
		return serviceConfig{}, err
	}
	return cfg, nil
}

func (c serviceConfig) validate() error {
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.DevicePixelRatio <= 0 {
		return fmt.Errorf("invalid device_pixel_ratio %v", c.DevicePixelRatio)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("invalid frame_interval %v", c.FrameInterval)
	}
	return nil
}
