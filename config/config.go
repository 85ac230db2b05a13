// Package config loads engine settings from TOML config files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Volume is the initial volume, 0..1.
	Volume float64 `koanf:"volume"`
	// Repeat is the initial repeat mode: "off", "track" or "queue".
	Repeat string `koanf:"repeat"`
	// LogLevel controls demo-binary logging: zerolog level names.
	LogLevel string `koanf:"log_level"`

	Playback PlaybackConfig `koanf:"playback"`
}

// PlaybackConfig holds the audio-engine knobs.
type PlaybackConfig struct {
	BufferDurationMS int    `koanf:"buffer_duration_ms"` // speaker buffer size (default: 100)
	TickIntervalMS   int    `koanf:"tick_interval_ms"`   // position event period (default: 1000)
	CacheDir         string `koanf:"cache_dir"`          // scratch space for remote downloads
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		Volume: 1,
		Repeat: "off",
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Playback.CacheDir != "" {
		cfg.Playback.CacheDir = expandPath(cfg.Playback.CacheDir)
	}

	return cfg, nil
}

func configPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, "quaver", "config.toml"),
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetPlaybackConfig returns the playback configuration with defaults
// applied.
func (c *Config) GetPlaybackConfig() PlaybackConfig {
	cfg := c.Playback

	if cfg.BufferDurationMS <= 0 {
		cfg.BufferDurationMS = 100
	}
	if cfg.TickIntervalMS <= 0 {
		cfg.TickIntervalMS = 1000
	}

	return cfg
}

// GetVolume clamps the configured volume into 0..1, defaulting to full
// volume when unset or out of range.
func (c *Config) GetVolume() float64 {
	if c.Volume <= 0 || c.Volume > 1 {
		return 1
	}
	return c.Volume
}

func (p PlaybackConfig) BufferDuration() time.Duration {
	return time.Duration(p.BufferDurationMS) * time.Millisecond
}

func (p PlaybackConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalMS) * time.Millisecond
}
