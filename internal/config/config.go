// Package config loads the agent's TOML configuration file, filling in
// defaults for anything the file leaves out.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mcuadros/go-defaults"
)

// Config is the agent's operator-facing configuration. Every field has a
// working default so a missing config file yields a runnable setup.
type Config struct {
	// ListenAddr is the local HTTP control surface address.
	ListenAddr string `toml:"listen_addr" default:":8470"`

	// BackendURL is the base URL of the palm recognition backend.
	BackendURL string `toml:"backend_url" default:"http://localhost:5000"`

	// CameraID selects the capture device.
	CameraID int `toml:"camera_id" default:"0"`

	// DefaultSubject is the phone number used for tray-initiated
	// verification sessions. API clients pass the subject explicitly.
	DefaultSubject string `toml:"default_subject"`

	// MatchThreshold is forwarded to the backend with each verification.
	MatchThreshold float64 `toml:"match_threshold" default:"0.13"`

	// CountdownSeconds is the hold-steady countdown before capture.
	CountdownSeconds int `toml:"countdown_seconds" default:"2"`

	// CooldownSeconds is the quiet period after each capture.
	CooldownSeconds int `toml:"cooldown_seconds" default:"3"`

	// PresenceThreshold is the percent of changed pixels that counts as
	// someone stepping in front of the camera. Zero disables the gate.
	PresenceThreshold float64 `toml:"presence_threshold" default:"1.0"`

	// DBPath is the audit database location. Empty selects the default
	// under the data directory.
	DBPath string `toml:"db_path"`

	// HookDir holds executable hooks run on unlock and mismatch. Empty
	// selects the default under the data directory.
	HookDir string `toml:"hook_dir"`

	// HookTimeoutMs bounds a single hook execution.
	HookTimeoutMs int `toml:"hook_timeout_ms" default:"5000"`
}

// DataDir returns the agent's data directory, creating it if needed.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".palmgate")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// Load reads the TOML file at path. A missing file is not an error: the
// defaults apply as-is. Unknown keys in the file are rejected so typos
// surface instead of silently falling back.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	defaults.SetDefaults(cfg)

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		return nil, fmt.Errorf("match_threshold must be in (0, 1], got %v", cfg.MatchThreshold)
	}
	if cfg.CountdownSeconds < 1 {
		return nil, fmt.Errorf("countdown_seconds must be at least 1, got %d", cfg.CountdownSeconds)
	}
	if cfg.CooldownSeconds < 0 {
		return nil, fmt.Errorf("cooldown_seconds must not be negative, got %d", cfg.CooldownSeconds)
	}

	return cfg, nil
}
