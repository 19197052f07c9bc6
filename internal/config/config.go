package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	dwerrors "github.com/quietloop/deskwatch/internal/errors"
)

// Config holds capture and runtime configuration.
type Config struct {
	// PollHz is the frontmost-app/topmost-window polling frequency.
	PollHz int `json:"poll_hz"`

	// MoveHz is the pointer-move sampling frequency. Clicks, scrolls, and
	// key events are never rate-limited.
	MoveHz int `json:"move_hz"`

	// DisableMoves turns off pointer-move recording (clicks/scrolls remain).
	DisableMoves bool `json:"disable_moves,omitempty"`

	// DisableKeys turns off keyboard recording.
	DisableKeys bool `json:"disable_keys,omitempty"`

	// QueueSize is the bounded intake capacity between producers and the
	// batching writer. Producers block when it is full.
	QueueSize int `json:"queue_size,omitempty"`

	// CommitIntervalMs is the writer commit cadence in milliseconds.
	// Up to this much of recent data may be lost on a hard crash.
	CommitIntervalMs int `json:"commit_interval_ms,omitempty"`

	// StopTimeoutMs bounds the writer flush wait at shutdown. If exceeded,
	// remaining events are abandoned and reported as a data-loss warning.
	StopTimeoutMs int `json:"stop_timeout_ms,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is one of text, json.
	LogFormat string `json:"log_format,omitempty"`

	// DBMaxOpenConns limits open database connections. The writer owns the
	// single write path regardless; this only tunes reader contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PollHz:           10,
		MoveHz:           30,
		QueueSize:        10000,
		CommitIntervalMs: 1000,
		StopTimeoutMs:    5000,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load loads configuration from baseDir/config.json, merged over defaults.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.deskwatch.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for non-zero scalars; booleans OR together.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.PollHz = overlay.PollHz
	if result.PollHz == 0 {
		result.PollHz = base.PollHz
	}
	result.MoveHz = overlay.MoveHz
	if result.MoveHz == 0 {
		result.MoveHz = base.MoveHz
	}
	result.QueueSize = overlay.QueueSize
	if result.QueueSize == 0 {
		result.QueueSize = base.QueueSize
	}
	result.CommitIntervalMs = overlay.CommitIntervalMs
	if result.CommitIntervalMs == 0 {
		result.CommitIntervalMs = base.CommitIntervalMs
	}
	result.StopTimeoutMs = overlay.StopTimeoutMs
	if result.StopTimeoutMs == 0 {
		result.StopTimeoutMs = base.StopTimeoutMs
	}
	result.LogLevel = overlay.LogLevel
	if result.LogLevel == "" {
		result.LogLevel = base.LogLevel
	}
	result.LogFormat = overlay.LogFormat
	if result.LogFormat == "" {
		result.LogFormat = base.LogFormat
	}
	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}
	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.DisableMoves = base.DisableMoves || overlay.DisableMoves
	result.DisableKeys = base.DisableKeys || overlay.DisableKeys

	return result
}

// Validate checks capture rates and queue sizing. Failures are fatal at
// startup, before any session is opened.
func (c *Config) Validate() error {
	if c.PollHz < 1 {
		return dwerrors.NewInvalidConfig("poll_hz must be >= 1")
	}
	if c.MoveHz < 1 {
		return dwerrors.NewInvalidConfig("move_hz must be >= 1")
	}
	if c.QueueSize < 1 {
		return dwerrors.NewInvalidConfig("queue_size must be >= 1")
	}
	if c.CommitIntervalMs < 1 {
		return dwerrors.NewInvalidConfig("commit_interval_ms must be >= 1")
	}
	if c.StopTimeoutMs < 1 {
		return dwerrors.NewInvalidConfig("stop_timeout_ms must be >= 1")
	}
	return nil
}

// PollInterval returns the tracker tick interval.
func (c *Config) PollInterval() time.Duration {
	return time.Second / time.Duration(c.PollHz)
}

// MoveInterval returns the minimum spacing between accepted pointer moves.
func (c *Config) MoveInterval() time.Duration {
	return time.Second / time.Duration(c.MoveHz)
}

// CommitInterval returns the writer commit cadence.
func (c *Config) CommitInterval() time.Duration {
	return time.Duration(c.CommitIntervalMs) * time.Millisecond
}

// StopTimeout returns the bounded flush wait at shutdown.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMs) * time.Millisecond
}
