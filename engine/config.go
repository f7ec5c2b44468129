package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	ufo "github.com/ufo-org/ufo-r-operators"
	"github.com/ufo-org/ufo-r-operators/errors"
)

// DefaultLoadBytes is the chunk size target for objects that do not set
// ObjectConfig.MinLoadCount.
const DefaultLoadBytes = 1 << 20

// Config holds configuration for engine creation
type Config struct {
	// WritebackPath is the directory under which the engine creates its
	// private writeback directory. Empty means os.TempDir().
	WritebackPath string `json:"writeback_path"`

	// LowWatermark and HighWatermark bound resident chunk memory in bytes.
	// Crossing the high watermark evicts chunks until usage is at or below
	// the low watermark. Reversed values are swapped; equal values are
	// rejected.
	LowWatermark  uint64 `json:"low_watermark"`
	HighWatermark uint64 `json:"high_watermark"`

	// DefaultLoadBytes overrides DefaultLoadBytes. 0 means default.
	DefaultLoadBytes uint64 `json:"default_load_bytes"`
}

// Normalize returns a copy with watermarks in order and defaults filled in.
func (c Config) Normalize() Config {
	if c.LowWatermark > c.HighWatermark {
		c.LowWatermark, c.HighWatermark = c.HighWatermark, c.LowWatermark
	}
	if c.WritebackPath == "" {
		c.WritebackPath = os.TempDir()
	}
	if c.DefaultLoadBytes == 0 {
		c.DefaultLoadBytes = DefaultLoadBytes
	}
	return c
}

// Validate checks a normalized configuration.
func (c Config) Validate() error {
	if c.LowWatermark == c.HighWatermark {
		return errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
			Cause(ErrInvalidConfig).
			Detail("low and high watermark are both %d", c.LowWatermark).
			Build()
	}
	if c.LowWatermark > c.HighWatermark {
		return errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
			Cause(ErrInvalidConfig).
			Detail("low watermark %d above high watermark %d", c.LowWatermark, c.HighWatermark).
			Build()
	}
	return nil
}

// LoadConfig reads a JSONC configuration file.
//
//	{
//	    // writeback files live here
//	    "writeback_path": "/var/tmp/ufo",
//	    "low_watermark": 268435456,
//	    "high_watermark": 536870912,
//	}
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindResource, err, "read "+path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses JSONC configuration data, normalizes and validates it.
func ParseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
			Cause(err).
			Detail("invalid JSONC").
			Build()
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
			Cause(err).
			Detail("invalid JSON").
			Build()
	}

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// PopulateFunc fills dst with elements [start, end) of an object.
// len(dst) == (end-start) * stride.
type PopulateFunc func(start, end uint64, dst []byte) error

// WritebackListener receives writeback notifications for one object.
type WritebackListener func(ufo.WritebackEvent)

// EventListener receives every engine event.
type EventListener func(ufo.TimestampedEvent)

// ObjectConfig describes one lazy object.
type ObjectConfig struct {
	Populate  PopulateFunc
	Writeback WritebackListener // optional

	HeaderSize   uint64
	Stride       uint64
	ElementCount uint64
	MinLoadCount uint64 // 0 selects the engine default
	ReadOnly     bool
}
