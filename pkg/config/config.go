package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// DefaultPadCount is the size of the pad bank when the config does not
// override it (a 3x3 grid).
const DefaultPadCount = 9

// PadEntry assigns an audio file to the next pad in order.
type PadEntry struct {
	File string `toml:"file"`
}

// Validate checks if the pad entry is valid.
func (e *PadEntry) Validate() error {
	if e.File == "" {
		return fmt.Errorf("pad file path cannot be empty")
	}
	return nil
}

// Config holds the complete cartwall configuration: runtime settings plus
// the cart sheet of pad assignments.
type Config struct {
	Debug    bool       `toml:"debug"`
	PadCount int        `toml:"pad_count"`
	Pads     []PadEntry `toml:"pads"`
}

// Default returns a configuration with an empty 3x3 bank.
func Default() *Config {
	return &Config{PadCount: DefaultPadCount}
}

// LoadConfig reads and validates configuration from a TOML file.
func LoadConfig(path string, log zerolog.Logger) (*Config, error) {
	log.Debug().Str("path", path).Msg("Loading configuration file")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if cfg.PadCount <= 0 {
		cfg.PadCount = DefaultPadCount
	}
	if len(cfg.Pads) > cfg.PadCount {
		return nil, fmt.Errorf("%d pad entries exceed pad_count %d", len(cfg.Pads), cfg.PadCount)
	}
	for i := range cfg.Pads {
		if err := cfg.Pads[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid pad entry %d: %w", i+1, err)
		}
		log.Debug().Int("pad", i+1).Str("file", cfg.Pads[i].File).Msg("Validated pad entry")
	}

	log.Debug().Msg("Configuration loaded and validated successfully")
	return cfg, nil
}
