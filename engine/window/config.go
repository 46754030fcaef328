package window

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Backend names accepted in configuration.
const (
	BackendImmediate = "immediate"
	BackendExplicit  = "explicit"
)

// DefaultConfigFile is the config file the window looks for next to the
// binary when none is given explicitly.
const DefaultConfigFile = "prism.toml"

// Config selects the window geometry and rendering backend.
type Config struct {
	Title   string `toml:"title"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Backend string `toml:"backend"`
	VSync   bool   `toml:"vsync"`
	Profile bool   `toml:"profile"`

	// ClearColor is the frame clear color as RGB in [0, 1].
	ClearColor [3]float32 `toml:"clear_color"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Title:   "prism",
		Width:   800,
		Height:  600,
		Backend: BackendExplicit,
		VSync:   true,
	}
}

// LoadConfig reads a TOML config file, filling unset fields from the
// defaults. A missing file is not an error; the defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

// ParseConfig decodes TOML config text, filling unset fields from the
// defaults.
func ParseConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window size %dx%d is not positive", c.Width, c.Height)
	}
	switch c.Backend {
	case BackendImmediate, BackendExplicit:
		return nil
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendImmediate, BackendExplicit)
	}
}
