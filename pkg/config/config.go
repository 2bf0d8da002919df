// Package config loads and validates pubtools settings.
//
// Settings come from Default, optionally overlaid by a TOML file. Unknown
// keys in the file are rejected so a typo cannot silently fall back to a
// default. Command line flags are applied by the caller after Load.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Compressor modes.
const (
	ModeLZ4     = "lz4"
	ModeCommand = "command"
)

// Compressor selects how compress-eligible assets are compressed.
type Compressor struct {
	Mode    string   `toml:"mode"`    // lz4 or command
	Level   int      `toml:"level"`   // 0-9, lz4 mode only
	Command []string `toml:"command"` // argv template, command mode only
}

// Encryptor is the external encryption tool.
type Encryptor struct {
	Command []string `toml:"command"`
	KeyFile string   `toml:"key_file"`
}

// Log contains configuration for log output.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
	Color  string `toml:"color"`
}

// Run contains per-run behaviour.
type Run struct {
	Lock   bool   `toml:"lock"`
	Report string `toml:"report"` // SQLite path, empty disables the ledger
}

// Config encapsulates all configuration values for pubtools.
type Config struct {
	Compressor Compressor `toml:"compressor"`
	Encryptor  Encryptor  `toml:"encryptor"`
	Log        Log        `toml:"log"`
	Run        Run        `toml:"run"`
}

// Default returns the settings used when no file is given. The encryptor
// command matches the xxtea tool shipped next to the asset scripts.
func Default() Config {
	return Config{
		Compressor: Compressor{
			Mode:    ModeLZ4,
			Level:   9,
			Command: []string{"lz4", "-9", "-f", "{src}", "{dst}"},
		},
		Encryptor: Encryptor{
			Command: []string{"./xxtea", "encrypt", "god", "key_file={key}", "{src}", "{dst}"},
			KeyFile: "key",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
			Color:  "auto",
		},
		Run: Run{
			Lock: true,
		},
	}
}

// Load reads the TOML file at path over the defaults and validates the
// result. An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.merge(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) merge(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s does not exist", path)
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file).DisallowUnknownFields()
	if err := decoder.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCompressor(); err != nil {
		return err
	}
	if err := c.validateEncryptor(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateCompressor() error {
	switch c.Compressor.Mode {
	case ModeLZ4:
		if c.Compressor.Level < 0 || c.Compressor.Level > 9 {
			return fmt.Errorf("compressor.level must be between 0 and 9, got %d", c.Compressor.Level)
		}
	case ModeCommand:
		if err := validateTemplate("compressor.command", c.Compressor.Command); err != nil {
			return err
		}
	default:
		return fmt.Errorf("compressor.mode must be %q or %q, got %q", ModeLZ4, ModeCommand, c.Compressor.Mode)
	}
	return nil
}

func (c *Config) validateEncryptor() error {
	if err := validateTemplate("encryptor.command", c.Encryptor.Command); err != nil {
		return err
	}
	if strings.Contains(strings.Join(c.Encryptor.Command, " "), "{key}") && strings.TrimSpace(c.Encryptor.KeyFile) == "" {
		return errors.New("encryptor.key_file must be set when encryptor.command uses {key}")
	}
	return nil
}

func (c *Config) validateLog() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Color) {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("log.color must be auto, always or never, got %q", c.Log.Color)
	}
	return nil
}

func validateTemplate(field string, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("%s must name a program", field)
	}
	joined := strings.Join(args, " ")
	for _, ph := range []string{"{src}", "{dst}"} {
		if !strings.Contains(joined, ph) {
			return fmt.Errorf("%s must contain %s", field, ph)
		}
	}
	return nil
}

// LockPath returns the lock file guarding a run over root. It sits beside
// the root so the walk never sees it.
func LockPath(root string) string {
	clean := filepath.Clean(root)
	return filepath.Join(filepath.Dir(clean), filepath.Base(clean)+".lock")
}
