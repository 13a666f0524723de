package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/display"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/transport"
)

// Defaults applied by LoadConfig and DefaultConfig.
const (
	DefaultHTTPAddr        = "127.0.0.1:8765"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMCPName         = "xiaozhi-eyes"
)

// Config is the top-level engine configuration.
type Config struct {
	Display   DisplayConfig   `yaml:"display" toml:"display"`
	HTTP      HTTPConfig      `yaml:"http" toml:"http"`
	MCP       MCPConfig       `yaml:"mcp" toml:"mcp"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Animation AnimationConfig `yaml:"animation" toml:"animation"`
}

// DisplayConfig selects the screen link and the command queue depth.
type DisplayConfig struct {
	Transport transport.Config `yaml:"transport" toml:"transport"`
	QueueSize int              `yaml:"queue_size" toml:"queue_size"`
	// Greeting is shown in the subtitle box once the display starts.
	Greeting string `yaml:"greeting" toml:"greeting"`
}

// HTTPConfig holds the HTTP API settings.
type HTTPConfig struct {
	Disabled        bool   `yaml:"disabled" toml:"disabled"`
	Addr            string `yaml:"addr" toml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout" toml:"shutdown_timeout"` // Duration string (e.g. "5s").
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins,omitempty" toml:"cors_origins,omitempty"`
}

// MCPConfig holds the MCP server settings. The streamable HTTP endpoint is
// always mounted at /mcp when the HTTP API is enabled.
type MCPConfig struct {
	Stdio bool   `yaml:"stdio" toml:"stdio"`
	Name  string `yaml:"name" toml:"name"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn or error.
	Format string `yaml:"format" toml:"format"` // text or json.
}

// AnimationConfig tunes the scheduler.
type AnimationConfig struct {
	// Seed fixes the random source. Zero seeds from the clock.
	Seed uint64 `yaml:"seed" toml:"seed"`
}

// DefaultConfig returns a configuration that writes to stdout and serves the
// HTTP API on DefaultHTTPAddr.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// LoadConfig reads a YAML or TOML file and returns a Config with defaults
// applied. The format is chosen by extension; anything other than .toml is
// parsed as YAML. Environment variables referenced as ${VAR} or $VAR are
// expanded before parsing, so device paths and URLs can live in a .env file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(expanded, &cfg)
	} else {
		err = yaml.Unmarshal(expanded, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Display.Transport.Kind == "" {
		c.Display.Transport.Kind = transport.KindStdout
	}
	if c.Display.Transport.Kind == transport.KindSerial && c.Display.Transport.Serial.BaudRate == 0 {
		c.Display.Transport.Serial.BaudRate = transport.DefaultBaudRate
	}
	if c.Display.QueueSize == 0 {
		c.Display.QueueSize = display.DefaultQueueSize
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.MCP.Name == "" {
		c.MCP.Name = DefaultMCPName
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	return c
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if err := c.Display.Transport.Validate(); err != nil {
		return fmt.Errorf("engine: config: display: %w", err)
	}

	if c.Display.QueueSize < 0 {
		return fmt.Errorf("engine: config: display: invalid queue_size %d", c.Display.QueueSize)
	}

	if c.MCP.Stdio && c.Display.Transport.Kind == transport.KindStdout {
		return errors.New("engine: config: mcp stdio cannot share stdout with the display transport")
	}

	if !c.MCP.Stdio && c.HTTP.Disabled {
		return errors.New("engine: config: no control surface: enable mcp.stdio or the http api")
	}

	if _, err := c.HTTP.shutdownTimeout(); err != nil {
		return fmt.Errorf("engine: config: http: %w", err)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("engine: config: log: %w", err)
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("engine: config: log: unknown format %q", c.Log.Format)
	}

	return nil
}

func (h HTTPConfig) shutdownTimeout() (time.Duration, error) {
	if h.ShutdownTimeout == "" {
		return DefaultShutdownTimeout, nil
	}

	d, err := time.ParseDuration(h.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown_timeout %q: %w", h.ShutdownTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("shutdown_timeout must be positive, got %s", d)
	}

	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}

	return lvl, nil
}

// NewLogger builds the slog logger described by c, writing to w. Unknown
// levels fall back to info.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := parseLevel(c.Level)
	if err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal config: %w", err)
	}

	return out, nil
}
