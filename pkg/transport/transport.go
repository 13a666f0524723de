// Package transport opens the byte link to the eye screen. The screen speaks
// a line-oriented text protocol, so any io.WriteCloser will do: a serial port
// on the device, a websocket bridge to a remote board, or a plain file or
// stdout when developing without hardware.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Kinds of transport.
const (
	KindSerial    = "serial"
	KindWebsocket = "websocket"
	KindStdout    = "stdout"
	KindFile      = "file"
)

// ErrUnknownKind is returned by Open for unsupported transport kinds.
var ErrUnknownKind = errors.New("transport: unknown kind")

// Config selects and parameterises a transport.
type Config struct {
	Kind      string          `yaml:"kind" toml:"kind"`
	Serial    SerialConfig    `yaml:"serial" toml:"serial"`
	Websocket WebsocketConfig `yaml:"websocket" toml:"websocket"`
	File      FileConfig      `yaml:"file" toml:"file"`
}

// FileConfig configures the file transport.
type FileConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate checks that the fields required by Kind are set.
func (c Config) Validate() error {
	switch c.Kind {
	case KindSerial:
		if c.Serial.Port == "" {
			return errors.New("transport: serial: port is required")
		}
		if c.Serial.BaudRate < 0 {
			return fmt.Errorf("transport: serial: invalid baud rate %d", c.Serial.BaudRate)
		}
	case KindWebsocket:
		if c.Websocket.URL == "" {
			return errors.New("transport: websocket: url is required")
		}
	case KindFile:
		if c.File.Path == "" {
			return errors.New("transport: file: path is required")
		}
	case KindStdout:
	default:
		return fmt.Errorf("%w %q", ErrUnknownKind, c.Kind)
	}
	return nil
}

// Open connects the transport described by cfg.
func Open(ctx context.Context, cfg Config) (io.WriteCloser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindSerial:
		return OpenSerial(cfg.Serial)
	case KindWebsocket:
		return DialWebsocket(ctx, cfg.Websocket)
	case KindFile:
		f, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // path comes from configuration
		if err != nil {
			return nil, fmt.Errorf("transport: open file %q: %w", cfg.File.Path, err)
		}
		return f, nil
	default:
		return nopWriteCloser{os.Stdout}, nil
	}
}

// nopWriteCloser wraps an io.Writer as an io.WriteCloser with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
