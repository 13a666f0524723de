package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const defaultWriteTimeout = 2 * time.Second

// WebsocketConfig configures a websocket bridge that forwards each message to
// the screen's UART.
type WebsocketConfig struct {
	URL          string            `yaml:"url" toml:"url"`
	Headers      map[string]string `yaml:"headers,omitempty" toml:"headers,omitempty"`
	WriteTimeout time.Duration     `yaml:"write_timeout" toml:"write_timeout"`
}

// WebsocketWriter sends every Write as one binary websocket message.
type WebsocketWriter struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// DialWebsocket connects to the bridge at cfg.URL.
func DialWebsocket(ctx context.Context, cfg WebsocketConfig) (*WebsocketWriter, error) {
	header := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}

	conn, _, err := websocket.Dial(ctx, cfg.URL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: dial websocket %q: %w", cfg.URL, err)
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	return &WebsocketWriter{conn: conn, timeout: timeout}, nil
}

// Write sends p as a single binary message.
func (w *WebsocketWriter) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.conn.Write(ctx, websocket.MessageBinary, p); err != nil {
		return 0, fmt.Errorf("transport: websocket write: %w", err)
	}
	return len(p), nil
}

// Close performs the websocket closing handshake.
func (w *WebsocketWriter) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}
