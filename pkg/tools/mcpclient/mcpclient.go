// Package mcpclient drives a running eyes daemon over MCP. It backs the
// remote-control subcommands of the eyes binary.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/eyetools"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/toolbox"
)

// Version is reported to the daemon during initialization.
var Version = "dev"

const clientName = "eyes-remote"

// ErrNotAcknowledged is returned when an eye control answers with anything
// other than eyetools.Ack.
var ErrNotAcknowledged = errors.New("mcpclient: control not acknowledged")

// Client is a session with one eyes daemon.
type Client struct {
	session *mcp.ClientSession
}

// Dial connects to the streamable HTTP endpoint of a running daemon, usually
// http://127.0.0.1:8765/mcp.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	return connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint})
}

func connect(ctx context.Context, transport mcp.Transport) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: Version}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}
	return &Client{session: session}, nil
}

// OpenEye lifts the closed-eye override.
func (c *Client) OpenEye(ctx context.Context) error {
	return c.control(ctx, eyetools.OpenTool, nil)
}

// CloseEye holds the closed-eye frame until OpenEye.
func (c *Client) CloseEye(ctx context.Context) error {
	return c.control(ctx, eyetools.CloseTool, nil)
}

// SetState switches the conversational state the daemon animates.
func (c *Client) SetState(ctx context.Context, s eye.State) error {
	return c.control(ctx, eyetools.StateTool, map[string]string{"state": s.String()})
}

// Subtitle shows text in the subtitle box.
func (c *Client) Subtitle(ctx context.Context, text string) error {
	return c.control(ctx, eyetools.SubtitleTool, map[string]string{"text": text})
}

// control calls an eye tool and insists on the acknowledgement.
func (c *Client) control(ctx context.Context, tool string, args any) error {
	var input json.RawMessage
	if args != nil {
		var err error
		if input, err = json.Marshal(args); err != nil {
			return fmt.Errorf("mcpclient: encode %s arguments: %w", tool, err)
		}
	}

	reply, err := c.Call(ctx, tool, input)
	if err != nil {
		return err
	}
	if reply != eyetools.Ack {
		return fmt.Errorf("%w: %s replied %q", ErrNotAcknowledged, tool, reply)
	}
	return nil
}

// Call invokes any tool by name and returns its text reply. A reply flagged
// as an error by the daemon is returned as an error.
func (c *Client) Call(ctx context.Context, tool string, input json.RawMessage) (string, error) {
	var args map[string]any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return "", fmt.Errorf("mcpclient: decode %s arguments: %w", tool, err)
		}
	}

	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("mcpclient: call %s: %w", tool, err)
	}

	reply := replyText(res)
	if res.IsError {
		return "", fmt.Errorf("mcpclient: %s failed: %s", tool, reply)
	}
	return reply, nil
}

// Tools lists the daemon's tools. Each Handler calls back through Call.
func (c *Client) Tools(ctx context.Context) ([]toolbox.Tool, error) {
	res, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list tools: %w", err)
	}

	tools := make([]toolbox.Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tool, err := c.toolboxTool(t)
		if err != nil {
			return nil, fmt.Errorf("mcpclient: tool %q: %w", t.Name, err)
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// Close ends the session.
func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) toolboxTool(t *mcp.Tool) (toolbox.Tool, error) {
	schema, err := json.Marshal(t.InputSchema)
	if err != nil {
		return toolbox.Tool{}, fmt.Errorf("encode input schema: %w", err)
	}

	name := t.Name
	return toolbox.Tool{
		Name:        name,
		Description: t.Description,
		InputSchema: schema,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			return c.Call(ctx, name, input)
		},
	}, nil
}

// replyText joins the text parts of a tool result, one per line.
func replyText(res *mcp.CallToolResult) string {
	var parts []string
	for _, item := range res.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
