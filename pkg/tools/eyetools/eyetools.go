// Package eyetools exposes the eye controls as invocable tools. The same
// ToolBox backs the MCP server and the HTTP API.
package eyetools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/toolbox"
)

// Tool names.
const (
	OpenTool     = "eye.open"
	CloseTool    = "eye.close"
	StateTool    = "eye.state"
	SubtitleTool = "eye.subtitle"
)

// Ack is the reply of every eye control that took effect.
const Ack = "success"

// Controls is the subset of the display facade the tools drive.
type Controls interface {
	ForceOpenEye()
	ForceCloseEye()
	SetEyeState(state eye.State)
	SendSubtitle(text string)
}

type stateInput struct {
	State string `json:"state" jsonschema:"enum=open,enum=close,enum=listening,enum=thinking,enum=speaking,description=Conversational state to animate"`
}

type subtitleInput struct {
	Text string `json:"text" jsonschema:"description=Text to display"`
}

// Tools returns a ToolBox with the eye tools bound to c.
func Tools(c Controls, log *slog.Logger) *toolbox.ToolBox {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	tb := toolbox.New()
	tb.Register(
		toolbox.Tool{
			Name:        OpenTool,
			Description: "Hardware control directive: force the screen to show the open-eye animation. MUST be called whenever the user asks to open the eyes.",
			InputSchema: toolbox.NoParams,
			Handler: func(context.Context, json.RawMessage) (string, error) {
				log.Info("tool called", "tool", OpenTool)
				c.ForceOpenEye()
				return Ack, nil
			},
		},
		toolbox.Tool{
			Name:        CloseTool,
			Description: "Hardware control directive: force the screen to show the closed-eye frame. MUST be called whenever the user asks to close the eyes.",
			InputSchema: toolbox.NoParams,
			Handler: func(context.Context, json.RawMessage) (string, error) {
				log.Info("tool called", "tool", CloseTool)
				c.ForceCloseEye()
				return Ack, nil
			},
		},
		toolbox.Tool{
			Name:        StateTool,
			Description: "Set the conversational state the eyes animate for: " + stateNames() + ".",
			InputSchema: toolbox.SchemaFor(&stateInput{}),
			Handler: func(_ context.Context, input json.RawMessage) (string, error) {
				var in stateInput
				if err := json.Unmarshal(input, &in); err != nil {
					return "", fmt.Errorf("eyetools: decode input: %w", err)
				}

				s, err := eye.Parse(in.State)
				if err != nil {
					return "", err
				}

				log.Info("tool called", "tool", StateTool, "state", s)
				c.SetEyeState(s)
				return Ack, nil
			},
		},
		toolbox.Tool{
			Name:        SubtitleTool,
			Description: "Show subtitle text on the eye display. Long text is truncated.",
			InputSchema: toolbox.SchemaFor(&subtitleInput{}),
			Handler: func(_ context.Context, input json.RawMessage) (string, error) {
				var in subtitleInput
				if err := json.Unmarshal(input, &in); err != nil {
					return "", fmt.Errorf("eyetools: decode input: %w", err)
				}

				if in.Text == "" {
					return "", errors.New("eyetools: text is required")
				}

				log.Info("tool called", "tool", SubtitleTool, "bytes", len(in.Text))
				c.SendSubtitle(in.Text)
				return Ack, nil
			},
		},
	)

	return tb
}

func stateNames() string {
	names := make([]string, 0, len(eye.States()))
	for _, s := range eye.States() {
		names = append(names, s.String())
	}

	return strings.Join(names, ", ")
}
