package keynote

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
)

// RegisterTools wires the five Keynote tools into an MCP server. The tools
// themselves never fail the call; argument extraction is the only error path
// and surfaces as a tool error result.
func RegisterTools(srv *mcp.Server, svc *Service) error {
	tools := []struct {
		def     mcp.ToolDefinition
		handler mcp.ToolHandler
	}{
		{
			def: mcp.ToolDefinition{
				Name:        "open_keynote",
				Description: "Open Keynote, make sure a presentation exists and report the slide dimensions.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
			},
			handler: func(ctx context.Context, _ map[string]any) (mcp.CallResult, error) {
				return textResult(svc.OpenKeynote(ctx)), nil
			},
		},
		{
			def: mcp.ToolDefinition{
				Name:        "get_slide_size",
				Description: "Report the width and height of the current slide in points.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
			},
			handler: func(ctx context.Context, _ map[string]any) (mcp.CallResult, error) {
				return textResult(svc.SlideSize(ctx)), nil
			},
		},
		{
			def: mcp.ToolDefinition{
				Name:        "draw_rectangle",
				Description: "Draw a rectangle on slide 1 using slide coordinates.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"x":{"type":"integer"},"y":{"type":"integer"},"width":{"type":"integer"},"height":{"type":"integer"}},"required":["x","y","width","height"]}`),
			},
			handler: func(ctx context.Context, arguments map[string]any) (mcp.CallResult, error) {
				x, err := intArg(arguments, "x")
				if err != nil {
					return mcp.CallResult{}, err
				}
				y, err := intArg(arguments, "y")
				if err != nil {
					return mcp.CallResult{}, err
				}
				width, err := intArg(arguments, "width")
				if err != nil {
					return mcp.CallResult{}, err
				}
				height, err := intArg(arguments, "height")
				if err != nil {
					return mcp.CallResult{}, err
				}
				return textResult(svc.DrawRectangle(ctx, x, y, width, height)), nil
			},
		},
		{
			def: mcp.ToolDefinition{
				Name:        "add_text_in_keynote",
				Description: "Write text inside the most recently drawn rectangle.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
			},
			handler: func(ctx context.Context, arguments map[string]any) (mcp.CallResult, error) {
				text, err := stringArg(arguments, "text")
				if err != nil {
					return mcp.CallResult{}, err
				}
				return textResult(svc.AddText(ctx, text)), nil
			},
		},
		{
			def: mcp.ToolDefinition{
				Name:        "screenshot_slide",
				Description: "Export slide 1 as a PNG file at the given path.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`),
			},
			handler: func(ctx context.Context, arguments map[string]any) (mcp.CallResult, error) {
				path, err := stringArg(arguments, "path")
				if err != nil {
					return mcp.CallResult{}, err
				}
				return textResult(svc.Screenshot(ctx, path)), nil
			},
		},
	}

	for _, tool := range tools {
		if err := srv.RegisterTool(tool.def, tool.handler); err != nil {
			return err
		}
	}
	return nil
}

func textResult(text string) mcp.CallResult {
	return mcp.CallResult{Content: []mcp.Content{{Type: "text", Text: text}}}
}

// intArg accepts the numeric encodings a JSON decode or a lenient client may
// produce for an integer parameter.
func intArg(arguments map[string]any, name string) (int, error) {
	value, ok := arguments[name]
	if !ok {
		return 0, fmt.Errorf("missing argument: %s", name)
	}
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case int64:
		return int(v), nil
	case int:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid argument %s: %v", name, err)
		}
		return int(f), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid argument %s: %q is not a number", name, v)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("invalid argument %s: unsupported type %T", name, value)
	}
}

func stringArg(arguments map[string]any, name string) (string, error) {
	value, ok := arguments[name]
	if !ok {
		return "", fmt.Errorf("missing argument: %s", name)
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid argument %s: expected a string, got %T", name, value)
	}
	return text, nil
}
