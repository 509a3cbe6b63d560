package gmail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
)

// RegisterTools wires the send_email tool into srv.
func RegisterTools(srv *mcp.Server, sender *Sender) error {
	def := mcp.ToolDefinition{
		Name:        "send_email",
		Description: "Send an email through Gmail. Returns EMAIL_SENT with the message id, or an ERROR: string.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"to":{"type":"string"},"subject":{"type":"string"},"body":{"type":"string"},"body_html":{"type":"string"}},"required":["to","subject","body"]}`),
	}
	handler := func(ctx context.Context, arguments map[string]any) (mcp.CallResult, error) {
		to, err := requireString(arguments, "to")
		if err != nil {
			return mcp.CallResult{}, err
		}
		subject, err := requireString(arguments, "subject")
		if err != nil {
			return mcp.CallResult{}, err
		}
		body, err := requireString(arguments, "body")
		if err != nil {
			return mcp.CallResult{}, err
		}
		bodyHTML, err := optionalString(arguments, "body_html")
		if err != nil {
			return mcp.CallResult{}, err
		}
		text := sender.SendEmail(ctx, to, subject, body, bodyHTML)
		return mcp.CallResult{Content: []mcp.Content{{Type: "text", Text: text}}}, nil
	}
	return srv.RegisterTool(def, handler)
}

func requireString(arguments map[string]any, name string) (string, error) {
	value, ok := arguments[name]
	if !ok {
		return "", fmt.Errorf("missing argument: %s", name)
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid argument %s: expected string, got %T", name, value)
	}
	return text, nil
}

func optionalString(arguments map[string]any, name string) (string, error) {
	value, ok := arguments[name]
	if !ok {
		return "", nil
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid argument %s: expected string, got %T", name, value)
	}
	return text, nil
}
