package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
)

// ParamSpec names one tool parameter and its declared JSON schema type.
type ParamSpec struct {
	Name string
	Type string
}

// DescribeTools renders the tool catalog embedded in the system prompt and
// returns the per-tool parameter order used to map positional arguments.
// Required parameters come first, in the order the schema's required array
// lists them, followed by the remaining properties in declaration order.
func DescribeTools(tools []mcp.ToolDefinition) (string, map[string][]ParamSpec) {
	lines := make([]string, 0, len(tools))
	schemas := make(map[string][]ParamSpec, len(tools))
	for _, tool := range tools {
		name := tool.Name
		if name == "" {
			name = "unknown"
		}
		description := tool.Description
		if description == "" {
			description = "No description"
		}
		params := schemaParams(tool.InputSchema)
		schemas[name] = params

		rendered := "no parameters"
		if len(params) > 0 {
			parts := make([]string, len(params))
			for i, param := range params {
				parts[i] = fmt.Sprintf("%s: %s", param.Name, param.Type)
			}
			rendered = strings.Join(parts, ", ")
		}
		lines = append(lines, fmt.Sprintf("- %s(%s) -> %s", name, rendered, description))
	}
	return strings.Join(lines, "\n"), schemas
}

// schemaParams extracts the ordered parameter list from a tool input schema.
// Malformed or absent schemas yield nil, which the loop treats as a tool
// without declared parameters.
func schemaParams(schema json.RawMessage) []ParamSpec {
	if len(schema) == 0 {
		return nil
	}
	var envelope struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &envelope); err != nil {
		return nil
	}

	typeOf := func(name string) string {
		if meta, ok := envelope.Properties[name]; ok && meta.Type != "" {
			return meta.Type
		}
		return "string"
	}

	required := make(map[string]bool, len(envelope.Required))
	var params []ParamSpec
	for _, name := range envelope.Required {
		required[name] = true
		params = append(params, ParamSpec{Name: name, Type: typeOf(name)})
	}
	for _, name := range propertyOrder(schema) {
		if required[name] {
			continue
		}
		params = append(params, ParamSpec{Name: name, Type: typeOf(name)})
	}
	return params
}

// propertyOrder walks the raw schema tokens and returns the keys of the
// top-level "properties" object in declaration order. Maps would lose the
// order, and the order decides which positional argument lands where.
func propertyOrder(schema json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(schema))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, _ := keyTok.(string)
		if key != "properties" {
			if err := skipValue(dec); err != nil {
				return nil
			}
			continue
		}
		open, err := dec.Token()
		if err != nil {
			return nil
		}
		if delim, ok := open.(json.Delim); !ok || delim != '{' {
			return nil
		}
		var names []string
		for dec.More() {
			nameTok, err := dec.Token()
			if err != nil {
				return nil
			}
			name, _ := nameTok.(string)
			names = append(names, name)
			if err := skipValue(dec); err != nil {
				return nil
			}
		}
		return names
	}
	return nil
}

// skipValue consumes exactly one JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
