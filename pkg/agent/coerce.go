package agent

import (
	"fmt"
	"math"
	"strconv"
)

// Logf receives one formatted run-log message.
type Logf func(format string, args ...any)

// ArgumentError reports a raw argument that could not be converted to its
// declared schema type.
type ArgumentError struct {
	Value string
	Type  string
	Err   error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s", e.Value, e.Type)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// CoerceArgument converts one raw pipe-delimited argument to the declared
// JSON schema type. Integers parse strictly; numbers narrow to int64 when the
// value is integral and fits, so AppleScript receives whole coordinates.
// Unknown types pass through as strings.
func CoerceArgument(raw, schemaType string) (any, error) {
	switch schemaType {
	case "integer":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &ArgumentError{Value: raw, Type: schemaType, Err: err}
		}
		return n, nil
	case "number":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ArgumentError{Value: raw, Type: schemaType, Err: err}
		}
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), nil
		}
		return f, nil
	default:
		return raw, nil
	}
}

// BuildArguments maps positional arguments onto the tool's declared
// parameters. A count mismatch is logged but not fatal: surplus arguments get
// synthetic argN names and missing ones are simply absent, letting the server
// produce the authoritative error. Coercion failures keep the raw string for
// the same reason.
func BuildArguments(tool string, schema []ParamSpec, raw []string, logf Logf) map[string]any {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if len(raw) != len(schema) {
		logf("argument_mismatch tool=%s expected=%d received=%d", tool, len(schema), len(raw))
	}
	arguments := make(map[string]any, len(raw))
	for idx, value := range raw {
		name, declared := fmt.Sprintf("arg%d", idx), "string"
		if idx < len(schema) {
			name, declared = schema[idx].Name, schema[idx].Type
		}
		converted, err := CoerceArgument(value, declared)
		if err != nil {
			logf("argument_parse_error tool=%s arg=%s value=%s error=%v", tool, name, value, err)
			arguments[name] = value
			continue
		}
		arguments[name] = converted
	}
	return arguments
}
