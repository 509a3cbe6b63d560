package agent

import (
	"fmt"
	"strings"
)

const (
	// FunctionCallPrefix opens a tool invocation line from the model.
	FunctionCallPrefix = "FUNCTION_CALL:"
	// FinalAnswerLine is the exact line the model emits once the task is done.
	FinalAnswerLine = "FINAL_ANSWER: [done]"
)

// DirectiveKind distinguishes the two line formats the model may use.
type DirectiveKind string

const (
	DirectiveFunctionCall DirectiveKind = "function_call"
	DirectiveFinalAnswer  DirectiveKind = "final_answer"
)

// Directive is one parsed line of model output. Args holds the raw
// pipe-delimited arguments with surrounding whitespace removed; empty
// segments survive so positional mapping stays intact.
type Directive struct {
	Kind DirectiveKind
	Name string
	Args []string
}

// ProtocolError reports a model line that does not follow the line protocol.
// The reason text is relayed back to the model verbatim, so it stays short
// and descriptive.
type ProtocolError struct {
	Line   string
	Reason string
}

func (e *ProtocolError) Error() string { return e.Reason }

// ParseDirective parses a single response line into a Directive. The line
// must be either a FUNCTION_CALL with a pipe-delimited payload or the exact
// FINAL_ANSWER line; anything else is a *ProtocolError.
func ParseDirective(line string) (Directive, error) {
	if line == "" {
		return Directive{}, &ProtocolError{Line: line, Reason: "Empty response line from agent"}
	}

	stripped := strings.TrimSpace(line)
	if strings.HasPrefix(stripped, FunctionCallPrefix) {
		payload := strings.TrimSpace(stripped[len(FunctionCallPrefix):])
		if payload == "" {
			return Directive{}, &ProtocolError{Line: line, Reason: "FUNCTION_CALL missing payload"}
		}
		parts := strings.Split(payload, "|")
		name := strings.TrimSpace(parts[0])
		if name == "" {
			return Directive{}, &ProtocolError{Line: line, Reason: "FUNCTION_CALL missing function name"}
		}
		var args []string
		if len(parts) > 1 {
			args = make([]string, len(parts)-1)
			for i, part := range parts[1:] {
				args[i] = strings.TrimSpace(part)
			}
		}
		return Directive{Kind: DirectiveFunctionCall, Name: name, Args: args}, nil
	}

	if stripped == FinalAnswerLine {
		return Directive{Kind: DirectiveFinalAnswer}, nil
	}

	return Directive{}, &ProtocolError{Line: line, Reason: fmt.Sprintf("Unrecognized agent directive: %s", line)}
}
