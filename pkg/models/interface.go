// Package models adapts the supported LLM providers to the single Generate
// contract the agent loop consumes. Providers differ in how they shape their
// replies, so the response is a tagged struct and PrimaryText applies one
// deterministic extraction rule for all of them.
package models

import (
	"context"
	"strings"
)

// Roles recorded in the conversation history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one prior message in the conversation. The agent appends a user
// turn before every Generate call and a model turn after it.
type Turn struct {
	Role string
	Text string
}

// Part is a text fragment of a structured provider reply. Providers that
// return multi-part candidates map only the text-bearing parts.
type Part struct {
	Text string
}

// Response is the tagged provider reply. At most one of the fields is
// expected to be populated; PrimaryText resolves the precedence when more
// than one is.
type Response struct {
	Text  string
	Parts []Part
	Raw   string
}

// PrimaryText reduces the response to a single string. Precedence: the plain
// Text field when non-empty, otherwise the concatenated Parts when any are
// present, otherwise the Raw fallback. The result is always trimmed and the
// reduction never fails.
func (r Response) PrimaryText() string {
	if txt := strings.TrimSpace(r.Text); txt != "" {
		return txt
	}
	if len(r.Parts) > 0 {
		var b strings.Builder
		for _, part := range r.Parts {
			b.WriteString(part.Text)
		}
		return strings.TrimSpace(b.String())
	}
	return strings.TrimSpace(r.Raw)
}

// Model generates the next reply given the full conversation so far. The
// system instruction rides separately because providers carry it outside the
// message list.
type Model interface {
	Generate(ctx context.Context, history []Turn, systemInstruction string) (Response, error)
}
