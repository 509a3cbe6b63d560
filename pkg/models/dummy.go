package models

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DummyLLM is a lightweight model implementation useful for local testing
// without API calls. Scripted responses are replayed in order; once the
// script runs dry it echoes the last non-empty line of the latest user turn.
type DummyLLM struct {
	Prefix string

	mu       sync.Mutex
	scripted []Response
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyLLM{Prefix: prefix}
}

// Script queues canned responses and returns the receiver for chaining.
func (d *DummyLLM) Script(responses ...Response) *DummyLLM {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripted = append(d.scripted, responses...)
	return d
}

func (d *DummyLLM) Generate(_ context.Context, history []Turn, _ string) (Response, error) {
	d.mu.Lock()
	if len(d.scripted) > 0 {
		resp := d.scripted[0]
		d.scripted = d.scripted[1:]
		d.mu.Unlock()
		return resp, nil
	}
	d.mu.Unlock()

	var latest string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			latest = history[i].Text
			break
		}
	}

	var last string
	for _, line := range strings.Split(latest, "\n") {
		if candidate := strings.TrimSpace(line); candidate != "" {
			last = candidate
		}
	}
	if last == "" {
		last = "<empty prompt>"
	}
	return Response{Text: fmt.Sprintf("%s %s", d.Prefix, last)}, nil
}

var _ Model = (*DummyLLM)(nil)
