package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/models"
)

type toolCall struct {
	name string
	args map[string]any
}

type fakeSession struct {
	tools   []mcp.ToolDefinition
	listErr error
	results map[string]mcp.CallResult
	errs    map[string]error
	calls   []toolCall
}

func (s *fakeSession) ListTools(ctx context.Context) ([]mcp.ToolDefinition, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.tools, nil
}

func (s *fakeSession) CallTool(ctx context.Context, name string, arguments map[string]any) (mcp.CallResult, error) {
	s.calls = append(s.calls, toolCall{name: name, args: arguments})
	return s.results[name], s.errs[name]
}

func textResult(text string) mcp.CallResult {
	return mcp.CallResult{Content: []mcp.Content{{Type: "text", Text: text}}}
}

func keynoteTools() []mcp.ToolDefinition {
	return []mcp.ToolDefinition{
		{Name: "open_keynote", Description: "Open Keynote and report slide dimensions"},
		{
			Name:        "draw_rectangle",
			Description: "Draw a rectangle on slide 1",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"x":{"type":"integer"},"y":{"type":"integer"},"width":{"type":"integer"},"height":{"type":"integer"}},"required":["x","y","width","height"]}`),
		},
		{
			Name:        "add_text_in_keynote",
			Description: "Write text into the last drawn rectangle",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
		},
	}
}

func scriptedModel(lines ...string) *models.DummyLLM {
	responses := make([]models.Response, len(lines))
	for i, line := range lines {
		responses[i] = models.Response{Text: line}
	}
	return models.NewDummyLLM("").Script(responses...)
}

func collectLog(lines *[]string) Logf {
	return func(format string, args ...any) {
		*lines = append(*lines, fmt.Sprintf(format, args...))
	}
}

func TestNewValidatesRequirements(t *testing.T) {
	if _, err := New(Options{Session: &fakeSession{}}); err == nil {
		t.Fatalf("expected error when model is missing")
	}
	if _, err := New(Options{Model: scriptedModel()}); err == nil {
		t.Fatalf("expected error when session is missing")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	a, err := New(Options{Model: scriptedModel(), Session: &fakeSession{}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if a.maxIterations != DefaultMaxIterations {
		t.Fatalf("expected default iteration budget, got %d", a.maxIterations)
	}
	if a.template != KeynotePromptTemplate {
		t.Fatalf("expected the Keynote template as default")
	}
	if a.logf == nil {
		t.Fatalf("expected a no-op logger to be installed")
	}
}

func TestRunHappyPath(t *testing.T) {
	session := &fakeSession{
		tools: keynoteTools(),
		results: map[string]mcp.CallResult{
			"open_keynote":        textResult("KEYNOTE_READY: slide=1, slide_width=1920, slide_height=1080"),
			"draw_rectangle":      textResult("RECTANGLE_OK: id=RECT-1, x=384, y=378, width=1152, height=324"),
			"add_text_in_keynote": textResult("TEXT_OK: id=RECT-1, characters=24"),
		},
	}
	var lines []string
	a, err := New(Options{
		Model: scriptedModel(
			"FUNCTION_CALL: open_keynote",
			"FUNCTION_CALL: draw_rectangle|384|378|1152|324",
			"FUNCTION_CALL: add_text_in_keynote|Hello from MCP on macOS.",
			"FINAL_ANSWER: [done]",
		),
		Session: session,
		Log:     collectLog(&lines),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := a.Run(context.Background(), DefaultKeynoteQuery)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != StateDone {
		t.Fatalf("expected StateDone, got %v", result.State)
	}
	if result.Iterations != 4 {
		t.Fatalf("expected 4 iterations, got %d", result.Iterations)
	}

	if len(session.calls) != 3 {
		t.Fatalf("expected 3 tool calls, got %d", len(session.calls))
	}
	if session.calls[0].name != "open_keynote" || len(session.calls[0].args) != 0 {
		t.Fatalf("unexpected first call: %+v", session.calls[0])
	}
	second := session.calls[1]
	if second.name != "draw_rectangle" {
		t.Fatalf("unexpected second call: %+v", second)
	}
	wantArgs := map[string]any{"x": int64(384), "y": int64(378), "width": int64(1152), "height": int64(324)}
	if !reflect.DeepEqual(second.args, wantArgs) {
		t.Fatalf("rectangle arguments were not coerced: %+v", second.args)
	}
	if session.calls[2].args["text"] != "Hello from MCP on macOS." {
		t.Fatalf("unexpected text argument: %v", session.calls[2].args["text"])
	}

	if result.History[2].Text != "TOOL_RESULT open_keynote: KEYNOTE_READY: slide=1, slide_width=1920, slide_height=1080" {
		t.Fatalf("unexpected feedback turn: %q", result.History[2].Text)
	}

	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"tools listed: open_keynote, draw_rectangle, add_text_in_keynote",
		"iteration=1 user_message=" + DefaultKeynoteQuery,
		"model_response=FUNCTION_CALL: open_keynote",
		"FUNCTION_CALL parsed: open_keynote|",
		"FUNCTION_CALL parsed: draw_rectangle|384|378|1152|324",
		"tool_result name=open_keynote output=KEYNOTE_READY: slide=1, slide_width=1920, slide_height=1080",
		"Agent signaled FINAL_ANSWER",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("log missing %q in:\n%s", want, joined)
		}
	}
}

func TestRunRelaysProtocolFeedback(t *testing.T) {
	session := &fakeSession{tools: keynoteTools()}
	var lines []string
	a, err := New(Options{
		Model:   scriptedModel("Opening Keynote for you now!", "FINAL_ANSWER: [done]"),
		Session: session,
		Log:     collectLog(&lines),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := a.Run(context.Background(), DefaultKeynoteQuery)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != StateDone || result.Iterations != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(session.calls) != 0 {
		t.Fatalf("no tools should have been called, got %d", len(session.calls))
	}

	feedback := result.History[2].Text
	want := "Unrecognized response (Unrecognized agent directive: Opening Keynote for you now!). Please follow the protocol."
	if feedback != want {
		t.Fatalf("unexpected feedback: %q", feedback)
	}
	if !strings.Contains(strings.Join(lines, "\n"), "protocol_error=Unrecognized agent directive: Opening Keynote for you now!") {
		t.Fatalf("protocol error was not logged: %v", lines)
	}
}

func TestRunFeedsEmptyResponseBack(t *testing.T) {
	session := &fakeSession{tools: keynoteTools()}
	a, err := New(Options{
		Model:   scriptedModel("", "FINAL_ANSWER: [done]"),
		Session: session,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := a.Run(context.Background(), DefaultKeynoteQuery)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	feedback := result.History[2].Text
	if feedback != "Unrecognized response (Empty response line from agent). Please follow the protocol." {
		t.Fatalf("unexpected feedback: %q", feedback)
	}
}

func TestRunToolErrorKeepsSessionAlive(t *testing.T) {
	session := &fakeSession{
		tools: keynoteTools(),
		results: map[string]mcp.CallResult{
			"draw_rectangle": {
				Content: []mcp.Content{{Type: "text", Text: "ERROR: AppleScript timed out after 15s: draw_rectangle.applescript"}},
				IsError: true,
			},
		},
		errs: map[string]error{
			"draw_rectangle": errors.New("mcp: tool draw_rectangle failed: ERROR: AppleScript timed out after 15s: draw_rectangle.applescript"),
		},
	}
	a, err := New(Options{
		Model:   scriptedModel("FUNCTION_CALL: draw_rectangle|1|2|3|4", "FINAL_ANSWER: [done]"),
		Session: session,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := a.Run(context.Background(), DefaultKeynoteQuery)
	if err != nil {
		t.Fatalf("tool level errors should not abort the run: %v", err)
	}
	if result.State != StateDone {
		t.Fatalf("expected StateDone, got %v", result.State)
	}
	feedback := result.History[2].Text
	if !strings.HasPrefix(feedback, "TOOL_RESULT draw_rectangle: ERROR: AppleScript timed out") {
		t.Fatalf("unexpected feedback: %q", feedback)
	}
}

func TestRunTransportFaultAborts(t *testing.T) {
	session := &fakeSession{
		tools: keynoteTools(),
		errs:  map[string]error{"open_keynote": errors.New("mcp: connection closed")},
	}
	a, err := New(Options{
		Model:   scriptedModel("FUNCTION_CALL: open_keynote"),
		Session: session,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := a.Run(context.Background(), DefaultKeynoteQuery); err == nil {
		t.Fatalf("expected transport fault to abort the run")
	} else if !strings.Contains(err.Error(), "call tool open_keynote") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunStopsAfterMaxIterations(t *testing.T) {
	session := &fakeSession{
		tools: keynoteTools(),
		results: map[string]mcp.CallResult{
			"open_keynote": textResult("KEYNOTE_READY: slide=1, slide_width=1920, slide_height=1080"),
		},
	}
	var lines []string
	a, err := New(Options{
		Model: scriptedModel(
			"FUNCTION_CALL: open_keynote",
			"FUNCTION_CALL: open_keynote",
			"FUNCTION_CALL: open_keynote",
		),
		Session:       session,
		Log:           collectLog(&lines),
		MaxIterations: 3,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := a.Run(context.Background(), DefaultKeynoteQuery)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != StateExhausted {
		t.Fatalf("expected StateExhausted, got %v", result.State)
	}
	if result.Iterations != 3 {
		t.Fatalf("expected 3 iterations, got %d", result.Iterations)
	}
	if len(session.calls) != 3 {
		t.Fatalf("expected 3 tool calls, got %d", len(session.calls))
	}
	if lines[len(lines)-1] != "Max iterations reached without FINAL_ANSWER" {
		t.Fatalf("missing exhaustion log line, got %q", lines[len(lines)-1])
	}
}

func TestRunAppliesPresetArguments(t *testing.T) {
	tools := []mcp.ToolDefinition{{
		Name:        "send_email",
		Description: "Send an email via the Gmail API",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"to":{"type":"string"},"subject":{"type":"string"},"body":{"type":"string"},"body_html":{"type":"string"}},"required":["to","subject","body"]}`),
	}}
	preset := map[string]any{
		"to":      "pbgadekar@gmail.com",
		"subject": "MCP Hello - EAG V2 Assignment 4",
		"body":    "Agent Log Transcript",
	}
	session := &fakeSession{
		tools: tools,
		results: map[string]mcp.CallResult{
			"send_email": textResult("EMAIL_SENT: to=pbgadekar@gmail.com, id=abc123"),
		},
	}
	var lines []string
	a, err := New(Options{
		Model:           scriptedModel("FUNCTION_CALL: send_email", "FINAL_ANSWER: [done]"),
		Session:         session,
		Log:             collectLog(&lines),
		PromptTemplate:  GmailPromptTemplate,
		PresetArguments: map[string]map[string]any{"send_email": preset},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := a.Run(context.Background(), DefaultGmailQuery)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != StateDone {
		t.Fatalf("expected StateDone, got %v", result.State)
	}
	if len(session.calls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(session.calls))
	}
	if !reflect.DeepEqual(session.calls[0].args, preset) {
		t.Fatalf("preset arguments were not applied: %+v", session.calls[0].args)
	}
	if strings.Contains(strings.Join(lines, "\n"), "argument_mismatch") {
		t.Fatalf("preset call should not log a mismatch: %v", lines)
	}
}

func TestRunListToolsFailureAborts(t *testing.T) {
	session := &fakeSession{listErr: errors.New("mcp: connection closed")}
	a, err := New(Options{Model: scriptedModel(), Session: session})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := a.Run(context.Background(), DefaultKeynoteQuery); err == nil {
		t.Fatalf("expected list tools failure to abort the run")
	}
}

func TestRunTruncatesMultilineResponse(t *testing.T) {
	session := &fakeSession{tools: keynoteTools()}
	var lines []string
	a, err := New(Options{
		Model:   scriptedModel("FINAL_ANSWER: [done]\nThanks for using the agent!"),
		Session: session,
		Log:     collectLog(&lines),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := a.Run(context.Background(), DefaultKeynoteQuery)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != StateDone || result.Iterations != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(strings.Join(lines, "\n"), "model_response=FINAL_ANSWER: [done]") {
		t.Fatalf("expected only the first line to be recorded: %v", lines)
	}
}
