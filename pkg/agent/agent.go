// Package agent drives the FUNCTION_CALL / FINAL_ANSWER conversation loop
// between a language model and one MCP tool session. Each iteration sends the
// pending message to the model, parses the first line of its reply as a
// directive, performs the requested tool call and feeds the result back as
// the next message.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/models"
)

// DefaultMaxIterations bounds the loop when Options leaves it unset.
const DefaultMaxIterations = 8

// ToolSession is the slice of the MCP client the loop depends on.
type ToolSession interface {
	ListTools(ctx context.Context) ([]mcp.ToolDefinition, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (mcp.CallResult, error)
}

// State reports how a run ended.
type State int

const (
	// StateDone means the model signaled FINAL_ANSWER.
	StateDone State = iota
	// StateExhausted means the iteration budget ran out first.
	StateExhausted
)

// Result summarizes a finished run. History holds the alternating user and
// model turns in the order they were exchanged.
type Result struct {
	State      State
	Iterations int
	History    []models.Turn
}

// Options configure a new Agent.
type Options struct {
	Model          models.Model
	Session        ToolSession
	Log            Logf
	MaxIterations  int
	PromptTemplate string

	// PresetArguments supplies the full argument map for tools the model is
	// instructed to call bare, keyed by tool name. A preset applies only when
	// the directive carried no arguments.
	PresetArguments map[string]map[string]any
}

// Agent owns one conversation loop against one tool session.
type Agent struct {
	model         models.Model
	session       ToolSession
	logf          Logf
	maxIterations int
	template      string
	presets       map[string]map[string]any
}

// New creates an Agent with the provided options.
func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, errors.New("agent requires a language model")
	}
	if opts.Session == nil {
		return nil, errors.New("agent requires a tool session")
	}

	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	template := opts.PromptTemplate
	if strings.TrimSpace(template) == "" {
		template = KeynotePromptTemplate
	}

	logf := opts.Log
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Agent{
		model:         opts.Model,
		session:       opts.Session,
		logf:          logf,
		maxIterations: maxIterations,
		template:      template,
		presets:       opts.PresetArguments,
	}, nil
}

// Run executes the loop seeded with query until the model signals
// FINAL_ANSWER or the iteration budget is spent. Model failures and transport
// faults abort the run; tool-level errors are relayed to the model so it can
// adjust and retry.
func (a *Agent) Run(ctx context.Context, query string) (Result, error) {
	tools, err := a.session.ListTools(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list tools: %w", err)
	}

	description, schemas := DescribeTools(tools)
	systemPrompt := BuildSystemPrompt(a.template, description)
	a.logf("tools listed: %s", strings.Join(toolNames(tools), ", "))

	var history []models.Turn
	next := query

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		history = append(history, models.Turn{Role: models.RoleUser, Text: next})
		a.logf("iteration=%d user_message=%s", iteration, next)

		response, err := a.model.Generate(ctx, history, systemPrompt)
		if err != nil {
			return Result{}, fmt.Errorf("generate: %w", err)
		}

		// Only the first line counts; the protocol demands single-line
		// replies and anything beyond it is noise.
		primary := firstLine(response.PrimaryText())
		history = append(history, models.Turn{Role: models.RoleModel, Text: primary})
		a.logf("model_response=%s", primary)

		directive, err := ParseDirective(primary)
		if err != nil {
			a.logf("protocol_error=%v", err)
			next = fmt.Sprintf("Unrecognized response (%v). Please follow the protocol.", err)
			continue
		}

		if directive.Kind == DirectiveFinalAnswer {
			a.logf("Agent signaled FINAL_ANSWER")
			return Result{State: StateDone, Iterations: iteration, History: history}, nil
		}

		arguments := a.callArguments(directive, schemas)
		a.logf("FUNCTION_CALL parsed: %s|%s", directive.Name, strings.Join(directive.Args, "|"))

		result, err := a.session.CallTool(ctx, directive.Name, arguments)
		if err != nil && len(result.Content) == 0 {
			return Result{}, fmt.Errorf("call tool %s: %w", directive.Name, err)
		}

		output := toolResultText(result)
		a.logf("tool_result name=%s output=%s", directive.Name, output)
		next = fmt.Sprintf("TOOL_RESULT %s: %s", directive.Name, output)
	}

	a.logf("Max iterations reached without FINAL_ANSWER")
	return Result{State: StateExhausted, Iterations: a.maxIterations, History: history}, nil
}

// callArguments resolves the argument map for a function call directive. A
// bare call with a registered preset takes the preset verbatim; everything
// else goes through positional mapping and coercion.
func (a *Agent) callArguments(directive Directive, schemas map[string][]ParamSpec) map[string]any {
	if len(directive.Args) == 0 {
		if preset, ok := a.presets[directive.Name]; ok {
			return preset
		}
	}
	return BuildArguments(directive.Name, schemas[directive.Name], directive.Args, a.logf)
}

func toolNames(tools []mcp.ToolDefinition) []string {
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
		if names[i] == "" {
			names[i] = "unknown"
		}
	}
	return names
}

// firstLine returns text up to the first line break.
func firstLine(text string) string {
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		return text[:idx]
	}
	return text
}

// toolResultText flattens a call result to the text relayed to the model.
// Results without text parts fall back to their JSON rendering so nothing is
// silently dropped.
func toolResultText(result mcp.CallResult) string {
	if text := result.Text(); text != "" {
		return text
	}
	if len(result.Content) == 0 {
		return ""
	}
	rendered, err := json.Marshal(result.Content)
	if err != nil {
		return ""
	}
	return string(rendered)
}
