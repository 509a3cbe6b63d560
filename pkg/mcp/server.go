package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ToolHandler executes one tool invocation. A returned error becomes an
// IsError result carrying the error text; it never tears down the session.
type ToolHandler func(ctx context.Context, arguments map[string]any) (CallResult, error)

// Server answers initialize, tools/list, tools/call and shutdown requests
// over a framed transport. Tools are listed in registration order.
type Server struct {
	info ServerInfo

	mu       sync.RWMutex
	tools    map[string]ToolDefinition
	handlers map[string]ToolHandler
	order    []string
}

// NewServer constructs a server that reports the given name and version
// during the initialize handshake.
func NewServer(name, version string) *Server {
	return &Server{
		info:     ServerInfo{Name: name, Version: version},
		tools:    make(map[string]ToolDefinition),
		handlers: make(map[string]ToolHandler),
	}
}

// RegisterTool publishes a tool. Duplicate names are rejected so a wiring
// mistake surfaces at startup rather than as shadowed behaviour.
func (s *Server) RegisterTool(def ToolDefinition, handler ToolHandler) error {
	if strings.TrimSpace(def.Name) == "" {
		return errors.New("mcp: tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("mcp: tool %s has no handler", def.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[def.Name]; exists {
		return fmt.Errorf("mcp: tool already registered: %s", def.Name)
	}
	s.tools[def.Name] = def
	s.handlers[def.Name] = handler
	s.order = append(s.order, def.Name)
	return nil
}

// Tools returns the registered definitions in registration order.
func (s *Server) Tools() []ToolDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(s.order))
	for _, name := range s.order {
		defs = append(defs, s.tools[name])
	}
	return defs
}

// ServeStdio runs the session over the process's stdin and stdout. Stdout
// carries only protocol frames; anything else a server wants to say belongs
// on stderr.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve processes requests from r and writes responses to w until the peer
// disconnects, requests shutdown, or the context is cancelled. A clean
// disconnect returns nil.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := readFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}

		var req serverRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			s.reply(w, responseEnvelope{JSONRPC: "2.0", ID: &req.ID, Error: &rpcError{Code: -32700, Message: err.Error()}})
			continue
		}

		s.reply(w, s.dispatch(ctx, req))
		if req.Method == "shutdown" {
			return nil
		}
	}
}

type serverRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (s *Server) dispatch(ctx context.Context, req serverRequest) responseEnvelope {
	id := req.ID

	var result any
	switch req.Method {
	case "initialize":
		result = map[string]any{
			"protocolVersion": protocolVersion,
			"serverInfo":      s.info,
			"capabilities": map[string]any{
				"tools": map[string]bool{
					"list": true,
					"call": true,
				},
			},
		}
	case "tools/list":
		result = map[string]any{"tools": s.Tools()}
	case "tools/call":
		res, rpcErr := s.callTool(ctx, req.Params)
		if rpcErr != nil {
			return responseEnvelope{JSONRPC: "2.0", ID: &id, Error: rpcErr}
		}
		result = res
	case "shutdown":
		result = map[string]any{}
	default:
		return responseEnvelope{JSONRPC: "2.0", ID: &id, Error: &rpcError{Code: -32601, Message: "method not found: " + req.Method}}
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return responseEnvelope{JSONRPC: "2.0", ID: &id, Error: &rpcError{Code: -32603, Message: err.Error()}}
	}
	return responseEnvelope{JSONRPC: "2.0", ID: &id, Result: encoded}
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (CallResult, *rpcError) {
	var payload struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return CallResult{}, &rpcError{Code: -32602, Message: err.Error()}
		}
	}

	s.mu.RLock()
	handler := s.handlers[payload.Name]
	s.mu.RUnlock()

	if handler == nil {
		return CallResult{}, &rpcError{Code: -32001, Message: "unknown tool: " + payload.Name}
	}

	result, err := handler(ctx, payload.Arguments)
	if err != nil {
		return CallResult{
			IsError: true,
			Content: []Content{{Type: "text", Text: err.Error()}},
		}, nil
	}
	return result, nil
}

func (s *Server) reply(w io.Writer, env responseEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	_ = writeFrame(w, payload)
}
