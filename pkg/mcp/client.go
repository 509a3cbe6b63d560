// Package mcp speaks the Model Context Protocol over stdio pipes. It carries
// both halves of the conversation: the Client used by the agent to list and
// invoke tools, and the Server embedded in the tool processes.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// protocolVersion names the Model Context Protocol release this package
// targets. Servers may accept a range of versions; tests can override it via
// Options.
const protocolVersion = "2024-05-01"

// ClientInfo describes the calling application during the initialize
// handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Options control how the client initialises the remote server.
type Options struct {
	ClientInfo      ClientInfo
	Capabilities    map[string]any
	ProtocolVersion string
}

// ToolDefinition is the subset of the MCP tool schema the agent consumes. The
// input schema stays raw because property order matters to the catalog text
// and must survive decoding.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Content is a single content part of a tool invocation result.
type Content struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
	Href     string          `json:"href,omitempty"`
}

// CallResult is the structured output of a tool invocation. IsError marks a
// failure inside the tool itself, as opposed to a transport fault.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Text joins the trimmed text parts of the result with newlines, preserving
// their order.
func (r CallResult) Text() string {
	var segments []string
	for _, part := range r.Content {
		if part.Type != "text" {
			continue
		}
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return strings.Join(segments, "\n")
}

// Transport moves raw JSON-RPC payloads between the two ends of a session.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// ServerInfo is the metadata the server reports during the initialize
// handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Client drives an MCP session from the agent side. It lists tools, invokes
// them, and shuts the session down.
type Client struct {
	transport    Transport
	info         ClientInfo
	capabilities map[string]any
	protoVersion string

	idCounter atomic.Uint64
	mu        sync.Mutex
	closed    atomic.Bool

	serverInfo ServerInfo
}

// NewClient performs the initialize handshake over the given transport. On
// handshake failure the transport is closed before returning.
func NewClient(ctx context.Context, transport Transport, opts Options) (*Client, error) {
	if transport == nil {
		return nil, errors.New("mcp: transport is nil")
	}

	info := opts.ClientInfo
	if strings.TrimSpace(info.Name) == "" {
		info.Name = "talk2mcp"
	}
	if strings.TrimSpace(info.Version) == "" {
		info.Version = "2.0.0"
	}

	caps := opts.Capabilities
	if caps == nil {
		caps = map[string]any{
			"tools": map[string]bool{
				"list": true,
				"call": true,
			},
		}
	}

	proto := opts.ProtocolVersion
	if strings.TrimSpace(proto) == "" {
		proto = protocolVersion
	}

	client := &Client{
		transport:    transport,
		info:         info,
		capabilities: caps,
		protoVersion: proto,
	}

	if err := client.initialize(ctx); err != nil {
		transport.Close()
		return nil, err
	}

	return client, nil
}

// Close releases the underlying transport. Close is idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.closed.Swap(true) {
		return nil
	}
	return c.transport.Close()
}

// Server returns the metadata captured during the initialize handshake.
func (c *Client) Server() ServerInfo {
	if c == nil {
		return ServerInfo{}
	}
	return c.serverInfo
}

// ListTools retrieves the complete tool list, transparently following
// pagination cursors when the server elects to paginate.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	var (
		cursor string
		tools  []ToolDefinition
	)

	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var resp struct {
			Tools      []ToolDefinition `json:"tools"`
			NextCursor string           `json:"nextCursor,omitempty"`
		}

		if err := c.call(ctx, "tools/list", params, &resp); err != nil {
			return nil, err
		}

		tools = append(tools, resp.Tools...)
		if strings.TrimSpace(resp.NextCursor) == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return tools, nil
}

// CallTool invokes a named tool. Transport faults return a zero CallResult
// with the error. When the server answers with IsError the populated result
// is returned together with an error describing the failure, so callers can
// still read the tool's textual output.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (CallResult, error) {
	if err := c.ensureOpen(); err != nil {
		return CallResult{}, err
	}
	if strings.TrimSpace(name) == "" {
		return CallResult{}, errors.New("mcp: tool name is required")
	}

	params := map[string]any{
		"name": name,
	}
	if len(arguments) > 0 {
		params["arguments"] = arguments
	}

	var result CallResult
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return CallResult{}, err
	}

	if result.IsError {
		message := strings.TrimSpace(result.Text())
		if message == "" {
			message = "tool reported an error"
		}
		return result, fmt.Errorf("mcp: tool %s failed: %s", name, message)
	}

	return result, nil
}

// Shutdown asks the server to end the session. Best effort; the error is
// returned so callers can log it.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	// Servers commonly answer shutdown with an empty result.
	return c.call(ctx, "shutdown", map[string]any{}, &struct{}{})
}

func (c *Client) ensureOpen() error {
	if c == nil {
		return errors.New("mcp: client is nil")
	}
	if c.closed.Load() {
		return errors.New("mcp: client has been closed")
	}
	return nil
}

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": c.protoVersion,
		"clientInfo":      c.info,
		"capabilities":    c.capabilities,
	}

	var resp struct {
		ProtocolVersion string     `json:"protocolVersion"`
		ServerInfo      ServerInfo `json:"serverInfo"`
	}

	if err := c.call(ctx, "initialize", params, &resp); err != nil {
		return err
	}

	c.serverInfo = resp.ServerInfo
	return nil
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type responseEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *string         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	id := strconv.FormatUint(c.idCounter.Add(1), 10)
	payload, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: marshal request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return errors.New("mcp: client has been closed")
	}

	if err := c.transport.Send(ctx, payload); err != nil {
		return err
	}

	for {
		msg, err := c.transport.Receive(ctx)
		if err != nil {
			return err
		}

		var env responseEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			return fmt.Errorf("mcp: decode response: %w", err)
		}

		if env.Method != "" {
			// Server notification. Keep looping for the matching response.
			continue
		}

		if env.ID == nil || *env.ID != id {
			continue
		}

		if env.Error != nil {
			return errors.New(env.Error.Message)
		}

		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return fmt.Errorf("mcp: decode result: %w", err)
			}
		}
		return nil
	}
}
