package gmail

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/runlog"
)

type fakeTransport struct {
	raws []string
	id   string
	err  error
}

func (f *fakeTransport) Send(ctx context.Context, raw string) (string, error) {
	f.raws = append(f.raws, raw)
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

func newTestSender(transport Transport) *Sender {
	log := runlog.NewServerLoggerTo(io.Discard, runlog.LevelError)
	return NewSenderWithTransport(log, transport)
}

func TestSendEmailReportsMessageID(t *testing.T) {
	t.Setenv("GMAIL_SENDER", "")
	transport := &fakeTransport{id: "MSG-123"}
	sender := newTestSender(transport)

	result := sender.SendEmail(context.Background(), "demo@example.com", "Subject", "Body", "")

	if result != "EMAIL_SENT: to=demo@example.com, id=MSG-123" {
		t.Fatalf("unexpected result: %q", result)
	}
	if len(transport.raws) != 1 {
		t.Fatalf("expected one send, got %d", len(transport.raws))
	}
	decoded := decodeRaw(t, transport.raws[0])
	if !strings.Contains(decoded, "To: demo@example.com\r\n") {
		t.Fatalf("payload missing recipient: %q", decoded)
	}
	if strings.Contains(decoded, "From:") {
		t.Fatalf("From header should be absent without GMAIL_SENDER: %q", decoded)
	}
}

func TestSendEmailRejectsBadAddress(t *testing.T) {
	transport := &fakeTransport{id: "MSG-123"}
	sender := newTestSender(transport)

	result := sender.SendEmail(context.Background(), "not-an-address", "Subject", "Body", "")

	if result != `ERROR: Invalid "to" address.` {
		t.Fatalf("unexpected result: %q", result)
	}
	if len(transport.raws) != 0 {
		t.Fatalf("transport should not be called for an invalid address")
	}
}

func TestSendEmailFallsBackToUnknownID(t *testing.T) {
	t.Setenv("GMAIL_SENDER", "")
	sender := newTestSender(&fakeTransport{id: ""})

	result := sender.SendEmail(context.Background(), "demo@example.com", "s", "b", "")

	if result != "EMAIL_SENT: to=demo@example.com, id=unknown" {
		t.Fatalf("unexpected result: %q", result)
	}
}

func TestSendEmailFoldsTransportError(t *testing.T) {
	t.Setenv("GMAIL_SENDER", "")
	sender := newTestSender(&fakeTransport{err: errors.New("quota exceeded")})

	result := sender.SendEmail(context.Background(), "demo@example.com", "s", "b", "")

	if result != "ERROR: quota exceeded" {
		t.Fatalf("unexpected result: %q", result)
	}
}

func TestSendEmailBuildsHTMLAlternative(t *testing.T) {
	t.Setenv("GMAIL_SENDER", "")
	transport := &fakeTransport{id: "MSG-1"}
	sender := newTestSender(transport)

	sender.SendEmail(context.Background(), "demo@example.com", "Subject", "Body", "<strong>Body</strong>")

	decoded := decodeRaw(t, transport.raws[0])
	if !strings.Contains(decoded, "multipart/alternative") {
		t.Fatalf("expected multipart payload: %q", decoded)
	}
	if !strings.Contains(decoded, "<strong>Body</strong>") {
		t.Fatalf("missing html part: %q", decoded)
	}
}

func TestSendEmailUsesConfiguredSender(t *testing.T) {
	t.Setenv("GMAIL_SENDER", "agent@example.com")
	transport := &fakeTransport{id: "MSG-1"}
	sender := newTestSender(transport)

	sender.SendEmail(context.Background(), "demo@example.com", "s", "b", "")

	decoded := decodeRaw(t, transport.raws[0])
	if !strings.Contains(decoded, "From: agent@example.com\r\n") {
		t.Fatalf("missing From header: %q", decoded)
	}
}

func TestRegisterToolsExposesSendEmail(t *testing.T) {
	srv := mcp.NewServer("gmail-mcp", "test")
	if err := RegisterTools(srv, newTestSender(&fakeTransport{id: "MSG-1"})); err != nil {
		t.Fatalf("RegisterTools: %v", err)
	}

	tools := srv.Tools()
	if len(tools) != 1 || tools[0].Name != "send_email" {
		t.Fatalf("unexpected tool listing: %+v", tools)
	}
	schema := string(tools[0].InputSchema)
	if !strings.Contains(schema, `"required":["to","subject","body"]`) {
		t.Fatalf("unexpected schema: %s", schema)
	}
	if !strings.Contains(schema, "body_html") {
		t.Fatalf("schema should describe the optional html body: %s", schema)
	}
}

func TestRequireStringValidatesArguments(t *testing.T) {
	if _, err := requireString(map[string]any{}, "to"); err == nil {
		t.Fatalf("expected error for missing argument")
	}
	if _, err := requireString(map[string]any{"to": 7}, "to"); err == nil {
		t.Fatalf("expected error for non-string argument")
	}
	value, err := requireString(map[string]any{"to": "demo@example.com"}, "to")
	if err != nil || value != "demo@example.com" {
		t.Fatalf("unexpected result: %q err=%v", value, err)
	}
}

func TestOptionalStringDefaultsToEmpty(t *testing.T) {
	value, err := optionalString(map[string]any{}, "body_html")
	if err != nil || value != "" {
		t.Fatalf("unexpected result: %q err=%v", value, err)
	}
	if _, err := optionalString(map[string]any{"body_html": 1}, "body_html"); err == nil {
		t.Fatalf("expected error for non-string argument")
	}
}

func TestEnvPathExpandsHome(t *testing.T) {
	t.Setenv("GMAIL_TOKEN_PATH", "~/secrets/token.json")

	path := envPath("GMAIL_TOKEN_PATH", defaultTokenFile)

	if strings.HasPrefix(path, "~") {
		t.Fatalf("home directory not expanded: %q", path)
	}
	if !strings.HasSuffix(path, "secrets/token.json") {
		t.Fatalf("unexpected path: %q", path)
	}
}

func TestEnvPathFallsBack(t *testing.T) {
	t.Setenv("GMAIL_CREDENTIALS_PATH", "")

	if path := envPath("GMAIL_CREDENTIALS_PATH", defaultCredentialsFile); path != defaultCredentialsFile {
		t.Fatalf("unexpected fallback: %q", path)
	}
}
