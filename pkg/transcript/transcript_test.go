package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/runlog"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestLogEmailPayloadWithEntries(t *testing.T) {
	path := writeLog(t,
		"[2024-05-01T10:00:00.000Z][client][run_id=abcd1234] iteration=1 user_message=Hello",
		"[2024-05-01T10:00:00.100Z][server][tool=send_email] EMAIL_SENT: to=demo@example.com, id=123",
	)

	payload := LogEmailPayload(DefaultTo, DefaultSubject, path)

	if payload["to"] != DefaultTo {
		t.Fatalf("unexpected to: %v", payload["to"])
	}
	if payload["subject"] != DefaultSubject {
		t.Fatalf("unexpected subject: %v", payload["subject"])
	}

	body, _ := payload["body"].(string)
	if !strings.Contains(body, "Agent Log Transcript") {
		t.Fatalf("body missing header:\n%s", body)
	}
	if !strings.Contains(body, "- 2024-05-01T10:00:00.000Z | client | run_id=abcd1234 -> iteration=1 user_message=Hello") {
		t.Fatalf("body missing first entry:\n%s", body)
	}
	if !strings.Contains(body, "EMAIL_SENT") {
		t.Fatalf("body missing second entry:\n%s", body)
	}

	html, _ := payload["body_html"].(string)
	if html == "" {
		t.Fatalf("expected an HTML body")
	}
	if !strings.Contains(html, "<table") {
		t.Fatalf("HTML body missing table:\n%s", html)
	}
	if !strings.Contains(html, "demo@example.com") {
		t.Fatalf("HTML body missing entry text:\n%s", html)
	}
}

func TestLogEmailPayloadMissingLog(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.log")

	payload := LogEmailPayload(DefaultTo, DefaultSubject, missing)

	if payload["body"] != "Agent log not found." {
		t.Fatalf("unexpected body: %v", payload["body"])
	}
	html, _ := payload["body_html"].(string)
	if !strings.Contains(html, "Agent log not found.") {
		t.Fatalf("HTML body missing notice:\n%s", html)
	}
}

func TestBuildPlainTextEmptyLog(t *testing.T) {
	if got := BuildPlainText(nil, ""); got != "Agent log is empty." {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestBuildPlainTextLabelsMissingTimestamp(t *testing.T) {
	entries := []runlog.Entry{{Message: "plain message"}}
	body := BuildPlainText(entries, "")
	if !strings.Contains(body, "- (no timestamp) -> plain message") {
		t.Fatalf("unexpected body:\n%s", body)
	}
}

func TestBuildPlainTextMissingReasonWins(t *testing.T) {
	entries := []runlog.Entry{{Timestamp: "ts", Message: "hidden"}}
	if got := BuildPlainText(entries, "Agent log not found."); got != "Agent log not found." {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestBuildHTMLEscapesContent(t *testing.T) {
	entries := []runlog.Entry{{
		Timestamp: "2024-05-01T10:00:00.000Z",
		Meta:      []string{"client"},
		Message:   `<script>alert("x")</script>`,
	}}
	html := BuildHTML(entries, "")
	if strings.Contains(html, "<script>") {
		t.Fatalf("message was not escaped:\n%s", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Fatalf("escaped message missing:\n%s", html)
	}
}

func TestBuildHTMLEmptyCellsUseDashes(t *testing.T) {
	entries := []runlog.Entry{{Timestamp: "2024-05-01T10:00:00.000Z"}}
	html := BuildHTML(entries, "")
	if !strings.Contains(html, "&mdash;") {
		t.Fatalf("expected placeholder dashes:\n%s", html)
	}
}

func TestBuildHTMLEmptyLogNotice(t *testing.T) {
	html := BuildHTML(nil, "")
	if !strings.Contains(html, "Agent log is empty.") {
		t.Fatalf("unexpected notice:\n%s", html)
	}
	if strings.Contains(html, "<table") {
		t.Fatalf("empty log should not render a table:\n%s", html)
	}
}

func TestBuildEmailContentRoundTrip(t *testing.T) {
	path := writeLog(t, "[ts][client] hello")
	plain, html := BuildEmailContent(path)
	if !strings.Contains(plain, "- ts | client -> hello") {
		t.Fatalf("unexpected plain body:\n%s", plain)
	}
	if !strings.Contains(html, "hello") {
		t.Fatalf("unexpected HTML body:\n%s", html)
	}
}
