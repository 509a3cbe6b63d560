// Package transcript renders the agent run log into email bodies. The plain
// text form lists one entry per line; the HTML form mirrors it as a styled
// table. Both degrade to a short notice when the log is missing or empty.
package transcript

import (
	"html"
	"strings"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/runlog"
)

// Defaults for the log delivery email when the caller overrides nothing.
const (
	DefaultTo      = "pbgadekar@gmail.com"
	DefaultSubject = "MCP Hello - EAG V2 Assignment 4"
)

const (
	noticeCSS = "body{font-family:Arial,Helvetica,sans-serif;background:#f9fafb;color:#111827;padding:24px;}" +
		"h1{font-size:20px;margin-bottom:16px;}" +
		"p{font-size:14px;margin:0;}"

	tableCSS = "body{font-family:Arial,Helvetica,sans-serif;background:#f9fafb;color:#111827;padding:24px;}" +
		"h1{font-size:20px;margin-bottom:16px;}" +
		".log-table{width:100%;border-collapse:collapse;background:#fff;box-shadow:0 10px 30px rgba(15,23,42,0.08);}" +
		".log-table th{background:#1f2937;color:#f9fafb;text-align:left;padding:12px 16px;font-size:13px;letter-spacing:0.05em;text-transform:uppercase;}" +
		".log-table td{padding:12px 16px;vertical-align:top;border-bottom:1px solid #e5e7eb;font-size:13px;}" +
		".log-table tr:nth-child(even){background:#f3f4f6;}" +
		".timestamp{white-space:nowrap;font-weight:600;}" +
		".context{color:#1d4ed8;}" +
		".message{white-space:pre-wrap;font-family:'SFMono-Regular','Consolas','Liberation Mono',monospace;}"
)

// BuildPlainText creates the plaintext email body. A non-empty missingReason
// replaces the transcript entirely.
func BuildPlainText(entries []runlog.Entry, missingReason string) string {
	if missingReason != "" {
		return missingReason
	}
	if len(entries) == 0 {
		return "Agent log is empty."
	}

	lines := []string{"Agent Log Transcript", ""}
	for _, entry := range entries {
		var sb strings.Builder
		sb.WriteString("- ")
		if entry.Timestamp != "" {
			sb.WriteString(entry.Timestamp)
		} else {
			sb.WriteString("(no timestamp)")
		}
		if len(entry.Meta) > 0 {
			sb.WriteString(" | ")
			sb.WriteString(strings.Join(entry.Meta, " | "))
		}
		if entry.Message != "" {
			sb.WriteString(" -> ")
			sb.WriteString(entry.Message)
		}
		lines = append(lines, strings.TrimRight(sb.String(), " \t"))
	}
	return strings.Join(lines, "\n")
}

// BuildHTML creates the HTML email body mirroring the plaintext structure.
func BuildHTML(entries []runlog.Entry, missingReason string) string {
	if missingReason != "" {
		return notice(missingReason)
	}
	if len(entries) == 0 {
		return notice("Agent log is empty.")
	}

	var rows strings.Builder
	for _, entry := range entries {
		timestamp := html.EscapeString(entry.Timestamp)
		if timestamp == "" {
			timestamp = "&mdash;"
		}
		escaped := make([]string, len(entry.Meta))
		for i, part := range entry.Meta {
			escaped[i] = html.EscapeString(part)
		}
		context := strings.Join(escaped, "<br>")
		if context == "" {
			context = "&mdash;"
		}
		message := html.EscapeString(entry.Message)
		if message == "" {
			message = "&mdash;"
		}
		rows.WriteString("<tr>")
		rows.WriteString("<td class=\"timestamp\">" + timestamp + "</td>")
		rows.WriteString("<td class=\"context\">" + context + "</td>")
		rows.WriteString("<td class=\"message\">" + message + "</td>")
		rows.WriteString("</tr>")
	}

	return "<!DOCTYPE html>" +
		"<html><head><meta charset=\"utf-8\">" +
		"<style>" + tableCSS + "</style>" +
		"</head><body>" +
		"<h1>Agent Log Transcript</h1>" +
		"<table class=\"log-table\">" +
		"<thead><tr><th>Timestamp</th><th>Context</th><th>Message</th></tr></thead>" +
		"<tbody>" + rows.String() + "</tbody>" +
		"</table>" +
		"</body></html>"
}

func notice(text string) string {
	return "<!DOCTYPE html>" +
		"<html><head><meta charset=\"utf-8\">" +
		"<style>" + noticeCSS + "</style></head><body>" +
		"<h1>Agent Log Transcript</h1><p>" + html.EscapeString(text) + "</p></body></html>"
}

// BuildEmailContent loads the log at path and returns the plaintext and HTML
// bodies. An unreadable log produces the not-found notice in both.
func BuildEmailContent(path string) (string, string) {
	entries, err := runlog.LoadEntries(path)
	if err != nil {
		reason := "Agent log not found."
		return reason, BuildHTML(nil, reason)
	}
	return BuildPlainText(entries, ""), BuildHTML(entries, "")
}

// LogEmailPayload assembles the send_email argument map for the log delivery
// scenario.
func LogEmailPayload(to, subject, path string) map[string]any {
	plain, htmlBody := BuildEmailContent(path)
	payload := map[string]any{
		"to":      to,
		"subject": subject,
		"body":    plain,
	}
	if htmlBody != "" {
		payload["body_html"] = htmlBody
	}
	return payload
}
