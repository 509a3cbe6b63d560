package runlog

import (
	"fmt"
	"os"
	"strings"
)

// Entry is one parsed log line. The grammar is a sequence of leading
// bracketed segments followed by the free-form message: the first segment is
// the timestamp, the remainder are metadata such as the channel and run id.
type Entry struct {
	Timestamp string
	Meta      []string
	Message   string
}

// ParseLine splits a single log line into its entry. Blank lines report
// ok=false. An unterminated bracket ends the segment scan and the remainder
// becomes part of the message.
func ParseLine(line string) (Entry, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Entry{}, false
	}

	var segments []string
	rest := trimmed
	for strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			break
		}
		segments = append(segments, rest[1:end])
		rest = strings.TrimLeft(rest[end+1:], " \t")
	}

	entry := Entry{Message: strings.TrimSpace(rest)}
	if len(segments) > 0 {
		entry.Timestamp = segments[0]
		entry.Meta = segments[1:]
	}
	return entry, true
}

// LoadEntries reads the log file at path and parses every non-blank line.
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runlog: read log: %w", err)
	}

	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		if entry, ok := ParseLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
