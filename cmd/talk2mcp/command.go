package main

import (
	"errors"
	"strings"
)

// splitCommandLine tokenizes a server command the way a shell would, honoring
// single quotes, double quotes and backslash escapes.
func splitCommandLine(input string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		escape  bool
	)
	for _, r := range input {
		switch {
		case escape:
			current.WriteRune(r)
			escape = false
		case r == '\\':
			escape = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
		case r == ' ' || r == '\t' || r == '\n':
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if escape {
		return nil, errors.New("unterminated escape sequence in server command")
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote in server command")
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args, nil
}
