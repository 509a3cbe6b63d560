package mcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Content-Length framing shared by the client transport and the server loop.
// Each message is a header block terminated by a blank line, followed by
// exactly Content-Length bytes of JSON.

func writeFrame(w io.Writer, payload []byte) error {
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			value := strings.TrimSpace(line[len("content-length:"):])
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("mcp: invalid content length: %w", err)
			}
			length = parsed
		}
	}
	if length < 0 {
		return nil, errors.New("mcp: missing Content-Length header")
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

type stdioTransport struct {
	reader       *bufio.Reader
	writer       io.Writer
	stdinCloser  io.Closer
	stdoutCloser io.Closer
	writeMu      sync.Mutex
}

func newStdioTransport(stdin io.WriteCloser, stdout io.ReadCloser) Transport {
	return &stdioTransport{
		reader:       bufio.NewReader(stdout),
		writer:       stdin,
		stdinCloser:  stdin,
		stdoutCloser: stdout,
	}
}

func (t *stdioTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return writeFrame(t.writer, payload)
}

func (t *stdioTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return readFrame(t.reader)
}

func (t *stdioTransport) Close() error {
	var err error
	if t.stdinCloser != nil {
		if e := t.stdinCloser.Close(); e != nil {
			err = e
		}
	}
	if t.stdoutCloser != nil {
		if e := t.stdoutCloser.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
