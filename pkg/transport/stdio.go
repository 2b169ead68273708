package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/mcpserve/mcpserve/pkg/logging"
	"github.com/mcpserve/mcpserve/pkg/router"
)

// Stdio serves one connection over a line-delimited byte stream, one JSON
// envelope per line. The conventional streams are stdin and stdout, with
// all diagnostics on stderr; tests inject pipes instead.
type Stdio struct {
	r      *router.Router
	reader io.Reader
	writer io.Writer
	logger logging.Logger

	wmu sync.Mutex
	buf *bufio.Writer
}

// StdioOption configures a Stdio transport.
type StdioOption func(*Stdio)

// WithStdioStreams overrides the input and output streams.
func WithStdioStreams(r io.Reader, w io.Writer) StdioOption {
	return func(t *Stdio) {
		t.reader = r
		t.writer = w
	}
}

// WithStdioLogger sets the logger.
func WithStdioLogger(l logging.Logger) StdioOption {
	return func(t *Stdio) { t.logger = l }
}

// NewStdio creates a stdio transport bound to the router. Defaults are
// os.Stdin and os.Stdout.
func NewStdio(r *router.Router, opts ...StdioOption) *Stdio {
	t := &Stdio{
		r:      r,
		reader: os.Stdin,
		writer: os.Stdout,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.buf = bufio.NewWriter(t.writer)
	return t
}

// Run reads envelopes until EOF or context cancellation. A malformed line
// yields an error envelope on the output and the loop continues; only I/O
// failure or cancellation ends the connection.
func (t *Stdio) Run(ctx context.Context) error {
	conn := t.r.Open(t.send)
	defer conn.Close()

	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(t.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
		for scanner.Scan() {
			data := make([]byte, len(scanner.Bytes()))
			copy(data, scanner.Bytes())
			select {
			case lines <- data:
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	t.logger.Info("stdio transport running")
	for {
		select {
		case data, ok := <-lines:
			if !ok {
				// EOF ends the session cleanly; a scan failure does not.
				err := <-errc
				if err != nil {
					t.logger.Error("stdio read failed", logging.Err(err))
				}
				return err
			}
			if len(bytes.TrimSpace(data)) == 0 {
				continue
			}
			conn.Handle(ctx, data)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// send writes one envelope followed by a newline and flushes. The mutex
// keeps protocol frames from interleaving with each other if a caller
// writes through the same stream.
func (t *Stdio) send(_ context.Context, data []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	if _, err := t.buf.Write(data); err != nil {
		return err
	}
	if err := t.buf.WriteByte('\n'); err != nil {
		return err
	}
	return t.buf.Flush()
}
