package console

import (
	"bufio"
	"context"
	"io"
)

// maxLineBytes bounds a single line of operator input.
const maxLineBytes = 1 << 20

// LineReader reads lines on its own goroutine so a blocked terminal read
// never holds up anything else. Lines that are still being typed when the
// consumer stops listening are discarded.
type LineReader struct {
	lines chan string
	err   error
}

// NewLineReader starts reading r immediately. Once ctx is done no more
// lines are delivered, Lines is closed, and the reading goroutine exits as
// soon as its pending read returns.
func NewLineReader(ctx context.Context, r io.Reader) *LineReader {
	l := &LineReader{lines: make(chan string)}
	go l.run(ctx, r)
	return l
}

// Lines delivers one line per receive and is closed at end of input.
func (l *LineReader) Lines() <-chan string {
	return l.lines
}

// Err returns the read error, if any. It is valid once Lines is closed.
// Stopping through the context is not an error.
func (l *LineReader) Err() error {
	return l.err
}

func (l *LineReader) run(ctx context.Context, r io.Reader) {
	defer close(l.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		select {
		case l.lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	l.err = scanner.Err()
}
