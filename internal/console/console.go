// Package console implements every access capability on a terminal.
//
// It is the bench setup for Doorman: device addresses are typed (or piped)
// one per line to simulate detection, approvals are answered y/N, the door
// "opens" by printing a line and Enter locks it again.
//
// All adapters built from one Console share its input. A single goroutine
// reads lines so that prompts with a timeout can give up without losing the
// reader.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Console owns a line-oriented input and an output for prompts.
type Console struct {
	lines chan string
	done  chan struct{}

	outMu sync.Mutex
	out   io.Writer

	errMu sync.Mutex
	err   error
}

// New starts reading lines from in. Prompts are written to out.
func New(in io.Reader, out io.Writer) *Console {
	c := &Console{
		lines: make(chan string),
		done:  make(chan struct{}),
		out:   out,
	}
	go c.read(in)
	return c
}

func (c *Console) read(in io.Reader) {
	defer close(c.done)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}

	c.errMu.Lock()
	c.err = scanner.Err()
	c.errMu.Unlock()
}

// ReadLine waits for the next input line.
// It returns ErrEOF once the input is exhausted.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-c.lines:
		return line, nil
	case <-c.done:
		c.errMu.Lock()
		err := c.err
		c.errMu.Unlock()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrEOF, err)
		}
		return "", ErrEOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Printf writes a prompt line.
func (c *Console) Printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...) //nolint:errcheck // terminal output is best effort
}
