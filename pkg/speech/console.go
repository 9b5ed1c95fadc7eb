package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ConsoleListener reads one utterance per line.
type ConsoleListener struct {
	r      io.Reader
	prompt io.Writer

	once  sync.Once
	lines chan string
	err   error
}

// NewConsoleListener reads lines from r. When prompt is non-nil, "You: "
// is written to it before each read.
func NewConsoleListener(r io.Reader, prompt io.Writer) *ConsoleListener {
	return &ConsoleListener{r: r, prompt: prompt}
}

// Listen returns the next line, lowercased and trimmed. Typed text is kept
// as is otherwise; only transcripts carry annotations worth stripping. It
// returns ErrClosed at end of input.
func (c *ConsoleListener) Listen(ctx context.Context) (string, error) {
	c.once.Do(c.start)

	if c.prompt != nil {
		fmt.Fprint(c.prompt, "You: ")
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			if c.err != nil {
				return "", fmt.Errorf("speech: read console: %w", c.err)
			}
			return "", ErrClosed
		}
		return strings.ToLower(strings.TrimSpace(line)), nil
	}
}

// start reads in the background so Listen can honour ctx; a blocked
// terminal read cannot be interrupted.
func (c *ConsoleListener) start() {
	c.lines = make(chan string)
	go func() {
		defer close(c.lines)
		scanner := bufio.NewScanner(c.r)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
		c.err = scanner.Err()
	}()
}

// ConsoleSpeaker prints "Name: text" lines.
type ConsoleSpeaker struct {
	mu   sync.Mutex
	w    io.Writer
	name string
}

// NewConsoleSpeaker writes to w, prefixing each line with name.
func NewConsoleSpeaker(w io.Writer, name string) *ConsoleSpeaker {
	return &ConsoleSpeaker{w: w, name: name}
}

// Speak writes one line.
func (c *ConsoleSpeaker) Speak(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "%s: %s\n", c.name, text)
	return err
}
