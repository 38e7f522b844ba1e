// Package interactive provides the terminal implementation of the prompt,
// notification, progress and opener surfaces.
package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/skratchdot/open-golang/open"
	"golang.org/x/term"
)

// Error variables for terminal conditions.
var (
	ErrNotInteractive = errors.New("stdin is not a terminal")
	ErrInputClosed    = errors.New("input closed")
)

// Terminal drives update prompts on a text terminal.
type Terminal struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	tty         bool
	open        func(url string) error

	readOnce sync.Once
	lines    chan string

	mu       sync.Mutex
	progress progressState
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithInteractive overrides TTY detection for prompts.
func WithInteractive(interactive bool) Option {
	return func(t *Terminal) {
		t.interactive = interactive
	}
}

// WithOpener replaces the system URL opener.
func WithOpener(fn func(url string) error) Option {
	return func(t *Terminal) {
		if fn != nil {
			t.open = fn
		}
	}
}

// NewTerminal creates a terminal on stdin/stdout.
func NewTerminal(opts ...Option) *Terminal {
	t := NewTerminalWithIO(os.Stdin, os.Stdout, opts...)
	t.interactive = IsTerminal()
	t.tty = term.IsTerminal(int(os.Stdout.Fd()))
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTerminalWithIO creates a terminal with custom input/output (for testing).
// Prompts are enabled and progress is rendered as plain lines.
func NewTerminalWithIO(in io.Reader, out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		in:          in,
		out:         out,
		interactive: true,
		open:        open.Run,
		lines:       make(chan string),
	}
	t.progress.reset()
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Interactive reports whether prompts can be shown.
func (t *Terminal) Interactive() bool {
	return t.interactive
}

// ShowChoice prints a numbered menu and waits for a valid answer.
// Options may be chosen by number or by a unique label prefix.
func (t *Terminal) ShowChoice(ctx context.Context, title, message string, options []string) (int, error) {
	if !t.interactive {
		return 0, ErrNotInteractive
	}
	if len(options) == 0 {
		return 0, fmt.Errorf("no options for %q", title)
	}

	t.printf("\n%s\n", title)
	if message != "" {
		t.printf("%s\n", message)
	}
	t.printf("\n")
	for i, opt := range options {
		t.printf("  %d) %s\n", i+1, opt)
	}

	for {
		t.printf("Choose [1-%d]: ", len(options))

		line, err := t.readLine(ctx)
		if err != nil {
			return 0, err
		}
		if choice, ok := matchChoice(line, options); ok {
			return choice, nil
		}
		t.printf("Invalid choice %q.\n", strings.TrimSpace(line))
	}
}

// Confirm asks a yes/no question. Anything but y/yes, or closed input,
// counts as no.
func (t *Terminal) Confirm(ctx context.Context, question string) bool {
	if !t.interactive {
		return false
	}
	t.printf("%s [y/n] ", question)
	line, err := t.readLine(ctx)
	if err != nil {
		return false
	}
	input := strings.ToLower(strings.TrimSpace(line))
	return input == "y" || input == "yes"
}

// Notify prints a one line notice.
func (t *Terminal) Notify(title, body string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endBarLocked()
	_, _ = fmt.Fprintf(t.out, "[%s] %s\n", title, body)
}

// OpenExternal opens url with the system handler.
func (t *Terminal) OpenExternal(url string) error {
	t.printf("Opening %s\n", url)
	if err := t.open(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// readLine waits for the next input line. A single reader goroutine owns
// the input so an abandoned prompt does not lose the following answer.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	t.readOnce.Do(func() {
		go func() {
			scanner := bufio.NewScanner(t.in)
			for scanner.Scan() {
				t.lines <- scanner.Text()
			}
			close(t.lines)
		}()
	})

	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", ErrInputClosed
		}
		return line, nil
	case <-ctx.Done():
		t.printf("\n")
		return "", ctx.Err()
	}
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endBarLocked()
	_, _ = fmt.Fprintf(t.out, format, args...)
}

// matchChoice accepts a 1-based index or a unique case-insensitive label prefix.
func matchChoice(input string, options []string) (int, bool) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1, true
		}
		return 0, false
	}

	match := -1
	for i, opt := range options {
		if strings.HasPrefix(strings.ToLower(opt), input) {
			if match >= 0 {
				return 0, false
			}
			match = i
		}
	}
	if match < 0 {
		return 0, false
	}
	return match, true
}
