package controlpanel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/transport"
	"golang.org/x/term"
)

const terminalHelp = "p: play   s/space: pause   q: quit"

const ctrlC = 0x03

// Terminal reads single key presses from a terminal.
// When in is an interactive terminal it is switched to raw mode while Run is active.
type Terminal struct {
	commander
	in    io.Reader
	out   io.Writer
	state StateReader
}

// NewTerminal takes ownership of sender.
func NewTerminal(in io.Reader, out io.Writer, sender *transport.Sender, state StateReader, logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Terminal{
		commander: commander{panel: "terminal", sender: sender, logger: logger.With("panel", "terminal")},
		in:        in,
		out:       out,
		state:     state,
	}
}

// Run reads keys until q, Ctrl-C, end of input or ctx is done.
// The sender is closed when Run returns.
func (t *Terminal) Run(ctx context.Context) error {
	defer t.close()

	if f, ok := t.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		oldState, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer term.Restore(int(f.Fd()), oldState)
	}

	t.printf("%s\r\n", terminalHelp)
	t.printState()

	// Reads from a terminal cannot be interrupted, so the reader outlives Run
	// until the next key press or end of input.
	keys := make(chan byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := t.in.Read(buf)
			if n == 1 {
				select {
				case keys <- buf[0]:
				case <-stop:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read key: %w", err)
		case key := <-keys:
			if quit := t.handleKey(key); quit {
				return nil
			}
		}
	}
}

func (t *Terminal) handleKey(key byte) (quit bool) {
	var msg transport.Message
	switch key {
	case 'p', 'P':
		msg = transport.Play
	case 's', 'S', ' ':
		msg = transport.Pause
	case 'q', 'Q', ctrlC:
		t.quitRequested()
		return true
	default:
		return false
	}

	if err := t.send(msg); err != nil {
		t.printf("%s failed: %v\r\n", msg, err)
		return false
	}
	t.printf("> %s\r\n", msg)
	return false
}

func (t *Terminal) printState() {
	if t.state == nil {
		return
	}
	t.printf("state: %s\r\n", t.state.State())
}

func (t *Terminal) printf(format string, args ...any) {
	if t.out == nil {
		return
	}
	fmt.Fprintf(t.out, format, args...)
}
