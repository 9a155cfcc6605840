package controlpanel

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/transport"
)

func TestTerminalKeys(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []transport.Message
	}{
		{"play pause play", "psp", []transport.Message{transport.Play, transport.Pause, transport.Play}},
		{"space pauses", "p ", []transport.Message{transport.Play, transport.Pause}},
		{"upper case", "PS", []transport.Message{transport.Play, transport.Pause}},
		{"unknown keys ignored", "xpz\n", []transport.Message{transport.Play}},
		{"q stops reading", "pqp", []transport.Message{transport.Play}},
		{"ctrl-c stops reading", "p\x03s", []transport.Message{transport.Play}},
		{"end of input", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb, tx := transport.NewMailbox()
			var out bytes.Buffer
			terminal := NewTerminal(strings.NewReader(tt.input), &out, tx, &fakeState{}, nil)

			if err := terminal.Run(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// Run closed the only sender, so the mailbox drains and disconnects.
			got := drain(mb)
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if !strings.Contains(out.String(), terminalHelp) {
				t.Errorf("expected help in output, got %q", out.String())
			}
		})
	}
}

func TestTerminalNeverSendsExit(t *testing.T) {
	mb, tx := transport.NewMailbox()
	terminal := NewTerminal(strings.NewReader("pq"), io.Discard, tx, nil, nil)
	if err := terminal.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slices.Contains(drain(mb), transport.Exit) {
		t.Error("terminal must not send exit")
	}
}

func TestTerminalStopsOnContext(t *testing.T) {
	mb, tx := transport.NewMailbox()
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	terminal := NewTerminal(r, io.Discard, tx, &fakeState{}, nil)
	result := make(chan error, 1)
	go func() { result <- terminal.Run(ctx) }()

	if _, err := w.Write([]byte("p")); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}
	msg, err := mb.Receive()
	if err != nil || msg != transport.Play {
		t.Fatalf("expected play, got %v, %v", msg, err)
	}

	cancel()
	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("terminal did not stop")
	}
	if _, err := mb.Receive(); err == nil {
		t.Error("expected the mailbox to disconnect once the terminal stopped")
	}
}

func TestTerminalReportsClosedMailbox(t *testing.T) {
	mb, tx := transport.NewMailbox()
	mb.Close()

	var out bytes.Buffer
	terminal := NewTerminal(strings.NewReader("p"), &out, tx, &fakeState{}, nil)
	if err := terminal.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "play failed") {
		t.Errorf("expected failure to be reported, got %q", out.String())
	}
}
