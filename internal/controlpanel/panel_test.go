package controlpanel

import (
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/transport"
)

type fakeState struct {
	state atomic.Int32
}

func (s *fakeState) State() transport.State {
	return transport.State(s.state.Load())
}

func (s *fakeState) set(state transport.State) {
	s.state.Store(int32(state))
}

// drain returns every message queued on mb, stopping once it is disconnected.
func drain(mb *transport.Mailbox) []transport.Message {
	var msgs []transport.Message
	for {
		msg, err := mb.Receive()
		if err != nil {
			return msgs
		}
		msgs = append(msgs, msg)
	}
}
