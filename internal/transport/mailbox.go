package transport

import (
	"errors"
	"sync"
)

var (
	// ErrMailboxClosed is returned by Send once the receiving side has exited,
	// or by a Sender that was already closed.
	ErrMailboxClosed = errors.New("transport mailbox closed")

	// ErrDisconnected is returned by Receive once every Sender is closed and
	// the queue is drained.
	ErrDisconnected = errors.New("transport mailbox disconnected")
)

// Mailbox is an unbounded multi-producer, single-consumer FIFO of Messages.
//
// Producers hold Sender handles. Cloning a Sender adds a producer; the mailbox is
// disconnected when the last Sender is closed. Send never blocks.
type Mailbox struct {
	mu      sync.Mutex
	ready   *sync.Cond
	queue   []Message
	senders int
	closed  bool
}

// NewMailbox returns a mailbox and its first Sender.
func NewMailbox() (*Mailbox, *Sender) {
	mb := &Mailbox{senders: 1}
	mb.ready = sync.NewCond(&mb.mu)
	return mb, &Sender{mailbox: mb}
}

// Receive blocks until a message is available. It returns ErrDisconnected when
// every Sender has been closed and no message is left, and ErrMailboxClosed
// after Close.
func (mb *Mailbox) Receive() (Message, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	for len(mb.queue) == 0 {
		if mb.closed {
			return 0, ErrMailboxClosed
		}
		if mb.senders == 0 {
			return 0, ErrDisconnected
		}
		mb.ready.Wait()
	}

	msg := mb.queue[0]
	mb.queue[0] = 0
	mb.queue = mb.queue[1:]
	return msg, nil
}

// Close tears down the receiving side. Queued messages are discarded and every
// later Send fails with ErrMailboxClosed. Returns the number of discarded messages.
func (mb *Mailbox) Close() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	dropped := len(mb.queue)
	mb.closed = true
	mb.queue = nil
	mb.ready.Broadcast()
	return dropped
}

func (mb *Mailbox) push(msg Message) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.closed {
		return ErrMailboxClosed
	}
	mb.queue = append(mb.queue, msg)
	mb.ready.Signal()
	return nil
}

// --------------------------------------------------------------------------------

// Sender is a producer handle on a Mailbox. It is safe for concurrent use.
type Sender struct {
	mailbox *Mailbox
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

// Send enqueues msg without blocking.
func (s *Sender) Send(msg Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrMailboxClosed
	}
	return s.mailbox.push(msg)
}

// Clone returns a new, independently closable Sender on the same mailbox.
func (s *Sender) Clone() (*Sender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrMailboxClosed
	}

	mb := s.mailbox
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil, ErrMailboxClosed
	}
	mb.senders++
	return &Sender{mailbox: mb}, nil
}

// Close releases this handle. When the last handle is released the receiver
// observes ErrDisconnected after draining the queue.
func (s *Sender) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		mb := s.mailbox
		mb.mu.Lock()
		mb.senders--
		mb.ready.Broadcast()
		mb.mu.Unlock()
	})
}
