package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/metrics"
)

var ErrControllerTerminated = errors.New("transport controller already terminated")

// Device is the output the controller drives. Play and Pause must tolerate
// repeats; Close releases the hardware.
type Device interface {
	Play() error
	Pause() error
	Close() error
}

// TransitionFunc observes state changes. It runs on the controller goroutine.
type TransitionFunc func(from, to State, msg Message)

type Option func(*Controller)

// OnTransition registers fn to be called after every state change.
func OnTransition(fn TransitionFunc) Option {
	return func(c *Controller) { c.onTransition = fn }
}

// Controller applies transport messages to a Device, one at a time, in the order
// they were sent. It is the only writer of the transport state.
type Controller struct {
	logger       *slog.Logger
	device       Device
	onTransition TransitionFunc

	state   atomic.Int32
	running atomic.Bool
	done    chan struct{}
}

func NewController(device Device, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		logger: logger.With("component", "transport"),
		device: device,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	metrics.TransportState.Set(float64(Idle))
	return c
}

// State returns the current transport state. Safe to call from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Done is closed once Run has returned and the device is released.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the controller has terminated or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run blocks receiving from mb until Exit is received or every sender is gone,
// then closes the device and the mailbox. Device errors during play or pause
// are logged and never end the loop.
//
// Run may only be called once.
func (c *Controller) Run(mb *Mailbox) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrControllerTerminated
	}
	defer close(c.done)

	c.logger.Debug("transport controller started", "state", c.State().String())
	for {
		msg, err := mb.Receive()
		if err != nil {
			// A disconnected mailbox is an implicit exit.
			c.logger.Info("control mailbox disconnected, exiting", "reason", err)
			c.terminate(mb, Exit)
			return nil
		}

		metrics.TransportMessagesTotal.WithLabelValues(msg.String()).Inc()
		c.logger.Debug("received control message", "message", msg.String(), "state", c.State().String())

		if msg == Exit {
			c.terminate(mb, msg)
			return nil
		}
		c.apply(msg)
	}
}

func (c *Controller) apply(msg Message) {
	current := c.State()

	var (
		next      State
		operation func() error
	)
	switch msg {
	case Play:
		next, operation = Playing, c.device.Play
	case Pause:
		next, operation = Paused, c.device.Pause
	default:
		c.logger.Warn("ignoring unknown control message", "message", int(msg))
		return
	}

	if current == next {
		return
	}

	if err := operation(); err != nil {
		metrics.TransportDeviceErrorsTotal.WithLabelValues(msg.String()).Inc()
		c.logger.Warn("output device rejected transport change",
			"message", msg.String(),
			"state", current.String(),
			"err", err,
		)
		return
	}
	c.transition(current, next, msg)
}

func (c *Controller) terminate(mb *Mailbox, msg Message) {
	if err := c.device.Close(); err != nil {
		metrics.TransportDeviceErrorsTotal.WithLabelValues("close").Inc()
		c.logger.Warn("error releasing output device", "err", err)
	}
	if dropped := mb.Close(); dropped > 0 {
		c.logger.Warn("discarded control messages sent after exit", "count", dropped)
	}
	c.transition(c.State(), Terminated, msg)
	c.logger.Info("transport controller terminated")
}

func (c *Controller) transition(from, to State, msg Message) {
	c.state.Store(int32(to))
	metrics.TransportState.Set(float64(to))
	metrics.TransportTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
	c.logger.Info("transport state changed", "from", from.String(), "to", to.String())
	if c.onTransition != nil {
		c.onTransition(from, to, msg)
	}
}
