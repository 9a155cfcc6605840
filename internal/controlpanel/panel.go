// Package controlpanel holds the presentation side of warble: small front ends
// that turn user input into transport messages and report the transport state.
//
// A panel owns a cloned mailbox sender and closes it when it stops. Panels never
// send Exit themselves; quitting a panel ends the presentation and the caller
// decides when the transport stops.
package controlpanel

import (
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/metrics"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/transport"
)

// StateReader reports the current transport state.
type StateReader interface {
	State() transport.State
}

// commander sends transport messages on behalf of one panel.
type commander struct {
	panel  string
	sender *transport.Sender
	logger *slog.Logger
}

func (c commander) send(msg transport.Message) error {
	err := c.sender.Send(msg)
	outcome := "sent"
	if err != nil {
		outcome = "rejected"
		c.logger.Warn("failed to send control message", "message", msg, "err", err)
	} else {
		c.logger.Debug("sent control message", "message", msg)
	}
	metrics.ControlRequestsTotal.WithLabelValues(c.panel, msg.String(), outcome).Inc()
	return err
}

func (c commander) close() {
	c.sender.Close()
}

func (c commander) quitRequested() {
	c.logger.Info("quit requested")
	metrics.ControlRequestsTotal.WithLabelValues(c.panel, "quit", "accepted").Inc()
}
