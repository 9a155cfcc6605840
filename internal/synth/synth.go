package synth

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/metrics"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/transport"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/oscillator"
)

type Config struct {
	Params oscillator.Params

	// Frames per device callback. Zero lets the backend decide.
	BufferFrames int
}

// Synth is the modulated tone playing on the default output device of a host,
// driven by a transport controller.
type Synth struct {
	logger     *slog.Logger
	stream     *audiodevice.OutputStream
	controller *transport.Controller
}

// Open builds the sample stream, negotiates a float32 configuration on the host's
// default output device and opens a paused output stream playing it.
//
// Every error returned is a setup failure: a *oscillator.ConfigurationError, or
// an error matching audiodevice.ErrNoOutputDevice, ErrNoSupportedConfig or
// ErrUnsupportedFormat.
func Open(host audiodevice.Host, config Config, logger *slog.Logger, opts ...transport.Option) (*Synth, error) {
	if logger == nil {
		logger = slog.Default()
	}

	source, err := oscillator.NewStream(config.Params)
	if err != nil {
		recordSetupFailure(err)
		return nil, err
	}

	device, streamConfig, err := audiodevice.Negotiate(host, config.Params.SampleRate, logger)
	if err != nil {
		recordSetupFailure(err)
		return nil, err
	}
	streamConfig.BufferFrames = config.BufferFrames

	// From here on source belongs to the device callback.
	stream, err := audiodevice.Open(device, streamConfig, source,
		audiodevice.WithLogger(logger),
		audiodevice.WithErrorHandler(func(error) { metrics.DeviceStreamErrorsTotal.Inc() }),
	)
	if err != nil {
		recordSetupFailure(err)
		return nil, err
	}

	logger.Info("tone ready",
		"device", stream.DeviceName(),
		"sampleRate", streamConfig.SampleRate,
		"carrierHz", config.Params.CarrierHz,
		"scale", config.Params.Scale,
	)

	return &Synth{
		logger:     logger,
		stream:     stream,
		controller: transport.NewController(stream, logger, opts...),
	}, nil
}

// Run drives the output stream from mb until Exit, or until every sender of mb
// is closed. The output stream is released before Run returns.
func (s *Synth) Run(mb *transport.Mailbox) error {
	err := s.controller.Run(mb)
	if dropped := s.stream.DroppedErrors(); dropped > 0 {
		metrics.DeviceStreamErrorsDroppedTotal.Add(float64(dropped))
	}
	return err
}

// State is the current transport state.
func (s *Synth) State() transport.State {
	return s.controller.State()
}

func (s *Synth) Controller() *transport.Controller {
	return s.controller
}

func (s *Synth) Stream() *audiodevice.OutputStream {
	return s.stream
}

// Run opens the tone on host and drives it from mb until Exit.
// It returns nil on a clean exit and the setup error otherwise.
func Run(host audiodevice.Host, config Config, mb *transport.Mailbox, logger *slog.Logger) error {
	s, err := Open(host, config, logger)
	if err != nil {
		// Nothing will consume the mailbox.
		mb.Close()
		return fmt.Errorf("failed to open tone: %w", err)
	}
	return s.Run(mb)
}

func recordSetupFailure(err error) {
	var configErr *oscillator.ConfigurationError
	reason := "other"
	switch {
	case errors.As(err, &configErr):
		reason = "configuration"
	case errors.Is(err, audiodevice.ErrNoOutputDevice):
		reason = "no_output_device"
	case errors.Is(err, audiodevice.ErrNoSupportedConfig):
		reason = "no_supported_config"
	case errors.Is(err, audiodevice.ErrUnsupportedFormat):
		reason = "unsupported_format"
	}
	metrics.SetupFailuresTotal.WithLabelValues(reason).Inc()
}
