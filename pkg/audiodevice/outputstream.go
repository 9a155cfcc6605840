package audiodevice

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// SampleSource produces one mono sample per call.
// It is only ever called from the real-time fill callback.
type SampleSource interface {
	Next() float32
}

const errorQueueLength = 16

type openOptions struct {
	logger       *slog.Logger
	errorHandler func(error)
}

type OpenOption func(*openOptions)

// WithLogger sets the parent logger of the stream. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) OpenOption {
	return func(o *openOptions) { o.logger = logger }
}

// WithErrorHandler is called, after logging, for every runtime stream error.
// It runs on the stream's error goroutine, never on the real-time thread.
func WithErrorHandler(fn func(error)) OpenOption {
	return func(o *openOptions) { o.errorHandler = fn }
}

// OutputStream is an open stream on an output device that plays a SampleSource.
//
// The source is owned by the stream's fill callback from the moment Open
// returns. Play, Pause and Close are meant to be driven by a single controller.
type OutputStream struct {
	logger *slog.Logger
	uuid   uuid.UUID

	deviceName string
	config     StreamConfig
	stream     Stream
	errors     *errorReporter

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open builds an output stream on device with a negotiated config.
// The stream starts paused. For every requested frame exactly one sample is
// pulled from source and written to each channel of that frame.
func Open(device Device, config StreamConfig, source SampleSource, opts ...OpenOption) (*OutputStream, error) {
	options := openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	id := uuid.New()
	logger := options.logger.With(
		"output stream uuid", id,
		"device", device.Name(),
	)

	if config.Format != SampleFormatF32 {
		return nil, &UnsupportedFormatError{Device: device.Name(), Format: config.Format}
	}
	if config.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrNoSupportedConfig, config.Channels)
	}

	reporter := newErrorReporter(logger, options.errorHandler)
	stream, err := device.BuildOutputStream(config, newFillFunc(source, config.Channels), reporter.report)
	if err != nil {
		reporter.stop()
		logger.Error("failed to build output stream", "err", err)
		return nil, fmt.Errorf("building output stream on '%s': %w", device.Name(), err)
	}

	logger.Info("opened output stream",
		"sampleRate", config.SampleRate,
		"channels", config.Channels,
		"bufferFrames", config.BufferFrames,
	)

	return &OutputStream{
		logger:     logger,
		uuid:       id,
		deviceName: device.Name(),
		config:     config,
		stream:     stream,
		errors:     reporter,
	}, nil
}

// newFillFunc copies each sample of source into every channel of a frame.
// A trailing partial frame is zeroed.
func newFillFunc(source SampleSource, channels int) FillFunc {
	return func(out []float32) {
		i := 0
		for ; i+channels <= len(out); i += channels {
			v := source.Next()
			for c := 0; c < channels; c++ {
				out[i+c] = v
			}
		}
		for ; i < len(out); i++ {
			out[i] = 0
		}
	}
}

func (s *OutputStream) Play() error {
	if s.closed.Load() {
		return ErrStreamClosed
	}
	if err := s.stream.Play(); err != nil {
		return fmt.Errorf("play output stream: %w", err)
	}
	s.logger.Debug("output stream playing")
	return nil
}

func (s *OutputStream) Pause() error {
	if s.closed.Load() {
		return ErrStreamClosed
	}
	if err := s.stream.Pause(); err != nil {
		return fmt.Errorf("pause output stream: %w", err)
	}
	s.logger.Debug("output stream paused")
	return nil
}

// Close stops the stream and releases the device. Later calls return the
// result of the first.
func (s *OutputStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.stream.Close()
		s.errors.stop()
		if dropped := s.errors.dropped.Load(); dropped > 0 {
			s.logger.Warn("output stream errors were dropped, error queue full", "dropped", dropped)
		}
		if s.closeErr != nil {
			s.logger.Error("error closing output stream", "err", s.closeErr)
		} else {
			s.logger.Info("output stream closed")
		}
	})
	return s.closeErr
}

func (s *OutputStream) Config() StreamConfig {
	return s.config
}

func (s *OutputStream) DeviceName() string {
	return s.deviceName
}

func (s *OutputStream) ID() uuid.UUID {
	return s.uuid
}

// DroppedErrors counts runtime errors discarded because the error queue was full.
func (s *OutputStream) DroppedErrors() uint64 {
	return s.errors.dropped.Load()
}

// --------------------------------------------------------------------------------

// errorReporter moves runtime errors off the real-time thread. report never
// blocks; when the queue is full the error is counted and dropped.
type errorReporter struct {
	logger  *slog.Logger
	handler func(error)

	queue   chan error
	done    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

func newErrorReporter(logger *slog.Logger, handler func(error)) *errorReporter {
	r := &errorReporter{
		logger:  logger,
		handler: handler,
		queue:   make(chan error, errorQueueLength),
		done:    make(chan struct{}),
	}
	r.stopped.Add(1)
	go r.run()
	return r
}

func (r *errorReporter) report(err error) {
	if err == nil {
		return
	}
	select {
	case <-r.done:
		return
	default:
	}
	select {
	case r.queue <- err:
	default:
		r.dropped.Add(1)
	}
}

func (r *errorReporter) run() {
	defer r.stopped.Done()
	for {
		select {
		case err := <-r.queue:
			r.handle(err)
		case <-r.done:
			// Drain what was reported before the stream closed.
			for {
				select {
				case err := <-r.queue:
					r.handle(err)
				default:
					return
				}
			}
		}
	}
}

func (r *errorReporter) handle(err error) {
	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		err = &StreamError{Backend: "unknown", Err: err}
	}
	r.logger.Warn("an error occurred on the output audio stream", "err", err)
	if r.handler != nil {
		r.handler(err)
	}
}

func (r *errorReporter) stop() {
	r.once.Do(func() {
		close(r.done)
		r.stopped.Wait()
	})
}
