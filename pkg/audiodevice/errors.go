package audiodevice

import (
	"errors"
	"fmt"
)

var (
	ErrNoOutputDevice    = errors.New("no default output device available")
	ErrNoSupportedConfig = errors.New("no supported output configuration")
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	ErrStreamClosed      = errors.New("output stream closed")
)

// UnsupportedFormatError is returned when a device only offers sample encodings
// other than 32-bit float. Samples are never converted to another encoding.
type UnsupportedFormatError struct {
	Device string
	Format SampleFormat
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported sample format '%s' on device '%s'", e.Format, e.Device)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// StreamError is a runtime error reported by a running output stream,
// e.g. an underflow or a driver hiccup. It never stops the stream by itself.
type StreamError struct {
	Backend string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s output stream: %v", e.Backend, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
