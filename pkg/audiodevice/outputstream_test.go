package audiodevice_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice/device"
)

// counter yields 1, 2, 3, ...
type counter struct{ n float32 }

func (c *counter) Next() float32 {
	c.n++
	return c.n
}

func openDummy(t *testing.T, config audiodevice.StreamConfig, opts ...audiodevice.OpenOption) (*audiodevice.OutputStream, *device.DummyOutputStream, *counter) {
	t.Helper()
	speakers := device.NewDummyOutputDevice("speakers", device.DummyCapture(1<<16))
	source := &counter{}

	stream, err := audiodevice.Open(speakers, config, source, opts...)
	if err != nil {
		t.Fatalf("unexpected error opening stream: %v", err)
	}
	t.Cleanup(func() { stream.Close() })
	return stream, speakers.Streams()[0], source
}

func TestOpenStartsPaused(t *testing.T) {
	_, dummy, source := openDummy(t, audiodevice.StreamConfig{Channels: 1, SampleRate: 48000, Format: audiodevice.SampleFormatF32, BufferFrames: 64})

	if dummy.Tick() {
		t.Fatal("expected a freshly opened stream not to pull audio")
	}
	if source.n != 0 {
		t.Errorf("expected no samples pulled, got %v", source.n)
	}
}

func TestFillWritesOneSamplePerFrame(t *testing.T) {
	stream, dummy, source := openDummy(t, audiodevice.StreamConfig{Channels: 2, SampleRate: 48000, Format: audiodevice.SampleFormatF32, BufferFrames: 64})

	if err := stream.Play(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dummy.Tick()
	dummy.Tick()

	if source.n != 128 {
		t.Fatalf("expected 128 samples pulled for 128 frames, got %v", source.n)
	}
	data := dummy.Captured().Data
	if len(data) != 256 {
		t.Fatalf("expected 256 interleaved values, got %d", len(data))
	}
	for frame := 0; frame < 128; frame++ {
		want := float32(frame + 1)
		if data[2*frame] != want || data[2*frame+1] != want {
			t.Fatalf("frame %d: expected %v on both channels, got %v %v", frame, want, data[2*frame], data[2*frame+1])
		}
	}
}

func TestPlayPauseIdempotent(t *testing.T) {
	stream, dummy, _ := openDummy(t, audiodevice.StreamConfig{Channels: 1, SampleRate: 48000, Format: audiodevice.SampleFormatF32})

	for _, step := range []func() error{stream.Play, stream.Play, stream.Pause, stream.Pause, stream.Play} {
		if err := step(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !dummy.Playing() {
		t.Error("expected stream to be playing")
	}
}

func TestOpenRejectsNonFloatConfig(t *testing.T) {
	speakers := device.NewDummyOutputDevice("speakers")
	_, err := audiodevice.Open(speakers, audiodevice.StreamConfig{Channels: 1, SampleRate: 48000, Format: audiodevice.SampleFormatI16}, &counter{})
	if !errors.Is(err, audiodevice.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if n := len(speakers.Streams()); n != 0 {
		t.Errorf("expected no stream to be built, got %d", n)
	}
}

func TestStreamErrorsAreReportedNotFatal(t *testing.T) {
	reported := make(chan error, 1)
	stream, dummy, _ := openDummy(t,
		audiodevice.StreamConfig{Channels: 1, SampleRate: 48000, Format: audiodevice.SampleFormatF32},
		audiodevice.WithErrorHandler(func(err error) { reported <- err }),
	)

	if err := stream.Play(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dummy.InjectError(errors.New("output underflow"))

	select {
	case err := <-reported:
		var streamErr *audiodevice.StreamError
		if !errors.As(err, &streamErr) || streamErr.Backend != "dummy" {
			t.Errorf("expected dummy *StreamError, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream error was never reported")
	}

	if !dummy.Tick() {
		t.Error("expected stream to keep playing after a runtime error")
	}
}

func TestCloseReleasesStream(t *testing.T) {
	stream, dummy, _ := openDummy(t, audiodevice.StreamConfig{Channels: 1, SampleRate: 48000, Format: audiodevice.SampleFormatF32})

	if err := stream.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("expected second close to succeed, got %v", err)
	}
	if !dummy.Closed() {
		t.Error("expected underlying stream to be closed")
	}
	if err := stream.Play(); !errors.Is(err, audiodevice.ErrStreamClosed) {
		t.Errorf("expected ErrStreamClosed after close, got %v", err)
	}

	// Errors reported after close are discarded.
	dummy.InjectError(errors.New("late"))
}

func TestStreamErrorOverflowIsCounted(t *testing.T) {
	const injected = 40

	release := make(chan struct{})
	var handled atomic.Int64
	stream, dummy, _ := openDummy(t,
		audiodevice.StreamConfig{Channels: 1, SampleRate: 48000, Format: audiodevice.SampleFormatF32},
		audiodevice.WithErrorHandler(func(error) {
			<-release
			handled.Add(1)
		}),
	)

	// The handler holds the reporter, so the queue fills and the rest is dropped.
	for i := 0; i < injected; i++ {
		dummy.InjectError(errors.New("output underflow"))
	}
	if dropped := stream.DroppedErrors(); dropped < injected-17 {
		t.Fatalf("expected at least %d dropped errors, got %d", injected-17, dropped)
	}

	close(release)
	if err := stream.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total := uint64(handled.Load()) + stream.DroppedErrors(); total != injected {
		t.Errorf("expected every error to be handled or dropped, got %d of %d", total, injected)
	}
}
