package audiodevice_test

import (
	"errors"
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice/device"
)

func TestNegotiate(t *testing.T) {
	f32 := audiodevice.SupportedConfig{Channels: 2, MinSampleRate: 44100, MaxSampleRate: 96000, Format: audiodevice.SampleFormatF32}
	i16 := audiodevice.SupportedConfig{Channels: 2, MinSampleRate: 44100, MaxSampleRate: 96000, Format: audiodevice.SampleFormatI16}
	lowRate := audiodevice.SupportedConfig{Channels: 1, MinSampleRate: 8000, MaxSampleRate: 22050, Format: audiodevice.SampleFormatF32}

	tests := []struct {
		name    string
		host    audiodevice.Host
		wantErr error
		want    audiodevice.StreamConfig
	}{
		{
			name: "float32 device",
			host: device.NewDummyHost(device.NewDummyOutputDevice("speakers", device.DummyConfigs(f32))),
			want: audiodevice.StreamConfig{Channels: 2, SampleRate: 48000, Format: audiodevice.SampleFormatF32},
		},
		{
			name: "float32 preferred over earlier integer config",
			host: device.NewDummyHost(device.NewDummyOutputDevice("speakers", device.DummyConfigs(i16, f32))),
			want: audiodevice.StreamConfig{Channels: 2, SampleRate: 48000, Format: audiodevice.SampleFormatF32},
		},
		{
			name:    "only 16-bit integer formats",
			host:    device.NewDummyHost(device.NewDummyOutputDevice("speakers", device.DummyConfigs(i16))),
			wantErr: audiodevice.ErrUnsupportedFormat,
		},
		{
			name:    "no default output device",
			host:    device.NewDummyHost(nil),
			wantErr: audiodevice.ErrNoOutputDevice,
		},
		{
			name:    "no configurations",
			host:    device.NewDummyHost(device.NewDummyOutputDevice("speakers", device.DummyConfigs())),
			wantErr: audiodevice.ErrNoSupportedConfig,
		},
		{
			name:    "configuration query fails",
			host:    device.NewDummyHost(device.NewDummyOutputDevice("speakers", device.DummyConfigsError(errors.New("driver busy")))),
			wantErr: audiodevice.ErrNoSupportedConfig,
		},
		{
			name:    "sample rate out of range",
			host:    device.NewDummyHost(device.NewDummyOutputDevice("speakers", device.DummyConfigs(lowRate))),
			wantErr: audiodevice.ErrNoSupportedConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, config, err := audiodevice.Negotiate(tt.host, 48000, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if dev != nil {
					t.Errorf("expected no device on error, got %v", dev.Name())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config != tt.want {
				t.Errorf("expected config %+v, got %+v", tt.want, config)
			}
		})
	}
}

func TestNegotiateUnsupportedFormatNeverBuildsStream(t *testing.T) {
	speakers := device.NewDummyOutputDevice("speakers", device.DummyConfigs(
		audiodevice.SupportedConfig{Channels: 1, MinSampleRate: 48000, MaxSampleRate: 48000, Format: audiodevice.SampleFormatI16},
	))

	_, _, err := audiodevice.Negotiate(device.NewDummyHost(speakers), 48000, nil)

	var formatErr *audiodevice.UnsupportedFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected *UnsupportedFormatError, got %v", err)
	}
	if formatErr.Format != audiodevice.SampleFormatI16 {
		t.Errorf("expected reported format i16, got %s", formatErr.Format)
	}
	if n := len(speakers.Streams()); n != 0 {
		t.Errorf("expected no stream to be built, got %d", n)
	}
}
