package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/oscillator"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Params != oscillator.DefaultParams() {
		t.Errorf("expected default params, got %+v", config.Params)
	}
	if config.Backend != "portaudio" {
		t.Errorf("expected portaudio backend, got %q", config.Backend)
	}
	if config.LogLevel != "info" || config.LogFile != "" {
		t.Errorf("unexpected logging config %q %q", config.LogLevel, config.LogFile)
	}
	if config.BufferFrames != 512 || !config.Terminal || config.Autoplay || config.HTTPAddr != "" {
		t.Errorf("unexpected defaults %+v", config)
	}
	if config.ShutdownTimeout != 5*time.Second {
		t.Errorf("expected 5s shutdown timeout, got %v", config.ShutdownTimeout)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"backend: dummy",
		"scale: 4000",
		"carrierhz: 0.5",
		"httpaddr: 127.0.0.1:8080",
		"shutdowntimeout: 250ms",
		"terminal: false",
	}, "\n"))

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Backend != "dummy" || config.Params.Scale != 4000 || config.Params.CarrierHz != 0.5 {
		t.Errorf("file values not applied: %+v", config)
	}
	if config.HTTPAddr != "127.0.0.1:8080" || config.Terminal {
		t.Errorf("panel values not applied: %+v", config)
	}
	if config.ShutdownTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", config.ShutdownTimeout)
	}
	if config.Params.SampleRate != oscillator.DefaultSampleRate {
		t.Errorf("expected default sample rate to remain, got %d", config.Params.SampleRate)
	}
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend: oto\nsamplerate: 44100\n")
	t.Setenv("WARBLE_BACKEND", "dummy")
	t.Setenv("WARBLE_AUTOPLAY", "true")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Backend != "dummy" || !config.Autoplay {
		t.Errorf("environment not applied: %+v", config)
	}
	if config.Params.SampleRate != 44100 {
		t.Errorf("expected file sample rate, got %d", config.Params.SampleRate)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"unknown backend", "backend: alsa\n"},
		{"unknown log level", "loglevel: loud\n"},
		{"negative buffer", "bufferframes: -1\n"},
		{"zero shutdown timeout", "shutdowntimeout: 0s\n"},
		{"malformed file", "backend: [dummy\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.contents)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestSynthConfig(t *testing.T) {
	config := Config{BufferFrames: 128, Params: oscillator.DefaultParams()}
	s := config.Synth()
	if s.BufferFrames != 128 || s.Params != config.Params {
		t.Errorf("unexpected synth config %+v", s)
	}
}
