package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/logging"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/synth"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/oscillator"
	"github.com/spf13/viper"
)

const EnvPrefix = "WARBLE"

type Config struct {
	LogLevel string
	LogFile  string

	Backend      string
	BufferFrames int
	Params       oscillator.Params

	// Address of the HTTP control panel. Empty disables it.
	HTTPAddr string
	Terminal bool
	Autoplay bool

	// How long to wait for the output device to be released after Exit.
	ShutdownTimeout time.Duration
}

func setViperDefaults(v *viper.Viper) {
	v.SetDefault("loglevel", "info")
	v.SetDefault("logfile", "")
	v.SetDefault("backend", audioapi.BackendPortAudio)
	v.SetDefault("samplerate", oscillator.DefaultSampleRate)
	v.SetDefault("carrierhz", oscillator.DefaultCarrierHz)
	v.SetDefault("scale", oscillator.DefaultScale)
	v.SetDefault("minfrequencyhz", oscillator.DefaultMinFrequencyHz)
	v.SetDefault("amplitude", oscillator.DefaultAmplitude)
	v.SetDefault("bufferframes", 512)
	v.SetDefault("httpaddr", "")
	v.SetDefault("terminal", true)
	v.SetDefault("autoplay", false)
	v.SetDefault("shutdowntimeout", 5*time.Second)
}

// LoadConfig reads configFilePath over the defaults, then applies WARBLE_ prefixed
// environment variables. A missing config file is not an error.
func LoadConfig(configFilePath string) (Config, error) {
	v := viper.New()
	setViperDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFilePath != "" {
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("error during config read: %w", err)
			}
			slog.Info("no config file found", "configFilePath", configFilePath)
		}
	}

	config := Config{
		LogLevel:     v.GetString("loglevel"),
		LogFile:      v.GetString("logfile"),
		Backend:      v.GetString("backend"),
		BufferFrames: v.GetInt("bufferframes"),
		Params: oscillator.Params{
			SampleRate:     v.GetInt("samplerate"),
			CarrierHz:      v.GetFloat64("carrierhz"),
			Scale:          v.GetFloat64("scale"),
			MinFrequencyHz: v.GetFloat64("minfrequencyhz"),
			Amplitude:      v.GetFloat64("amplitude"),
		},
		HTTPAddr:        v.GetString("httpaddr"),
		Terminal:        v.GetBool("terminal"),
		Autoplay:        v.GetBool("autoplay"),
		ShutdownTimeout: v.GetDuration("shutdowntimeout"),
	}
	return config, config.Validate()
}

// Validate checks the fields the tone itself does not; oscillator parameters
// are checked when the stream is built.
func (c Config) Validate() error {
	if !audioapi.IsBackend(c.Backend) {
		return fmt.Errorf("unknown backend %q, expected one of %v", c.Backend, audioapi.Backends)
	}
	if _, _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.BufferFrames < 0 {
		return fmt.Errorf("bufferframes must not be negative, got %d", c.BufferFrames)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdowntimeout must be positive, got %v", c.ShutdownTimeout)
	}
	return nil
}

func (c Config) Synth() synth.Config {
	return synth.Config{Params: c.Params, BufferFrames: c.BufferFrames}
}
