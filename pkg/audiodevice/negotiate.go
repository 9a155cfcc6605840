package audiodevice

import (
	"fmt"
	"log/slog"
)

// Negotiate picks the system default output device of host and a 32-bit float
// configuration running at sampleRate.
//
// The returned error matches ErrNoOutputDevice, ErrNoSupportedConfig or
// ErrUnsupportedFormat. All three are setup failures and are not retried.
func Negotiate(host Host, sampleRate int, logger *slog.Logger) (Device, StreamConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}

	device, err := host.DefaultOutputDevice()
	if err != nil {
		return nil, StreamConfig{}, fmt.Errorf("%s host: %w", host.Name(), err)
	}
	if device == nil {
		return nil, StreamConfig{}, fmt.Errorf("%s host: %w", host.Name(), ErrNoOutputDevice)
	}
	logger = logger.With("host", host.Name(), "device", device.Name())

	configs, err := device.SupportedOutputConfigs()
	if err != nil {
		return nil, StreamConfig{}, fmt.Errorf("%w: querying '%s': %w", ErrNoSupportedConfig, device.Name(), err)
	}
	if len(configs) == 0 {
		return nil, StreamConfig{}, fmt.Errorf("%w: device '%s' reports none", ErrNoSupportedConfig, device.Name())
	}

	candidates := make([]SupportedConfig, 0, len(configs))
	for _, c := range configs {
		if c.Channels > 0 && c.SupportsSampleRate(sampleRate) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		logger.Error("no output configuration supports the sample rate",
			"sampleRate", sampleRate,
			"configs", formatConfigs(configs),
		)
		return nil, StreamConfig{}, fmt.Errorf("%w: device '%s' cannot run at %dHz", ErrNoSupportedConfig, device.Name(), sampleRate)
	}

	for _, c := range candidates {
		if c.Format == SampleFormatF32 {
			config := c.WithSampleRate(sampleRate)
			logger.Debug("negotiated output configuration",
				"sampleRate", config.SampleRate,
				"channels", config.Channels,
				"format", config.Format.String(),
			)
			return device, config, nil
		}
	}

	logger.Error("output device offers no float32 configuration",
		"sampleRate", sampleRate,
		"configs", formatConfigs(candidates),
	)
	return nil, StreamConfig{}, &UnsupportedFormatError{Device: device.Name(), Format: candidates[0].Format}
}
