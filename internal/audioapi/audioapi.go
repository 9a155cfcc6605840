package audioapi

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/audioapi/otoapi"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/audioapi/portaudioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/audioapi/pulseapi"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice/device"
)

const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
	BackendPulse     = "pulse"
	BackendDummy     = "dummy"
)

// Backends lists every supported backend name, in order of preference.
var Backends = []string{BackendPortAudio, BackendOto, BackendPulse, BackendDummy}

func IsBackend(name string) bool {
	return slices.Contains(Backends, name)
}

// NewHost creates the named audio API host.
//
// The dummy host plays in real time into nothing, which is useful on machines
// without sound hardware.
func NewHost(backend string, appName string, logger *slog.Logger) (audiodevice.Host, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch backend {
	case BackendPortAudio:
		return portaudioapi.NewHost(logger)
	case BackendOto:
		return otoapi.NewHost(logger), nil
	case BackendPulse:
		return pulseapi.NewHost(appName, logger)
	case BackendDummy:
		return device.NewDummyHost(device.NewDummyOutputDevice("dummy output", device.DummyRealtime())), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q, expected one of %v", backend, Backends)
	}
}
