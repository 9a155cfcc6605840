package pulseapi

import (
	"path/filepath"
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice"
)

func TestNewHostWithoutServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:"+filepath.Join(t.TempDir(), "missing-native"))

	host, err := NewHost("warble-test", nil)
	if err == nil {
		host.Close()
		t.Fatal("expected an error when no server is listening")
	}
}

func TestSupportedOutputConfigsPreferFloat32(t *testing.T) {
	configs, err := (&Device{}).SupportedOutputConfigs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) == 0 || configs[0].Format != audiodevice.SampleFormatF32 {
		t.Fatalf("expected float32 first, got %v", configs)
	}
	for _, c := range configs {
		if !c.SupportsSampleRate(48000) {
			t.Errorf("expected %v to support 48000Hz", c)
		}
	}
}
