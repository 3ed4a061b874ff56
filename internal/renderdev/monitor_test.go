package renderdev

import (
	"testing"

	"recode/internal/logging"
)

func TestDeviceName(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"DEVNAME": "/dev/dri/renderD128"}, "/dev/dri/renderD128"},
		{map[string]string{"DEVNAME": "dri/renderD128"}, "/dev/dri/renderD128"},
		{map[string]string{"DEVPATH": "/devices/pci0000:00/0000:00:02.0/drm/renderD128"}, "/dev/dri/renderD128"},
		{map[string]string{}, ""},
	}
	for _, tc := range cases {
		if got := DeviceName(tc.env); got != tc.want {
			t.Errorf("DeviceName(%v) = %q, want %q", tc.env, got, tc.want)
		}
	}
}

func TestNewRequiresDevice(t *testing.T) {
	if m := New("   ", logging.NewNop(), nil); m != nil {
		t.Fatal("expected nil monitor for empty device")
	}
	if m := New("/dev/dri/renderD128", logging.NewNop(), nil); m == nil {
		t.Fatal("expected monitor for configured device")
	}
}

func TestStopWithoutStart(t *testing.T) {
	m := New("/dev/dri/renderD128", logging.NewNop(), nil)
	m.Stop()
	if m.Running() {
		t.Fatal("expected monitor to stay stopped")
	}
}
