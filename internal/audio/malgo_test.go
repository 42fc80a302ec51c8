package audio

import "testing"

func TestMatchDevice(t *testing.T) {
	names := []string{"Built-in Microphone", "USB Audio CODEC", "Scarlett 2i2 USB"}
	cases := []struct {
		want string
		idx  int
	}{
		{"usb", 1},
		{"SCARLETT", 2},
		{"microphone", 0},
		{"focusrite", -1},
	}
	for _, tc := range cases {
		if got := matchDevice(names, tc.want); got != tc.idx {
			t.Errorf("matchDevice(%q) = %d, want %d", tc.want, got, tc.idx)
		}
	}
	if got := matchDevice(nil, "usb"); got != -1 {
		t.Errorf("expected -1 with no devices, got %d", got)
	}
}

func TestNegotiatedRate(t *testing.T) {
	if got := negotiatedRate(44100, 48000); got != 48000 {
		t.Errorf("expected the device rate 48000, got %d", got)
	}
	if got := negotiatedRate(44100, 0); got != 44100 {
		t.Errorf("expected the requested rate when the device reports none, got %d", got)
	}
}
