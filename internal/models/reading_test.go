package models

import "testing"

func TestChannelPlace(t *testing.T) {
	cases := []struct {
		ch     Channel
		place  int
		wantOK bool
	}{
		{MoistureChannel(5), 5, true},
		{MoistureChannel(11), 11, true},
		{TemperatureChannel, 0, false},
		{Channel("moisture:x"), 0, false},
	}
	for _, tc := range cases {
		got, ok := tc.ch.Place()
		if ok != tc.wantOK || got != tc.place {
			t.Fatalf("%q.Place() = %d,%v; want %d,%v", tc.ch, got, ok, tc.place, tc.wantOK)
		}
	}
}

func TestChannelUnit(t *testing.T) {
	if TemperatureChannel.Unit() != "celsius" {
		t.Fatalf("temperature unit = %q", TemperatureChannel.Unit())
	}
	if MoistureChannel(8).Unit() != "percent" {
		t.Fatalf("moisture unit = %q", MoistureChannel(8).Unit())
	}
}

func TestIsTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		StatusPending:   false,
		StatusRunning:   false,
		StatusSucceeded: true,
		StatusFailed:    true,
	} {
		if IsTerminal(status) != want {
			t.Fatalf("IsTerminal(%s) != %v", status, want)
		}
	}
}
