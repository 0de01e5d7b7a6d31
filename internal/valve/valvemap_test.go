package valve

import (
	"errors"
	"reflect"
	"testing"

	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/models"
)

func mustDefault(t *testing.T) *Map {
	t.Helper()
	m, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestResolve_DefaultWiring(t *testing.T) {
	m := mustDefault(t)
	for pos, want := range DefaultLines {
		l, err := m.Resolve(pos)
		if err != nil {
			t.Fatalf("Resolve(%d): %v", pos, err)
		}
		if l.ID != want || !l.ActiveLow {
			t.Fatalf("Resolve(%d) = %+v; want line %d active-low", pos, l, want)
		}
	}
}

func TestResolve_OutOfDomain(t *testing.T) {
	m := mustDefault(t)
	for _, pos := range []int{-1, 0, 13, 100} {
		if _, err := m.Resolve(pos); !errors.Is(err, models.ErrInvalidPosition) {
			t.Fatalf("Resolve(%d) err = %v; want ErrInvalidPosition", pos, err)
		}
	}
}

func TestLinePolarity(t *testing.T) {
	m := mustDefault(t)
	pump := m.Pump()
	if pump.ID != 6 {
		t.Fatalf("pump line = %d", pump.ID)
	}
	if pump.Level(true) != hardware.High || pump.Level(false) != hardware.Low {
		t.Fatalf("pump must be active-high")
	}
	v, _ := m.Resolve(3)
	if v.Level(true) != hardware.Low || v.Level(false) != hardware.High {
		t.Fatalf("valves must be active-low")
	}
}

func TestSharingAndLines(t *testing.T) {
	m := mustDefault(t)
	if got := m.Sharing(5); !reflect.DeepEqual(got, []int{12}) {
		t.Fatalf("Sharing(5) = %v; want [12]", got)
	}
	if got := m.Sharing(12); !reflect.DeepEqual(got, []int{5}) {
		t.Fatalf("Sharing(12) = %v; want [5]", got)
	}
	if got := m.Sharing(1); len(got) != 0 {
		t.Fatalf("Sharing(1) = %v; want none", got)
	}
	if got := len(m.Lines()); got != 11 {
		t.Fatalf("distinct lines = %d; want 11", got)
	}
	if got := len(m.Positions()); got != 12 {
		t.Fatalf("positions = %d; want 12", got)
	}
}

func TestNew_Rejects(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"empty", Config{PumpLine: 6}},
		{"zero position", Config{PumpLine: 6, Lines: map[int]int{0: 4}}},
		{"valve on pump line", Config{PumpLine: 6, Lines: map[int]int{1: 6}}},
		{"negative line", Config{PumpLine: 6, Lines: map[int]int{1: -2}}},
	}
	for _, tc := range cases {
		if _, err := New(tc.cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
