// Package valve maps planting positions to the output lines that water them.
package valve

import (
	"fmt"
	"sort"

	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/models"
)

// Line is a physical output with its active level.
type Line struct {
	ID        int  `json:"id"`
	ActiveLow bool `json:"active_low"`
}

// Level returns the electrical level that puts the line in the given logical state.
func (l Line) Level(on bool) hardware.Level {
	if on != l.ActiveLow {
		return hardware.High
	}
	return hardware.Low
}

// DefaultPumpLine drives the shared pump relay.
const DefaultPumpLine = 6

// DefaultLines is the wiring of the reference board. Positions 5 and 12 share line 16.
var DefaultLines = map[int]int{
	1: 4, 2: 17, 3: 27, 4: 22, 5: 16, 6: 5,
	7: 26, 8: 23, 9: 24, 10: 25, 11: 12, 12: 16,
}

// Map is the static position → line table. It is safe for concurrent use.
type Map struct {
	pump   Line
	valves map[int]Line
}

// Config describes the wiring.
type Config struct {
	PumpLine       int
	PumpActiveLow  bool
	ValveActiveLow bool
	Lines          map[int]int // position → line id
}

// DefaultConfig returns the reference wiring: pump active-high, valves active-low.
func DefaultConfig() Config {
	return Config{PumpLine: DefaultPumpLine, ValveActiveLow: true, Lines: DefaultLines}
}

// New builds a Map. Positions must be positive and no valve may use the pump line.
func New(cfg Config) (*Map, error) {
	if len(cfg.Lines) == 0 {
		return nil, fmt.Errorf("valve map: no positions configured")
	}
	m := &Map{
		pump:   Line{ID: cfg.PumpLine, ActiveLow: cfg.PumpActiveLow},
		valves: make(map[int]Line, len(cfg.Lines)),
	}
	for pos, id := range cfg.Lines {
		if pos < 1 {
			return nil, fmt.Errorf("valve map: position %d must be >= 1", pos)
		}
		if id < 0 {
			return nil, fmt.Errorf("valve map: position %d has negative line %d", pos, id)
		}
		if id == cfg.PumpLine {
			return nil, fmt.Errorf("valve map: position %d uses the pump line %d", pos, id)
		}
		m.valves[pos] = Line{ID: id, ActiveLow: cfg.ValveActiveLow}
	}
	return m, nil
}

// Resolve returns the valve line for position.
func (m *Map) Resolve(position int) (Line, error) {
	l, ok := m.valves[position]
	if !ok {
		return Line{}, fmt.Errorf("%w: %d", models.ErrInvalidPosition, position)
	}
	return l, nil
}

// Pump returns the shared pump line.
func (m *Map) Pump() Line { return m.pump }

// Positions returns the configured positions in ascending order.
func (m *Map) Positions() []int {
	out := make([]int, 0, len(m.valves))
	for p := range m.valves {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Lines returns every distinct valve line, ordered by id.
func (m *Map) Lines() []Line {
	seen := make(map[int]bool)
	var out []Line
	for _, l := range m.valves {
		if !seen[l.ID] {
			seen[l.ID] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sharing returns the other positions wired to the same line as position.
func (m *Map) Sharing(position int) []int {
	l, ok := m.valves[position]
	if !ok {
		return nil
	}
	var out []int
	for _, p := range m.Positions() {
		if p != position && m.valves[p].ID == l.ID {
			out = append(out, p)
		}
	}
	return out
}
