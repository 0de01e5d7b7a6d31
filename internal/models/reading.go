package models

import (
	"fmt"
	"strconv"
	"strings"
)

// TimestampLayout is the wire format of reading timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Reading statuses.
const (
	ReadingSuccess = "success"
	ReadingCached  = "cached"
	ReadingError   = "error"
)

// Channel identifies a sensor input: "moisture:<place>" or "temperature".
type Channel string

// TemperatureChannel is the single digital temperature probe.
const TemperatureChannel Channel = "temperature"

const moisturePrefix = "moisture:"

// MoistureChannel returns the channel for a planting place.
func MoistureChannel(place int) Channel {
	return Channel(fmt.Sprintf("%s%d", moisturePrefix, place))
}

// Place returns the planting place of a moisture channel.
func (c Channel) Place() (int, bool) {
	s, ok := strings.CutPrefix(string(c), moisturePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Unit returns the physical unit of values on c.
func (c Channel) Unit() string {
	if c == TemperatureChannel {
		return "celsius"
	}
	return "percent"
}

// Reading is the answer to a telemetry query for one channel.
type Reading struct {
	Channel   Channel  `json:"channel"`
	Value     *float64 `json:"value"`
	Raw       *int     `json:"raw,omitempty"`
	Unit      string   `json:"unit"`
	Status    string   `json:"status"` // success | cached | error
	Timestamp string   `json:"timestamp"`
	Error     string   `json:"error,omitempty"`
}
