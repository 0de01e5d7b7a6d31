// Package sensor reads soil moisture through an MCP3008 ADC on SPI and
// temperature from an MCP9808 on I2C.
package sensor

import (
	"fmt"
	"math"
)

// Conn is a full-duplex or write-then-read bus transaction, as provided by
// periph's conn.Conn for both SPI and I2C devices.
type Conn interface {
	Tx(w, r []byte) error
}

// MCP3008 is an 8-channel 10-bit ADC.
type MCP3008 struct {
	conn Conn
}

const (
	mcp3008Channels = 8
	mcp3008MaxCode  = 1023
)

func NewMCP3008(c Conn) MCP3008 { return MCP3008{conn: c} }

// mcp3008Frame returns the single-ended read command for ch: start bit, then
// SGL/DIFF=1 and the 3-bit channel in the high nibble, then a padding byte.
func mcp3008Frame(ch int) []byte {
	return []byte{1, byte((8 + ch) << 4), 0}
}

// ReadCode returns the 10-bit conversion result of ch.
func (m MCP3008) ReadCode(ch int) (int, error) {
	if ch < 0 || ch >= mcp3008Channels {
		return 0, fmt.Errorf("mcp3008: channel %d out of range 0..%d", ch, mcp3008Channels-1)
	}
	r := make([]byte, 3)
	if err := m.conn.Tx(mcp3008Frame(ch), r); err != nil {
		return 0, fmt.Errorf("mcp3008 channel %d: %w", ch, err)
	}
	return int(r[1]&0x03)<<8 | int(r[2]), nil
}

// MoisturePercent converts a raw code to relative humidity. A higher code
// means drier soil.
func MoisturePercent(code int) float64 {
	return round2(100 - float64(code)/mcp3008MaxCode*100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
