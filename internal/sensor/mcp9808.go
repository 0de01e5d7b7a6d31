package sensor

import "fmt"

const (
	// DefaultMCP9808Addr is the factory I2C address.
	DefaultMCP9808Addr = 0x18

	mcp9808AmbientReg = 0x05
)

// MCP9808 is a digital temperature sensor.
type MCP9808 struct {
	conn Conn
}

func NewMCP9808(c Conn) MCP9808 { return MCP9808{conn: c} }

// ReadCelsius reads the ambient temperature register.
func (m MCP9808) ReadCelsius() (float64, int, error) {
	r := make([]byte, 2)
	if err := m.conn.Tx([]byte{mcp9808AmbientReg}, r); err != nil {
		return 0, 0, fmt.Errorf("mcp9808: %w", err)
	}
	raw := int(r[0])<<8 | int(r[1])
	return DecodeTemperature(r[0], r[1]), raw, nil
}

// DecodeTemperature converts the two register bytes to degrees Celsius.
// Bits 0..11 hold the magnitude in 1/16 °C, bit 12 is the sign.
func DecodeTemperature(b0, b1 byte) float64 {
	raw := int(b0)<<8 | int(b1)
	t := float64(raw&0x0FFF) / 16.0
	if raw&0x1000 != 0 {
		t -= 256.0
	}
	return round2(t)
}
