package sensor

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Opener opens a bus connection and returns it with the handle that releases it.
type Opener func() (Conn, io.Closer, error)

// SPIOpener opens an SPI port (e.g. "/dev/spidev0.0") in mode 0 at hz.
func SPIOpener(dev string, hz int64) Opener {
	return func() (Conn, io.Closer, error) {
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("periph host init: %w", err)
		}
		port, err := spireg.Open(dev)
		if err != nil {
			return nil, nil, fmt.Errorf("open spi %s: %w", dev, err)
		}
		c, err := port.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode0, 8)
		if err != nil {
			_ = port.Close()
			return nil, nil, fmt.Errorf("connect spi %s: %w", dev, err)
		}
		return c, port, nil
	}
}

// I2COpener opens I2C bus (e.g. "1") and addresses the device at addr.
func I2COpener(bus string, addr uint16) Opener {
	return func() (Conn, io.Closer, error) {
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("periph host init: %w", err)
		}
		b, err := i2creg.Open(bus)
		if err != nil {
			return nil, nil, fmt.Errorf("open i2c bus %s: %w", bus, err)
		}
		return &i2c.Dev{Addr: addr, Bus: b}, b, nil
	}
}
