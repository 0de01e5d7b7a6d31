package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/models"
)

// ErrUnknownChannel is returned for channels that are not configured.
var ErrUnknownChannel = errors.New("unknown channel")

// Sample is one successful live read.
type Sample struct {
	Value float64
	Raw   int
}

// bus owns one lazily opened connection. A failed transaction drops the
// connection so the next read reopens it.
type bus struct {
	name string
	open Opener

	mu     sync.Mutex
	conn   Conn
	closer io.Closer
}

func (b *bus) do(fn func(Conn) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		c, closer, err := b.open()
		if err != nil {
			return err
		}
		b.conn, b.closer = c, closer
	}
	if err := fn(b.conn); err != nil {
		b.resetLocked()
		return err
	}
	return nil
}

func (b *bus) resetLocked() {
	if b.closer != nil {
		_ = b.closer.Close()
	}
	b.conn, b.closer = nil, nil
}

func (b *bus) close() {
	b.mu.Lock()
	b.resetLocked()
	b.mu.Unlock()
}

// Reader reads calibrated values from the configured channels. SPI and I2C
// reads may run concurrently; reads on the same bus are serialised.
type Reader struct {
	places map[int]int // moisture place → ADC channel
	spi    *bus
	i2c    *bus
	log    *logger.Logger
}

// NewReader validates the place → ADC channel table and returns a reader.
// Buses are opened on first use.
func NewReader(places map[int]int, spiOpen, i2cOpen Opener, log *logger.Logger) (*Reader, error) {
	for place, ch := range places {
		if ch < 0 || ch >= mcp3008Channels {
			return nil, fmt.Errorf("place %d: adc channel %d out of range 0..%d", place, ch, mcp3008Channels-1)
		}
	}
	cp := make(map[int]int, len(places))
	for k, v := range places {
		cp[k] = v
	}
	return &Reader{
		places: cp,
		spi:    &bus{name: "spi", open: spiOpen},
		i2c:    &bus{name: "i2c", open: i2cOpen},
		log:    logger.OrNop(log),
	}, nil
}

// Channels lists moisture channels by place, then the temperature channel.
func (r *Reader) Channels() []models.Channel {
	places := make([]int, 0, len(r.places))
	for p := range r.places {
		places = append(places, p)
	}
	sort.Ints(places)
	out := make([]models.Channel, 0, len(places)+1)
	for _, p := range places {
		out = append(out, models.MoistureChannel(p))
	}
	return append(out, models.TemperatureChannel)
}

// Has reports whether ch is configured.
func (r *Reader) Has(ch models.Channel) bool {
	if ch == models.TemperatureChannel {
		return true
	}
	place, ok := ch.Place()
	if !ok {
		return false
	}
	_, ok = r.places[place]
	return ok
}

// Read performs a live read of ch. Bus failures are returned wrapped in
// models.ErrSensor.
func (r *Reader) Read(ctx context.Context, ch models.Channel) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if ch == models.TemperatureChannel {
		return r.readTemperature()
	}
	place, ok := ch.Place()
	if !ok {
		return Sample{}, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	adc, ok := r.places[place]
	if !ok {
		return Sample{}, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	return r.readMoisture(adc)
}

func (r *Reader) readMoisture(adc int) (Sample, error) {
	var code int
	err := r.spi.do(func(c Conn) error {
		var err error
		code, err = NewMCP3008(c).ReadCode(adc)
		return err
	})
	if err != nil {
		r.log.Warnw("sensor_read_failed", "bus", "spi", "adc_channel", adc, "err", err)
		return Sample{}, fmt.Errorf("%w: %v", models.ErrSensor, err)
	}
	return Sample{Value: MoisturePercent(code), Raw: code}, nil
}

func (r *Reader) readTemperature() (Sample, error) {
	var (
		celsius float64
		raw     int
	)
	err := r.i2c.do(func(c Conn) error {
		var err error
		celsius, raw, err = NewMCP9808(c).ReadCelsius()
		return err
	})
	if err != nil {
		r.log.Warnw("sensor_read_failed", "bus", "i2c", "err", err)
		return Sample{}, fmt.Errorf("%w: %v", models.ErrSensor, err)
	}
	return Sample{Value: celsius, Raw: raw}, nil
}

// Close releases both buses.
func (r *Reader) Close() error {
	r.spi.close()
	r.i2c.close()
	return nil
}
