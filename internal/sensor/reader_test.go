package sensor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"controlling_irrigation/internal/models"
)

func newTestReader(t *testing.T, spi, i2c *fakeOpener) *Reader {
	t.Helper()
	r, err := NewReader(map[int]int{5: 0, 8: 1, 11: 2}, spi.open, i2c.open, nil)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestReader_Channels(t *testing.T) {
	r := newTestReader(t, &fakeOpener{}, &fakeOpener{})
	want := []models.Channel{"moisture:5", "moisture:8", "moisture:11", "temperature"}
	if got := r.Channels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Channels() = %v; want %v", got, want)
	}
	if !r.Has("moisture:8") || r.Has("moisture:3") || !r.Has(models.TemperatureChannel) {
		t.Fatalf("Has() mismatch")
	}
}

func TestReader_ReadMoistureAndTemperature(t *testing.T) {
	spi := &fakeOpener{conn: &fakeConn{resp: []byte{0, 0x02, 0x00}}}
	i2c := &fakeOpener{conn: &fakeConn{resp: []byte{0x01, 0x90}}}
	r := newTestReader(t, spi, i2c)
	ctx := context.Background()

	s, err := r.Read(ctx, models.MoistureChannel(8))
	if err != nil {
		t.Fatalf("Read moisture: %v", err)
	}
	if s.Raw != 512 || s.Value != 49.95 {
		t.Fatalf("moisture sample = %+v", s)
	}
	if got := spi.conn.writes[0][1]; got != 0x90 {
		t.Fatalf("place 8 should address adc channel 1, frame byte = %#x", got)
	}

	s, err = r.Read(ctx, models.TemperatureChannel)
	if err != nil {
		t.Fatalf("Read temperature: %v", err)
	}
	if s.Value != 25.0 {
		t.Fatalf("temperature = %v", s.Value)
	}

	// Buses stay open between reads.
	if _, err := r.Read(ctx, models.MoistureChannel(5)); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if spi.opens != 1 {
		t.Fatalf("spi opened %d times; want 1", spi.opens)
	}
}

func TestReader_FailuresAreSensorErrors(t *testing.T) {
	spi := &fakeOpener{openErr: errors.New("no such device")}
	i2c := &fakeOpener{conn: &fakeConn{err: errBus}}
	r := newTestReader(t, spi, i2c)
	ctx := context.Background()

	if _, err := r.Read(ctx, models.MoistureChannel(5)); !errors.Is(err, models.ErrSensor) {
		t.Fatalf("open failure err = %v; want ErrSensor", err)
	}
	if _, err := r.Read(ctx, models.TemperatureChannel); !errors.Is(err, models.ErrSensor) {
		t.Fatalf("tx failure err = %v; want ErrSensor", err)
	}
	if i2c.closer.n != 1 {
		t.Fatalf("failed transaction should close the bus, closes = %d", i2c.closer.n)
	}

	// Device comes back: the next read reopens.
	i2c.conn.err = nil
	i2c.conn.resp = []byte{0x01, 0x90}
	if _, err := r.Read(ctx, models.TemperatureChannel); err != nil {
		t.Fatalf("read after recovery: %v", err)
	}
	if i2c.opens != 2 {
		t.Fatalf("i2c opens = %d; want 2", i2c.opens)
	}
}

func TestReader_UnknownChannel(t *testing.T) {
	r := newTestReader(t, &fakeOpener{}, &fakeOpener{})
	for _, ch := range []models.Channel{"moisture:3", "humidity", "moisture:"} {
		if _, err := r.Read(context.Background(), ch); !errors.Is(err, ErrUnknownChannel) {
			t.Fatalf("Read(%q) err = %v; want ErrUnknownChannel", ch, err)
		}
	}
}

func TestNewReader_RejectsBadADCChannel(t *testing.T) {
	if _, err := NewReader(map[int]int{5: 8}, nil, nil, nil); err == nil {
		t.Fatalf("adc channel 8 should be rejected")
	}
}

func TestReader_CloseReleasesBuses(t *testing.T) {
	spi := &fakeOpener{conn: &fakeConn{resp: []byte{0, 0, 0}}}
	r := newTestReader(t, spi, &fakeOpener{})
	if _, err := r.Read(context.Background(), models.MoistureChannel(5)); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if spi.closer.n != 1 {
		t.Fatalf("spi closes = %d; want 1", spi.closer.n)
	}
}
