package sink

import (
	"context"
	"testing"

	"controlling_irrigation/internal/models"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type fakeWriter struct {
	points  []*write.Point
	flushed bool
}

func (w *fakeWriter) WritePoint(p *write.Point) { w.points = append(w.points, p) }
func (w *fakeWriter) Flush()                    { w.flushed = true }

func tagMap(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func TestPoint_Moisture(t *testing.T) {
	v, raw := 49.95, 512
	p, ok := Point(models.Reading{
		Channel:   models.MoistureChannel(5),
		Value:     &v,
		Raw:       &raw,
		Status:    models.ReadingSuccess,
		Timestamp: "2025-07-01 09:00:00",
	})
	if !ok {
		t.Fatalf("expected a point")
	}
	if p.Name() != "soil_moisture" {
		t.Fatalf("measurement = %s", p.Name())
	}
	tags := tagMap(p)
	if tags["place"] != "5" || tags["channel"] != "moisture:5" {
		t.Fatalf("tags = %v", tags)
	}
	if len(p.FieldList()) != 2 {
		t.Fatalf("fields = %d, want value and raw", len(p.FieldList()))
	}
	if p.Time().Hour() != 9 {
		t.Fatalf("time = %v", p.Time())
	}
}

func TestPoint_Temperature(t *testing.T) {
	v := 21.25
	p, ok := Point(models.Reading{Channel: models.TemperatureChannel, Value: &v, Timestamp: "bad"})
	if !ok || p.Name() != "temperature" {
		t.Fatalf("unexpected point %v %v", p, ok)
	}
	if _, has := tagMap(p)["place"]; has {
		t.Fatalf("temperature must not carry a place tag")
	}
}

func TestInfluxExporter_SkipsNullValues(t *testing.T) {
	w := &fakeWriter{}
	e := &InfluxExporter{writer: w}

	if err := e.Export(context.Background(), models.Reading{Channel: models.TemperatureChannel, Status: models.ReadingError}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	v := 3.0
	if err := e.Export(context.Background(), models.Reading{Channel: models.TemperatureChannel, Value: &v}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	_ = e.Close()
	if !w.flushed {
		t.Fatalf("Close must flush")
	}
}
