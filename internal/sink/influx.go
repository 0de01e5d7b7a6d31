package sink

import (
	"context"
	"strconv"
	"time"

	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// InfluxOptions locate the bucket readings are written to.
type InfluxOptions struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type pointWriter interface {
	WritePoint(p *write.Point)
	Flush()
}

// InfluxExporter batches live readings into InfluxDB. Writes never block
// the caller; write errors surface asynchronously in the log.
type InfluxExporter struct {
	client influxdb2.Client
	writer pointWriter
	log    *logger.Logger
}

func NewInfluxExporter(opts InfluxOptions, log *logger.Logger) *InfluxExporter {
	log = logger.OrNop(log)
	client := influxdb2.NewClientWithOptions(opts.URL, opts.Token,
		influxdb2.DefaultOptions().SetBatchSize(50).SetFlushInterval(1000))
	w := client.WriteAPI(opts.Org, opts.Bucket)
	go func() {
		for err := range w.Errors() {
			log.Warnw("influx_write_failed", "err", err)
		}
	}()
	return &InfluxExporter{client: client, writer: w, log: log}
}

func (e *InfluxExporter) Name() string { return "influx" }

// Export queues r. Readings without a value are skipped.
func (e *InfluxExporter) Export(_ context.Context, r models.Reading) error {
	p, ok := Point(r)
	if !ok {
		return nil
	}
	e.writer.WritePoint(p)
	return nil
}

// Close flushes pending points and closes the client.
func (e *InfluxExporter) Close() error {
	e.writer.Flush()
	if e.client != nil {
		e.client.Close()
	}
	return nil
}

// Point converts a reading into measurement soil_moisture or temperature.
func Point(r models.Reading) (*write.Point, bool) {
	if r.Value == nil {
		return nil, false
	}
	ts, err := time.ParseInLocation(models.TimestampLayout, r.Timestamp, time.Local)
	if err != nil {
		ts = time.Now()
	}

	measurement := "temperature"
	tags := map[string]string{"channel": string(r.Channel), "status": r.Status}
	if place, ok := r.Channel.Place(); ok {
		measurement = "soil_moisture"
		tags["place"] = strconv.Itoa(place)
	}
	fields := map[string]interface{}{"value": *r.Value}
	if r.Raw != nil {
		fields["raw"] = *r.Raw
	}
	return influxdb2.NewPoint(measurement, tags, fields, ts), true
}
