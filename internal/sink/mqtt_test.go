package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"controlling_irrigation/internal/models"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	err          error
	msgs         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	c.msgs = append(c.msgs, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return newFakeToken(c.err)
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublisher_Outcome(t *testing.T) {
	c := &fakeClient{}
	p := newMQTTPublisher(c, "e-garden/", nil)

	err := p.ReportOutcome(context.Background(), models.ActuationOutcome{RequestID: "r1", Succeeded: true})
	if err != nil {
		t.Fatalf("ReportOutcome: %v", err)
	}
	if len(c.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(c.msgs))
	}
	m := c.msgs[0]
	if m.topic != "e-garden/watering/outcome" || m.qos != 1 {
		t.Fatalf("unexpected topic/qos %s %d", m.topic, m.qos)
	}
	var body map[string]any
	if err := json.Unmarshal(m.payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body["request_id"] != "r1" || body["succeeded"] != true {
		t.Fatalf("unexpected payload %s", m.payload)
	}
}

func TestMQTTPublisher_ReadingTopic(t *testing.T) {
	c := &fakeClient{}
	p := newMQTTPublisher(c, "garden", nil)
	v := 41.5

	if err := p.Export(context.Background(), models.Reading{Channel: models.MoistureChannel(8), Value: &v, Status: models.ReadingSuccess}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if c.msgs[0].topic != "garden/telemetry/moisture/8" || c.msgs[0].qos != 0 {
		t.Fatalf("unexpected topic/qos %s %d", c.msgs[0].topic, c.msgs[0].qos)
	}
	if got := p.ReadingTopic(models.TemperatureChannel); got != "garden/telemetry/temperature" {
		t.Fatalf("temperature topic = %s", got)
	}
}

func TestMQTTPublisher_PublishError(t *testing.T) {
	brokerErr := errors.New("not connected")
	c := &fakeClient{err: brokerErr}
	p := newMQTTPublisher(c, "garden", nil)

	err := p.ReportOutcome(context.Background(), models.ActuationOutcome{RequestID: "r1"})
	if !errors.Is(err, brokerErr) {
		t.Fatalf("expected broker error, got %v", err)
	}
	_ = p.Close()
	if !c.disconnected {
		t.Fatalf("Close must disconnect")
	}
}
