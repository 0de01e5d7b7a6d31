package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/models"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
)

var errMQTTTimeout = errors.New("mqtt: timed out")

// MQTTOptions configure the broker connection.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	MaxRetries  int
}

// publisher is the part of paho.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes outcomes (QoS 1) and live readings (QoS 0).
type MQTTPublisher struct {
	client publisher
	prefix string
	log    *logger.Logger
}

// NewMQTTPublisher connects to the broker, retrying with exponential backoff.
func NewMQTTPublisher(opts MQTTOptions, log *logger.Logger) (*MQTTPublisher, error) {
	log = logger.OrNop(log)
	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt_connection_lost", "err", err)
		})
	client := paho.NewClient(co)

	retries := opts.MaxRetries
	if retries < 1 {
		retries = 1
	}
	connect := func() error {
		t := client.Connect()
		if !t.WaitTimeout(mqttConnectTimeout) {
			return errMQTTTimeout
		}
		if err := t.Error(); err != nil {
			log.Warnw("mqtt_connect_retry", "broker", opts.Broker, "err", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(connect, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries-1))); err != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", opts.Broker, err)
	}
	log.Infow("mqtt_connected", "broker", opts.Broker)
	return newMQTTPublisher(client, opts.TopicPrefix, log), nil
}

func newMQTTPublisher(client publisher, prefix string, log *logger.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		log:    logger.OrNop(log),
	}
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

// OutcomeTopic is where outcomes are published.
func (p *MQTTPublisher) OutcomeTopic() string { return p.prefix + "/watering/outcome" }

// ReadingTopic maps "moisture:5" to "<prefix>/telemetry/moisture/5".
func (p *MQTTPublisher) ReadingTopic(ch models.Channel) string {
	return p.prefix + "/telemetry/" + strings.ReplaceAll(string(ch), ":", "/")
}

func (p *MQTTPublisher) ReportOutcome(ctx context.Context, o models.ActuationOutcome) error {
	return p.publish(ctx, p.OutcomeTopic(), 1, o)
}

func (p *MQTTPublisher) Export(ctx context.Context, r models.Reading) error {
	return p.publish(ctx, p.ReadingTopic(r.Channel), 0, r)
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, qos byte, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	t := p.client.Publish(topic, qos, false, payload)
	select {
	case <-t.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mqttPublishTimeout):
		return fmt.Errorf("publish %s: %w", topic, errMQTTTimeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
