// Package mqtt publishes detection events to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/eldercare-platform/eldercare/internal/domain/model"
)

const (
	defaultQoS         = 1
	defaultWaitTimeout = 5 * time.Second
	disconnectQuiesce  = 250 // milliseconds
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Options describes the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the prefix; events go to <Topic>/<severity>.
	Topic string
}

// Client is the subset of paho's client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends events as JSON.
type Publisher struct {
	client  Client
	topic   string
	qos     byte
	timeout time.Duration
}

// Connect dials the broker with auto-reconnect and returns a publisher.
func Connect(opts Options) (*Publisher, error) {
	co := paho.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		co.SetPassword(opts.Password)
	}
	co.SetAutoReconnect(true)
	co.SetCleanSession(true)
	co.SetConnectTimeout(defaultWaitTimeout)

	client := paho.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(defaultWaitTimeout) {
		return nil, fmt.Errorf("connect %s: %w", opts.Broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Broker, err)
	}
	return NewPublisher(client, opts.Topic), nil
}

// NewPublisher wraps an already connected client.
func NewPublisher(client Client, topic string) *Publisher {
	return &Publisher{
		client:  client,
		topic:   strings.TrimSuffix(topic, "/"),
		qos:     defaultQoS,
		timeout: defaultWaitTimeout,
	}
}

// TopicFor returns the topic an event of the given severity is published to.
func (p *Publisher) TopicFor(severity string) string {
	if severity == "" {
		severity = model.SeverityInfo
	}
	return p.topic + "/" + severity
}

// Publish sends ev and waits for the broker acknowledgment, the publisher
// timeout or ctx, whichever comes first.
func (p *Publisher) Publish(ctx context.Context, ev model.DetectionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := p.TopicFor(ev.Severity)
	token := p.client.Publish(topic, p.qos, false, body)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("publish %s: %w", topic, ErrPublishTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiesce)
}
