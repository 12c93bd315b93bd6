package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldercare-platform/eldercare/internal/domain/model"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	token        paho.Token
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	c.sent = append(c.sent, published{topic: topic, payload: payload.([]byte)})
	return c.token
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestPublish(t *testing.T) {
	client := &fakeClient{token: doneToken(nil)}
	pub := NewPublisher(client, "eldercare/alerts/")

	ev := model.DetectionEvent{ID: "e1", SubjectID: "7", Type: model.EventTypeFall, Severity: model.SeverityCritical}
	require.NoError(t, pub.Publish(context.Background(), ev))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "eldercare/alerts/critical", client.sent[0].topic)

	var got model.DetectionEvent
	require.NoError(t, json.Unmarshal(client.sent[0].payload, &got))
	assert.Equal(t, "e1", got.ID)

	pub.Close()
	assert.True(t, client.disconnected)
}

func TestPublish_BrokerError(t *testing.T) {
	client := &fakeClient{token: doneToken(errors.New("not connected"))}
	pub := NewPublisher(client, "alerts")

	err := pub.Publish(context.Background(), model.DetectionEvent{Severity: model.SeverityWarning})
	assert.ErrorContains(t, err, "alerts/warning")
}

func TestPublish_Timeout(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: make(chan struct{})}}
	pub := NewPublisher(client, "alerts")
	pub.timeout = 10 * time.Millisecond

	err := pub.Publish(context.Background(), model.DetectionEvent{Severity: model.SeverityCritical})
	assert.True(t, errors.Is(err, ErrPublishTimeout))
}

func TestPublish_ContextCancelled(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: make(chan struct{})}}
	pub := NewPublisher(client, "alerts")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pub.Publish(ctx, model.DetectionEvent{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTopicFor(t *testing.T) {
	pub := NewPublisher(&fakeClient{}, "alerts")
	assert.Equal(t, "alerts/info", pub.TopicFor(""))
	assert.Equal(t, "alerts/critical", pub.TopicFor("critical"))
}
