package notify

import (
	"context"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
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
	connected    bool
	disconnected bool
	err          error
	messages     []published
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return newFakeToken(c.err)
}

func TestMQTTPublisherPublishesJSON(t *testing.T) {
	client := &fakeClient{connected: true}
	p := NewMQTTPublisherWithClient(client, "fieldops/", logger.NewLogger("error", "json"))

	err := p.Publish(context.Background(), Event{
		Type:       EventDispatchStatus,
		DispatchID: "d1",
		Status:     "assigned",
	})
	require.NoError(t, err)
	require.Len(t, client.messages, 1)

	msg := client.messages[0]
	assert.Equal(t, "fieldops/dispatch/status", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, "d1", decoded.DispatchID)
	assert.False(t, decoded.OccurredAt.IsZero())
}

func TestMQTTPublisherReturnsBrokerError(t *testing.T) {
	client := &fakeClient{connected: true, err: errors.New("not authorized")}
	p := NewMQTTPublisherWithClient(client, "", logger.NewLogger("error", "json"))

	err := p.Publish(context.Background(), Event{Type: EventJobAssigned, JobID: "j1"})
	assert.ErrorContains(t, err, "not authorized")
	assert.Equal(t, "job/assigned", client.messages[0].topic)
}

func TestMQTTPublisherClose(t *testing.T) {
	client := &fakeClient{connected: true}
	NewMQTTPublisherWithClient(client, "x", logger.NewLogger("error", "json")).Close()
	assert.True(t, client.disconnected)
}

func TestNewPublisherWithoutBroker(t *testing.T) {
	p := NewPublisher(&models.Config{}, logger.NewLogger("error", "json"))
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: EventDispatchCreated}))
}
