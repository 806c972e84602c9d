package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	corenotify "github.com/fleetops/dispatchd/core/notify"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakeClient struct {
	topics   []string
	payloads [][]byte
	token    *fakeToken
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) Connect() paho.Token    { return &fakeToken{} }
func (c *fakeClient) Disconnect(uint)        {}
func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	if c.token != nil {
		return c.token
	}
	return &fakeToken{}
}

func newTestNotifier(t *testing.T, cli *fakeClient) *MQTTNotifier {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(*paho.ClientOptions) pahoClient { return cli }
	t.Cleanup(func() { newMQTTClient = orig })

	n, err := NewMQTTNotifier(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	return n
}

func TestNotify_PublishesToKindTopic(t *testing.T) {
	cli := &fakeClient{}
	n := newTestNotifier(t, cli)

	msg := corenotify.Notification{
		Kind:     corenotify.DriverAssigned,
		OrderID:  "o1",
		DriverID: "d2",
		Time:     time.Now(),
	}
	if err := n.Notify(context.Background(), msg); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(cli.topics) != 1 || cli.topics[0] != "dispatch/notify/driver_assigned/o1" {
		t.Fatalf("unexpected topic %v", cli.topics)
	}
	var got corenotify.Notification
	if err := json.Unmarshal(cli.payloads[0], &got); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if got.DriverID != "d2" {
		t.Fatalf("payload round-trip mismatch: %+v", got)
	}
}

func TestNotify_TimeoutReportsError(t *testing.T) {
	cli := &fakeClient{token: &fakeToken{timeout: true}}
	n := newTestNotifier(t, cli)

	err := n.Notify(context.Background(), corenotify.Notification{Kind: corenotify.CustomerUpdate, OrderID: "o1"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestNotify_RespectsContextDeadline(t *testing.T) {
	cli := &fakeClient{}
	n := newTestNotifier(t, cli)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	_ = n.Notify(ctx, corenotify.Notification{Kind: corenotify.CustomerUpdate, OrderID: "o1"})
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("publish must not outlive the context deadline")
	}
}
