package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/logstore"
	"github.com/robotalks/nodeterm/pkg/node"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	lock         sync.Mutex
	published    []published
	subscribed   []string
	unsubscribed []string
	connects     int
	connectToken paho.Token
	pubCh        chan published
}

func (c *fakeClient) Connect() paho.Token {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.connects++
	if c.connectToken != nil {
		return c.connectToken
	}
	return &paho.DummyToken{}
}

type pendingToken struct {
	err  error
	done bool
}

func (t *pendingToken) Wait() bool                     { return t.done }
func (t *pendingToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *pendingToken) Error() error                   { return t.err }

func (c *fakeClient) Disconnect(uint) {}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	p := published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)}
	c.lock.Lock()
	c.published = append(c.published, p)
	c.lock.Unlock()
	if c.pubCh != nil {
		c.pubCh <- p
	}
	return &paho.DummyToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.lock.Lock()
	c.subscribed = append(c.subscribed, topic)
	c.lock.Unlock()
	return &paho.DummyToken{}
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, callback paho.MessageHandler) paho.Token {
	c.lock.Lock()
	for topic := range filters {
		c.subscribed = append(c.subscribed, topic)
	}
	c.lock.Unlock()
	return &paho.DummyToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) paho.Token {
	c.lock.Lock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	c.lock.Unlock()
	return &paho.DummyToken{}
}

func TestMatchTopic(t *testing.T) {
	for _, c := range []struct {
		topic, pattern string
		match          bool
	}{
		{"n1/logs", "n1/logs", true},
		{"n1/logs", "+/logs", true},
		{"n1/logs", "+/+", true},
		{"n1/logs", "#", true},
		{"n1/logs", "n1/#", true},
		{"n1/logs/x", "+/+", false},
		{"n1", "+/+", false},
		{"n1/meta", "+/logs", false},
	} {
		require.Equal(t, c.match, MatchTopic(c.topic, c.pattern), "%s ~ %s", c.topic, c.pattern)
	}
}

func TestClientOptionsFromURL(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://u:p@broker:1883/site/a?client-id=me")
	require.NoError(t, err)
	require.Equal(t, "site/a/", prefix)
	require.Equal(t, "me", opts.ClientID)
	require.Equal(t, "u", opts.Username)
	require.Equal(t, "tcp://broker:1883", opts.Servers[0].String())

	_, prefix, err = ClientOptionsFromURL("tcp://broker:1883")
	require.NoError(t, err)
	require.Empty(t, prefix)
}

func TestQueueSubscriptions(t *testing.T) {
	client := &fakeClient{}
	q := &Queue{Client: client, TopicPrefix: "site/"}
	var got []string
	s1 := q.Sub("n1/logs", func(topic string, payload []byte) { got = append(got, "exact:"+string(payload)) })
	s2 := q.Sub("+/logs", func(topic string, payload []byte) { got = append(got, "wild:"+topic) })
	s3 := q.Sub("+/logs", func(topic string, payload []byte) { got = append(got, "wild2:"+topic) })
	require.Equal(t, []string{"site/n1/logs", "site/+/logs"}, client.subscribed)

	q.deliver("site/n1/logs", []byte("x"))
	q.deliver("other/n1/logs", []byte("y"))
	require.Equal(t, []string{"exact:x", "wild:n1/logs", "wild2:n1/logs"}, got)

	require.NoError(t, s2.Close())
	require.Empty(t, client.unsubscribed)
	require.NoError(t, s3.Close())
	require.NoError(t, s1.Close())
	require.Equal(t, []string{"site/+/logs", "site/n1/logs"}, client.unsubscribed)

	q.Sub("n2/meta", func(string, []byte) {})
	client.subscribed = nil
	q.Resubscribe()
	require.Equal(t, []string{"site/n2/meta"}, client.subscribed)

	q.PubWith("n1/meta", []byte("m"), 1, true)
	require.Equal(t, published{"site/n1/meta", 1, true, []byte("m")}, client.published[0])
}

func TestPayloadRoundTrip(t *testing.T) {
	in := Fields{
		"name":   "node",
		"ok":     true,
		"count":  3,
		"ratio":  0.5,
		"none":   nil,
		"nested": Fields{"level": "LOGIN"},
		"list":   []interface{}{"a", 1.5},
	}
	b, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, Fields{
		"name":   "node",
		"ok":     true,
		"count":  3.0,
		"ratio":  0.5,
		"none":   nil,
		"nested": Fields{"level": "LOGIN"},
		"list":   []interface{}{"a", 1.5},
	}, out)
	require.Equal(t, []string{"count", "list", "name", "nested", "none", "ok", "ratio"}, out.Keys())

	_, err = Encode(Fields{"bad": struct{}{}})
	require.Error(t, err)
}

type fakeSensors struct{}

func (fakeSensors) UpdateClimate(context.Context) (node.Climate, error) { return node.Climate{}, nil }
func (fakeSensors) UpdateAccel(context.Context) (node.Accel, error)     { return node.Accel{}, nil }
func (fakeSensors) Climate() node.Climate {
	return node.Climate{Temperature: 22, Humidity: 50, OK: true}
}
func (fakeSensors) Accel() node.Accel { return node.NewAccel(0, 0, 256, 256) }

func TestPublisherSensors(t *testing.T) {
	client := &fakeClient{}
	q := &Queue{Client: client, TopicPrefix: "site/"}
	p := NewPublisher(q, "n1", nil)
	p.Sensors = fakeSensors{}
	clock := &framework.ManualClock{}
	loop := framework.NewLoop(clock)
	loop.Add(p)
	require.Equal(t, []string{"telemetry"}, loop.Runnables())
	ctx := context.Background()

	loop.RunIteration(ctx)
	require.False(t, p.Connected())
	require.Empty(t, client.published)

	q.onConnect(nil)
	require.True(t, p.Connected())
	require.Len(t, client.published, 1)
	require.Equal(t, "site/n1/meta", client.published[0].topic)
	clock.Advance(p.Period)
	loop.RunIteration(ctx)
	require.Len(t, client.published, 2)
	require.Equal(t, "site/n1/sensors", client.published[1].topic)
	fields, err := Decode(client.published[1].payload)
	require.NoError(t, err)
	require.Equal(t, "Comfort Zone", fields["climate"].(Fields)["comfort"])
	require.Equal(t, "Level (Face Up)", fields["accel"].(Fields)["orientation"])

	q.onConnectionLost(nil, errors.New("broker gone"))
	require.False(t, p.Connected())
	clock.Advance(p.Period)
	loop.RunIteration(ctx)
	require.Len(t, client.published, 2)
}

func TestPublisherConnect(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(&Queue{Client: client}, "n1", nil)
	p.PublishTimeout = time.Millisecond
	require.NoError(t, p.connect())

	client.connectToken = &pendingToken{}
	require.Equal(t, ErrConnectTimeout, p.connect())

	refused := errors.New("connection refused")
	client.connectToken = &pendingToken{done: true, err: refused}
	require.Equal(t, refused, p.connect())
	require.Equal(t, 3, client.connects)
}

func TestPublisherRecordsAndMeta(t *testing.T) {
	client := &fakeClient{pubCh: make(chan published, 4)}
	q := &Queue{Client: client}
	p := NewPublisher(q, "n1", Fields{"version": "1.0"})

	q.OnConnect(q)
	meta := <-client.pubCh
	require.Equal(t, "n1/meta", meta.topic)
	require.True(t, meta.retained)
	fields, err := Decode(meta.payload)
	require.NoError(t, err)
	require.Equal(t, Fields{"node": "n1", "version": "1.0"}, fields)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	p.RecordAdded(logstore.Record{Slot: 2, Timestamp: 1500, Level: logstore.LevelLogin, Module: "auth", Message: "Login admin"})
	rec := <-client.pubCh
	require.Equal(t, "n1/logs", rec.topic)
	fields, err = Decode(rec.payload)
	require.NoError(t, err)
	require.Equal(t, "LOGIN", fields["level"])
	require.Equal(t, 1500.0, fields["timestamp"])

	cancel()
	require.Equal(t, context.Canceled, <-done)
	gone := <-client.pubCh
	require.Equal(t, "n1/meta", gone.topic)
	require.Empty(t, gone.payload)
}

func TestParseEvent(t *testing.T) {
	b, err := Encode(Fields{"uptime": 10})
	require.NoError(t, err)
	ev, ok := parseEvent("n1/sensors", b)
	require.True(t, ok)
	require.Equal(t, Event{Node: "n1", Kind: TopicSensors, Fields: Fields{"uptime": 10.0}}, ev)

	ev, ok = parseEvent("n1/meta", nil)
	require.True(t, ok)
	require.True(t, ev.Gone())

	_, ok = parseEvent("n1/a/b", b)
	require.False(t, ok)
}

func TestDiscover(t *testing.T) {
	q := &Queue{Client: &fakeClient{}}
	meta, err := Encode(Fields{"node": "x"})
	require.NoError(t, err)
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.deliver("n2/meta", meta)
		q.deliver("n1/meta", meta)
		q.deliver("n3/meta", nil)
	}()
	nodes, err := Discover(context.Background(), q, 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []string{"n1", "n2"}, nodes)
}
