package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/logstore"
	"github.com/robotalks/nodeterm/pkg/node"
)

// Topic kinds under <prefix><node-id>/.
const (
	TopicMeta    = "meta"
	TopicLogs    = "logs"
	TopicSensors = "sensors"
)

// Defaults of a Publisher.
const (
	DefaultPeriod         = 5 * time.Second
	DefaultPublishTimeout = time.Second
	recordBacklog         = 32
)

// ErrConnectTimeout is returned when the broker does not answer within
// PublishTimeout. The client keeps trying in the background.
var ErrConnectTimeout = errors.New("broker connect timed out")

// Publisher mirrors stored log records and periodic sensor snapshots to
// the broker. It is a logstore.Notifier, a loop controller and a Runnable.
type Publisher struct {
	Queue          *Queue
	NodeID         string
	Meta           Fields
	Sensors        node.Sensors
	Period         time.Duration
	PublishTimeout time.Duration

	records   chan logstore.Record
	connected atomic.Bool
}

// NewPublisher creates a Publisher over q.
func NewPublisher(q *Queue, nodeID string, meta Fields) *Publisher {
	p := &Publisher{
		Queue:          q,
		NodeID:         nodeID,
		Meta:           meta,
		Period:         DefaultPeriod,
		PublishTimeout: DefaultPublishTimeout,
		records:        make(chan logstore.Record, recordBacklog),
	}
	q.OnConnect = func(*Queue) {
		p.connected.Store(true)
		p.publishMeta()
	}
	q.OnDisconnect = func(*Queue) { p.connected.Store(false) }
	return p
}

// Connected tells whether the broker connection is up.
func (p *Publisher) Connected() bool {
	return p.connected.Load()
}

// NewPublisherFromURL connects to the broker at brokerURL. The retained
// meta topic is cleared by the broker when the node goes away.
func NewPublisherFromURL(brokerURL, nodeID string, meta Fields) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+nodeID+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("nodeterm:" + nodeID)
	}
	return NewPublisher(NewQueue(opts, topicPrefix), nodeID, meta), nil
}

// Topic returns the topic of kind for this node.
func (p *Publisher) Topic(kind string) string {
	return p.NodeID + "/" + kind
}

// AddToLoop implements framework.LoopAdder.
func (p *Publisher) AddToLoop(loop *framework.Loop) {
	loop.AddController(framework.PrLvMonitor, "telemetry", p.Period, p)
}

// RecordAdded implements logstore.Notifier. It never blocks the writer.
func (p *Publisher) RecordAdded(r logstore.Record) {
	select {
	case p.records <- r:
	default:
		glog.V(2).Infof("telemetry: backlog full, record %d not published", r.Slot)
	}
}

// Control implements framework.Controller and publishes the cached sensor
// readings. Snapshots taken while offline are skipped.
func (p *Publisher) Control(cc framework.ControlContext) error {
	if p.Sensors == nil || !p.Connected() {
		return nil
	}
	payload, err := Encode(SensorFields(cc.Uptime(), p.Sensors.Climate(), p.Sensors.Accel()))
	if err != nil {
		return err
	}
	p.Queue.Pub(p.Topic(TopicSensors), payload)
	return nil
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.connect(); err != nil {
		glog.Warningf("telemetry: connect failed: %v", err)
	}
	defer func() {
		p.Queue.PubWith(p.Topic(TopicMeta), nil, 1, true).WaitTimeout(p.PublishTimeout)
		p.Queue.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-p.records:
			p.publishRecord(r)
		}
	}
}

func (p *Publisher) connect() error {
	token := p.Queue.Connect()
	if !token.WaitTimeout(p.PublishTimeout) {
		return ErrConnectTimeout
	}
	return token.Error()
}

func (p *Publisher) publishRecord(r logstore.Record) {
	payload, err := Encode(RecordFields(r))
	if err != nil {
		glog.Errorf("telemetry: encode record: %v", err)
		return
	}
	token := p.Queue.Pub(p.Topic(TopicLogs), payload)
	if token.WaitTimeout(p.PublishTimeout) && token.Error() != nil {
		glog.V(2).Infof("telemetry: publish record %d: %v", r.Slot, token.Error())
	}
}

func (p *Publisher) publishMeta() {
	meta := Fields{"node": p.NodeID}
	for k, v := range p.Meta {
		meta[k] = v
	}
	payload, err := Encode(meta)
	if err != nil {
		glog.Errorf("telemetry: encode meta: %v", err)
		return
	}
	p.Queue.PubWith(p.Topic(TopicMeta), payload, 1, true)
}

// RecordFields is the payload of a log record.
func RecordFields(r logstore.Record) Fields {
	return Fields{
		"slot":      r.Slot,
		"timestamp": r.Timestamp,
		"level":     r.Level.String(),
		"module":    r.Module,
		"message":   r.Message,
	}
}

// SensorFields is the payload of a sensor snapshot.
func SensorFields(uptime time.Duration, c node.Climate, a node.Accel) Fields {
	f := Fields{"uptime": int64(uptime / time.Millisecond)}
	if c.OK {
		f["climate"] = Fields{
			"temperature": c.Temperature,
			"humidity":    c.Humidity,
			"comfort":     node.Comfort(c).Text,
		}
	}
	if a.OK {
		f["accel"] = Fields{
			"x":           a.X,
			"y":           a.Y,
			"z":           a.Z,
			"magnitude":   a.Magnitude,
			"orientation": node.Orientation(a).Text,
		}
	}
	return f
}
