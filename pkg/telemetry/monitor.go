package telemetry

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
)

// Event is a message published by a node.
type Event struct {
	Node string
	Kind string
	// Fields is nil when a node cleared its meta topic.
	Fields Fields
}

// Gone tells whether the event announces the node left.
func (e Event) Gone() bool {
	return e.Kind == TopicMeta && e.Fields == nil
}

func parseEvent(topic string, payload []byte) (Event, bool) {
	items := strings.Split(topic, "/")
	if len(items) != 2 {
		return Event{}, false
	}
	ev := Event{Node: items[0], Kind: items[1]}
	if len(payload) == 0 {
		return ev, true
	}
	fields, err := Decode(payload)
	if err != nil {
		glog.V(2).Infof("telemetry: bad payload on %s: %v", topic, err)
		return ev, false
	}
	ev.Fields = fields
	return ev, true
}

// Watch calls fn for every message of every node until ctx is done. fn is
// called from the client's goroutine.
func Watch(ctx context.Context, q *Queue, fn func(Event)) error {
	sub := q.Sub("+/+", func(topic string, payload []byte) {
		if ev, ok := parseEvent(topic, payload); ok {
			fn(ev)
		}
	})
	defer sub.Close()
	sub.Token.Wait()
	if err := sub.Token.Error(); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

// Discover collects the nodes announcing retained meta within timeout.
func Discover(ctx context.Context, q *Queue, timeout time.Duration) ([]string, error) {
	found := make(chan string, 16)
	sub := q.Sub("+/"+TopicMeta, func(topic string, payload []byte) {
		if ev, ok := parseEvent(topic, payload); ok && !ev.Gone() {
			select {
			case found <- ev.Node:
			case <-time.After(time.Second):
			}
		}
	})
	defer sub.Close()

	seen := make(map[string]bool)
	expire := time.After(timeout)
	for {
		select {
		case id := <-found:
			seen[id] = true
		case <-expire:
			nodes := make([]string, 0, len(seen))
			for id := range seen {
				nodes = append(nodes, id)
			}
			sort.Strings(nodes)
			return nodes, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
