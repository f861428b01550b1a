package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/telemetry"
)

var (
	mqttURL  = "mqtt://localhost:1883/nodeterm/"
	list     bool
	discover = time.Second
)

func init() {
	if val := os.Getenv("NODETERM_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.BoolVar(&list, "list", list, "List the nodes online and exit.")
	flag.DurationVar(&discover, "discover-timeout", discover, "How long to wait for nodes with -list.")
}

func format(fields telemetry.Fields) string {
	items := make([]string, 0, len(fields))
	for _, key := range fields.Keys() {
		items = append(items, fmt.Sprintf("%s=%v", key, fields[key]))
	}
	return strings.Join(items, " ")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := telemetry.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := telemetry.NewQueue(opts, prefix)
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	if list {
		nodes, err := telemetry.Discover(context.Background(), q, discover)
		if err != nil {
			log.Fatalln(err)
		}
		for _, id := range nodes {
			fmt.Println(id)
		}
		return
	}

	runner := framework.NewRunner().HandleSignals()
	runner.Go(framework.RunFunc(func(ctx context.Context) error {
		return telemetry.Watch(ctx, q, func(ev telemetry.Event) {
			switch {
			case ev.Gone():
				log.Printf("%s: offline", ev.Node)
			case ev.Kind == telemetry.TopicLogs:
				log.Printf("%s: [%v] %v: %v", ev.Node, ev.Fields["level"], ev.Fields["module"], ev.Fields["message"])
			default:
				log.Printf("%s/%s: %s", ev.Node, ev.Kind, format(ev.Fields))
			}
		})
	}))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
