// Package env assembles a node from its config: the flash image and
// stores, the simulated hardware, the console links and telemetry.
package env

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nodeterm/pkg/account"
	"github.com/robotalks/nodeterm/pkg/config"
	"github.com/robotalks/nodeterm/pkg/console"
	"github.com/robotalks/nodeterm/pkg/flash"
	fx "github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/guard"
	"github.com/robotalks/nodeterm/pkg/logstore"
	"github.com/robotalks/nodeterm/pkg/node"
	"github.com/robotalks/nodeterm/pkg/node/sim"
	"github.com/robotalks/nodeterm/pkg/serial"
	"github.com/robotalks/nodeterm/pkg/telemetry"
)

// Version is the firmware version reported by the node.
var Version = "0.3.0"

// Periods of the node's controllers.
const (
	SensorPeriod = 2 * time.Second
	LEDPeriod    = 50 * time.Millisecond
)

// Env is an assembled node.
type Env struct {
	Config    *config.Config
	Clock     fx.Clock
	Locks     *guard.Set
	Dev       flash.Device
	Logs      *logstore.Store
	Journal   *logstore.Journal
	Accounts  *account.Store
	Sensors   *sim.Sensors
	Bus       *sim.Bus
	LEDs      *sim.LEDBank
	Publisher *telemetry.Publisher

	listener *serial.WebsocketListener
	tasks    console.TaskTable
	closer   func() error
}

// New builds the node from conf. Failing to create the locks is returned
// as is; callers treat every error here as fatal.
func New(ctx context.Context, conf *config.Config) (*Env, error) {
	locks, err := guard.NewSet(conf.Timeouts())
	if err != nil {
		return nil, fmt.Errorf("create locks: %w", err)
	}
	dev, err := flash.OpenFile(conf.Flash, conf.Geometry())
	if err != nil {
		return nil, fmt.Errorf("open flash %s: %w", conf.Flash, err)
	}
	e := &Env{
		Config: conf,
		Clock:  fx.NewSystemClock(),
		Locks:  locks,
		Dev:    dev,
		closer: dev.Close,
	}
	if err := e.setupStores(ctx); err != nil {
		dev.Close()
		return nil, err
	}

	e.Sensors = sim.NewSensors(locks.Bus, e.Clock)
	e.Bus = sim.NewBus(locks.Bus, e.Sensors)
	e.LEDs = sim.NewLEDBank(e.Clock)
	e.LEDs.OnExpire = func(cc fx.ControlContext, n int) {
		e.Journal.Logf(cc.Context(), logstore.LevelInfo, "led", "LED%d timer expired", n)
	}

	if conf.MQTTBrokerURL != "" {
		pub, err := telemetry.NewPublisherFromURL(conf.MQTTBrokerURL, conf.NodeID, telemetry.Fields{
			"hostname": conf.Hostname,
			"version":  Version,
			"slots":    e.Logs.Capacity(),
		})
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("create telemetry publisher: %w", err)
		}
		pub.Sensors = e.Sensors
		pub.Period = conf.TelemetryPeriod
		e.Logs.AddNotifier(pub)
		e.Publisher = pub
	}
	if conf.Link == config.LinkWebsocket {
		e.listener = serial.NewWebsocketListener(conf.Listen, conf.WSPath)
	}
	return e, nil
}

func (e *Env) setupStores(ctx context.Context) (err error) {
	if e.Logs, err = logstore.New(e.Dev, e.Locks.Storage, e.Clock, e.Config.LogStore()); err != nil {
		return err
	}
	if err = e.Logs.Init(ctx); err != nil {
		return fmt.Errorf("init log store: %w", err)
	}
	e.Journal = logstore.NewJournal(e.Logs, e.Clock)
	if e.Accounts, err = account.New(e.Dev, e.Locks.Storage, e.Config.Accounts()); err != nil {
		return err
	}
	if err = e.Accounts.Load(ctx); err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if e.Accounts.UsingDefaults() {
		e.Journal.Logf(ctx, logstore.LevelWarning, "auth", "Using default credentials")
	}
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, "sensors", SensorPeriod, node.NewPoller(e.Sensors, e.Journal))
	loop.AddController(fx.PrLvActuate, "leds", LEDPeriod, e.LEDs)
	if e.Publisher != nil {
		loop.Add(e.Publisher)
	}
	if e.listener != nil {
		loop.AddRunnable(fx.NamedRun("websocket", e.listener))
	}
	e.tasks = loop
}

// Close releases the flash image.
func (e *Env) Close() error {
	return e.closer()
}

// Console returns the Runnable serving console sessions on the configured
// link. On stdio it stops when the terminal closes.
func (e *Env) Console() fx.Runnable {
	if e.listener != nil {
		return fx.NamedRun("console", fx.RunFunc(e.serveWebsocket))
	}
	return fx.NamedRun("console", fx.RunFunc(e.serveStdio))
}

// NewSession creates a console session writing to out.
func (e *Env) NewSession(out console.Sender, overruns func() uint64) *console.Session {
	return console.NewSession(console.Config{
		Out:         out,
		Clock:       e.Clock,
		Accounts:    e.Accounts,
		Journal:     e.Journal,
		Sensors:     e.Sensors,
		Bus:         e.Bus,
		LEDs:        e.LEDs,
		Tasks:       e.tasks,
		Style:       console.NewStyle(e.Config.NoColor),
		Hostname:    e.Config.Hostname,
		Version:     Version,
		IdleTimeout: e.Config.IdleTimeout,
		Overruns:    overruns,
	})
}

// serveLink runs one session on link until the link closes or ctx is done.
func (e *Env) serveLink(ctx context.Context, link serial.Link) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	pump := serial.NewPump(link)
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- pump.Run(ctx) }()

	glog.Infof("console: session on %s", link.Name())
	session := e.NewSession(serial.NewOutput(link, e.Locks.Serial), pump.Overruns)
	err := session.Run(ctx, pump)
	cancel()
	if perr := <-pumpErr; err == nil && perr != nil && perr != context.Canceled {
		glog.V(1).Infof("console: %s closed: %v", link.Name(), perr)
	}
	return err
}

func (e *Env) serveStdio(ctx context.Context) error {
	link, err := serial.OpenStdio()
	if err != nil {
		return err
	}
	return e.serveLink(ctx, link)
}

func (e *Env) serveWebsocket(ctx context.Context) error {
	for {
		link, err := e.listener.Accept(ctx)
		if err != nil {
			return err
		}
		if err := e.serveLink(ctx, link); err != nil {
			return err
		}
	}
}
