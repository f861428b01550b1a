package node

import (
	"github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/guard"
	"github.com/robotalks/nodeterm/pkg/logstore"
)

// Poller is the periodic sensor refresh. A busy bus skips the round; a
// sensor going offline or coming back is journaled.
type Poller struct {
	Sensors Sensors
	Journal *logstore.Journal

	climateOK, accelOK bool
}

// NewPoller creates a Poller assuming both sensors start online.
func NewPoller(sensors Sensors, journal *logstore.Journal) *Poller {
	return &Poller{Sensors: sensors, Journal: journal, climateOK: true, accelOK: true}
}

// Control implements framework.Controller.
func (p *Poller) Control(cc framework.ControlContext) error {
	ctx := cc.Context()
	_, err := p.Sensors.UpdateClimate(ctx)
	if err == guard.ErrTimeout {
		return nil
	}
	p.track(cc, "HDC1080", &p.climateOK, err == nil)
	_, err = p.Sensors.UpdateAccel(ctx)
	if err == guard.ErrTimeout {
		return nil
	}
	p.track(cc, "ADXL345", &p.accelOK, err == nil)
	return nil
}

func (p *Poller) track(cc framework.ControlContext, sensor string, last *bool, ok bool) {
	if ok == *last {
		return
	}
	*last = ok
	if p.Journal == nil {
		return
	}
	if ok {
		p.Journal.Logf(cc.Context(), logstore.LevelSensor, "sensors", "%s back online", sensor)
	} else {
		p.Journal.Logf(cc.Context(), logstore.LevelWarning, "sensors", "%s not responding", sensor)
	}
}
