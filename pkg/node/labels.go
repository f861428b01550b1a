package node

import "math"

// Tone is how a label should be emphasized when displayed.
type Tone int

// Tones.
const (
	ToneNeutral Tone = iota
	ToneGood
	ToneNotice
	ToneWarn
	ToneBad
)

// Label is a classification for display.
type Label struct {
	Text string
	Tone Tone
}

// Comfort classifies a climate reading.
func Comfort(c Climate) Label {
	switch {
	case !c.OK:
		return Label{"Offline", ToneBad}
	case c.Temperature >= 20 && c.Temperature <= 25 && c.Humidity >= 40 && c.Humidity <= 60:
		return Label{"Comfort Zone", ToneGood}
	case c.Temperature > 25:
		return Label{"Too Hot", ToneBad}
	case c.Temperature < 20:
		return Label{"Too Cold", ToneNotice}
	case c.Humidity < 40:
		return Label{"Too Dry", ToneWarn}
	case c.Humidity > 60:
		return Label{"Too Humid", ToneWarn}
	}
	return Label{"Unknown", ToneNeutral}
}

// Orientation classifies an accelerometer reading.
func Orientation(a Accel) Label {
	if !a.OK {
		return Label{"Offline", ToneBad}
	}
	x, y, z := math.Abs(a.X), math.Abs(a.Y), math.Abs(a.Z)
	switch {
	case z > 0.8 && x < 0.3 && y < 0.3:
		if a.Z > 0 {
			return Label{"Level (Face Up)", ToneGood}
		}
		return Label{"Level (Face Down)", ToneNotice}
	case x > 0.7:
		return Label{"Tilted X-axis", ToneWarn}
	case y > 0.7:
		return Label{"Tilted Y-axis", ToneWarn}
	case a.Magnitude > 1.5:
		return Label{"Motion/Vibration", ToneBad}
	}
	return Label{"Tilted", ToneNeutral}
}
