package presence

import (
	"time"
)

// Attributes are carried through the tracker without being interpreted.
type Attributes struct {
	SSID     string
	Channel  int
	Signal   int
	Security string
}

type Sighting struct {
	Device DeviceID
	Attrs  Attributes
}

// Snapshot is one scan's worth of sightings. Ts is an offset on the run clock.
type Snapshot struct {
	Ts        time.Duration
	Sightings []Sighting
}

type Interval struct {
	Device DeviceID
	Start  time.Duration
	End    time.Duration
	Attrs  Attributes
}

func (i Interval) Duration() time.Duration {
	return i.End - i.Start
}

// Diff describes how a snapshot changed the tracker.
type Diff struct {
	Ts       time.Duration
	Arrived  []DeviceID
	Returned []DeviceID
	Closed   []Interval
	Missing  []DeviceID
}

func (d Diff) Empty() bool {
	return len(d.Arrived) == 0 && len(d.Returned) == 0 && len(d.Closed) == 0 && len(d.Missing) == 0
}
