package presence

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrInvalidThreshold = errors.New("silence threshold must be positive")
	ErrNonMonotonic     = errors.New("snapshot timestamp earlier than previous snapshot")
)

type span struct {
	openStart time.Duration
	lastSeen  time.Duration
	open      bool
	attrs     Attributes
}

// Tracker turns snapshots into presence intervals. It is not safe for
// concurrent use, callers serialize Ingest and Finalize.
type Tracker struct {
	threshold time.Duration
	devices   map[DeviceID]*span
	closed    []Interval
	previous  map[DeviceID]struct{}
	lastTs    time.Duration
	ingested  bool
}

func NewTracker(threshold time.Duration) (*Tracker, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	return &Tracker{
		threshold: threshold,
		devices:   map[DeviceID]*span{},
		closed:    []Interval{},
		previous:  map[DeviceID]struct{}{},
	}, nil
}

func (t *Tracker) Threshold() time.Duration {
	return t.threshold
}

// Ingest applies one snapshot. A device whose silence exceeded the threshold
// gets its previous span closed at its last sighting and a new span opened.
func (t *Tracker) Ingest(snap Snapshot) (Diff, error) {
	ts := snap.Ts
	if t.ingested && ts < t.lastTs {
		return Diff{}, fmt.Errorf("%w: %v < %v", ErrNonMonotonic, ts, t.lastTs)
	}
	t.ingested = true
	t.lastTs = ts

	diff := Diff{Ts: ts}
	seen := make(map[DeviceID]struct{}, len(snap.Sightings))
	for _, s := range snap.Sightings {
		if _, dup := seen[s.Device]; dup {
			// duplicates only refresh attributes
			t.devices[s.Device].attrs = s.Attrs
			continue
		}
		seen[s.Device] = struct{}{}

		d, ok := t.devices[s.Device]
		switch {
		case !ok:
			d = &span{openStart: ts, lastSeen: ts, open: true}
			t.devices[s.Device] = d
			diff.Arrived = append(diff.Arrived, s.Device)
		case !d.open:
			d.openStart, d.lastSeen, d.open = ts, ts, true
			diff.Returned = append(diff.Returned, s.Device)
		case ts-d.lastSeen > t.threshold:
			interval := t.close(s.Device, d)
			diff.Closed = append(diff.Closed, interval)
			diff.Returned = append(diff.Returned, s.Device)
			d.openStart, d.lastSeen, d.open = ts, ts, true
		default:
			d.lastSeen = ts
		}
		d.attrs = s.Attrs
	}

	for id := range t.previous {
		if _, ok := seen[id]; !ok {
			diff.Missing = append(diff.Missing, id)
		}
	}
	slices.Sort(diff.Missing)
	t.previous = seen
	return diff, nil
}

// Finalize closes every open span at its last sighting, not at now, and
// returns all closed intervals in closure order with the latest attributes
// of each device. Calling it again without new snapshots adds nothing.
func (t *Tracker) Finalize(now time.Duration) []Interval {
	for _, id := range t.openDevices() {
		t.close(id, t.devices[id])
	}
	if now > t.lastTs {
		t.lastTs = now
	}

	intervals := make([]Interval, len(t.closed))
	for i, interval := range t.closed {
		interval.Attrs = t.devices[interval.Device].attrs
		intervals[i] = interval
	}
	return intervals
}

func (t *Tracker) close(id DeviceID, d *span) Interval {
	interval := Interval{
		Device: id,
		Start:  d.openStart,
		End:    d.lastSeen,
		Attrs:  d.attrs,
	}
	t.closed = append(t.closed, interval)
	d.open = false
	return interval
}

func (t *Tracker) openDevices() []DeviceID {
	var ids []DeviceID
	for id, d := range t.devices {
		if d.open {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b DeviceID) int {
		if c := cmp.Compare(t.devices[a].openStart, t.devices[b].openStart); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}
