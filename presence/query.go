package presence

import (
	"cmp"
	"slices"
	"time"
)

// Intervals returns the closed intervals in closure order, with attributes
// as they were when each interval was closed.
func (t *Tracker) Intervals() []Interval {
	return slices.Clone(t.closed)
}

func (t *Tracker) Len() int {
	return len(t.closed)
}

// DeviceIntervals returns the closed intervals of one device ordered by start.
func (t *Tracker) DeviceIntervals(id DeviceID) []Interval {
	var intervals []Interval
	for _, interval := range t.closed {
		if interval.Device == id {
			intervals = append(intervals, interval)
		}
	}
	sortByStart(intervals)
	return intervals
}

func (t *Tracker) ByDevice() map[DeviceID][]Interval {
	byDevice := map[DeviceID][]Interval{}
	for _, interval := range t.closed {
		byDevice[interval.Device] = append(byDevice[interval.Device], interval)
	}
	for _, intervals := range byDevice {
		sortByStart(intervals)
	}
	return byDevice
}

// Devices returns every device seen during the run, sorted.
func (t *Tracker) Devices() []DeviceID {
	ids := make([]DeviceID, 0, len(t.devices))
	for id := range t.devices {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Open returns the currently open spans as intervals ending at the last sighting.
func (t *Tracker) Open() []Interval {
	ids := t.openDevices()
	intervals := make([]Interval, 0, len(ids))
	for _, id := range ids {
		d := t.devices[id]
		intervals = append(intervals, Interval{
			Device: id,
			Start:  d.openStart,
			End:    d.lastSeen,
			Attrs:  d.attrs,
		})
	}
	return intervals
}

// OpenSpan returns the open span of a device, if it has one.
func (t *Tracker) OpenSpan(id DeviceID) (Interval, bool) {
	d, ok := t.devices[id]
	if !ok || !d.open {
		return Interval{}, false
	}
	return Interval{Device: id, Start: d.openStart, End: d.lastSeen, Attrs: d.attrs}, true
}

func (t *Tracker) Attributes(id DeviceID) (Attributes, bool) {
	d, ok := t.devices[id]
	if !ok {
		return Attributes{}, false
	}
	return d.attrs, true
}

func (t *Tracker) LastSeen(id DeviceID) (time.Duration, bool) {
	d, ok := t.devices[id]
	if !ok {
		return 0, false
	}
	return d.lastSeen, true
}

// TotalPresence sums closed intervals and the open span, if any.
func (t *Tracker) TotalPresence(id DeviceID) time.Duration {
	var total time.Duration
	for _, interval := range t.closed {
		if interval.Device == id {
			total += interval.Duration()
		}
	}
	if d, ok := t.devices[id]; ok && d.open {
		total += d.lastSeen - d.openStart
	}
	return total
}

func sortByStart(intervals []Interval) {
	slices.SortStableFunc(intervals, func(a, b Interval) int {
		return cmp.Compare(a.Start, b.Start)
	})
}
