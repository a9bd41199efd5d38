package cache

import (
	"cmp"
	"slices"
	"time"

	"github.com/ipastusi/wifitrack/oui"
	"github.com/ipastusi/wifitrack/presence"
)

// DeviceDetails is a point in time copy of what the tracker knows about a device.
type DeviceDetails struct {
	Mac       string
	Vendor    string
	Ssid      string
	Channel   int
	Signal    int
	Security  string
	FirstSeen time.Duration
	LastSeen  time.Duration
	Total     time.Duration
	Spans     int
	Present   bool
}

// DeviceCache holds copies of tracker state for readers on other goroutines.
type DeviceCache struct {
	Items    map[presence.DeviceID]DeviceDetails
	resolver oui.Resolver
}

func NewDeviceCache(resolver oui.Resolver) DeviceCache {
	return DeviceCache{
		Items:    map[presence.DeviceID]DeviceDetails{},
		resolver: resolver,
	}
}

// Refresh copies the current state of every tracked device. It must run on
// the goroutine owning the tracker.
func (c *DeviceCache) Refresh(tracker *presence.Tracker) {
	for _, id := range tracker.Devices() {
		val, ok := c.Items[id]
		if !ok {
			val.Mac = id.String()
			if c.resolver != nil {
				val.Vendor = c.resolver.Vendor(id.MAC())
			}
		}

		attrs, _ := tracker.Attributes(id)
		val.Ssid, val.Channel, val.Signal, val.Security = attrs.SSID, attrs.Channel, attrs.Signal, attrs.Security
		val.LastSeen, _ = tracker.LastSeen(id)
		val.Total = tracker.TotalPresence(id)

		closed := tracker.DeviceIntervals(id)
		open, present := tracker.OpenSpan(id)
		val.Present = present
		val.Spans = len(closed)
		switch {
		case len(closed) > 0:
			val.FirstSeen = closed[0].Start
		case present:
			val.FirstSeen = open.Start
		}
		if present {
			val.Spans++
		}
		c.Items[id] = val
	}
}

func (c *DeviceCache) Device(id presence.DeviceID) DeviceDetails {
	return c.Items[id]
}

// Sorted returns the cached devices ordered by first sighting, then MAC.
func (c *DeviceCache) Sorted() []DeviceDetails {
	devices := make([]DeviceDetails, 0, len(c.Items))
	for _, val := range c.Items {
		devices = append(devices, val)
	}
	slices.SortFunc(devices, func(a, b DeviceDetails) int {
		if r := cmp.Compare(a.FirstSeen, b.FirstSeen); r != 0 {
			return r
		}
		return cmp.Compare(a.Mac, b.Mac)
	})
	return devices
}
