package cache_test

import (
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ipastusi/wifitrack/cache"
	"github.com/ipastusi/wifitrack/presence"
)

type staticResolver string

func (r staticResolver) Vendor(net.HardwareAddr) string {
	return string(r)
}

const (
	devA = presence.DeviceID("aa:00:00:00:00:01")
	devB = presence.DeviceID("bb:00:00:00:00:02")
)

func sec(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func Test_Refresh(t *testing.T) {
	t.Parallel()

	tracker, err := presence.NewTracker(sec(5))
	if err != nil {
		t.Fatal("unexpected error creating tracker:", err)
	}
	attrsA := presence.Attributes{SSID: "home", Channel: 6, Signal: 70, Security: "WPA2"}
	attrsB := presence.Attributes{SSID: "cafe", Channel: 11, Signal: 30}
	snaps := []presence.Snapshot{
		{Ts: sec(0), Sightings: []presence.Sighting{{Device: devB, Attrs: attrsB}}},
		{Ts: sec(1), Sightings: []presence.Sighting{{Device: devA, Attrs: attrsA}, {Device: devB, Attrs: attrsB}}},
		{Ts: sec(3), Sightings: []presence.Sighting{{Device: devA, Attrs: attrsA}}},
		{Ts: sec(20), Sightings: []presence.Sighting{{Device: devB, Attrs: attrsB}}},
	}
	for _, snap := range snaps {
		if _, err = tracker.Ingest(snap); err != nil {
			t.Fatal("unexpected error ingesting snapshot:", err)
		}
	}

	deviceCache := cache.NewDeviceCache(staticResolver("Acme"))
	deviceCache.Refresh(tracker)

	expected := []cache.DeviceDetails{
		{
			Mac: "bb:00:00:00:00:02", Vendor: "Acme", Ssid: "cafe", Channel: 11, Signal: 30,
			FirstSeen: sec(0), LastSeen: sec(20), Total: sec(1), Spans: 2, Present: true,
		},
		{
			Mac: "aa:00:00:00:00:01", Vendor: "Acme", Ssid: "home", Channel: 6, Signal: 70, Security: "WPA2",
			FirstSeen: sec(1), LastSeen: sec(3), Total: sec(2), Spans: 1, Present: true,
		},
	}
	if diff := cmp.Diff(expected, deviceCache.Sorted()); diff != "" {
		t.Fatalf("unexpected devices (-want +got):\n%s", diff)
	}

	tracker.Finalize(sec(20))
	deviceCache.Refresh(tracker)
	details := deviceCache.Device(devA)
	if details.Present || details.Spans != 1 || details.FirstSeen != sec(1) {
		t.Fatalf("unexpected details after finalize: %+v", details)
	}
}

func Test_SortedEmpty(t *testing.T) {
	t.Parallel()

	deviceCache := cache.NewDeviceCache(nil)
	if devices := deviceCache.Sorted(); len(devices) != 0 {
		t.Fatal("unexpected devices:", devices)
	}
}
