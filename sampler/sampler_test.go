package sampler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ipastusi/wifitrack/presence"
	"github.com/ipastusi/wifitrack/sampler"
	"github.com/ipastusi/wifitrack/scan"
)

const (
	macA = "aa:00:00:00:00:01"
	macB = "bb:00:00:00:00:02"
)

type manualClock struct {
	now atomic.Int64
}

func (c *manualClock) Now() time.Duration {
	return time.Duration(c.now.Load())
}

func (c *manualClock) set(d time.Duration) {
	c.now.Store(int64(d))
}

type step struct {
	ts       time.Duration
	networks []scan.Network
	err      error
	block    bool
}

// scriptedSource plays back steps and cancels the run once they are exhausted.
type scriptedSource struct {
	steps  []step
	calls  int
	clock  *manualClock
	cancel context.CancelFunc
}

func (s *scriptedSource) Scan(ctx context.Context) ([]scan.Network, error) {
	if s.calls >= len(s.steps) {
		s.cancel()
		return nil, ctx.Err()
	}
	st := s.steps[s.calls]
	s.calls++
	s.clock.set(st.ts)
	if st.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return st.networks, st.err
}

func sec(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func networks(bssids ...string) []scan.Network {
	var result []scan.Network
	for _, bssid := range bssids {
		result = append(result, scan.Network{BSSID: bssid, SSID: "net-" + bssid[:2], Channel: 6})
	}
	return result
}

func newRun(t *testing.T, threshold int, steps []step, opts sampler.Options) (*sampler.Sampler, *scriptedSource, context.Context) {
	t.Helper()
	tracker, err := presence.NewTracker(sec(threshold))
	if err != nil {
		t.Fatal("unexpected error creating tracker:", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := &manualClock{}
	source := &scriptedSource{steps: steps, clock: clock, cancel: cancel}
	if opts.Interval == 0 {
		opts.Interval = time.Millisecond
	}
	if opts.ScanTimeout == 0 {
		opts.ScanTimeout = time.Second
	}
	return sampler.New(source, tracker, clock, opts), source, ctx
}

func Test_Run(t *testing.T) {
	t.Parallel()

	steps := []step{
		{ts: sec(0), networks: networks(macA)},
		{ts: sec(1), networks: networks(macA, macB)},
		{ts: sec(2), networks: networks(macA)},
		{ts: sec(10), networks: networks(macB, "invalid")},
	}
	var diffs []presence.Diff
	opts := sampler.Options{
		OnDiff: func(diff presence.Diff, _ *presence.Tracker) {
			diffs = append(diffs, diff)
		},
	}
	s, _, ctx := newRun(t, 5, steps, opts)

	intervals, err := s.Run(ctx)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	attrsA := presence.Attributes{SSID: "net-aa", Channel: 6}
	attrsB := presence.Attributes{SSID: "net-bb", Channel: 6}
	expected := []presence.Interval{
		{Device: macB, Start: sec(1), End: sec(1), Attrs: attrsB},
		{Device: macA, Start: sec(0), End: sec(2), Attrs: attrsA},
		{Device: macB, Start: sec(10), End: sec(10), Attrs: attrsB},
	}
	if diff := cmp.Diff(expected, intervals); diff != "" {
		t.Fatalf("unexpected intervals (-want +got):\n%s", diff)
	}

	expectedDiffs := []presence.Diff{
		{Ts: sec(0), Arrived: []presence.DeviceID{macA}},
		{Ts: sec(1), Arrived: []presence.DeviceID{macB}},
		{Ts: sec(2), Missing: []presence.DeviceID{macB}},
		{Ts: sec(10), Returned: []presence.DeviceID{macB}, Closed: expected[:1], Missing: []presence.DeviceID{macA}},
		{Ts: sec(10), Closed: []presence.Interval{
			{Device: macA, Start: sec(0), End: sec(2), Attrs: attrsA},
			{Device: macB, Start: sec(10), End: sec(10), Attrs: attrsB},
		}},
	}
	if diff := cmp.Diff(expectedDiffs, diffs); diff != "" {
		t.Fatalf("unexpected diffs (-want +got):\n%s", diff)
	}
}

func Test_RunScanFailure(t *testing.T) {
	t.Parallel()

	steps := []step{
		{ts: sec(0), networks: networks(macA)},
		{ts: sec(5), err: errors.New("device busy")},
		{ts: sec(10), networks: networks(macB)},
	}
	s, source, ctx := newRun(t, 5, steps, sampler.Options{})

	intervals, err := s.Run(ctx)
	if !errors.Is(err, scan.ErrUnavailable) {
		t.Fatal("expected scan unavailable error, got:", err)
	}
	if source.calls != 2 {
		t.Fatal("unexpected number of scans after failure:", source.calls)
	}

	expected := []presence.Interval{
		{Device: macA, Start: sec(0), End: sec(0), Attrs: presence.Attributes{SSID: "net-aa", Channel: 6}},
	}
	if diff := cmp.Diff(expected, intervals); diff != "" {
		t.Fatalf("unexpected intervals (-want +got):\n%s", diff)
	}
}

func Test_RunScanTimeout(t *testing.T) {
	t.Parallel()

	steps := []step{
		{ts: sec(0), networks: networks(macA)},
		{ts: sec(1), block: true},
	}
	s, _, ctx := newRun(t, 5, steps, sampler.Options{ScanTimeout: 20 * time.Millisecond})

	intervals, err := s.Run(ctx)
	if !errors.Is(err, scan.ErrUnavailable) {
		t.Fatal("expected scan unavailable error, got:", err)
	}
	if len(intervals) != 1 {
		t.Fatal("unexpected intervals:", intervals)
	}
}

func Test_RunFilter(t *testing.T) {
	t.Parallel()

	steps := []step{
		{ts: sec(0), networks: networks(macA, macB)},
		{ts: sec(1), networks: networks(macB)},
	}
	opts := sampler.Options{
		Filter: func(snap presence.Snapshot) presence.Snapshot {
			filtered := presence.Snapshot{Ts: snap.Ts}
			for _, sighting := range snap.Sightings {
				if sighting.Device != macB {
					filtered.Sightings = append(filtered.Sightings, sighting)
				}
			}
			return filtered
		},
	}
	s, _, ctx := newRun(t, 5, steps, opts)

	intervals, err := s.Run(ctx)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(intervals) != 1 || intervals[0].Device != macA {
		t.Fatal("unexpected intervals:", intervals)
	}
}

func Test_RunCancelled(t *testing.T) {
	t.Parallel()

	s, source, ctx := newRun(t, 5, []step{{ts: sec(0), networks: networks(macA)}}, sampler.Options{})
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	intervals, err := s.Run(cancelled)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(intervals) != 0 || source.calls != 0 {
		t.Fatalf("unexpected work after cancellation, intervals: %v, scans: %v", intervals, source.calls)
	}
}
