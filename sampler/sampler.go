package sampler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ipastusi/wifitrack/presence"
	"github.com/ipastusi/wifitrack/scan"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Interval    time.Duration
	ScanTimeout time.Duration
	LogHandler  slog.Handler
	// Filter is applied to every snapshot before it reaches the tracker.
	Filter func(presence.Snapshot) presence.Snapshot
	// OnDiff runs on the goroutine owning the tracker, after every snapshot
	// and once more for the spans closed by Finalize.
	OnDiff func(presence.Diff, *presence.Tracker)
}

// Sampler scans at a fixed cadence and feeds the results into a tracker.
type Sampler struct {
	source  scan.Source
	tracker *presence.Tracker
	clock   presence.Clock
	opts    Options
}

func New(source scan.Source, tracker *presence.Tracker, clock presence.Clock, opts Options) *Sampler {
	return &Sampler{
		source:  source,
		tracker: tracker,
		clock:   clock,
		opts:    opts,
	}
}

// Run samples until ctx is done or a scan fails, then finalizes the tracker.
// The intervals are returned in both cases, the error only reports failures.
func (s *Sampler) Run(ctx context.Context) ([]presence.Interval, error) {
	snapshots := make(chan presence.Snapshot)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(snapshots)
		return s.produce(gctx, snapshots)
	})
	g.Go(func() error {
		return s.consume(snapshots)
	})
	err := g.Wait()

	now := s.clock.Now()
	open := s.tracker.Open()
	intervals := s.tracker.Finalize(now)
	if len(open) > 0 && s.opts.OnDiff != nil {
		s.opts.OnDiff(presence.Diff{Ts: now, Closed: open}, s.tracker)
	}
	s.log(slog.LevelInfo, "tracker finalized", slog.Int("intervals", len(intervals)), slog.Int("devices", len(s.tracker.Devices())))
	return intervals, err
}

func (s *Sampler) produce(ctx context.Context, out chan<- presence.Snapshot) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		snap, err := s.scanOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// stopped while scanning
				return nil
			}
			s.log(slog.LevelError, "scan failed", slog.String("error", err.Error()))
			return err
		}

		select {
		case out <- snap:
		case <-ctx.Done():
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Sampler) scanOnce(ctx context.Context) (presence.Snapshot, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.opts.ScanTimeout)
	defer cancel()

	networks, err := s.source.Scan(scanCtx)
	if err != nil {
		return presence.Snapshot{}, scan.Unavailable(err)
	}
	return scan.ToSnapshot(s.clock.Now(), networks), nil
}

// consume is the only caller of Ingest while Run is sampling.
func (s *Sampler) consume(snapshots <-chan presence.Snapshot) error {
	for snap := range snapshots {
		if s.opts.Filter != nil {
			snap = s.opts.Filter(snap)
		}

		diff, err := s.tracker.Ingest(snap)
		if err != nil {
			return err
		}
		s.log(slog.LevelDebug, "snapshot ingested",
			slog.Duration("ts", snap.Ts),
			slog.Int("sightings", len(snap.Sightings)),
			slog.Int("arrived", len(diff.Arrived)),
			slog.Int("returned", len(diff.Returned)),
			slog.Int("missing", len(diff.Missing)),
		)

		if s.opts.OnDiff != nil {
			s.opts.OnDiff(diff, s.tracker)
		}
	}
	return nil
}

func (s *Sampler) log(level slog.Level, msg string, attrs ...slog.Attr) {
	if s.opts.LogHandler == nil {
		return
	}

	ctx := context.Background()
	if !s.opts.LogHandler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	_ = s.opts.LogHandler.Handle(ctx, r)
}
