package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ipastusi/wifitrack/cache"
	"github.com/ipastusi/wifitrack/capture"
	"github.com/ipastusi/wifitrack/cli"
	"github.com/ipastusi/wifitrack/config"
	"github.com/ipastusi/wifitrack/event"
	"github.com/ipastusi/wifitrack/history"
	"github.com/ipastusi/wifitrack/oui"
	"github.com/ipastusi/wifitrack/presence"
	"github.com/ipastusi/wifitrack/report"
	"github.com/ipastusi/wifitrack/sampler"
	"github.com/ipastusi/wifitrack/scan"
)

func main() {
	flags := cli.GetFlags()
	var cfgData []byte
	var err error
	if flags.ConfigFileName != nil && *flags.ConfigFileName != "" {
		cfgData, err = os.ReadFile(*flags.ConfigFileName)
		if err != nil {
			exitOnError(err)
		}
	}

	cfg, err := config.GetConfig(cfgData, flags.IfaceName, flags.Source, flags.LogFileName, flags.ScanDuration, flags.Ui)
	if *flags.RenderConfig {
		renderedConfig, errMarshal := config.Render(cfg)
		fmt.Printf("%v", string(renderedConfig))
		var errs []error
		if err != nil {
			errs = append(errs, err)
		}
		if errMarshal != nil {
			errs = append(errs, errMarshal)
		}
		exitOnErrors(errs)
		os.Exit(0)
	}
	if errors.Is(err, config.ErrNoInterface) {
		fmt.Printf("Usage of %v:\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	exitOnError(err)

	logFile, err := os.OpenFile(*cfg.LogFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	exitOnError(err)
	logHandler := slog.NewJSONHandler(logFile, nil)

	resolver, err := newResolver(cfg)
	exitOnError(err)
	if cfg.OuiFile == nil {
		logInfo(logHandler, "no ouiFile configured, vendor names limited to the embedded table", slog.Int("prefixes", oui.EmbeddedLen()))
	}

	source, closeSource, err := newSource(cfg)
	exitOnError(err)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if *cfg.InstantScan {
		err = runInstant(ctx, cfg, source, resolver, logHandler)
	} else {
		err = runScheduled(ctx, cfg, source, resolver, logHandler)
	}
	stop()
	closeSource()
	exitOnError(err)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func exitOnErrors(errs []error) {
	if len(errs) != 0 {
		fmt.Println(errs)
		os.Exit(1)
	}
}

func newResolver(cfg config.Config) (oui.Resolver, error) {
	if cfg.OuiFile == nil {
		return oui.Embedded{}, nil
	}
	table, err := oui.LoadCSVFile(*cfg.OuiFile)
	if err != nil {
		return nil, fmt.Errorf("%w: oui file: %w", config.ErrInvalid, err)
	}
	return table, nil
}

func newSource(cfg config.Config) (scan.Source, func(), error) {
	if *cfg.Source == config.SourcePcap {
		monitor, err := capture.OpenMonitor(*cfg.IfaceName)
		if err != nil {
			return nil, nil, err
		}
		window := min(cfg.ScanInterval(), cfg.ScanTimeout())
		return monitor.Source(window), monitor.Close, nil
	}
	return scan.NewNmcliSource(*cfg.IfaceName), func() {}, nil
}

func newFilter(cfg config.Config) (event.Filter, error) {
	var excludedMACs map[presence.DeviceID]struct{}
	if cfg.ExcludeConfig.MacFile != nil {
		data, err := os.ReadFile(*cfg.ExcludeConfig.MacFile)
		if err != nil {
			return event.Filter{}, fmt.Errorf("%w: exclude file: %w", config.ErrInvalid, err)
		}
		excludedMACs, err = event.ReadMACs(data)
		if err != nil {
			return event.Filter{}, fmt.Errorf("%w: exclude file %v: %w", config.ErrInvalid, *cfg.ExcludeConfig.MacFile, err)
		}
	}
	return event.NewFilter(excludedMACs, cfg.ExcludeConfig.Ssids), nil
}

// runInstant takes a single scan and writes a report without durations.
func runInstant(ctx context.Context, cfg config.Config, source scan.Source, resolver oui.Resolver, logHandler slog.Handler) error {
	filter, err := newFilter(cfg)
	if err != nil {
		return err
	}

	scanCtx, cancel := context.WithTimeout(ctx, cfg.ScanTimeout())
	defer cancel()
	networks, err := source.Scan(scanCtx)
	if err != nil {
		err = scan.Unavailable(err)
		logError(logHandler, "scan failed", slog.String("error", err.Error()))
		return err
	}

	snap := filter.Apply(scan.ToSnapshot(0, networks))
	reportPath := cfg.ReportPath()
	if err = report.Write(reportPath, report.BuildInstant(snap, resolver)); err != nil {
		logError(logHandler, "report not written", slog.String("error", err.Error()))
		return err
	}
	logInfo(logHandler, "instant scan finished", slog.Int("networks", len(snap.Sightings)), slog.String("report", reportPath))
	return nil
}

// runScheduled samples for the configured duration and writes the interval report.
// A scan failure ends the run without a report.
func runScheduled(ctx context.Context, cfg config.Config, source scan.Source, resolver oui.Resolver, logHandler slog.Handler) error {
	filter, err := newFilter(cfg)
	if err != nil {
		return err
	}
	tracker, err := presence.NewTracker(cfg.Threshold())
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.HistoryFile != nil {
		store, err = history.Open(ctx, *cfg.HistoryFile)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	if !waitStart(ctx, cfg.StartAfter(), logHandler) {
		return nil
	}

	runId := uuid.New()
	clock := presence.NewMonotonicClock()
	runCtx, cancel := context.WithTimeout(ctx, cfg.ScanDuration())
	defer cancel()

	eventDir := ""
	if cfg.EventsConfig.Directory != nil {
		eventDir = *cfg.EventsConfig.Directory
		if delay := *cfg.EventsConfig.AutoCleanupDelaySec; delay > 0 {
			janitor, err := event.NewJanitor(logHandler, eventDir, delay)
			if err != nil {
				return err
			}
			janitor.Start(runCtx)
		}
	}
	enabled := map[event.Type]bool{
		event.DeviceArrived:  *cfg.EventsConfig.Arrived,
		event.DeviceReturned: *cfg.EventsConfig.Returned,
		event.DeviceLeft:     *cfg.EventsConfig.Left,
	}
	handler := event.NewHandler(logHandler, eventDir, enabled, resolver, runId.String(), clock.Start())

	var uiApp *UIApp
	deviceCache := cache.NewDeviceCache(resolver)
	if *cfg.Ui {
		uiApp = newUIApp()
		go func() {
			if err := loadUI(uiApp, *cfg.IfaceName, *cfg.Source, cancel); err != nil {
				logError(logHandler, "unable to load the UI", slog.String("error", err.Error()))
			}
		}()
		defer uiApp.app.Stop()
	}

	s := sampler.New(source, tracker, clock, sampler.Options{
		Interval:    cfg.ScanInterval(),
		ScanTimeout: cfg.ScanTimeout(),
		LogHandler:  logHandler,
		Filter:      filter.Apply,
		OnDiff: func(diff presence.Diff, tracker *presence.Tracker) {
			handler.Handle(diff, tracker)
			if uiApp != nil {
				deviceCache.Refresh(tracker)
				uiApp.refreshTable(deviceCache.Sorted())
			}
		},
	})

	logInfo(logHandler, "scan started", slog.String("runId", runId.String()), slog.Duration("duration", cfg.ScanDuration()))
	intervals, err := s.Run(runCtx)
	if err != nil {
		logError(logHandler, "run aborted, no report written", slog.String("runId", runId.String()), slog.String("error", err.Error()))
		return err
	}

	reportPath := cfg.ReportPath()
	if err = report.Write(reportPath, report.Build(intervals, resolver)); err != nil {
		logError(logHandler, "report not written", slog.String("error", err.Error()))
		return err
	}

	if store != nil {
		run := history.Run{Id: runId, StartedAt: clock.Start(), Threshold: cfg.Threshold(), Source: *cfg.Source}
		if err = store.SaveRun(context.Background(), run, intervals); err != nil {
			logError(logHandler, "history not saved", slog.String("history", store.Path()), slog.String("error", err.Error()))
			return err
		}
	}

	logInfo(logHandler, "scan finished",
		slog.String("runId", runId.String()),
		slog.Int("devices", len(tracker.Devices())),
		slog.Int("intervals", len(intervals)),
		slog.String("report", reportPath),
	)
	return nil
}

// waitStart counts down the start delay, reporting false if ctx ends first.
func waitStart(ctx context.Context, delay time.Duration, logHandler slog.Handler) bool {
	for remaining := delay; remaining > 0; remaining -= time.Second {
		logInfo(logHandler, "scan starting", slog.Duration("in", remaining))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(min(time.Second, remaining)):
		}
	}
	return ctx.Err() == nil
}

func logInfo(logHandler slog.Handler, msg string, attrs ...slog.Attr) {
	logRecord(logHandler, slog.LevelInfo, msg, attrs...)
}

func logError(logHandler slog.Handler, msg string, attrs ...slog.Attr) {
	logRecord(logHandler, slog.LevelError, msg, attrs...)
}

func logRecord(logHandler slog.Handler, level slog.Level, msg string, attrs ...slog.Attr) {
	if logHandler == nil {
		return
	}

	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	_ = logHandler.Handle(context.Background(), r)
}
