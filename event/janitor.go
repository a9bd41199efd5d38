package event

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

var eventFileRe = regexp.MustCompile(`wifitrack-(?P<timestamp>[0-9]{13})-[0-9]{3}-[0-9a-f]{12}\.json$`)

type Janitor struct {
	logHandler slog.Handler
	pattern    string
	delaySec   uint
}

func NewJanitor(log slog.Handler, eventDir string, delaySec uint) (Janitor, error) {
	pattern := filepath.Join(eventDir, "wifitrack-*.json")
	if _, err := filepath.Glob(pattern); err != nil {
		return Janitor{}, err
	}

	return Janitor{
		logHandler: log,
		pattern:    pattern,
		delaySec:   delaySec,
	}, nil
}

// Start removes expired notification files every delaySec seconds until ctx is done.
func (j Janitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Duration(j.delaySec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				j.cleanupEventFiles(now)
			}
		}
	}()
}

func (j Janitor) cleanupEventFiles(now time.Time) {
	files, _ := filepath.Glob(j.pattern)
	for _, file := range files {
		matches := eventFileRe.FindStringSubmatch(file)
		if len(matches) == 0 {
			// file globbed but not matched by regex
			continue
		}

		timestampStr := matches[eventFileRe.SubexpIndex("timestamp")]
		timestamp, _ := strconv.ParseInt(timestampStr, 10, 64)

		boundaryTimestamp := now.UnixMilli() - int64(j.delaySec)*1000
		if timestamp > boundaryTimestamp {
			// file is too fresh
			continue
		}

		if err := os.Remove(file); err != nil {
			logError(j.logHandler, err.Error())
		}
	}
}

func logError(log slog.Handler, msg string) {
	if log == nil {
		return
	}

	record := slog.NewRecord(time.Now(), slog.LevelError, msg, 0)
	_ = log.Handle(context.Background(), record)
}
