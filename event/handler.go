package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ipastusi/wifitrack/oui"
	"github.com/ipastusi/wifitrack/presence"
)

// AttributeLookup returns the latest attributes seen for a device.
type AttributeLookup interface {
	Attributes(id presence.DeviceID) (presence.Attributes, bool)
}

type Handler struct {
	logHandler slog.Handler
	eventDir   string
	enabled    map[Type]bool
	resolver   oui.Resolver
	runId      string
	runStart   time.Time
}

// NewHandler creates a presence event handler. Notification files are only
// written when eventDir is not empty.
func NewHandler(logHandler slog.Handler, eventDir string, enabled map[Type]bool, resolver oui.Resolver, runId string, runStart time.Time) Handler {
	return Handler{
		logHandler: logHandler,
		eventDir:   eventDir,
		enabled:    enabled,
		resolver:   resolver,
		runId:      runId,
		runStart:   runStart,
	}
}

func (h Handler) Handle(diff presence.Diff, lookup AttributeLookup) {
	ts := h.runStart.Add(diff.Ts)
	for _, id := range diff.Arrived {
		attrs, _ := lookup.Attributes(id)
		h.handleLog(ts, DeviceArrived, id, attrs)
		h.handleNotification(DeviceArrived, newNotification(DeviceArrived, h.runId, id, attrs, ts))
	}
	for _, id := range diff.Returned {
		attrs, _ := lookup.Attributes(id)
		h.handleLog(ts, DeviceReturned, id, attrs)
		h.handleNotification(DeviceReturned, newNotification(DeviceReturned, h.runId, id, attrs, ts))
	}
	for _, interval := range diff.Closed {
		h.handleLog(ts, DeviceLeft, interval.Device, interval.Attrs,
			slog.Int64("startSec", int64(interval.Start/time.Second)),
			slog.Int64("endSec", int64(interval.End/time.Second)),
		)
		h.handleNotification(DeviceLeft, newLeftNotification(h.runId, interval, h.runStart))
	}
}

func (h Handler) handleLog(ts time.Time, eventType Type, id presence.DeviceID, attrs presence.Attributes, extra ...slog.Attr) {
	if h.logHandler == nil {
		return
	}

	r := slog.NewRecord(ts, slog.LevelInfo, eventType.describe(), 0)
	r.AddAttrs(
		slog.String("runId", h.runId),
		slog.String("MAC", id.String()),
		slog.String("SSID", attrs.SSID),
		slog.Int("channel", attrs.Channel),
	)
	r.AddAttrs(extra...)
	_ = h.logHandler.Handle(context.Background(), r)
}

func (h Handler) handleNotification(eventType Type, notification Notification) {
	if h.eventDir == "" || !h.enabled[eventType] {
		return
	}

	if h.resolver != nil {
		id := presence.DeviceID(notification.Mac)
		notification.MacVendor = h.resolver.Vendor(id.MAC())
	}
	h.storeNotification(notification, eventType)
}

func (h Handler) storeNotification(notification Notification, eventType Type) {
	mac := strings.ReplaceAll(notification.Mac, ":", "")
	eventFileName := fmt.Sprintf("wifitrack-%v-%v-%v.json", notification.Ts, int(eventType), mac)
	eventBytes, err := json.Marshal(notification)
	if err != nil {
		logError(h.logHandler, err.Error())
		return
	}
	eventFilePath := filepath.Join(h.eventDir, eventFileName)
	if err = syncWriteToFile(eventFilePath, eventBytes); err != nil {
		logError(h.logHandler, err.Error())
	}
}

func syncWriteToFile(filename string, data []byte) error {
	// put extra effort into making sure the events are delivered without delay
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_SYNC, 0644)
	if err != nil {
		return err
	}

	_, err = f.Write(data)
	if err1 := f.Close(); err1 != nil && err == nil {
		err = err1
	}
	return err
}
