package event

import (
	"time"

	"github.com/ipastusi/wifitrack/presence"
)

type Notification struct {
	EventType string `json:"eventType"`
	RunId     string `json:"runId"`
	Mac       string `json:"mac"`
	MacVendor string `json:"macVendor"`
	Ssid      string `json:"ssid"`
	Channel   int    `json:"channel"`
	Security  string `json:"security"`
	Ts        int64  `json:"ts"`
	// offsets in seconds since the start of the run, DEVICE_LEFT only
	StartSec *int64 `json:"startSec,omitempty"`
	EndSec   *int64 `json:"endSec,omitempty"`
}

func newNotification(eventType Type, runId string, id presence.DeviceID, attrs presence.Attributes, ts time.Time) Notification {
	return Notification{
		EventType: eventType.describe(),
		RunId:     runId,
		Mac:       id.String(),
		Ssid:      attrs.SSID,
		Channel:   attrs.Channel,
		Security:  attrs.Security,
		Ts:        ts.UnixMilli(),
	}
}

func newLeftNotification(runId string, interval presence.Interval, runStart time.Time) Notification {
	n := newNotification(DeviceLeft, runId, interval.Device, interval.Attrs, runStart.Add(interval.End))
	start, end := int64(interval.Start/time.Second), int64(interval.End/time.Second)
	n.StartSec, n.EndSec = &start, &end
	return n
}
