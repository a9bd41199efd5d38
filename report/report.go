package report

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ipastusi/wifitrack/oui"
	"github.com/ipastusi/wifitrack/presence"
)

const (
	SecurityOpen    = "Open"
	SecuritySecured = "Secured"
)

type Entry struct {
	Ssid            string  `json:"ssid"`
	Mac             string  `json:"mac"`
	Manufacturer    string  `json:"manufacturer"`
	NetworkSecurity string  `json:"network_security"`
	Channel         int     `json:"channel"`
	WifiDurations   string  `json:"wifi_durations"`
	Durations       []int64 `json:"durations,omitempty"`
	TotalSeconds    *int64  `json:"total_seconds,omitempty"`
}

// Report is persisted as a JSON object keyed by sequence number, starting at "1".
type Report struct {
	Entries []Entry
}

func New() Report {
	return Report{Entries: make([]Entry, 0)}
}

// Build assembles a scheduled scan report, one entry per device ordered by
// first appearance. Offsets are whole seconds since the start of the scan.
func Build(intervals []presence.Interval, resolver oui.Resolver) Report {
	byDevice := map[presence.DeviceID][]presence.Interval{}
	var order []presence.DeviceID
	for _, interval := range intervals {
		if _, ok := byDevice[interval.Device]; !ok {
			order = append(order, interval.Device)
		}
		byDevice[interval.Device] = append(byDevice[interval.Device], interval)
	}
	for _, deviceIntervals := range byDevice {
		slices.SortStableFunc(deviceIntervals, func(a, b presence.Interval) int {
			return cmp.Compare(a.Start, b.Start)
		})
	}
	slices.SortStableFunc(order, func(a, b presence.DeviceID) int {
		if c := cmp.Compare(byDevice[a][0].Start, byDevice[b][0].Start); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	report := New()
	for _, id := range order {
		deviceIntervals := byDevice[id]
		attrs := deviceIntervals[len(deviceIntervals)-1].Attrs

		spans := make([]string, 0, len(deviceIntervals))
		durations := make([]int64, 0, len(deviceIntervals))
		var total int64
		for _, interval := range deviceIntervals {
			start, end := seconds(interval.Start), seconds(interval.End)
			spans = append(spans, fmt.Sprintf("%v-%v", start, end))
			// derived from the printed offsets so both fields agree
			duration := end - start
			durations = append(durations, duration)
			total += duration
		}

		entry := newEntry(id, attrs, resolver)
		entry.WifiDurations = strings.Join(spans, ",")
		entry.Durations = durations
		entry.TotalSeconds = &total
		report.Entries = append(report.Entries, entry)
	}
	return report
}

// BuildInstant assembles a report for a single scan, without durations.
func BuildInstant(snap presence.Snapshot, resolver oui.Resolver) Report {
	report := New()
	seen := map[presence.DeviceID]int{}
	for _, sighting := range snap.Sightings {
		entry := newEntry(sighting.Device, sighting.Attrs, resolver)
		if i, ok := seen[sighting.Device]; ok {
			report.Entries[i] = entry
			continue
		}
		seen[sighting.Device] = len(report.Entries)
		report.Entries = append(report.Entries, entry)
	}
	return report
}

func newEntry(id presence.DeviceID, attrs presence.Attributes, resolver oui.Resolver) Entry {
	return Entry{
		Ssid:            Sanitize(attrs.SSID),
		Mac:             id.String(),
		Manufacturer:    Sanitize(resolver.Vendor(id.MAC())),
		NetworkSecurity: ClassifySecurity(attrs.Security),
		Channel:         attrs.Channel,
	}
}

func ClassifySecurity(security string) string {
	if strings.TrimSpace(security) == "" {
		return SecurityOpen
	}
	return SecuritySecured
}

// Sanitize replaces quotes and backticks, which downstream consumers of the
// report embed into shell and SQL strings.
func Sanitize(s string) string {
	return strings.NewReplacer("'", " ", "`", " ", `"`, " ").Replace(s)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range r.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		entryBytes, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(i + 1)))
		buf.WriteByte(':')
		buf.Write(entryBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	entries := make([]Entry, len(raw))
	for key, entry := range raw {
		seq, err := strconv.Atoi(key)
		if err != nil || seq < 1 || seq > len(raw) {
			return fmt.Errorf("invalid report key: %v", key)
		}
		entries[seq-1] = entry
	}
	r.Entries = entries
	return nil
}

func FromJson(data []byte) (Report, error) {
	report := New()
	err := json.Unmarshal(data, &report)
	return report, err
}

func (r *Report) ToJson() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
