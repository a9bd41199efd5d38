package event

import (
	"bytes"
	"fmt"

	"github.com/ipastusi/wifitrack/presence"
)

type Filter struct {
	excludedMACs  map[presence.DeviceID]struct{}
	excludedSSIDs map[string]struct{}
}

func NewFilter(excludedMACs map[presence.DeviceID]struct{}, excludedSSIDs []string) Filter {
	ssids := make(map[string]struct{}, len(excludedSSIDs))
	for _, ssid := range excludedSSIDs {
		ssids[ssid] = struct{}{}
	}
	return Filter{
		excludedMACs:  excludedMACs,
		excludedSSIDs: ssids,
	}
}

func (f Filter) IsExcluded(sighting presence.Sighting) bool {
	if _, ok := f.excludedMACs[sighting.Device]; ok {
		return true
	} else if _, ok = f.excludedSSIDs[sighting.Attrs.SSID]; ok {
		return true
	}
	return false
}

// Apply returns a copy of snap without the excluded sightings.
func (f Filter) Apply(snap presence.Snapshot) presence.Snapshot {
	filtered := presence.Snapshot{Ts: snap.Ts}
	for _, sighting := range snap.Sightings {
		if !f.IsExcluded(sighting) {
			filtered.Sightings = append(filtered.Sightings, sighting)
		}
	}
	return filtered
}

func ReadMACs(data []byte) (map[presence.DeviceID]struct{}, error) {
	macs := map[presence.DeviceID]struct{}{}

	for line := range bytes.Lines(data) {
		trimmedLine := bytes.TrimSpace(line)
		if len(trimmedLine) == 0 {
			continue
		}
		id, err := presence.ParseDeviceID(string(trimmedLine))
		if err != nil {
			return nil, fmt.Errorf("invalid MAC address: %w", err)
		}
		macs[id] = struct{}{}
	}

	return macs, nil
}
