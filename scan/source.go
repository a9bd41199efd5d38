package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ipastusi/wifitrack/presence"
)

var ErrUnavailable = errors.New("wireless scan unavailable")

// Network is one access point as reported by a scan.
type Network struct {
	BSSID    string
	SSID     string
	Channel  int
	Signal   int
	Security string
}

type Source interface {
	Scan(ctx context.Context) ([]Network, error)
}

// Unavailable marks err as a scan failure unless it already is one.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// ToSnapshot converts scan results taken at ts. Networks without a valid BSSID are dropped.
func ToSnapshot(ts time.Duration, networks []Network) presence.Snapshot {
	snap := presence.Snapshot{
		Ts:        ts,
		Sightings: make([]presence.Sighting, 0, len(networks)),
	}
	for _, network := range networks {
		id, err := presence.ParseDeviceID(network.BSSID)
		if err != nil {
			continue
		}
		snap.Sightings = append(snap.Sightings, presence.Sighting{
			Device: id,
			Attrs: presence.Attributes{
				SSID:     network.SSID,
				Channel:  network.Channel,
				Signal:   network.Signal,
				Security: network.Security,
			},
		})
	}
	return snap
}

// FrequencyToChannel maps a center frequency in MHz to an IEEE channel number.
func FrequencyToChannel(mhz int) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return (mhz - 2407) / 5
	case mhz >= 5955 && mhz <= 7115:
		return (mhz - 5950) / 5
	case mhz >= 5000 && mhz <= 5900:
		return (mhz - 5000) / 5
	default:
		return 0
	}
}
