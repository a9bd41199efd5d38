package capture

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/ipastusi/wifitrack/scan"
)

const (
	snapLen   = 512
	bpfFilter = "type mgt subtype beacon or type mgt subtype probe-resp"
)

// Monitor is a live capture on a monitor mode interface.
type Monitor struct {
	handle *pcap.Handle
}

func OpenMonitor(ifaceName string) (*Monitor, error) {
	inactive, err := pcap.NewInactiveHandle(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scan.ErrUnavailable, err)
	}
	defer inactive.CleanUp()

	for _, set := range []func() error{
		func() error { return inactive.SetRFMon(true) },
		func() error { return inactive.SetSnapLen(snapLen) },
		func() error { return inactive.SetPromisc(true) },
		func() error { return inactive.SetTimeout(100 * time.Millisecond) },
	} {
		if err = set(); err != nil {
			return nil, fmt.Errorf("%w: %v", scan.ErrUnavailable, err)
		}
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scan.ErrUnavailable, err)
	}

	if err = handle.SetBPFFilter(bpfFilter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("%w: %v", scan.ErrUnavailable, err)
	}
	return &Monitor{handle: handle}, nil
}

func (m *Monitor) Packets() <-chan gopacket.Packet {
	return gopacket.NewPacketSource(m.handle, m.handle.LinkType()).Packets()
}

// Source returns a beacon source listening for window on each scan.
func (m *Monitor) Source(window time.Duration) scan.BeaconSource {
	return scan.NewBeaconSource(m.Packets(), window)
}

func (m *Monitor) Close() {
	m.handle.Close()
}
