package scan

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const privacyCapability = 0x0010

var wpaVendorOUI = []byte{0x00, 0x50, 0xf2, 0x01}

// BeaconSource passively collects beacons and probe responses from a
// monitor mode capture. Each Scan listens for one window.
type BeaconSource struct {
	packets <-chan gopacket.Packet
	window  time.Duration
}

func NewBeaconSource(packets <-chan gopacket.Packet, window time.Duration) BeaconSource {
	return BeaconSource{packets: packets, window: window}
}

func (s BeaconSource) Scan(ctx context.Context) ([]Network, error) {
	timer := time.NewTimer(s.window)
	defer timer.Stop()

	seen := map[string]int{}
	var networks []Network
	for {
		select {
		case <-ctx.Done():
			return networks, nil
		case <-timer.C:
			return networks, nil
		case packet, ok := <-s.packets:
			if !ok {
				return nil, fmt.Errorf("%w: capture closed", ErrUnavailable)
			}
			network, ok := NetworkFromPacket(packet)
			if !ok {
				continue
			}
			if i, dup := seen[network.BSSID]; dup {
				networks[i] = network
				continue
			}
			seen[network.BSSID] = len(networks)
			networks = append(networks, network)
		}
	}
}

// NetworkFromPacket decodes a beacon or probe response frame.
func NetworkFromPacket(packet gopacket.Packet) (Network, bool) {
	dot11, ok := packet.Layer(layers.LayerTypeDot11).(*layers.Dot11)
	if !ok {
		return Network{}, false
	}
	if dot11.Type != layers.Dot11TypeMgmtBeacon && dot11.Type != layers.Dot11TypeMgmtProbeResp {
		return Network{}, false
	}

	network := Network{BSSID: dot11.Address3.String()}
	privacy := false
	if beacon, ok := packet.Layer(layers.LayerTypeDot11MgmtBeacon).(*layers.Dot11MgmtBeacon); ok {
		privacy = beacon.Flags&privacyCapability != 0
	}

	for _, layer := range packet.Layers() {
		ie, ok := layer.(*layers.Dot11InformationElement)
		if !ok {
			continue
		}
		switch ie.ID {
		case layers.Dot11InformationElementIDSSID:
			network.SSID = string(ie.Info)
		case layers.Dot11InformationElementIDDSSet:
			if len(ie.Info) > 0 {
				network.Channel = int(ie.Info[0])
			}
		case layers.Dot11InformationElementIDRSNInfo:
			network.Security = "WPA2"
		case layers.Dot11InformationElementIDVendor:
			if bytes.Equal(ie.OUI, wpaVendorOUI) && network.Security == "" {
				network.Security = "WPA"
			}
		}
	}
	if network.Security == "" && privacy {
		network.Security = "WEP"
	}

	if radioTap, ok := packet.Layer(layers.LayerTypeRadioTap).(*layers.RadioTap); ok {
		if radioTap.Present.DBMAntennaSignal() {
			network.Signal = int(radioTap.DBMAntennaSignal)
		}
		if network.Channel == 0 && radioTap.Present.Channel() {
			network.Channel = FrequencyToChannel(int(radioTap.ChannelFrequency))
		}
	}
	return network, true
}
