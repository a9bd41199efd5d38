package scan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/ipastusi/wifitrack/scan"
)

var bssid = []byte{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x01}

// beaconFrame builds a raw 802.11 beacon with a trailing FCS.
func beaconFrame(frameControl byte, capability byte, ies ...[]byte) []byte {
	frame := []byte{frameControl, 0x00, 0x00, 0x00}
	frame = append(frame, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	frame = append(frame, bssid...)
	frame = append(frame, bssid...)
	frame = append(frame, 0x10, 0x00)
	// timestamp, interval, capability
	frame = append(frame, 0, 0, 0, 0, 0, 0, 0, 0, 0x64, 0x00, capability, 0x00)
	for _, ie := range ies {
		frame = append(frame, ie...)
	}
	return append(frame, 0, 0, 0, 0)
}

func ssidIE(ssid string) []byte {
	return append([]byte{0x00, byte(len(ssid))}, ssid...)
}

func dsIE(channel byte) []byte {
	return []byte{0x03, 0x01, channel}
}

func rsnIE() []byte {
	return []byte{0x30, 0x02, 0x01, 0x00}
}

func wpaIE() []byte {
	return []byte{0xdd, 0x06, 0x00, 0x50, 0xf2, 0x01, 0x01, 0x00}
}

func decode(data []byte) gopacket.Packet {
	return gopacket.NewPacket(data, layers.LayerTypeDot11, gopacket.Default)
}

func Test_NetworkFromPacket(t *testing.T) {
	t.Parallel()

	data := map[string]struct {
		frame    []byte
		expected scan.Network
		ok       bool
	}{
		"open beacon": {
			beaconFrame(0x80, 0x01, ssidIE("cafe"), dsIE(6)),
			scan.Network{BSSID: "aa:bb:cc:00:00:01", SSID: "cafe", Channel: 6},
			true,
		},
		"rsn beacon": {
			beaconFrame(0x80, 0x11, ssidIE("home"), dsIE(11), rsnIE()),
			scan.Network{BSSID: "aa:bb:cc:00:00:01", SSID: "home", Channel: 11, Security: "WPA2"},
			true,
		},
		"wpa beacon": {
			beaconFrame(0x80, 0x11, ssidIE("old"), dsIE(1), wpaIE()),
			scan.Network{BSSID: "aa:bb:cc:00:00:01", SSID: "old", Channel: 1, Security: "WPA"},
			true,
		},
		"wep beacon": {
			beaconFrame(0x80, 0x11, ssidIE("older"), dsIE(1)),
			scan.Network{BSSID: "aa:bb:cc:00:00:01", SSID: "older", Channel: 1, Security: "WEP"},
			true,
		},
		"hidden ssid": {
			beaconFrame(0x80, 0x01, ssidIE(""), dsIE(3)),
			scan.Network{BSSID: "aa:bb:cc:00:00:01", Channel: 3},
			true,
		},
		"probe request": {
			beaconFrame(0x40, 0x01, ssidIE("cafe")),
			scan.Network{},
			false,
		},
	}

	for name, d := range data {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			network, ok := scan.NetworkFromPacket(decode(d.frame))
			if ok != d.ok {
				t.Fatalf("unexpected result, expected ok: %v, got: %v", d.ok, ok)
			}
			if diff := cmp.Diff(d.expected, network); diff != "" {
				t.Fatalf("unexpected network: %v", diff)
			}
		})
	}
}

func Test_BeaconSourceScan(t *testing.T) {
	t.Parallel()

	packets := make(chan gopacket.Packet, 3)
	packets <- decode(beaconFrame(0x80, 0x01, ssidIE("cafe"), dsIE(6)))
	packets <- decode(beaconFrame(0x80, 0x11, ssidIE("cafe"), dsIE(6), rsnIE()))
	packets <- decode(beaconFrame(0x40, 0x01, ssidIE("ignored")))

	source := scan.NewBeaconSource(packets, 50*time.Millisecond)
	networks, err := source.Scan(context.Background())
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	expected := []scan.Network{{BSSID: "aa:bb:cc:00:00:01", SSID: "cafe", Channel: 6, Security: "WPA2"}}
	if d := cmp.Diff(expected, networks); d != "" {
		t.Fatalf("unexpected networks: %v", d)
	}
}

func Test_BeaconSourceClosed(t *testing.T) {
	t.Parallel()

	packets := make(chan gopacket.Packet)
	close(packets)

	source := scan.NewBeaconSource(packets, time.Second)
	if _, err := source.Scan(context.Background()); !errors.Is(err, scan.ErrUnavailable) {
		t.Fatal("expected ErrUnavailable, got:", err)
	}
}
