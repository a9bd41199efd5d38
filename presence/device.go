package presence

import (
	"fmt"
	"net"
	"strings"
)

// DeviceID is a case-normalized hardware address, e.g. "aa:bb:cc:00:11:22".
type DeviceID string

func ParseDeviceID(mac string) (DeviceID, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(mac))
	if err != nil {
		return "", fmt.Errorf("invalid device identifier %q: %w", mac, err)
	}
	// EUI-64 and InfiniBand addresses never identify an access point
	if len(hw) != 6 {
		return "", fmt.Errorf("invalid device identifier %q: %v octets, expected 6", mac, len(hw))
	}
	return DeviceIDFromMAC(hw), nil
}

func DeviceIDFromMAC(mac net.HardwareAddr) DeviceID {
	return DeviceID(strings.ToLower(mac.String()))
}

func (id DeviceID) MAC() net.HardwareAddr {
	mac, _ := net.ParseMAC(string(id))
	return mac
}

func (id DeviceID) String() string {
	return string(id)
}
