package oui

import (
	"cmp"
	_ "embed"
	"encoding/hex"
	"net"
	"slices"
	"strings"
)

const Unknown = "Unknown"

// The embedded table is a trimmed IEEE registry, one "xxxxxx<TAB>vendor" line
// per prefix, sorted by prefix. A full registry can be loaded with LoadCSV.

//go:embed oui.txt
var ouiRaw string

var ouiList = strings.Split(strings.TrimRight(ouiRaw, "\r\n"), "\n")

type Resolver interface {
	Vendor(mac net.HardwareAddr) string
}

// Embedded resolves vendors from the table compiled into the binary.
type Embedded struct{}

func (Embedded) Vendor(mac net.HardwareAddr) string {
	return MacToVendor(mac)
}

// EmbeddedLen is the number of prefixes in the embedded table.
func EmbeddedLen() int {
	return len(ouiList)
}

func MacToVendor(mac net.HardwareAddr) string {
	if len(mac) < 3 {
		return Unknown
	}

	oui := hex.EncodeToString(mac[:3])
	i, ok := slices.BinarySearchFunc(ouiList, oui, func(str, target string) int {
		return cmp.Compare(str[:6], target)
	})

	if !ok {
		return Unknown
	}

	vendorName := ouiList[i][7:]
	return strings.TrimSpace(vendorName)
}
