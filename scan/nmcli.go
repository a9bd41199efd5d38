package scan

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NmcliSource runs an active scan through NetworkManager.
type NmcliSource struct {
	iface string
	run   commandRunner
}

func NewNmcliSource(iface string) NmcliSource {
	return NmcliSource{iface: iface, run: execRunner}
}

func (s NmcliSource) Scan(ctx context.Context) ([]Network, error) {
	// nmcli -t -f BSSID,SSID,CHAN,SIGNAL,SECURITY dev wifi list --rescan yes [ifname IFACE]
	args := []string{"-t", "-f", "BSSID,SSID,CHAN,SIGNAL,SECURITY", "dev", "wifi", "list", "--rescan", "yes"}
	if s.iface != "" {
		args = append(args, "ifname", s.iface)
	}

	out, err := s.run(ctx, "nmcli", args...)
	if err != nil {
		return nil, fmt.Errorf("%w: nmcli: %v", ErrUnavailable, err)
	}
	return parseNmcli(string(out)), nil
}

func parseNmcli(out string) []Network {
	lines := strings.Split(out, "\n")
	networks := make([]Network, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// BSSID : SSID : CHAN : SIGNAL : SECURITY, colons inside values are escaped
		parts := splitTerse(line)
		if len(parts) < 5 {
			continue
		}

		channel, _ := strconv.Atoi(strings.TrimSpace(parts[2]))
		signal, _ := strconv.Atoi(strings.TrimSpace(parts[3]))
		security := strings.TrimSpace(parts[4])
		if security == "--" {
			security = ""
		}

		networks = append(networks, Network{
			BSSID:    strings.TrimSpace(parts[0]),
			SSID:     parts[1],
			Channel:  channel,
			Signal:   signal,
			Security: security,
		})
	}
	return networks
}

// splitTerse splits a line of nmcli terse output on unescaped colons.
func splitTerse(line string) []string {
	var parts []string
	var field strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			field.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			parts = append(parts, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	return append(parts, field.String())
}
