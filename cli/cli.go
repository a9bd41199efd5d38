package cli

import (
	"flag"
)

type Flags struct {
	ConfigFileName *string
	IfaceName      *string
	Source         *string
	LogFileName    *string
	ScanDuration   *uint
	RenderConfig   *bool
	Ui             *bool
}

func GetFlags() Flags {
	return parseFlags(flag.CommandLine, nil)
}

func parseFlags(fs *flag.FlagSet, args []string) Flags {
	configFileName := fs.String("c", "", "YAML config file (default none)")
	ifaceName := fs.String("i", "", "wireless interface name, e.g. wlan0 (required for pcap)")
	source := fs.String("s", "", "scan source, nmcli or pcap (default nmcli)")
	logFileName := fs.String("l", "", "log file (default wifitrack.log)")
	scanDuration := fs.Uint("d", 0, "scan duration in seconds (default 60)")
	renderConfig := fs.Bool("r", false, "render config and exit (default false)")
	ui := fs.Bool("u", false, "display textual user interface (default false)")

	if args == nil {
		flag.Parse()
	} else {
		_ = fs.Parse(args)
	}

	flags := Flags{
		ConfigFileName: configFileName,
		IfaceName:      ifaceName,
		Source:         source,
		LogFileName:    logFileName,
		ScanDuration:   scanDuration,
		RenderConfig:   renderConfig,
		Ui:             ui,
	}
	return flags
}
