package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"golang.org/x/sys/unix"
)

var (
	ErrInvalid     = errors.New("invalid configuration")
	ErrNoInterface = errors.New("no interface name provided")
)

const (
	SourceNmcli = "nmcli"
	SourcePcap  = "pcap"
)

type ReportConfig struct {
	Directory     *string `yaml:"directory"`
	InstantFile   *string `yaml:"instantFile"`
	ScheduledFile *string `yaml:"scheduledFile"`
}

type EventsConfig struct {
	Directory           *string `yaml:"directory"`
	AutoCleanupDelaySec *uint   `yaml:"autoCleanupDelaySec"`
	Arrived             *bool   `yaml:"arrived"`
	Returned            *bool   `yaml:"returned"`
	Left                *bool   `yaml:"left"`
}

type ExcludeConfig struct {
	MacFile *string  `yaml:"macFile"`
	Ssids   []string `yaml:"ssids"`
}

type Config struct {
	IfaceName       *string        `yaml:"interface"`
	Source          *string        `yaml:"source"`
	LogFileName     *string        `yaml:"log"`
	InstantScan     *bool          `yaml:"instantScan"`
	StartAfterSec   *uint          `yaml:"startAfterSec"`
	ScanDurationSec *uint          `yaml:"scanDurationSec"`
	ScanIntervalSec *uint          `yaml:"scanIntervalSec"`
	ThresholdSec    *uint          `yaml:"thresholdSec"`
	ScanTimeoutSec  *uint          `yaml:"scanTimeoutSec"`
	Ui              *bool          `yaml:"ui"`
	OuiFile         *string        `yaml:"ouiFile"`
	HistoryFile     *string        `yaml:"historyFile"`
	ReportConfig    *ReportConfig  `yaml:"report"`
	EventsConfig    *EventsConfig  `yaml:"events"`
	ExcludeConfig   *ExcludeConfig `yaml:"exclude"`
}

func GetConfig(data []byte, iface *string, source *string, log *string, duration *uint, ui *bool) (Config, error) {
	config, err := readConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	config.applyOverrides(iface, source, log, duration, ui)
	err = config.applyDefaults()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	err = config.validate()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return config, nil
}

func readConfig(data []byte) (Config, error) {
	config := &Config{}
	err := yaml.UnmarshalWithOptions(data, config, yaml.Strict())
	if err != nil {
		return Config{}, err
	}
	return *config, nil
}

func (cfg *Config) applyOverrides(iface *string, source *string, log *string, duration *uint, ui *bool) {
	if iface != nil && *iface != "" {
		cfg.IfaceName = iface
	}
	if source != nil && *source != "" {
		cfg.Source = source
	}
	if log != nil && *log != "" {
		cfg.LogFileName = log
	}
	if duration != nil && *duration != 0 {
		cfg.ScanDurationSec = duration
	}
	if ui != nil && *ui {
		cfg.Ui = ui
	}
}

func (cfg *Config) applyDefaults() error {
	defaultIface := ""
	defaultSource := SourceNmcli
	defaultLog := "wifitrack.log"
	defaultInstantFile := "wifi_instantdata.json"
	defaultScheduledFile := "wifi_scheduleddata.json"
	no := false
	yes := true
	zero := uint(0)
	five := uint(5)
	ten := uint(10)
	fifteen := uint(15)
	sixty := uint(60)

	if cfg.IfaceName == nil {
		cfg.IfaceName = &defaultIface
	}
	if cfg.Source == nil {
		cfg.Source = &defaultSource
	}
	if cfg.LogFileName == nil {
		cfg.LogFileName = &defaultLog
	}
	if cfg.InstantScan == nil {
		cfg.InstantScan = &no
	}
	if cfg.StartAfterSec == nil {
		cfg.StartAfterSec = &zero
	}
	if cfg.ScanDurationSec == nil {
		cfg.ScanDurationSec = &sixty
	}
	if cfg.ScanIntervalSec == nil {
		cfg.ScanIntervalSec = &five
	}
	if cfg.ThresholdSec == nil {
		cfg.ThresholdSec = &ten
	}
	if cfg.ScanTimeoutSec == nil {
		cfg.ScanTimeoutSec = &fifteen
	}
	if cfg.Ui == nil {
		cfg.Ui = &no
	}

	if cfg.ReportConfig == nil {
		cfg.ReportConfig = &ReportConfig{}
	}
	reportDir, err := dirPath(cfg.ReportConfig.Directory)
	if err != nil {
		return err
	}
	cfg.ReportConfig.Directory = &reportDir
	if cfg.ReportConfig.InstantFile == nil {
		cfg.ReportConfig.InstantFile = &defaultInstantFile
	}
	if cfg.ReportConfig.ScheduledFile == nil {
		cfg.ReportConfig.ScheduledFile = &defaultScheduledFile
	}

	if cfg.EventsConfig == nil {
		cfg.EventsConfig = &EventsConfig{}
	}
	if cfg.EventsConfig.Directory != nil {
		eventDir, err := dirPath(cfg.EventsConfig.Directory)
		if err != nil {
			return err
		}
		cfg.EventsConfig.Directory = &eventDir
	}
	if cfg.EventsConfig.AutoCleanupDelaySec == nil {
		cfg.EventsConfig.AutoCleanupDelaySec = &zero
	}
	if cfg.EventsConfig.Arrived == nil {
		cfg.EventsConfig.Arrived = &yes
	}
	if cfg.EventsConfig.Returned == nil {
		cfg.EventsConfig.Returned = &yes
	}
	if cfg.EventsConfig.Left == nil {
		cfg.EventsConfig.Left = &yes
	}

	if cfg.ExcludeConfig == nil {
		cfg.ExcludeConfig = &ExcludeConfig{}
	}
	return nil
}

func dirPath(dir *string) (string, error) {
	if dir != nil && filepath.IsAbs(*dir) {
		return filepath.Clean(*dir), nil
	}

	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	var step string
	if strings.HasSuffix(pwd, "/config") {
		step = ".."
	}

	var suffix string
	if dir != nil {
		suffix = *dir
	}

	return filepath.Abs(filepath.Join(pwd, step, suffix))
}

func (cfg *Config) validate() error {
	switch *cfg.Source {
	case SourceNmcli:
	case SourcePcap:
		if *cfg.IfaceName == "" {
			return ErrNoInterface
		}
	default:
		return fmt.Errorf("unknown scan source: %v", *cfg.Source)
	}

	if *cfg.IfaceName != "" {
		if _, err := net.InterfaceByName(*cfg.IfaceName); err != nil {
			return err
		}
	}

	if *cfg.ScanIntervalSec == 0 {
		return fmt.Errorf("scan interval must be positive")
	} else if *cfg.ThresholdSec == 0 {
		return fmt.Errorf("threshold must be positive")
	} else if *cfg.ThresholdSec < *cfg.ScanIntervalSec {
		return fmt.Errorf("threshold %vs shorter than scan interval %vs", *cfg.ThresholdSec, *cfg.ScanIntervalSec)
	} else if *cfg.ScanTimeoutSec == 0 {
		return fmt.Errorf("scan timeout must be positive")
	} else if !*cfg.InstantScan && *cfg.ScanDurationSec == 0 {
		return fmt.Errorf("scan duration must be positive")
	}

	dirs := []*string{cfg.ReportConfig.Directory, cfg.EventsConfig.Directory}
	for _, dir := range dirs {
		// we might want to make it work on Windows one day. today is not that day
		if dir != nil && unix.Access(*dir, unix.W_OK) != nil {
			return fmt.Errorf("directory does not exist or is not writable: %v", *dir)
		}
	}

	files := []*string{cfg.OuiFile, cfg.ExcludeConfig.MacFile}
	for _, file := range files {
		if file != nil {
			if _, err := os.Stat(*file); err != nil {
				return fmt.Errorf("file does not exist: %v", *file)
			}
		}
	}

	return nil
}

func (cfg *Config) Threshold() time.Duration {
	return seconds(*cfg.ThresholdSec)
}

func (cfg *Config) ScanInterval() time.Duration {
	return seconds(*cfg.ScanIntervalSec)
}

func (cfg *Config) ScanDuration() time.Duration {
	return seconds(*cfg.ScanDurationSec)
}

func (cfg *Config) ScanTimeout() time.Duration {
	return seconds(*cfg.ScanTimeoutSec)
}

func (cfg *Config) StartAfter() time.Duration {
	return seconds(*cfg.StartAfterSec)
}

func (cfg *Config) ReportPath() string {
	name := *cfg.ReportConfig.ScheduledFile
	if *cfg.InstantScan {
		name = *cfg.ReportConfig.InstantFile
	}
	return filepath.Join(*cfg.ReportConfig.Directory, name)
}

func seconds(n uint) time.Duration {
	return time.Duration(n) * time.Second
}

// Render marshals the effective config. An unset ouiFile is annotated, since
// vendor lookups then only cover the small embedded table.
func Render(cfg Config) ([]byte, error) {
	if cfg.OuiFile != nil {
		return yaml.Marshal(cfg)
	}
	comments := yaml.CommentMap{
		"$.ouiFile": []*yaml.Comment{
			yaml.LineComment(" not set, vendor names come from the embedded table only"),
		},
	}
	return yaml.MarshalWithOptions(cfg, yaml.WithComment(comments))
}
