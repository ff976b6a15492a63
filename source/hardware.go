package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	version "github.com/hashicorp/go-version"
	"github.com/tidwall/gjson"

	"github.com/quantumrand/entropyd/log"
)

// probeSize is the number of bytes read for a health probe. A working
// device must show at least some variation within a read of this size.
const probeSize = 16

// HardwareConfig configures access to the quantum noise device.
type HardwareConfig struct {
	// DevicePath is the character device node serving raw noise,
	// e.g. /dev/qrandom0.
	DevicePath string

	// InfoPath is a directory with product, serial and version files, in
	// the manner of a sysfs device directory.
	InfoPath string

	// StatusPath is a json file with the device's environmental readings:
	// voltage_mv, temperature_mc, tamper.
	StatusPath string

	// MinFirmware is the lowest accepted firmware version. Devices that
	// report an older version fail the probe.
	MinFirmware string
}

// HardwareSource harvests raw noise from the physical quantum device.
type HardwareSource struct {
	cfg HardwareConfig

	mu   sync.Mutex
	file *os.File
}

// NewHardwareSource returns a hardware source for the given device. The
// device node is opened lazily on first harvest.
func NewHardwareSource(cfg HardwareConfig) *HardwareSource {
	return &HardwareSource{cfg: cfg}
}

// Type implements Source.
func (s *HardwareSource) Type() Type {
	return Hardware
}

// Harvest reads up to max raw bytes from the device node.
func (s *HardwareSource) Harvest(max int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		file, err := os.Open(s.cfg.DevicePath)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot open %s: %s", ErrSourceUnavailable, s.cfg.DevicePath, err)
		}
		s.file = file
		log.Infof("source: opened quantum device %s", s.cfg.DevicePath)
	}

	buf := make([]byte, max)
	n, err := s.file.Read(buf)
	if err != nil || n == 0 {
		// drop the handle so the next harvest reopens the device
		_ = s.file.Close()
		s.file = nil
		return nil, fmt.Errorf("%w: read from %s failed: %v", ErrSourceUnavailable, s.cfg.DevicePath, err)
	}

	return buf[:n], nil
}

// Close closes the device handle.
func (s *HardwareSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// Info reads the device identity from the info directory. Missing fields
// report as "unknown" instead of failing, matching what the device driver
// exposes when a descriptor string is unreadable.
func (s *HardwareSource) Info() (DeviceInfo, error) {
	if _, err := os.Stat(s.cfg.InfoPath); err != nil {
		return DeviceInfo{}, fmt.Errorf("%w: device info not readable: %s", ErrSourceUnavailable, err)
	}

	return DeviceInfo{
		Product: readInfoField(s.cfg.InfoPath, "product"),
		Serial:  readInfoField(s.cfg.InfoPath, "serial"),
		Version: readInfoField(s.cfg.InfoPath, "version"),
	}, nil
}

func readInfoField(dir, field string) string {
	data, err := os.ReadFile(filepath.Join(dir, field))
	if err != nil {
		return "unknown"
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "unknown"
	}
	return value
}

// Environment reads the device's environmental status frame.
func (s *HardwareSource) Environment() (EnvironmentSignals, error) {
	data, err := os.ReadFile(s.cfg.StatusPath)
	if err != nil {
		return EnvironmentSignals{}, fmt.Errorf("%w: device status not readable: %s", ErrSourceUnavailable, err)
	}
	if !gjson.ValidBytes(data) {
		return EnvironmentSignals{}, fmt.Errorf("%w: device status frame is not valid json", ErrSourceUnavailable)
	}

	frame := gjson.ParseBytes(data)
	return EnvironmentSignals{
		VoltageMillivolts: frame.Get("voltage_mv").Int(),
		TemperatureMilliC: frame.Get("temperature_mc").Int(),
		TamperDetected:    frame.Get("tamper").Bool(),
	}, nil
}

// Probe checks whether the device is present and plausibly working: the
// firmware version must satisfy the configured minimum and a small read
// must show variation. Device presence alone is not enough to switch back
// to hardware; the caller must additionally confirm statistical quality on
// a fresh sample.
func (s *HardwareSource) Probe() error {
	if s.cfg.MinFirmware != "" {
		info, err := s.Info()
		if err != nil {
			return err
		}
		if err := checkFirmware(info.Version, s.cfg.MinFirmware); err != nil {
			return err
		}
	}

	sample, err := s.Harvest(probeSize)
	if err != nil {
		return err
	}
	if len(sample) < probeSize {
		return fmt.Errorf("%w: probe read returned only %d of %d bytes", ErrSourceUnavailable, len(sample), probeSize)
	}
	if bytes.Count(sample, sample[:1]) == len(sample) {
		return fmt.Errorf("%w: probe read shows no variation", ErrSourceUnavailable)
	}

	return nil
}

func checkFirmware(reported, minimum string) error {
	reportedVersion, err := version.NewVersion(reported)
	if err != nil {
		return fmt.Errorf("%w: device reports unparsable firmware version %q", ErrSourceUnavailable, reported)
	}
	minimumVersion, err := version.NewVersion(minimum)
	if err != nil {
		return fmt.Errorf("invalid minimum firmware version %q: %s", minimum, err)
	}
	if reportedVersion.LessThan(minimumVersion) {
		return fmt.Errorf("%w: firmware %s is older than required %s", ErrSourceUnavailable, reported, minimum)
	}
	return nil
}
