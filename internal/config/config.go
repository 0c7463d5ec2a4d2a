package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/siren-guard/internal/domain/siren"
)

// Config holds the settings shared by siren-guard and siren-ctl.
type Config struct {
	// DeviceID identifies this node in telemetry. Defaults to the hostname.
	DeviceID string `yaml:"device_id"`
	// ServerAddress is the gRPC control address the daemon listens on and siren-ctl dials.
	ServerAddress string `yaml:"server_addr"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Timeout bounds actuator writes and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// SampleInterval is the acquisition loop period.
	SampleInterval time.Duration `yaml:"sample_interval"`
	// Unit is the distance unit reported in telemetry.
	Unit string `yaml:"unit"`
	// MaxDistance is the largest accepted threshold value.
	MaxDistance float64 `yaml:"max_distance"`
	// Sensor selects and configures the distance source.
	Sensor Sensor `yaml:"sensor"`
	// Actuator selects and configures the relay.
	Actuator Actuator `yaml:"actuator"`
	// Store selects where thresholds are persisted.
	Store Store `yaml:"store"`
	// Pattern holds the siren timings.
	Pattern Pattern `yaml:"pattern"`
	// Thresholds are used when nothing has been persisted yet.
	Thresholds siren.ThresholdSet `yaml:"thresholds"`
}

// Sensor configures the distance source.
type Sensor struct {
	// Kind is "serial" or "file".
	Kind string `yaml:"kind"`
	// Port is the serial device, e.g. /dev/ttyUSB0.
	Port string `yaml:"port"`
	// BaudRate is the serial speed.
	BaudRate int `yaml:"baud_rate"`
	// Path is the file holding the latest reading for the file sensor.
	Path string `yaml:"path"`
	// StaleAfter is how old a serial reading may get before it is rejected.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// Actuator configures the relay driver.
type Actuator struct {
	// Kind is "gpio", "serial" or "log".
	Kind string `yaml:"kind"`
	// Path is the GPIO value file for the gpio kind.
	Path string `yaml:"path"`
	// Port is the serial device for the serial kind.
	Port string `yaml:"port"`
	// BaudRate is the serial speed.
	BaudRate int `yaml:"baud_rate"`
	// ActiveLow inverts the GPIO level.
	ActiveLow bool `yaml:"active_low"`
}

// Store configures threshold persistence.
type Store struct {
	// Kind is "file" or "sqlite".
	Kind string `yaml:"kind"`
	// Path is the YAML file or SQLite database path.
	Path string `yaml:"path"`
}

// Pattern holds siren timing settings. Phase lengths are in time units.
type Pattern struct {
	// TimeUnit is the length of one pattern time unit.
	TimeUnit time.Duration `yaml:"time_unit"`
	// WarningCooldown is the final OFF phase of the warning pattern, in units.
	WarningCooldown int `yaml:"warning_cooldown"`
	// AlertCooldown is the final OFF phase of the alert pattern, in units.
	AlertCooldown int `yaml:"alert_cooldown"`
	// RebootPulse is how long the reboot pulse holds the relay on.
	RebootPulse time.Duration `yaml:"reboot_pulse"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "siren-guard-settings.yaml"

	// DefaultThresholdsFilename is the default file for persisted thresholds.
	DefaultThresholdsFilename = "siren-guard-thresholds.yaml"

	// DefaultServerAddress is the default gRPC control address.
	DefaultServerAddress = "127.0.0.1:50071"

	// DefaultTimeout is the default duration for actuator writes and RPC calls.
	DefaultTimeout = 2 * time.Second

	// DefaultSampleInterval is the default acquisition period.
	DefaultSampleInterval = time.Second

	// DefaultUnit is the default distance unit.
	DefaultUnit = "cm"

	// DefaultMaxDistance is the default upper bound for thresholds.
	DefaultMaxDistance = 1000

	// DefaultBaudRate is used by serial sensors and relays.
	DefaultBaudRate = 9600

	// DefaultStaleAfter is the default serial reading freshness window.
	DefaultStaleAfter = 5 * time.Second

	// DefaultTimeUnit is the default pattern time unit.
	DefaultTimeUnit = time.Second

	// DefaultWarningCooldown is the default warning pattern rest, in units.
	DefaultWarningCooldown = 60

	// DefaultAlertCooldown is the default alert pattern rest, in units.
	DefaultAlertCooldown = 20

	// DefaultRebootPulse is the default reboot pulse length.
	DefaultRebootPulse = 2 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Sensor, actuator and store kinds.
const (
	SensorSerial   = "serial"
	SensorFile     = "file"
	ActuatorGPIO   = "gpio"
	ActuatorSerial = "serial"
	ActuatorLog    = "log"
	StoreFile      = "file"
	StoreSQLite    = "sqlite"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownKind is returned for an unsupported sensor, actuator or store kind.
	errUnknownKind = errors.New("unknown kind")
	// errMissingField is returned when a kind needs a field that is empty.
	errMissingField = errors.New("missing field")
	// errInvalidPattern is returned for non-positive pattern phases.
	errInvalidPattern = errors.New("invalid pattern timing")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings.
//
//nolint:cyclop,funlen // Flat list of defaults is easier to read than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ServerAddress == "" {
		cfg.ServerAddress = DefaultServerAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if cfg.DeviceID == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "siren-guard"
		}

		cfg.DeviceID = hostname
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}

	if cfg.Unit == "" {
		cfg.Unit = DefaultUnit
	}

	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = DefaultMaxDistance
	}

	if err := validateSensor(&cfg.Sensor); err != nil {
		return fmt.Errorf("sensor: %w", err)
	}

	if err := validateActuator(&cfg.Actuator); err != nil {
		return fmt.Errorf("actuator: %w", err)
	}

	if err := validateStore(&cfg.Store); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if err := validatePattern(&cfg.Pattern); err != nil {
		return fmt.Errorf("pattern: %w", err)
	}

	if cfg.Thresholds == (siren.ThresholdSet{}) {
		cfg.Thresholds = siren.DefaultThresholds()
	}

	if err := cfg.Thresholds.Validate(cfg.MaxDistance); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	return nil
}

func validateSensor(s *Sensor) error {
	s.Kind = strings.ToLower(s.Kind)
	if s.Kind == "" {
		s.Kind = SensorSerial
	}

	if s.BaudRate <= 0 {
		s.BaudRate = DefaultBaudRate
	}

	if s.StaleAfter <= 0 {
		s.StaleAfter = DefaultStaleAfter
	}

	switch s.Kind {
	case SensorSerial:
		if s.Port == "" {
			return fmt.Errorf("%w: port", errMissingField)
		}
	case SensorFile:
		if s.Path == "" {
			return fmt.Errorf("%w: path", errMissingField)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, s.Kind)
	}

	return nil
}

func validateActuator(a *Actuator) error {
	a.Kind = strings.ToLower(a.Kind)
	if a.Kind == "" {
		a.Kind = ActuatorLog
	}

	if a.BaudRate <= 0 {
		a.BaudRate = DefaultBaudRate
	}

	switch a.Kind {
	case ActuatorGPIO:
		if a.Path == "" {
			return fmt.Errorf("%w: path", errMissingField)
		}
	case ActuatorSerial:
		if a.Port == "" {
			return fmt.Errorf("%w: port", errMissingField)
		}
	case ActuatorLog:
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, a.Kind)
	}

	return nil
}

func validateStore(s *Store) error {
	s.Kind = strings.ToLower(s.Kind)
	if s.Kind == "" {
		s.Kind = StoreFile
	}

	if s.Path == "" {
		s.Path = DefaultThresholdsFilename
	}

	switch s.Kind {
	case StoreFile, StoreSQLite:
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, s.Kind)
	}
}

func validatePattern(p *Pattern) error {
	if p.TimeUnit == 0 {
		p.TimeUnit = DefaultTimeUnit
	}

	if p.WarningCooldown == 0 {
		p.WarningCooldown = DefaultWarningCooldown
	}

	if p.AlertCooldown == 0 {
		p.AlertCooldown = DefaultAlertCooldown
	}

	if p.RebootPulse == 0 {
		p.RebootPulse = DefaultRebootPulse
	}

	if p.TimeUnit < 0 || p.WarningCooldown < 0 || p.AlertCooldown < 0 || p.RebootPulse < 0 {
		return errInvalidPattern
	}

	return nil
}
