// Package config loads the status display configuration.
//
// Configuration comes from a single YAML file named by the --config flag
// or the OLEDSTATS_CONFIG environment variable. Without either, the
// built-in defaults describe a 128x32 SSD1306 on /dev/i2c-1 showing CPU,
// RAM, temperature, Docker, Ceph, hostname and IP address. Values present
// in the file replace the matching defaults; everything else keeps its
// default.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable consulted when no path is given.
const EnvVar = "OLEDSTATS_CONFIG"

// Text case modes.
const (
	CaseOriginal = "original"
	CaseUpper    = "upper"
	CaseLower    = "lower"
	CaseTitle    = "title"
)

// Config is the complete status display configuration.
type Config struct {
	// Display describes the panel and how it is attached.
	Display DisplayConfig `yaml:"display"`

	// Interval is the time between refreshes.
	// Default: 1s
	Interval time.Duration `yaml:"interval"`

	// Fonts selects the faces used by the widgets.
	Fonts FontsConfig `yaml:"fonts"`

	// Sources configures where metrics are read from.
	Sources SourcesConfig `yaml:"sources"`

	// Services lists the daemons shown as icons while active, right to left.
	Services []ServiceConfig `yaml:"services"`

	// Text configures the bottom row.
	Text TextConfig `yaml:"text"`

	// Simulator configures the browser simulator used in development mode.
	Simulator SimulatorConfig `yaml:"simulator"`
}

// DisplayConfig describes the panel.
type DisplayConfig struct {
	// Bus is the I²C bus name or device path.
	// Default: /dev/i2c-1
	Bus string `yaml:"bus"`

	// Address is the panel's I²C address.
	// Default: 0x3C
	Address uint16 `yaml:"address"`

	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Rotate turns the image by 180 degrees for upside-down mounting.
	// Default: true
	Rotate bool `yaml:"rotate"`
}

// FontSpec names a TrueType file and a size in points. An empty or
// unreadable path selects a built-in face: Go Regular/Bold for text and
// the 7x13 bitmap for icons.
type FontSpec struct {
	Path string  `yaml:"path"`
	Size float64 `yaml:"size"`
}

type FontsConfig struct {
	Icon  FontSpec `yaml:"icon"`
	Value FontSpec `yaml:"value"`
	Text  FontSpec `yaml:"text"`
	Bold  FontSpec `yaml:"bold"`
}

type SourcesConfig struct {
	// ThermalPath is a sysfs file holding millidegrees Celsius.
	ThermalPath string `yaml:"thermal_path"`

	// IPProbe is the host:port used to discover the outbound address.
	// No packets are sent.
	IPProbe string `yaml:"ip_probe"`
}

// ServiceConfig describes one daemon whose liveness is shown as an icon.
type ServiceConfig struct {
	// Name identifies the service in logs.
	Name string `yaml:"name"`

	// Unit is the systemd unit queried with systemctl is-active.
	Unit string `yaml:"unit"`

	// Icon is the code point in the icon font.
	Icon rune `yaml:"icon"`

	// Label is drawn when the icon font does not have Icon.
	// Default: first letter of Name, upper-cased
	Label string `yaml:"label"`

	// Fallback is run when systemctl is not installed; success means active.
	Fallback []string `yaml:"fallback"`
}

type TextConfig struct {
	HostnameCase string `yaml:"hostname_case"`
	AddressCase  string `yaml:"address_case"`
}

type SimulatorConfig struct {
	ListenAddress string `yaml:"listen_address"`
	Port          uint   `yaml:"port"`

	// Scale is the number of browser pixels per panel pixel.
	// Default: 4
	Scale int `yaml:"scale"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Bus:     "/dev/i2c-1",
			Address: 0x3C,
			Width:   128,
			Height:  32,
			Rotate:  true,
		},
		Interval: time.Second,
		Fonts: FontsConfig{
			Icon:  FontSpec{Path: "/usr/local/share/oledstats/lakenet-boxicons.ttf", Size: 12},
			Value: FontSpec{Size: 10},
			Text:  FontSpec{Path: "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf", Size: 10},
			Bold:  FontSpec{Path: "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf", Size: 10},
		},
		Sources: SourcesConfig{
			ThermalPath: "/sys/class/thermal/thermal_zone0/temp",
			IPProbe:     "8.8.8.8:80",
		},
		Services: []ServiceConfig{
			{
				Name:     "docker",
				Unit:     "docker",
				Icon:     0xE928,
				Label:    "D",
				Fallback: []string{"docker", "info"},
			},
			{
				Name:     "ceph",
				Unit:     "ceph-osd",
				Icon:     0xEF5B,
				Label:    "S",
				Fallback: []string{"ceph", "status"},
			},
		},
		Text: TextConfig{
			HostnameCase: CaseOriginal,
			AddressCase:  CaseOriginal,
		},
		Simulator: SimulatorConfig{
			ListenAddress: "127.0.0.1",
			Port:          8080,
			Scale:         4,
		},
	}
}

// Load reads the configuration from path, or from the file named by
// OLEDSTATS_CONFIG when path is empty. With neither, Default is returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.fillLabels()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the display cannot use.
func (c *Config) Validate() error {
	var errs []error

	if c.Display.Bus == "" {
		errs = append(errs, errors.New("display.bus must not be empty"))
	}
	if c.Display.Address < 0x03 || c.Display.Address > 0x77 {
		errs = append(errs, fmt.Errorf("display.address 0x%02x is outside the 7-bit range", c.Display.Address))
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("display size %dx%d is invalid", c.Display.Width, c.Display.Height))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %v", c.Interval))
	}
	for _, tc := range []struct{ field, value string }{
		{"text.hostname_case", c.Text.HostnameCase},
		{"text.address_case", c.Text.AddressCase},
	} {
		if !validCase(tc.value) {
			errs = append(errs, fmt.Errorf("%s: unknown case mode %q", tc.field, tc.value))
		}
	}
	if c.Simulator.Scale <= 0 {
		errs = append(errs, fmt.Errorf("simulator.scale must be positive, got %d", c.Simulator.Scale))
	}
	for i, svc := range c.Services {
		if svc.Name == "" || svc.Unit == "" {
			errs = append(errs, fmt.Errorf("services[%d]: name and unit are required", i))
		}
	}

	return errors.Join(errs...)
}

// fillLabels gives every unlabelled service the first letter of its name.
func (c *Config) fillLabels() {
	for i := range c.Services {
		svc := &c.Services[i]
		if svc.Label != "" || svc.Name == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(svc.Name)
		svc.Label = strings.ToUpper(string(r))
	}
}

func validCase(mode string) bool {
	switch mode {
	case CaseOriginal, CaseUpper, CaseLower, CaseTitle:
		return true
	}
	return false
}
