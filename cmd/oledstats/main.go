package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/larsks/oledstats/display"
	"github.com/larsks/oledstats/display/fakedriver"
	"github.com/larsks/oledstats/internal/command"
	"github.com/larsks/oledstats/internal/config"
	"github.com/larsks/oledstats/internal/fonts"
	"github.com/larsks/oledstats/internal/manager"
	"github.com/larsks/oledstats/internal/metrics"
	"github.com/larsks/oledstats/internal/syscheck"
	"github.com/larsks/oledstats/internal/widget"
)

type (
	Options struct {
		Config   string
		Dev      bool
		Device   string
		Address  uint16
		Interval time.Duration
		Rotate   bool
		Port     uint
		Once     bool
	}
)

var (
	options Options
)

func init() {
	pflag.StringVarP(&options.Config, "config", "c", "", "path to config file (default $"+config.EnvVar+")")
	pflag.BoolVar(&options.Dev, "dev", false, "development mode: skip hardware checks and show the display in a browser")
	pflag.StringVarP(&options.Device, "device", "d", "/dev/i2c-1", "path to i2c device")
	pflag.Uint16Var(&options.Address, "address", display.DefaultAddress, "i2c address of the display")
	pflag.DurationVar(&options.Interval, "interval", time.Second, "time between display refreshes")
	pflag.BoolVar(&options.Rotate, "rotate", true, "rotate the display by 180 degrees")
	pflag.UintVar(&options.Port, "port", 8080, "simulator port in development mode")
	pflag.BoolVar(&options.Once, "once", false, "render a single frame and exit")
}

// applyFlags lets flags given on the command line override the config file.
func applyFlags(cfg *config.Config) {
	if pflag.CommandLine.Changed("device") {
		cfg.Display.Bus = options.Device
	}
	if pflag.CommandLine.Changed("address") {
		cfg.Display.Address = options.Address
	}
	if pflag.CommandLine.Changed("interval") {
		cfg.Interval = options.Interval
	}
	if pflag.CommandLine.Changed("rotate") {
		cfg.Display.Rotate = options.Rotate
	}
	if pflag.CommandLine.Changed("port") {
		cfg.Simulator.Port = options.Port
	}
}

func checkSystem(ctx context.Context, cfg *config.Config) {
	checker := syscheck.New(command.NewExec())

	if !checker.IsRoot() {
		log.Fatalf("this program must be run as root (or use --dev)")
	}
	if !checker.I2CEnabled(ctx) {
		log.Printf("warning: I2C does not appear to be enabled; try raspi-config")
	}
	if !checker.PanelPresent(ctx, cfg.Display.Bus, cfg.Display.Address) {
		log.Printf("warning: no device found at 0x%02x on %s", cfg.Display.Address, cfg.Display.Bus)
	}
}

func openDisplay(cfg *config.Config) *display.Display {
	var driver display.SSD1306
	if options.Dev {
		driver = fakedriver.NewFakeSSD1306(cfg.Display.Width, cfg.Display.Height).
			WithListenAddress(cfg.Simulator.ListenAddress).
			WithPort(cfg.Simulator.Port).
			WithScale(cfg.Simulator.Scale)
	}

	d, err := display.NewDisplay().
		WithBusName(cfg.Display.Bus).
		WithAddress(cfg.Display.Address).
		WithSize(cfg.Display.Width, cfg.Display.Height).
		WithRotation(cfg.Display.Rotate).
		WithDriver(driver).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	if err := d.Init(); err != nil {
		log.Printf("warning: %v; frames will be discarded", err)
		d.WithDriver(display.NewDiscardSSD1306(cfg.Display.Width, cfg.Display.Height))
		if err := d.Init(); err != nil {
			log.Fatal(err)
		}
	}

	return d
}

func buildWidgets(m *manager.Manager, cfg *config.Config) {
	iconFace := fonts.Resolve(cfg.Fonts.Icon.Path, cfg.Fonts.Icon.Size, nil)
	valueFace := fonts.Resolve(cfg.Fonts.Value.Path, cfg.Fonts.Value.Size, fonts.GoRegular)
	textFace := fonts.Resolve(cfg.Fonts.Text.Path, cfg.Fonts.Text.Size, fonts.GoRegular)
	boldFace := fonts.Resolve(cfg.Fonts.Bold.Path, cfg.Fonts.Bold.Size, fonts.GoBold)
	if iconFace.IsBitmap() {
		log.Printf("warning: no icon font; drawing letters in place of icons")
	}

	thermal := metrics.NewThermal(cfg.Sources.ThermalPath)
	m.AddResource("cpu", widget.NewCPU(metrics.CPUPercent, iconFace, valueFace))
	m.AddResource("ram", widget.NewRAM(metrics.MemoryPercent, iconFace, valueFace))
	m.AddResource("temperature", widget.NewTemperature(thermal.Celsius, iconFace, valueFace))

	runner := command.NewExec()
	for _, svc := range cfg.Services {
		checker := metrics.NewServiceChecker(runner, svc.Unit, svc.Fallback)
		icon := widget.Icon{Rune: svc.Icon, Label: svc.Label}
		m.AddService(svc.Name, widget.NewService(icon, checker.Active, iconFace))
	}

	// Case names were checked by config.Validate.
	hostCase, _ := widget.ParseCase(cfg.Text.HostnameCase)
	addrCase, _ := widget.ParseCase(cfg.Text.AddressCase)
	probe := metrics.NewAddressProbe(cfg.Sources.IPProbe)
	m.AddText("hostname", widget.NewText(metrics.FallbackHostname, metrics.Hostname, boldFace, hostCase))
	m.AddText("address", widget.NewText(metrics.FallbackIP, probe.Address, textFace, addrCase))
}

func main() {
	pflag.Parse()

	cfg, err := config.Load(options.Config)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !options.Dev {
		checkSystem(ctx, cfg)
	}

	d := openDisplay(cfg)
	defer d.Close() //nolint:errcheck

	m := manager.New(d)
	buildWidgets(m, cfg)

	if options.Once {
		if err := m.Tick(ctx); err != nil {
			log.Printf("warning: %v", err)
		}
		return
	}

	log.Printf("updating display every %v", cfg.Interval)
	if err := m.Run(ctx, cfg.Interval); err != nil {
		log.Printf("warning: %v", err)
	}
	log.Printf("exiting")
}
