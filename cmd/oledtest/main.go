package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/larsks/oledstats/display"
	"github.com/larsks/oledstats/display/fakedriver"
	"github.com/larsks/oledstats/internal/command"
	"github.com/larsks/oledstats/internal/metrics"
	"github.com/larsks/oledstats/internal/syscheck"
)

type (
	Options struct {
		Device  string
		Address uint16
		Dev     bool
	}
)

var (
	options Options
)

// With --dev the simulator listens on $FAKESSD1306_LISTEN_ADDRESS and
// $FAKESSD1306_PORT (default 127.0.0.1:8080).
func init() {
	pflag.StringVarP(&options.Device, "device", "d", "/dev/i2c-1", "path to i2c device")
	pflag.Uint16Var(&options.Address, "address", display.DefaultAddress, "i2c address of the display")
	pflag.BoolVar(&options.Dev, "dev", false, "show the display in a browser instead of on hardware")
}

// testPattern draws a border around the panel with a line of text inside.
func testPattern(bounds image.Rectangle, text string) image.Image {
	img := image1bit.NewVerticalLSB(bounds)
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		img.SetBit(x, bounds.Min.Y, image1bit.On)
		img.SetBit(x, bounds.Max.Y-1, image1bit.On)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		img.SetBit(bounds.Min.X, y, image1bit.On)
		img.SetBit(bounds.Max.X-1, y, image1bit.On)
	}

	f := basicfont.Face7x13
	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: f,
	}
	baseline := (bounds.Dy()+f.Metrics().Ascent.Ceil())/2 - 1
	drawer.Dot = fixed.P(4, baseline)
	drawer.DrawString(text)
	return img
}

// debugInfo logs what the system knows about its I2C buses.
func debugInfo(ctx context.Context) {
	runner := command.NewExec()

	log.Printf("i2c device nodes:")
	nodes, _ := filepath.Glob("/dev/i2c*")
	if len(nodes) == 0 {
		log.Printf("  none")
	}
	for _, node := range nodes {
		log.Printf("  %s", node)
	}

	if out, err := runner.Output(ctx, "lsmod"); err != nil {
		log.Printf("warning: failed to list kernel modules: %v", err)
	} else {
		for _, line := range strings.Split(string(out), "\n") {
			if strings.Contains(line, "i2c") {
				log.Printf("  %s", line)
			}
		}
	}

	bus := syscheck.BusNumber(options.Device)
	if out, err := runner.Output(ctx, "i2cdetect", "-y", bus); err != nil {
		log.Printf("warning: failed to scan bus %s: %v", bus, err)
	} else {
		log.Printf("i2cdetect -y %s:\n%s", bus, out)
	}
}

func main() {
	pflag.Parse()

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var driver display.SSD1306
	if options.Dev {
		driver = fakedriver.NewFakeSSD1306(display.DEFAULT_WIDTH, display.DEFAULT_HEIGHT)
	}

	d, err := display.NewDisplay().
		WithBusName(options.Device).
		WithAddress(options.Address).
		WithRotation(true).
		WithDriver(driver).
		Build()
	if err != nil {
		return err
	}

	if err := d.Init(); err != nil {
		debugInfo(ctx)
		return fmt.Errorf("display test failed: %w", err)
	}
	defer d.Close() //nolint:errcheck

	if err := d.Show(testPattern(d.Bounds(), "OLED Test OK")); err != nil {
		debugInfo(ctx)
		return fmt.Errorf("display test failed: %w", err)
	}
	log.Printf("test pattern shown; press ^C to stop")

	select {
	case <-ctx.Done():
		return d.ClearScreen()
	case <-time.After(2 * time.Second):
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		host, _ := metrics.Hostname(ctx)
		if err := d.ShowLines([]string{host, "OLED is working!"}); err != nil {
			log.Printf("warning: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Printf("exiting")
			return d.ClearScreen()
		case <-ticker.C:
		}
	}
}
