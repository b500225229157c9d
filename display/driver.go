package display

import (
	"fmt"
	"image"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// DefaultAddress is the I²C address used by nearly every SSD1306 module.
const DefaultAddress uint16 = 0x3C

type (
	SSD1306 interface {
		Open() error
		Close() error
		Bounds() image.Rectangle
		Draw(r image.Rectangle, src image.Image, sp image.Point) error
	}

	RealSSD1306 struct {
		busName string
		address uint16
		opts    ssd1306.Opts
		bus     i2c.BusCloser
		dev     *ssd1306.Dev
	}

	// DiscardSSD1306 accepts and drops every frame. It stands in for a
	// panel that could not be opened so the update loop keeps running.
	DiscardSSD1306 struct {
		bounds image.Rectangle
	}

	// addressedBus sends every transaction to a fixed address. The
	// ssd1306 driver always talks to 0x3C, so modules strapped to 0x3D
	// go through this.
	addressedBus struct {
		i2c.Bus
		addr uint16
	}
)

func NewRealSSD1306(busName string, address uint16, width, height int, rotated bool) *RealSSD1306 {
	opts := ssd1306.DefaultOpts
	opts.W = width
	opts.H = height
	opts.Rotated = rotated
	if height == 32 {
		opts.Sequential = true
	}

	return &RealSSD1306{
		busName: busName,
		address: address,
		opts:    opts,
	}
}

func (d *RealSSD1306) Open() error {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph host: %w", err)
	}

	b, err := i2creg.Open(d.busName)
	if err != nil {
		return fmt.Errorf("failed to open i2c bus %s: %w", d.busName, err)
	}
	d.bus = b

	var bus i2c.Bus = b
	if d.address != 0 && d.address != DefaultAddress {
		bus = &addressedBus{Bus: b, addr: d.address}
	}

	dev, err := ssd1306.NewI2C(bus, &d.opts)
	if err != nil {
		b.Close() //nolint:errcheck
		d.bus = nil
		return fmt.Errorf("failed to initialize ssd1306 at 0x%02x: %w", d.address, err)
	}
	d.dev = dev
	return nil
}

func (d *RealSSD1306) Close() error {
	if d.bus == nil {
		return nil
	}
	err := d.bus.Close()
	d.bus = nil
	d.dev = nil
	return err
}

func (d *RealSSD1306) Bounds() image.Rectangle {
	if d.dev == nil {
		return image.Rect(0, 0, d.opts.W, d.opts.H)
	}
	return d.dev.Bounds()
}

func (d *RealSSD1306) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if d.dev == nil {
		return fmt.Errorf("ssd1306 on %s is not open", d.busName)
	}
	return d.dev.Draw(r, src, sp)
}

func NewDiscardSSD1306(width, height int) *DiscardSSD1306 {
	return &DiscardSSD1306{bounds: image.Rect(0, 0, width, height)}
}

func (d *DiscardSSD1306) Open() error {
	return nil
}

func (d *DiscardSSD1306) Close() error {
	return nil
}

func (d *DiscardSSD1306) Bounds() image.Rectangle {
	return d.bounds
}

func (d *DiscardSSD1306) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	return nil
}

func (b *addressedBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

func (b *addressedBus) SetSpeed(f physic.Frequency) error {
	return b.Bus.SetSpeed(f)
}

func (b *addressedBus) String() string {
	return fmt.Sprintf("%s@0x%02x", b.Bus.String(), b.addr)
}
