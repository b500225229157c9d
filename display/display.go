package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	DEFAULT_WIDTH  int = 128
	DEFAULT_HEIGHT int = 32
)

type (
	Display struct {
		busName     string
		address     uint16
		width       int
		height      int
		rotated     bool
		driver      SSD1306
		font        font.Face
		lineHeight  int
		initialized bool
	}
)

// d, err := NewDisplay().WithBusName("/dev/i2c-1").WithSize(128, 32).Build()
func NewDisplay() *Display {
	return &Display{
		busName: "/dev/i2c-1",
		address: DefaultAddress,
		width:   DEFAULT_WIDTH,
		height:  DEFAULT_HEIGHT,
	}
}

func (d *Display) WithBusName(busName string) *Display {
	d.busName = busName
	return d
}

func (d *Display) WithAddress(address uint16) *Display {
	d.address = address
	return d
}

func (d *Display) WithSize(width, height int) *Display {
	d.width = width
	d.height = height
	return d
}

// WithRotation flips the panel by 180 degrees, for modules mounted
// upside down.
func (d *Display) WithRotation(rotated bool) *Display {
	d.rotated = rotated
	return d
}

func (d *Display) WithDriver(driver SSD1306) *Display {
	d.driver = driver
	return d
}

func (d *Display) WithFont(f font.Face) *Display {
	d.font = f
	d.lineHeight = f.Metrics().Height.Ceil()
	return d
}

func (d *Display) Build() (*Display, error) {
	if d.width <= 0 || d.height <= 0 {
		return nil, fmt.Errorf("invalid display size %dx%d", d.width, d.height)
	}
	if d.font == nil {
		d.WithFont(basicfont.Face7x13)
	}
	return d, nil
}

func (d *Display) Init() error {
	if d.driver == nil {
		d.driver = NewRealSSD1306(d.busName, d.address, d.width, d.height, d.rotated)
	}

	if err := d.driver.Open(); err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	d.initialized = true

	return nil
}

func (d *Display) Close() error {
	if d.initialized {
		d.initialized = false
		return d.driver.Close()
	}
	return nil
}

func (d *Display) Bounds() image.Rectangle {
	if d.initialized {
		return d.driver.Bounds()
	}
	return image.Rect(0, 0, d.width, d.height)
}

// MaxLines reports how many lines of text ShowLines can fit.
func (d *Display) MaxLines() int {
	if d.lineHeight == 0 {
		return 0
	}
	return d.Bounds().Dy() / d.lineHeight
}

func (d *Display) Show(img image.Image) error {
	if !d.initialized {
		return fmt.Errorf("driver has not been initialized")
	}

	if err := d.driver.Draw(d.driver.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("failed to draw on display: %w", err)
	}
	return nil
}

func (d *Display) ClearScreen() error {
	if !d.initialized {
		return fmt.Errorf("driver has not been initialized")
	}
	return d.Show(image1bit.NewVerticalLSB(d.driver.Bounds()))
}

// ShowLines draws one line of text per row using the display font,
// replacing whatever was on screen.
func (d *Display) ShowLines(lines []string) error {
	if !d.initialized {
		return fmt.Errorf("driver has not been initialized")
	}

	if limit := d.MaxLines(); len(lines) > limit {
		return fmt.Errorf("text requires more than %d lines", limit)
	}

	img := image1bit.NewVerticalLSB(d.driver.Bounds())
	screen := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: d.font,
	}

	for i, textLine := range lines {
		screen.Dot = fixed.P(0, d.lineHeight*(1+i)-d.font.Metrics().Descent.Round())
		screen.DrawString(textLine)
	}

	return d.Show(img)
}
