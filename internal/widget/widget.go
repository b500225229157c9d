// Package widget draws the individual pieces of the status display.
//
// A widget samples a value in Update and draws it in Render. Render
// receives the layout cursor and returns the cursor for the next widget:
// further right for left-aligned widgets, further left for right-aligned
// ones.
package widget

import (
	"context"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/larsks/oledstats/internal/fonts"
)

type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

type (
	Widget interface {
		// Update refreshes the widget's value. On error the widget keeps a
		// fallback value and can still be rendered.
		Update(ctx context.Context) error

		// Render draws the widget at the cursor and returns the new cursor.
		Render(c *Canvas, at image.Point, align Align) image.Point
	}

	NumberSource func(ctx context.Context) (float64, error)
	BoolSource   func(ctx context.Context) (bool, error)
	StringSource func(ctx context.Context) (string, error)

	// Icon is a glyph in the icon font plus the text drawn in its place
	// when the font lacks it.
	Icon struct {
		Rune  rune
		Label string
	}

	// Canvas is one 1-bit frame.
	Canvas struct {
		img *image1bit.VerticalLSB
	}
)

func (i Icon) glyph(face *fonts.Face) string {
	if face.HasGlyph(i.Rune) {
		return string(i.Rune)
	}
	return i.Label
}

func NewCanvas(r image.Rectangle) *Canvas {
	return &Canvas{img: image1bit.NewVerticalLSB(r)}
}

func (c *Canvas) Image() *image1bit.VerticalLSB {
	return c.img
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

func (c *Canvas) Width() int {
	return c.img.Bounds().Dx()
}

func (c *Canvas) Height() int {
	return c.img.Bounds().Dy()
}

// Text draws s with the top-left corner of its line box at (x, y) and
// returns the advance width.
func (c *Canvas) Text(face font.Face, x, y int, s string) int {
	screen := font.Drawer{
		Dst:  c.img,
		Src:  &image.Uniform{image1bit.On},
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	screen.DrawString(s)
	return MeasureText(face, s)
}

// MeasureText returns the advance width of s in whole pixels.
func MeasureText(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}
