package widget

import (
	"context"
	"fmt"
	"image"

	"github.com/larsks/oledstats/internal/fonts"
	"github.com/larsks/oledstats/internal/metrics"
)

var (
	IconCPU         = Icon{Rune: 0xE9BD, Label: "C"}
	IconRAM         = Icon{Rune: 0xEB83, Label: "M"}
	IconTemperature = Icon{Rune: 0xEEC6, Label: "T"}
)

// Formatter turns a sampled value into the text drawn after the icon.
type Formatter func(v float64, face *fonts.Face) string

// Resource shows an icon followed by a number, e.g. CPU load.
type Resource struct {
	icon      Icon
	iconFace  *fonts.Face
	valueFace *fonts.Face
	source    NumberSource
	format    Formatter
	value     float64
}

func NewResource(icon Icon, source NumberSource, format Formatter, iconFace, valueFace *fonts.Face) *Resource {
	return &Resource{
		icon:      icon,
		iconFace:  iconFace,
		valueFace: valueFace,
		source:    source,
		format:    format,
	}
}

func NewCPU(source NumberSource, iconFace, valueFace *fonts.Face) *Resource {
	return NewResource(IconCPU, source, Percent, iconFace, valueFace)
}

func NewRAM(source NumberSource, iconFace, valueFace *fonts.Face) *Resource {
	return NewResource(IconRAM, source, Percent, iconFace, valueFace)
}

func NewTemperature(source NumberSource, iconFace, valueFace *fonts.Face) *Resource {
	return NewResource(IconTemperature, source, Degrees, iconFace, valueFace)
}

// Percent formats v as a whole percentage in [0, 100].
func Percent(v float64, _ *fonts.Face) string {
	return fmt.Sprintf("%d%%", int(metrics.ClampPercent(v)))
}

// Degrees formats v as whole degrees, never below zero. Faces without a
// degree sign get a trailing C.
func Degrees(v float64, face *fonts.Face) string {
	n := int(v)
	if n < 0 {
		n = 0
	}
	if face.HasGlyph('°') {
		return fmt.Sprintf("%d°", n)
	}
	return fmt.Sprintf("%dC", n)
}

func (w *Resource) Value() float64 {
	return w.value
}

// Text returns the value as it will be drawn.
func (w *Resource) Text() string {
	return w.format(w.value, w.valueFace)
}

func (w *Resource) Update(ctx context.Context) error {
	v, err := w.source(ctx)
	if err != nil {
		w.value = 0
		return err
	}
	w.value = v
	return nil
}

func (w *Resource) Render(c *Canvas, at image.Point, align Align) image.Point {
	glyph := w.icon.glyph(w.iconFace)
	text := w.Text()
	iconWidth := MeasureText(w.iconFace, glyph)
	valueWidth := MeasureText(w.valueFace, text)

	x := at.X
	if align == AlignRight {
		x = at.X - iconWidth - 1 - valueWidth - 4
	}

	c.Text(w.iconFace, x, at.Y, glyph)
	c.Text(w.valueFace, x+iconWidth+1, at.Y, text)

	if align == AlignRight {
		return image.Pt(x, at.Y)
	}
	return image.Pt(x+iconWidth+valueWidth+5, at.Y)
}
