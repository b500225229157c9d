package widget

import (
	"context"
	"image"

	"github.com/larsks/oledstats/internal/fonts"
)

// Service shows an icon while a daemon is running and nothing otherwise.
type Service struct {
	icon   Icon
	face   *fonts.Face
	source BoolSource
	active bool
}

func NewService(icon Icon, source BoolSource, face *fonts.Face) *Service {
	return &Service{
		icon:   icon,
		face:   face,
		source: source,
	}
}

func (w *Service) Active() bool {
	return w.active
}

func (w *Service) Update(ctx context.Context) error {
	active, err := w.source(ctx)
	if err != nil {
		w.active = false
		return err
	}
	w.active = active
	return nil
}

// Render leaves the cursor where it was when the service is down, so
// the remaining icons close up. The same goes for an icon with nothing
// to draw.
func (w *Service) Render(c *Canvas, at image.Point, align Align) image.Point {
	if !w.active {
		return at
	}

	glyph := w.icon.glyph(w.face)
	if glyph == "" {
		return at
	}
	width := MeasureText(w.face, glyph)

	if align == AlignRight {
		x := at.X - width - 4
		c.Text(w.face, x, at.Y, glyph)
		return image.Pt(x, at.Y)
	}

	c.Text(w.face, at.X, at.Y, glyph)
	return image.Pt(at.X+width+4, at.Y)
}
