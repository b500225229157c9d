package widget

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/larsks/oledstats/internal/fonts"
)

type CaseMode int

const (
	CaseOriginal CaseMode = iota
	CaseUpper
	CaseLower
	CaseTitle
)

// ParseCase maps the configuration names to case modes.
func ParseCase(name string) (CaseMode, error) {
	switch name {
	case "", "original":
		return CaseOriginal, nil
	case "upper":
		return CaseUpper, nil
	case "lower":
		return CaseLower, nil
	case "title":
		return CaseTitle, nil
	}
	return CaseOriginal, fmt.Errorf("unknown case mode %q", name)
}

// Text shows a line of text such as the hostname or address.
type Text struct {
	face   *fonts.Face
	source StringSource
	caser  *cases.Caser
	text   string
}

func NewText(initial string, source StringSource, face *fonts.Face, mode CaseMode) *Text {
	w := &Text{
		face:   face,
		source: source,
		text:   initial,
	}

	var caser cases.Caser
	switch mode {
	case CaseUpper:
		caser = cases.Upper(language.Und)
	case CaseLower:
		caser = cases.Lower(language.Und)
	case CaseTitle:
		caser = cases.Title(language.Und)
	default:
		// Unknown modes draw the text unchanged.
		return w
	}
	w.caser = &caser
	return w
}

// String returns the text as it will be drawn.
func (w *Text) String() string {
	if w.caser == nil {
		return w.text
	}
	return w.caser.String(w.text)
}

// Update replaces the text with the source's value. Sources return a
// fallback along with any error, so the fallback is shown.
func (w *Text) Update(ctx context.Context) error {
	s, err := w.source(ctx)
	if s != "" || err == nil {
		w.text = s
	}
	return err
}

func (w *Text) Render(c *Canvas, at image.Point, align Align) image.Point {
	s := w.String()
	width := MeasureText(w.face, s)

	if align == AlignRight {
		x := at.X - width - 2
		c.Text(w.face, x, at.Y, s)
		return image.Pt(x, at.Y)
	}

	c.Text(w.face, at.X, at.Y, s)
	return image.Pt(at.X+width+2, at.Y)
}
