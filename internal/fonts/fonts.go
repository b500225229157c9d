// Package fonts loads the faces used to draw on the panel.
package fonts

import (
	"fmt"
	"log"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultSize is used when a face is requested with a non-positive size.
const DefaultSize = 10

// Built-in TrueType data for Resolve fallbacks.
var (
	GoRegular = goregular.TTF
	GoBold    = gobold.TTF
)

// Face is a font.Face that can report which runes it really contains.
type Face struct {
	font.Face
	tt     *truetype.Font
	bitmap *basicfont.Face
}

// Bitmap returns the built-in 7x13 bitmap face.
func Bitmap() *Face {
	return &Face{Face: basicfont.Face7x13, bitmap: basicfont.Face7x13}
}

// Parse builds a face from TrueType data at size points (72 DPI, so
// points are pixels).
func Parse(data []byte, size float64) (*Face, error) {
	tf, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	if size <= 0 {
		size = DefaultSize
	}

	face := truetype.NewFace(tf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return &Face{Face: face, tt: tf}, nil
}

// Load reads and parses a TrueType file.
func Load(path string, size float64) (*Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}

	f, err := Parse(data, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Resolve loads path, falling back to the fallback TrueType data and
// then to the bitmap face. Failures are logged, never returned.
func Resolve(path string, size float64, fallback []byte) *Face {
	if path != "" {
		f, err := Load(path, size)
		if err == nil {
			return f
		}
		log.Printf("warning: %v; using built-in font", err)
	}

	if fallback != nil {
		f, err := Parse(fallback, size)
		if err == nil {
			return f
		}
		log.Printf("warning: built-in font: %v", err)
	}

	return Bitmap()
}

// HasGlyph reports whether r has its own glyph rather than a
// substitute.
func (f *Face) HasGlyph(r rune) bool {
	switch {
	case f.tt != nil:
		return f.tt.Index(r) != 0
	case f.bitmap != nil:
		for _, rg := range f.bitmap.Ranges {
			if r >= rg.Low && r < rg.High {
				return true
			}
		}
		return false
	}
	return false
}

// IsBitmap reports whether f is the built-in bitmap face.
func (f *Face) IsBitmap() bool {
	return f.bitmap != nil
}
