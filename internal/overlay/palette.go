package overlay

import (
	"errors"
	"fmt"
	"unicode/utf16"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultColors is the stock label palette.
var DefaultColors = []string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#FFA07A",
	"#98D8C8",
	"#F7DC6F",
	"#BB8FCE",
	"#85C1E2",
	"#F8B739",
	"#52B788",
}

// Palette maps labels to colors.
type Palette struct {
	hex    []string
	colors []colorful.Color
}

// NewPalette parses a list of "#RRGGBB" colors.
func NewPalette(hex []string) (*Palette, error) {
	if len(hex) == 0 {
		return nil, errors.New("palette needs at least one color")
	}
	p := &Palette{hex: make([]string, len(hex)), colors: make([]colorful.Color, len(hex))}
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("palette color %d: %w", i, err)
		}
		p.colors[i] = c
		p.hex[i] = c.Hex()
	}
	return p, nil
}

// DefaultPalette returns the palette built from DefaultColors.
func DefaultPalette() *Palette {
	p, err := NewPalette(DefaultColors)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of colors.
func (p *Palette) Len() int { return len(p.colors) }

// Index returns the palette slot for label: the sum of its UTF-16 code units
// modulo the palette size.
func (p *Palette) Index(label string) int {
	sum := 0
	for _, u := range utf16.Encode([]rune(label)) {
		sum += int(u)
	}
	return sum % len(p.colors)
}

// Color returns the color for label.
func (p *Palette) Color(label string) colorful.Color {
	return p.colors[p.Index(label)]
}

// Hex returns the color for label as lowercase "#rrggbb".
func (p *Palette) Hex(label string) string {
	return p.hex[p.Index(label)]
}
