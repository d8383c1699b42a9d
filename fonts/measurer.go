package fonts

import (
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Measurer binds a font set to a point size and line height multiplier and
// implements the metrics contract the pagination engine depends on. All
// results are in 26.6 fixed point so repeated runs are bit-identical.
type Measurer struct {
	set        *Set
	size       float64
	lineHeight fixed.Int26_6
}

// NewMeasurer derives line height as round(size * multiplier) whole pixels -
// vertical layout works on pixel rows, only horizontal math keeps fractions.
func NewMeasurer(set *Set, size, lineHeightMult float64) *Measurer {
	return &Measurer{
		set:        set,
		size:       size,
		lineHeight: fixed.I(int(math.Round(size * lineHeightMult))),
	}
}

// Advance returns the advance width of s in the style face.
func (m *Measurer) Advance(s string, bold, italic bool) fixed.Int26_6 {
	if s == "" {
		return 0
	}
	face, err := m.set.Face(m.size, bold, italic)
	if err != nil {
		return 0
	}
	return font.MeasureString(face, s)
}

// LineHeight returns the fixed vertical advance between baselines.
func (m *Measurer) LineHeight() fixed.Int26_6 {
	return m.lineHeight
}

// Ascent returns the baseline offset from the line top for the style face.
func (m *Measurer) Ascent(bold, italic bool) fixed.Int26_6 {
	face, err := m.set.Face(m.size, bold, italic)
	if err != nil {
		return fixed.I(int(math.Round(m.size * 0.8)))
	}
	return face.Metrics().Ascent
}
