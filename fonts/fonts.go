// Package fonts loads typefaces and exposes the glyph metrics and raster
// primitives used by layout and render. Embedded Go fonts are the fallback
// when no font file is configured.
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Configured weights at or above this select the bold face as the body face.
const boldWeightCutoff = 600

// Set holds parsed style variants of a typeface. A single-file custom font
// serves all styles, embedded Go fonts provide true variants.
type Set struct {
	regular    *opentype.Font
	bold       *opentype.Font
	italic     *opentype.Font
	boldItalic *opentype.Font

	faces map[faceKey]font.Face
}

type faceKey struct {
	size   float64
	bold   bool
	italic bool
}

// Load builds a font set. Resolution order: explicit path, base name inside
// fontsDir, embedded Go fonts. weight only matters for the embedded set.
func Load(path, fontsDir string, weight int, log *zap.Logger) (*Set, error) {
	if path == "" {
		return loadEmbedded(weight)
	}

	resolved := path
	if !filepath.IsAbs(path) && fontsDir != "" {
		if names, err := List(fontsDir); err == nil {
			for _, n := range names {
				if strings.EqualFold(filepath.Base(n), path) {
					resolved = n
					break
				}
			}
		}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("unable to read font file %q: %w", resolved, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse font file %q: %w", resolved, err)
	}

	log.Debug("Using custom font for all styles", zap.String("file", resolved))
	if weight != 0 && weight != 400 {
		log.Debug("Font weight has no effect with a single font file", zap.Int("weight", weight))
	}
	return &Set{regular: f, bold: f, italic: f, boldItalic: f, faces: map[faceKey]font.Face{}}, nil
}

func loadEmbedded(weight int) (*Set, error) {
	parse := func(data []byte) (*opentype.Font, error) {
		return opentype.Parse(data)
	}
	reg, err := parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("unable to parse embedded regular font: %w", err)
	}
	bld, err := parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("unable to parse embedded bold font: %w", err)
	}
	ita, err := parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("unable to parse embedded italic font: %w", err)
	}
	bi, err := parse(gobolditalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("unable to parse embedded bold italic font: %w", err)
	}

	s := &Set{regular: reg, bold: bld, italic: ita, boldItalic: bi, faces: map[faceKey]font.Face{}}
	if weight >= boldWeightCutoff {
		s.regular, s.italic = bld, bi
	}
	return s, nil
}

// Face returns a cached face for the style at given pixel size. Faces are not
// safe for concurrent use - layout and render run on a single goroutine per
// document revision.
func (s *Set) Face(size float64, bold, italic bool) (font.Face, error) {
	key := faceKey{size: size, bold: bold, italic: italic}
	if f, ok := s.faces[key]; ok {
		return f, nil
	}

	var src *opentype.Font
	switch {
	case bold && italic:
		src = s.boldItalic
	case bold:
		src = s.bold
	case italic:
		src = s.italic
	default:
		src = s.regular
	}

	f, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create font face: %w", err)
	}
	s.faces[key] = f
	return f, nil
}

// List returns .ttf/.otf files under dir in natural order.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".ttf", ".otf":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Sort(natural.StringSlice(out))
	return out, nil
}
