package layout

import (
	"errors"
	"fmt"

	"e2x/config"
)

// ErrConfiguration marks fail-fast configuration validation errors. No
// partial document is ever produced after this is returned.
var ErrConfiguration = errors.New("invalid layout configuration")

// Config is the immutable layout value consumed per pipeline invocation.
// Page dimensions are final (orientation already applied). Any change
// invalidates all derived state.
type Config struct {
	PageWidth  int
	PageHeight int

	MarginTop    int
	MarginBottom int
	MarginLeft   int
	MarginRight  int

	TopPadding    int
	BottomPadding int

	Alignment config.AlignmentMode
}

// FromDocument converts the configuration surface into a layout value,
// swapping dimensions for landscape orientation.
func FromDocument(lc *config.LayoutConfig) Config {
	w, h := lc.ScreenWidth, lc.ScreenHeight
	if lc.Orientation == config.OrientationLandscape {
		w, h = h, w
	}
	return Config{
		PageWidth:     w,
		PageHeight:    h,
		MarginTop:     lc.MarginTop,
		MarginBottom:  lc.MarginBottom,
		MarginLeft:    lc.MarginLeft,
		MarginRight:   lc.MarginRight,
		TopPadding:    lc.TopPadding,
		BottomPadding: lc.BottomPadding,
		Alignment:     lc.Alignment,
	}
}

// Validate fails fast on dimensions no page could be built from.
func (c Config) Validate() error {
	if c.PageWidth <= 0 || c.PageHeight <= 0 {
		return fmt.Errorf("%w: page dimensions %dx%d", ErrConfiguration, c.PageWidth, c.PageHeight)
	}
	if c.MarginTop < 0 || c.MarginBottom < 0 || c.MarginLeft < 0 || c.MarginRight < 0 {
		return fmt.Errorf("%w: negative margins", ErrConfiguration)
	}
	if c.TopPadding < 0 || c.BottomPadding < 0 {
		return fmt.Errorf("%w: negative padding", ErrConfiguration)
	}
	if c.UsableWidth() <= 0 {
		return fmt.Errorf("%w: margins %d+%d exceed page width %d",
			ErrConfiguration, c.MarginLeft, c.MarginRight, c.PageWidth)
	}
	if c.ContentHeight() <= 0 {
		return fmt.Errorf("%w: margins and padding exceed page height %d",
			ErrConfiguration, c.PageHeight)
	}
	return nil
}

// UsableWidth is the horizontal space available to a line.
func (c Config) UsableWidth() int {
	return c.PageWidth - c.MarginLeft - c.MarginRight
}

// ContentHeight is the vertical space available to lines and images. Top and
// bottom padding are reserved for the header gap and the progress bar
// footer.
func (c Config) ContentHeight() int {
	return c.PageHeight - c.MarginTop - c.MarginBottom - c.TopPadding - c.BottomPadding
}

// ContentTop is the y coordinate of the content area on the page bitmap.
func (c Config) ContentTop() int {
	return c.TopPadding + c.MarginTop
}

// ContentLeft is the x coordinate of the content area on the page bitmap.
func (c Config) ContentLeft() int {
	return c.MarginLeft
}
