package convert

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"e2x/config"
	"e2x/content"
	"e2x/fonts"
	"e2x/layout"
)

// Document is the complete derived state of one conversion: the content
// stream paginated against a concrete configuration, with the table of
// contents already folded into page numbering. It is immutable once built -
// a configuration change produces a new Document, never mutates this one.
type Document struct {
	Content *content.Content
	Cfg     layout.Config
	Fonts   *fonts.Set
	Measure *fonts.Measurer

	// pass 2 body pages, indices already shifted past the toc
	Pages []layout.Page
	TOC   layout.TOC

	FontSize    float64
	TocTitle    string
	Orientation config.Orientation
}

// TotalPages is the final container page count, toc pages included.
func (d *Document) TotalPages() int {
	return d.TOC.Pages + len(d.Pages)
}

// BuildDocument runs the deterministic part of the pipeline: first pagination
// pass, toc sizing against it, then the second pass with body page indices
// shifted past the reserved toc pages. Identical inputs always produce an
// identical Document.
func BuildDocument(ctx context.Context, c *content.Content, doc *config.DocumentConfig, log *zap.Logger) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lcfg := layout.FromDocument(&doc.Layout)

	set, err := fonts.Load(doc.Layout.FontPath, doc.Layout.FontsDir, doc.Layout.FontWeight, log)
	if err != nil {
		return nil, fmt.Errorf("unable to load fonts: %w", err)
	}
	m := fonts.NewMeasurer(set, doc.Layout.FontSize, doc.Layout.LineHeight)

	pages, err := layout.Paginate(c.Nodes, lcfg, m, 0, log)
	if err != nil {
		return nil, fmt.Errorf("pagination failed: %w", err)
	}
	if len(pages) == 0 {
		return nil, errors.New("document produced no pages")
	}

	var toc layout.TOC
	if doc.TOC.Generate {
		if toc, err = layout.BuildTOC(pages, lcfg, m, log); err != nil {
			return nil, fmt.Errorf("unable to build table of contents: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if toc.Pages > 0 {
		// same content, same breaks - only page indices shift
		if pages, err = layout.Paginate(c.Nodes, lcfg, m, toc.Pages, log); err != nil {
			return nil, fmt.Errorf("pagination failed: %w", err)
		}
	}

	d := &Document{
		Content:     c,
		Cfg:         lcfg,
		Fonts:       set,
		Measure:     m,
		Pages:       pages,
		TOC:         toc,
		FontSize:    doc.Layout.FontSize,
		TocTitle:    doc.TOC.Title,
		Orientation: doc.Layout.Orientation,
	}

	log.Debug("Document built",
		zap.Int("pages", len(d.Pages)), zap.Int("toc_pages", d.TOC.Pages), zap.Int("toc_entries", len(d.TOC.Entries)))
	return d, nil
}
