package layout

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/math/fixed"

	"e2x/config"
	"e2x/content"
)

// TOC page geometry. Entries occupy fixed-height rows below a reserved header
// band, the compositor draws the title, dot leaders and page number into each
// row. TOC pages use their own side margins independent of the body layout.
const (
	TocHeaderSpace = 100
	TocRowHeight   = 35
	TocSideMargin  = 40
	TocColumnGap   = 20
)

// TOC is the resolved table of contents: the final entry list and the number
// of pages it occupies in front of the body.
type TOC struct {
	Entries []TocEntry
	Pages   int
}

// BuildTOC selects visible chapter-start pages from the first pagination pass
// and sizes the table of contents by laying its rows out through the same
// engine. Sizing is a fixed-point: while the page numbers printed in the
// entries depend on the TOC's own length, the row count does not, so the loop
// converges in at most two iterations. Entry titles are truncated here so a
// row is always a single line, both during sizing and when composited.
func BuildTOC(pass1 []Page, cfg Config, m Metrics, log *zap.Logger) (TOC, error) {
	type chapterRef struct {
		id    string
		title string
		page  int // 1-based pass-1 index
	}
	var refs []chapterRef
	for i := range pass1 {
		pg := &pass1[i]
		if pg.ChapterStart && pg.ChapterVisible {
			refs = append(refs, chapterRef{id: pg.ChapterID, title: pg.ChapterTitle, page: pg.Index})
		}
	}
	if len(refs) == 0 {
		return TOC{}, nil
	}

	tcfg := TocPageConfig(cfg)
	tm := fixedRowMetrics{inner: m, row: fixed.I(TocRowHeight)}

	toc := TOC{}
	for iter := 0; iter < 2; iter++ {
		toc.Entries = toc.Entries[:0]
		nodes := make([]content.Node, 0, len(refs))
		for _, ref := range refs {
			target := strconv.Itoa(ref.page + toc.Pages)
			// a row shares its measure between the title, the leaders gap
			// and the right-aligned page number
			maxTitle := fixed.I(tcfg.UsableWidth()) - m.Advance(target, false, false) - fixed.I(TocColumnGap)
			title := fitTitle(m, ref.title, maxTitle)
			toc.Entries = append(toc.Entries, TocEntry{
				ChapterID: ref.id,
				Title:     title,
				Page:      ref.page + toc.Pages,
			})
			nodes = append(nodes, content.Node{
				Kind:        content.NodeTextRun,
				Clusters:    []content.Cluster{{Text: title + target}},
				ForcedBreak: true,
			})
		}

		pages, err := Paginate(nodes, tcfg, tm, 0, log)
		if err != nil {
			return TOC{}, fmt.Errorf("sizing table of contents: %w", err)
		}
		if len(pages) == toc.Pages {
			return toc, nil
		}
		toc.Pages = len(pages)
	}
	return TOC{}, fmt.Errorf("%w: table of contents sizing did not converge", ErrConfiguration)
}

// TocPageConfig derives the layout geometry of a TOC page from the body
// geometry: fixed side margins, header band reserved above the rows, the
// footer band kept from the body.
func TocPageConfig(cfg Config) Config {
	return Config{
		PageWidth:     cfg.PageWidth,
		PageHeight:    cfg.PageHeight,
		MarginLeft:    TocSideMargin,
		MarginRight:   TocSideMargin,
		TopPadding:    cfg.TopPadding + TocHeaderSpace,
		BottomPadding: cfg.BottomPadding,
		Alignment:     config.AlignmentModeLeft,
	}
}

// fitTitle truncates the title with an ellipsis when it would not fit the
// row, measured with the entry face.
func fitTitle(m Metrics, title string, max fixed.Int26_6) string {
	title = strings.TrimSpace(title)
	if m.Advance(title, false, false) <= max {
		return title
	}
	ell := m.Advance("...", false, false)
	runes := []rune(title)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		head := strings.TrimRight(string(runes), " ")
		if m.Advance(head, false, false)+ell <= max {
			return head + "..."
		}
	}
	return "..."
}

// fixedRowMetrics pins the engine's line height to the TOC row height while
// measuring text with the real entry face.
type fixedRowMetrics struct {
	inner Metrics
	row   fixed.Int26_6
}

func (f fixedRowMetrics) Advance(s string, bold, italic bool) fixed.Int26_6 {
	return f.inner.Advance(s, bold, italic)
}

func (f fixedRowMetrics) LineHeight() fixed.Int26_6 { return f.row }
