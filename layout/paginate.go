package layout

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/image/math/fixed"

	"e2x/config"
	"e2x/content"
)

// Paginate runs greedy line breaking and page filling over the content
// stream. offset shifts assigned page indices by the number of prepended TOC
// pages - line breaking decisions do not depend on it, so both passes produce
// identical boxes (determinism requirement).
func Paginate(nodes []content.Node, cfg Config, m Metrics, offset int, log *zap.Logger) ([]Page, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lineH := m.LineHeight().Round()
	if lineH <= 0 {
		return nil, fmt.Errorf("%w: line height %d", ErrConfiguration, lineH)
	}
	if lineH > cfg.ContentHeight() {
		return nil, fmt.Errorf("%w: line height %d exceeds content area %d", ErrConfiguration, lineH, cfg.ContentHeight())
	}

	p := &paginator{
		cfg:    cfg,
		m:      m,
		lineH:  lineH,
		usable: fixed.I(cfg.UsableWidth()),
		log:    log,
	}

	for i := range nodes {
		n := &nodes[i]
		switch n.Kind {
		case content.NodeChapterStart:
			p.startChapter(n)
		case content.NodeInlineImage:
			p.placeImage(n)
		case content.NodeTextRun:
			p.addRun(n)
		default:
			// never drop content
			log.Warn("Unknown content node, skipping layout", zap.Int("kind", int(n.Kind)))
		}
	}
	p.commitLine(true)
	p.flushPage()

	for i := range p.pages {
		p.pages[i].Index = offset + i + 1
	}
	return p.pages, nil
}

// cluster is a measured grapheme cluster inside the word being accumulated.
type cluster struct {
	text       string
	bold       bool
	italic     bool
	breakAfter bool
}

// gap is a committed inter-word space.
type gap struct {
	adv    fixed.Int26_6
	segIdx int // segment index the gap precedes
}

type paginator struct {
	cfg    Config
	m      Metrics
	lineH  int
	usable fixed.Int26_6
	log    *zap.Logger

	pages []Page
	cur   *Page
	y     int

	// current chapter, stamped on every produced page
	chapterID      string
	chapterTitle   string
	chapterVisible bool
	chapterPending bool // next page with content is the chapter start

	// current line accumulation
	segs     []Segment
	gaps     []gap
	penX     fixed.Int26_6
	center   bool
	lineUsed bool          // anything committed to segs yet
	hyphen   bool          // line ends in a realized soft break
	hyphenX  fixed.Int26_6 // pen position of the trailing hyphen

	// current word accumulation
	word []cluster

	// pending space before the next word
	spacePending bool
	spaceBold    bool
	spaceItalic  bool
}

func (p *paginator) page() *Page {
	if p.cur == nil {
		p.cur = &Page{
			ChapterID:      p.chapterID,
			ChapterTitle:   p.chapterTitle,
			ChapterVisible: p.chapterVisible,
		}
		if p.chapterPending {
			p.cur.ChapterStart = true
			p.chapterPending = false
		}
		p.y = 0
	}
	return p.cur
}

// flushPage closes the current page, dropping it when nothing was placed.
func (p *paginator) flushPage() {
	if p.cur == nil {
		return
	}
	if p.cur.HasContent() {
		p.pages = append(p.pages, *p.cur)
	}
	p.cur = nil
	p.y = 0
}

func (p *paginator) startChapter(n *content.Node) {
	p.commitLine(true)
	p.flushPage()

	p.chapterID = n.ChapterID
	p.chapterTitle = n.ChapterTitle
	p.chapterVisible = n.Visible
	p.chapterPending = true
	p.spacePending = false
}

func (p *paginator) addRun(n *content.Node) {
	if len(n.Clusters) > 0 {
		p.center = n.Style.Align == content.AlignCenter
	}
	for i := range n.Clusters {
		cl := &n.Clusters[i]
		r, _ := utf8.DecodeRuneInString(cl.Text)
		if unicode.IsSpace(r) {
			p.endWord()
			p.spacePending = true
			p.spaceBold, p.spaceItalic = n.Style.Bold, n.Style.Italic
			continue
		}
		p.word = append(p.word, cluster{
			text:       cl.Text,
			bold:       n.Style.Bold,
			italic:     n.Style.Italic,
			breakAfter: cl.BreakAfter,
		})
	}
	if n.ForcedBreak {
		p.endWord()
		p.commitLine(true)
	}
}

// endWord closes the accumulated word and fits it onto the current line,
// breaking the line when it overflows.
func (p *paginator) endWord() {
	if len(p.word) == 0 {
		return
	}
	word := p.word
	p.word = nil

	for len(word) > 0 {
		adv := p.wordAdvance(word)

		spaceAdv := fixed.Int26_6(0)
		if p.spacePending && p.lineUsed {
			spaceAdv = p.m.Advance(" ", p.spaceBold, p.spaceItalic)
		}

		if p.penX+spaceAdv+adv <= p.usable {
			p.placeWord(word, spaceAdv)
			p.spacePending = false
			return
		}

		// Overflow. Prefer the last whitespace on the line: wrap the whole
		// word to the next line.
		if p.lineUsed {
			p.commitLine(false)
			p.spacePending = false
			continue
		}

		// Line is empty and the word still does not fit: realize a legal
		// hyphenation point if one fits.
		if head, tail, ok := p.hyphenSplit(word); ok {
			p.hyphenX = p.placeWord(head, 0)
			p.hyphen = true
			p.appendLine(p.takeLine(false))
			word = tail
			continue
		}

		// Forced mid-word break - never drop content.
		head, tail := p.forcedSplit(word)
		p.placeWord(head, 0)
		p.commitLine(false)
		word = tail
	}
	p.spacePending = false
}

// wordAdvance measures the word as style-contiguous pieces.
func (p *paginator) wordAdvance(word []cluster) fixed.Int26_6 {
	var total fixed.Int26_6
	for _, piece := range mergePieces(word) {
		total += p.m.Advance(piece.Text, piece.Bold, piece.Italic)
	}
	return total
}

// mergePieces groups adjacent clusters of equal style into text runs.
func mergePieces(word []cluster) []Segment {
	var out []Segment
	var b strings.Builder
	for i, cl := range word {
		if i > 0 && (cl.bold != word[i-1].bold || cl.italic != word[i-1].italic) {
			out = append(out, Segment{Text: b.String(), Bold: word[i-1].bold, Italic: word[i-1].italic})
			b.Reset()
		}
		b.WriteString(cl.text)
	}
	if b.Len() > 0 {
		last := word[len(word)-1]
		out = append(out, Segment{Text: b.String(), Bold: last.bold, Italic: last.italic})
	}
	return out
}

// placeWord appends word segments at the current pen position and returns the
// pen position after the word.
func (p *paginator) placeWord(word []cluster, spaceAdv fixed.Int26_6) fixed.Int26_6 {
	if spaceAdv > 0 {
		p.gaps = append(p.gaps, gap{adv: spaceAdv, segIdx: len(p.segs)})
		p.penX += spaceAdv
	}
	for _, piece := range mergePieces(word) {
		piece.X = p.penX
		p.penX += p.m.Advance(piece.Text, piece.Bold, piece.Italic)
		p.segs = append(p.segs, piece)
	}
	p.lineUsed = true
	return p.penX
}

// hyphenSplit finds the longest head ending at a legal break point that fits
// the usable width together with a visible hyphen.
func (p *paginator) hyphenSplit(word []cluster) (head, tail []cluster, ok bool) {
	best := -1
	for i := 0; i < len(word)-1; i++ {
		if !word[i].breakAfter {
			continue
		}
		adv := p.wordAdvance(word[:i+1])
		hyph := p.m.Advance("-", word[i].bold, word[i].italic)
		if adv+hyph <= p.usable {
			best = i
		} else {
			break
		}
	}
	if best < 0 {
		return nil, nil, false
	}
	return word[:best+1], word[best+1:], true
}

// forcedSplit cuts the word at the last cluster that fits, always consuming
// at least one cluster so layout progresses.
func (p *paginator) forcedSplit(word []cluster) (head, tail []cluster) {
	n := 1
	for i := 2; i <= len(word); i++ {
		if p.wordAdvance(word[:i]) > p.usable {
			break
		}
		n = i
	}
	if n == 1 && p.wordAdvance(word[:1]) > p.usable {
		p.log.Warn("Cluster wider than usable line width, overflowing",
			zap.String("cluster", word[0].text), zap.Int("width", p.cfg.UsableWidth()))
	}
	if n == len(word) {
		// can only happen on rounding edges, keep the whole word
		return word, nil
	}
	return word[:n], word[n:]
}

// takeLine captures and resets the current line accumulation, applying
// alignment. final marks the last line of a paragraph (forced break) which is
// never stretched.
func (p *paginator) takeLine(final bool) LineBox {
	line := LineBox{Segments: p.segs, Hyphen: p.hyphen, HyphenX: p.hyphenX}

	natural := p.penX
	switch {
	case p.center:
		shift := (p.usable - natural) / 2
		if shift > 0 {
			for i := range line.Segments {
				line.Segments[i].X += shift
			}
			if line.Hyphen {
				line.HyphenX += shift
			}
		}
	case p.cfg.Alignment == config.AlignmentModeJustified && !final && len(p.gaps) > 0:
		extra := p.usable - natural
		if extra > 0 {
			perGap := extra / fixed.Int26_6(len(p.gaps))
			rem := int(extra - perGap*fixed.Int26_6(len(p.gaps)))
			var shift fixed.Int26_6
			for gi, g := range p.gaps {
				shift += perGap
				if gi < rem {
					shift++ // distribute remainder in 1/64px units
				}
				end := len(line.Segments)
				if gi+1 < len(p.gaps) {
					end = p.gaps[gi+1].segIdx
				}
				for si := g.segIdx; si < end; si++ {
					line.Segments[si].X += shift
				}
			}
			line.Stretch = perGap
		}
	}

	p.segs = nil
	p.gaps = nil
	p.penX = 0
	p.lineUsed = false
	p.hyphen = false
	p.hyphenX = 0
	return line
}

// appendLine places a finished line on the current page, moving to a new page
// when the remaining vertical space cannot hold it.
func (p *paginator) appendLine(line LineBox) {
	pg := p.page()
	if p.y+p.lineH > p.cfg.ContentHeight() && pg.HasContent() {
		p.flushPage()
		pg = p.page()
	}
	line.Y = p.y
	pg.Lines = append(pg.Lines, line)
	p.y += p.lineH
}

// commitLine closes the current line if it holds anything. final marks a
// paragraph-ending forced break.
func (p *paginator) commitLine(final bool) {
	p.endWord()
	if !p.lineUsed && len(p.segs) == 0 {
		p.spacePending = false
		return
	}
	p.trimTrailingGap()
	line := p.takeLine(final)
	p.appendLine(line)
	p.spacePending = false
}

// trimTrailingGap drops a gap that ended up with no following segments.
func (p *paginator) trimTrailingGap() {
	for len(p.gaps) > 0 && p.gaps[len(p.gaps)-1].segIdx >= len(p.segs) {
		p.penX -= p.gaps[len(p.gaps)-1].adv
		p.gaps = p.gaps[:len(p.gaps)-1]
	}
}

// placeImage positions a processed asset box, deferring it whole to the next
// page when it does not fit the remaining space. Images never split.
func (p *paginator) placeImage(n *content.Node) {
	p.commitLine(true)

	iw, ih := n.Width, n.Height
	if iw <= 0 || ih <= 0 {
		p.log.Warn("Image with unknown intrinsic size, using content box", zap.String("asset", n.AssetID))
		iw, ih = p.cfg.UsableWidth(), p.cfg.ContentHeight()/2
	}

	w := p.cfg.UsableWidth()
	h := scaleDim(ih, w, iw)
	if w > iw {
		// never scale small raster images up
		w, h = iw, ih
	}
	if h > p.cfg.ContentHeight() {
		h = p.cfg.ContentHeight()
		w = scaleDim(iw, h, ih)
		p.log.Warn("Image taller than content area, scaling down to fit",
			zap.String("asset", n.AssetID), zap.Int("width", w), zap.Int("height", h))
	}

	pg := p.page()
	if p.y+h > p.cfg.ContentHeight() && pg.HasContent() {
		p.flushPage()
		pg = p.page()
	}

	pg.Images = append(pg.Images, ImagePlacement{
		AssetID: n.AssetID,
		X:       (p.cfg.UsableWidth() - w) / 2,
		Y:       p.y,
		W:       w,
		H:       h,
	})
	p.y += h
}

func scaleDim(a, num, den int) int {
	if den == 0 {
		return a
	}
	v := (a*num + den/2) / den
	if v < 1 {
		v = 1
	}
	return v
}
