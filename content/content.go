// Package content normalizes a loaded book into the linear node stream
// consumed by the pagination engine. The stream is built once per load and
// reused across every re-pagination, nodes are never mutated downstream.
package content

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"go.uber.org/zap"

	"e2x/book"
	"e2x/content/text"
)

// NodeKind tags the content node variants.
type NodeKind int

const (
	NodeTextRun NodeKind = iota
	NodeInlineImage
	NodeChapterStart
)

// AlignHint carries block-level alignment preference into layout. Headings
// are centered regardless of the configured body alignment.
type AlignHint int

const (
	AlignDefault AlignHint = iota
	AlignCenter
)

// Style holds inline text attributes of a run.
type Style struct {
	Italic bool
	Bold   bool
	Align  AlignHint
}

// Cluster is a single grapheme cluster of a text run. BreakAfter marks a
// legal hyphenation point following the cluster - annotation only, the
// pagination engine decides whether to realize it.
type Cluster struct {
	Text       string
	BreakAfter bool
}

// Node is a tagged variant of the content stream: text run, inline image or
// chapter boundary. Ordering is significant and immutable once produced.
type Node struct {
	Kind NodeKind

	// NodeTextRun
	Clusters    []Cluster
	Style       Style
	ForcedBreak bool // forced line break closes the paragraph after this run

	// NodeInlineImage
	AssetID string
	Width   int
	Height  int

	// NodeChapterStart
	ChapterID    string
	ChapterTitle string
	Visible      bool
}

// Content couples the loaded book with its flattened node stream.
type Content struct {
	SrcName string
	Book    *book.Book
	Nodes   []Node
	Hyphen  *text.Hyphenator
}

// Prepare flattens the book into the content stream, annotating hyphenation
// points when hyphenator is not nil. Unknown markup is downgraded to plain
// text, never dropped.
func Prepare(ctx context.Context, b *book.Book, srcName string, hyphen *text.Hyphenator, log *zap.Logger) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &Content{
		SrcName: srcName,
		Book:    b,
		Hyphen:  hyphen,
	}

	for ci := range b.Chapters {
		ch := &b.Chapters[ci]
		c.Nodes = append(c.Nodes, Node{
			Kind:         NodeChapterStart,
			ChapterID:    ch.ID,
			ChapterTitle: ch.Title,
			Visible:      ch.Visible,
		})
		for bi := range ch.Blocks {
			c.flattenBlock(&ch.Blocks[bi], b, log)
		}
	}

	log.Debug("Content stream prepared",
		zap.String("source", srcName), zap.Int("chapters", len(b.Chapters)), zap.Int("nodes", len(c.Nodes)))
	return c, nil
}

func (c *Content) flattenBlock(blk *book.Block, b *book.Book, log *zap.Logger) {
	switch blk.Kind {
	case book.BlockParagraph, book.BlockHeading:
		c.flattenSpans(blk, log)
	case book.BlockImage:
		asset, ok := b.Assets[blk.Asset]
		if !ok {
			log.Warn("Image block references unknown asset, downgrading to text", zap.String("asset", blk.Asset))
			c.appendRun([]Cluster{}, Style{}, true)
			return
		}
		c.Nodes = append(c.Nodes, Node{
			Kind:    NodeInlineImage,
			AssetID: asset.ID,
			Width:   asset.Width,
			Height:  asset.Height,
		})
	case book.BlockEmptyLine:
		c.appendRun(nil, Style{}, true)
	default:
		// never drop content - treat anything unexpected as a paragraph
		log.Warn("Unsupported block markup, downgrading to paragraph", zap.Int("kind", int(blk.Kind)))
		c.flattenSpans(blk, log)
	}
}

func (c *Content) flattenSpans(blk *book.Block, _ *zap.Logger) {
	align := AlignDefault
	if blk.Kind == book.BlockHeading {
		align = AlignCenter
	}

	for si, span := range blk.Spans {
		st := Style{
			Italic: span.Italic,
			Bold:   span.Bold || blk.Kind == book.BlockHeading,
			Align:  align,
		}
		last := si == len(blk.Spans)-1
		c.appendRun(c.annotate(span.Text), st, last)
	}
	if len(blk.Spans) == 0 {
		c.appendRun(nil, Style{Align: align}, true)
	}
}

func (c *Content) appendRun(clusters []Cluster, st Style, forced bool) {
	c.Nodes = append(c.Nodes, Node{
		Kind:        NodeTextRun,
		Clusters:    clusters,
		Style:       st,
		ForcedBreak: forced,
	})
}

// annotate splits a span into grapheme clusters and marks legal hyphenation
// points after clusters inside words. Non-breaking spaces are normalized to
// plain spaces so justification can stretch them evenly.
func (c *Content) annotate(s string) []Cluster {
	s = strings.Map(func(r rune) rune {
		if r == '\u00a0' {
			return ' '
		}
		return r
	}, s)

	var out []Cluster

	g := uniseg.NewGraphemes(s)
	wordStart := -1 // index into out where the current word begins
	var word strings.Builder

	flush := func() {
		if wordStart < 0 {
			return
		}
		c.markWordBreaks(out[wordStart:], word.String())
		wordStart = -1
		word.Reset()
	}

	for g.Next() {
		cl := g.Str()
		r, _ := utf8.DecodeRuneInString(cl)
		if unicode.IsSpace(r) {
			flush()
			out = append(out, Cluster{Text: cl})
			continue
		}
		if wordStart < 0 {
			wordStart = len(out)
		}
		word.WriteString(cl)
		out = append(out, Cluster{Text: cl})
	}
	flush()
	return out
}

// markWordBreaks consults the hyphenation dictionary for the assembled word
// and flags clusters after which a split is legal. Break positions are rune
// counts, clusters may span several runes.
func (c *Content) markWordBreaks(clusters []Cluster, word string) {
	if c.Hyphen == nil || !isHyphenatable(word) {
		return
	}
	breaks := c.Hyphen.WordBreaks(word)
	if len(breaks) == 0 {
		return
	}

	runes := 0
	next := 0
	for i := range clusters {
		runes += utf8.RuneCountInString(clusters[i].Text)
		for next < len(breaks) && breaks[next] < runes {
			// break position fell inside a multi-rune cluster, skip it
			next++
		}
		if next < len(breaks) && breaks[next] == runes && i < len(clusters)-1 {
			clusters[i].BreakAfter = true
			next++
		}
	}
}

// isHyphenatable filters out tokens with digits or punctuation - only plain
// letter words get dictionary treatment.
func isHyphenatable(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}
