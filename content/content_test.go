package content

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"

	"e2x/book"
	"e2x/content/text"
)

func mkBook(blocks ...book.Block) *book.Book {
	return &book.Book{
		Title: "Test",
		Lang:  language.English,
		Chapters: []book.Chapter{
			{ID: "ch1", Title: "One", Visible: true, Blocks: blocks},
		},
		Assets: map[string]*book.Asset{},
	}
}

func para(spans ...book.Span) book.Block {
	return book.Block{Kind: book.BlockParagraph, Spans: spans}
}

func prepare(t *testing.T, b *book.Book, h *text.Hyphenator) *Content {
	t.Helper()
	c, err := Prepare(context.Background(), b, "test.epub", h, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return c
}

func runText(n *Node) string {
	var b strings.Builder
	for _, cl := range n.Clusters {
		b.WriteString(cl.Text)
	}
	return b.String()
}

func TestPrepareFlattensInOrder(t *testing.T) {
	b := mkBook(
		para(book.Span{Text: "first"}),
		book.Block{Kind: book.BlockHeading, Level: 2, Spans: []book.Span{{Text: "head"}}},
		para(book.Span{Text: "second"}),
	)
	c := prepare(t, b, nil)

	if len(c.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(c.Nodes))
	}
	if c.Nodes[0].Kind != NodeChapterStart || c.Nodes[0].ChapterID != "ch1" || !c.Nodes[0].Visible {
		t.Fatalf("first node is not the chapter boundary: %+v", c.Nodes[0])
	}
	for i, want := range []string{"first", "head", "second"} {
		n := &c.Nodes[i+1]
		if n.Kind != NodeTextRun || runText(n) != want {
			t.Errorf("node %d text = %q, want %q", i+1, runText(n), want)
		}
		if !n.ForcedBreak {
			t.Errorf("node %d does not close its paragraph", i+1)
		}
	}
}

func TestPrepareHeadingsCenteredAndBold(t *testing.T) {
	b := mkBook(book.Block{Kind: book.BlockHeading, Level: 1, Spans: []book.Span{{Text: "Title"}}})
	c := prepare(t, b, nil)

	n := &c.Nodes[1]
	if n.Style.Align != AlignCenter {
		t.Error("heading run is not centered")
	}
	if !n.Style.Bold {
		t.Error("heading run is not bold")
	}
}

func TestPrepareNormalizesNonBreakingSpace(t *testing.T) {
	b := mkBook(para(book.Span{Text: "a b"}))
	c := prepare(t, b, nil)

	if got := runText(&c.Nodes[1]); got != "a b" {
		t.Errorf("nbsp not normalized, got %q", got)
	}
}

func TestPrepareMarksLegalHyphenBreaks(t *testing.T) {
	log := zaptest.NewLogger(t)
	h := text.NewHyphenator(language.English, log)
	if h == nil {
		t.Fatal("no english hyphenation dictionary")
	}

	const word = "hyphenation"
	b := mkBook(para(book.Span{Text: word}))
	c := prepare(t, b, h)

	legal := map[int]bool{}
	for _, p := range h.WordBreaks(word) {
		legal[p] = true
	}
	if len(legal) == 0 {
		t.Fatalf("dictionary offers no breaks for %q", word)
	}

	marked := 0
	runes := 0
	for _, cl := range c.Nodes[1].Clusters {
		runes += utf8.RuneCountInString(cl.Text)
		if cl.BreakAfter {
			marked++
			if !legal[runes] {
				t.Errorf("break marked after rune %d which the dictionary does not allow", runes)
			}
		}
	}
	if marked == 0 {
		t.Error("no hyphenation points were annotated")
	}
}

func TestPrepareSkipsHyphenationForMixedTokens(t *testing.T) {
	log := zaptest.NewLogger(t)
	h := text.NewHyphenator(language.English, log)
	if h == nil {
		t.Fatal("no english hyphenation dictionary")
	}

	b := mkBook(para(book.Span{Text: "route66 genuinely-so 42"}))
	c := prepare(t, b, h)

	for _, cl := range c.Nodes[1].Clusters {
		if cl.BreakAfter {
			t.Fatalf("token with digits or punctuation got a break after %q", cl.Text)
		}
	}
}

func TestPrepareDowngradesUnknownBlocks(t *testing.T) {
	b := mkBook(book.Block{Kind: book.BlockKind(99), Spans: []book.Span{{Text: "keep me"}}})
	c := prepare(t, b, nil)

	if len(c.Nodes) != 2 || c.Nodes[1].Kind != NodeTextRun || runText(&c.Nodes[1]) != "keep me" {
		t.Fatal("unknown block kind dropped content instead of downgrading")
	}
}

func TestPrepareImageBlocks(t *testing.T) {
	b := mkBook(
		book.Block{Kind: book.BlockImage, Asset: "img1"},
		book.Block{Kind: book.BlockImage, Asset: "missing"},
	)
	b.Assets["img1"] = &book.Asset{ID: "img1", MimeType: "image/png", Width: 24, Height: 16}

	c := prepare(t, b, nil)

	if c.Nodes[1].Kind != NodeInlineImage || c.Nodes[1].AssetID != "img1" ||
		c.Nodes[1].Width != 24 || c.Nodes[1].Height != 16 {
		t.Fatalf("image block not flattened: %+v", c.Nodes[1])
	}
	// missing asset degrades to an empty forced-break run, never an image
	if c.Nodes[2].Kind != NodeTextRun || !c.Nodes[2].ForcedBreak {
		t.Fatalf("missing asset not downgraded: %+v", c.Nodes[2])
	}
}

func TestContentStringDump(t *testing.T) {
	b := mkBook(para(book.Span{Text: "hello world"}))
	b.Assets["img1"] = &book.Asset{ID: "img1", MimeType: "image/png", Width: 2, Height: 2}
	c := prepare(t, b, nil)

	dump := c.String()
	for _, want := range []string{"ChapterStart", "TextRun", "hello world", "img1"} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q", want)
		}
	}
	var nilContent *Content
	if nilContent.String() != "<nil Content>" {
		t.Error("nil dump broken")
	}
}
