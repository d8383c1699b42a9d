package epub

import (
	"bytes"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"e2x/book"
)

// parseChapterHTML flattens one spine document into blocks. The HTML goes
// through charset detection first - EPUB 2 files in the wild are not always
// UTF-8. Returns the first h1/h2 text as the fallback chapter title.
func parseChapterHTML(data []byte, docPath string, log *zap.Logger) ([]book.Block, string, error) {
	r, err := charset.NewReader(bytes.NewReader(data), "application/xhtml+xml")
	if err != nil {
		return nil, "", err
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, "", err
	}

	p := &chapterParser{docPath: docPath, log: log}
	if body := findElement(root, "body"); body != nil {
		p.walkBlocks(body)
	} else {
		p.walkBlocks(root)
	}
	p.flushParagraph()
	return p.blocks, p.title, nil
}

type chapterParser struct {
	docPath string
	log     *zap.Logger

	blocks []book.Block
	title  string

	// paragraph under construction from loose inline content
	spans  []book.Span
	bold   int
	italic int
}

// headingLevel maps hN tags to their level, 0 for everything else.
func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// walkBlocks consumes block-level markup, grouping loose inline content
// between blocks into implicit paragraphs.
func (p *chapterParser) walkBlocks(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			p.appendText(c.Data)
		case html.ElementNode:
			switch {
			case headingLevel(c.Data) > 0:
				p.flushParagraph()
				lvl := headingLevel(c.Data)
				p.walkInline(c)
				p.flushAs(book.BlockHeading, lvl)
				if p.title == "" && lvl <= 2 {
					p.title = strings.TrimSpace(nodeText(c))
				}
			case c.Data == "p" || c.Data == "li" || c.Data == "dd" || c.Data == "dt" ||
				c.Data == "pre" || c.Data == "caption" || c.Data == "figcaption":
				p.flushParagraph()
				p.walkInline(c)
				p.flushParagraph()
			case c.Data == "img" || c.Data == "image":
				p.flushParagraph()
				p.appendImage(c)
			case c.Data == "br" || c.Data == "hr":
				p.flushParagraph()
				p.blocks = append(p.blocks, book.Block{Kind: book.BlockEmptyLine})
			case c.Data == "blockquote" || c.Data == "div" || c.Data == "section" ||
				c.Data == "article" || c.Data == "aside" || c.Data == "ul" || c.Data == "ol" ||
				c.Data == "dl" || c.Data == "table" || c.Data == "tr" || c.Data == "td" ||
				c.Data == "th" || c.Data == "tbody" || c.Data == "thead" || c.Data == "figure" ||
				c.Data == "header" || c.Data == "footer" || c.Data == "main" || c.Data == "nav" ||
				c.Data == "svg":
				p.flushParagraph()
				p.walkBlocks(c)
				p.flushParagraph()
			case c.Data == "script" || c.Data == "style" || c.Data == "head" || c.Data == "title":
				// never content
			default:
				// unknown or inline element at block level joins the
				// implicit paragraph
				p.walkInline(c)
			}
		}
	}
}

// walkInline consumes phrasing content, tracking nested style state.
func (p *chapterParser) walkInline(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			p.appendText(c.Data)
		case html.ElementNode:
			switch c.Data {
			case "i", "em", "cite", "dfn", "var":
				p.italic++
				p.walkInline(c)
				p.italic--
			case "b", "strong":
				p.bold++
				p.walkInline(c)
				p.bold--
			case "br":
				p.flushParagraph()
			case "img", "image":
				p.flushParagraph()
				p.appendImage(c)
			case "script", "style":
				// never content
			default:
				p.walkInline(c)
			}
		}
	}
}

// appendText adds text to the open paragraph, collapsing whitespace runs the
// way HTML rendering does.
func (p *chapterParser) appendText(s string) {
	if s == "" {
		return
	}
	var b strings.Builder
	space := p.endsWithSpace()
	for _, r := range s {
		if unicode.IsSpace(r) && r != ' ' {
			if !space && (b.Len() > 0 || p.hasOpenText()) {
				b.WriteRune(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return
	}

	st := book.Span{Text: b.String(), Bold: p.bold > 0, Italic: p.italic > 0}
	if n := len(p.spans); n > 0 && p.spans[n-1].Bold == st.Bold && p.spans[n-1].Italic == st.Italic {
		p.spans[n-1].Text += st.Text
		return
	}
	p.spans = append(p.spans, st)
}

func (p *chapterParser) hasOpenText() bool {
	return len(p.spans) > 0
}

func (p *chapterParser) endsWithSpace() bool {
	if len(p.spans) == 0 {
		return true // leading whitespace never matters
	}
	last := p.spans[len(p.spans)-1].Text
	return last == "" || strings.HasSuffix(last, " ")
}

func (p *chapterParser) appendImage(n *html.Node) {
	src := attrValue(n, "src")
	if src == "" {
		src = attrValue(n, "href") // svg image elements use xlink:href
	}
	if src == "" {
		p.log.Warn("Image without source, skipping", zap.String("document", p.docPath))
		return
	}
	p.blocks = append(p.blocks, book.Block{
		Kind:  book.BlockImage,
		Asset: resolveRelative(p.docPath, src),
	})
}

// flushParagraph closes the open implicit paragraph if it holds any text.
func (p *chapterParser) flushParagraph() {
	p.flushAs(book.BlockParagraph, 0)
}

func (p *chapterParser) flushAs(kind book.BlockKind, level int) {
	spans := p.spans
	p.spans = nil

	// trim the block edges, inner spacing is already collapsed
	for len(spans) > 0 {
		spans[0].Text = strings.TrimLeft(spans[0].Text, " ")
		if spans[0].Text != "" {
			break
		}
		spans = spans[1:]
	}
	for len(spans) > 0 {
		last := len(spans) - 1
		spans[last].Text = strings.TrimRight(spans[last].Text, " ")
		if spans[last].Text != "" {
			break
		}
		spans = spans[:last]
	}
	if len(spans) == 0 {
		return
	}
	p.blocks = append(p.blocks, book.Block{Kind: kind, Spans: spans, Level: level})
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
