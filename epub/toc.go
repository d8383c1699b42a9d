package epub

import (
	"bytes"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// parseTOC fills tocTitle from the navigation document (EPUB 3) or the NCX
// (EPUB 2), first title per target wins. A missing TOC is not an error -
// chapters fall back to their heading text.
func (l *loader) parseTOC() {
	for _, item := range l.items {
		if !strings.Contains(item.properties, "nav") {
			continue
		}
		if data, err := l.read(item.href); err == nil {
			l.parseNavDoc(data, item.href)
		}
	}
	if len(l.tocTitle) > 0 {
		return
	}

	ncx, ok := l.items[l.ncxID]
	if !ok {
		for _, item := range l.items {
			if item.mediaType == "application/x-dtbncx+xml" {
				ncx = item
				ok = true
				break
			}
		}
	}
	if !ok {
		l.log.Debug("Document carries no navigation data")
		return
	}
	data, err := l.read(ncx.href)
	if err != nil {
		l.log.Warn("Unable to read NCX", zap.String("href", ncx.href), zap.Error(err))
		return
	}
	l.parseNCX(data, ncx.href)
}

func (l *loader) parseNCX(data []byte, ncxPath string) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		l.log.Warn("Unable to parse NCX", zap.String("href", ncxPath), zap.Error(err))
		return
	}
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if child.Tag != "navPoint" {
				continue
			}
			title := ""
			if lbl := child.FindElement("navLabel/text"); lbl != nil {
				title = strings.TrimSpace(lbl.Text())
			}
			if content := child.FindElement("content"); content != nil && title != "" {
				l.addTocTitle(content.SelectAttrValue("src", ""), ncxPath, title)
			}
			walk(child)
		}
	}
	if nm := doc.FindElement("//navMap"); nm != nil {
		walk(nm)
	}
}

// parseNavDoc extracts anchors from the toc nav of an EPUB 3 navigation
// document. Nav documents are XHTML, so they go through the HTML parser.
func (l *loader) parseNavDoc(data []byte, navPath string) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		l.log.Warn("Unable to parse navigation document", zap.String("href", navPath), zap.Error(err))
		return
	}

	inTocNav := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "nav":
				saved := inTocNav
				inTocNav = navType(n) == "toc" || navType(n) == ""
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				inTocNav = saved
				return
			case "a":
				if inTocNav {
					if href := attrValue(n, "href"); href != "" {
						if title := strings.TrimSpace(nodeText(n)); title != "" {
							l.addTocTitle(href, navPath, title)
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// addTocTitle records the title for the document src points to, resolved
// against the file the reference came from.
func (l *loader) addTocTitle(src, from, title string) {
	if src == "" {
		return
	}
	target := resolveRelative(from, src)
	if _, ok := l.tocTitle[target]; !ok {
		l.tocTitle[target] = title
	}
}

func navType(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "epub:type" || (a.Namespace != "" && a.Key == "type") {
			return a.Val
		}
	}
	return ""
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
