package content

import (
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"e2x/utils/debug"
)

// String returns a readable dump of the flattened stream. It exists solely
// for manual inspection during debugging.
func (c *Content) String() string {
	if c == nil {
		return "<nil Content>"
	}

	tw := debug.NewTreeWriter()
	tw.Line(0, "Content[%q] nodes: %d", c.SrcName, len(c.Nodes))

	for i := range c.Nodes {
		n := &c.Nodes[i]
		switch n.Kind {
		case NodeChapterStart:
			tw.Line(1, "ChapterStart[%q] title[%q] visible[%t]", n.ChapterID, n.ChapterTitle, n.Visible)
		case NodeInlineImage:
			tw.Line(1, "InlineImage[%q] dim[%dx%d]", n.AssetID, n.Width, n.Height)
		case NodeTextRun:
			var b strings.Builder
			breaks := 0
			for _, cl := range n.Clusters {
				b.WriteString(cl.Text)
				if cl.BreakAfter {
					breaks++
				}
			}
			tw.Line(1, "TextRun clusters[%d] breaks[%d] bold[%t] italic[%t] forced[%t]",
				len(n.Clusters), breaks, n.Style.Bold, n.Style.Italic, n.ForcedBreak)
			tw.TextBlock(2, "text", b.String())
		}
	}

	if c.Book != nil && len(c.Book.Assets) > 0 {
		tw.Line(0, "Assets index: %d", len(c.Book.Assets))
		keys := slices.Collect(maps.Keys(c.Book.Assets))
		sort.Sort(natural.StringSlice(keys))
		for _, k := range keys {
			a := c.Book.Assets[k]
			tw.Line(1, "Asset[%q] mime[%q] size[%d] dim[%dx%d]", k, a.MimeType, len(a.Data), a.Width, a.Height)
		}
	}
	return tw.String()
}
