package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"go.uber.org/zap/zaptest"

	"e2x/assets"
	"e2x/book"
	"e2x/config"
	"e2x/content"
	"e2x/fonts"
	"e2x/layout"
)

func testRenderer(t *testing.T) (*Renderer, *fonts.Measurer, layout.Config) {
	t.Helper()
	log := zaptest.NewLogger(t)
	set, err := fonts.Load("", "", 400, log)
	if err != nil {
		t.Fatalf("load fonts: %v", err)
	}
	cfg := layout.Config{
		PageWidth: 480, PageHeight: 800,
		MarginTop: 20, MarginBottom: 20, MarginLeft: 20, MarginRight: 20,
		TopPadding: 15, BottomPadding: 15,
		Alignment: config.AlignmentModeJustified,
	}
	m := fonts.NewMeasurer(set, 22, 1.4)
	return New(cfg, set, m, 22, assets.NewPipeline(log), log), m, cfg
}

func countInk(img *image.Gray, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.GrayAt(x, y).Y == 0 {
				n++
			}
		}
	}
	return n
}

func textNode(s string) content.Node {
	n := content.Node{Kind: content.NodeTextRun, ForcedBreak: true}
	for _, r := range s {
		n.Clusters = append(n.Clusters, content.Cluster{Text: string(r)})
	}
	return n
}

func TestPageRendersBilevelInk(t *testing.T) {
	r, m, cfg := testRenderer(t)
	log := zaptest.NewLogger(t)

	pages, err := layout.Paginate([]content.Node{textNode("Hello dark world")}, cfg, m, 0, log)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	img, err := r.Page(context.Background(), &pages[0], &book.Book{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if b := img.Bounds(); b.Dx() != 480 || b.Dy() != 800 {
		t.Fatalf("page bitmap is %dx%d, want 480x800", b.Dx(), b.Dy())
	}
	for i, v := range img.Pix {
		if v != 0 && v != 0xff {
			t.Fatalf("pixel %d has intermediate value %d", i, v)
		}
	}
	contentBand := image.Rect(cfg.ContentLeft(), cfg.ContentTop(), 480-20, cfg.ContentTop()+40)
	if countInk(img, contentBand) == 0 {
		t.Error("no ink in the first line band")
	}
	if countInk(img, image.Rect(0, 0, 480, cfg.ContentTop())) != 0 {
		t.Error("ink above the content area")
	}
}

func TestPageBlitsPlacedImage(t *testing.T) {
	r, _, cfg := testRenderer(t)

	var buf bytes.Buffer
	src := image.NewRGBA(image.Rect(0, 0, 60, 60))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+3] = 255 // opaque black
	}
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}
	b := &book.Book{Assets: map[string]*book.Asset{
		"a1": {ID: "a1", MimeType: "image/png", Data: buf.Bytes()},
	}}

	pg := layout.Page{
		Index:  1,
		Images: []layout.ImagePlacement{{AssetID: "a1", X: 10, Y: 30, W: 60, H: 60}},
	}
	img, err := r.Page(context.Background(), &pg, b)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	x0 := cfg.ContentLeft() + 10
	y0 := cfg.ContentTop() + 30
	box := image.Rect(x0, y0, x0+60, y0+60)
	if got := countInk(img, box); got < 60*60/2 {
		t.Errorf("placed black image produced %d ink pixels in its box", got)
	}
	if countInk(img, image.Rect(0, 0, 480, y0-1)) != 0 {
		t.Error("ink leaked above the placed image")
	}
}

func TestTocPagesMatchBuilderCount(t *testing.T) {
	r, m, cfg := testRenderer(t)
	log := zaptest.NewLogger(t)

	var pass1 []layout.Page
	for i := 0; i < 40; i++ {
		pass1 = append(pass1, layout.Page{
			Index: i + 1, ChapterStart: true, ChapterVisible: true,
			ChapterID: "ch", ChapterTitle: "Chapter",
		})
	}
	toc, err := layout.BuildTOC(pass1, cfg, m, log)
	if err != nil {
		t.Fatalf("build toc: %v", err)
	}
	if toc.Pages < 2 {
		t.Fatalf("expected a multi-page toc, got %d pages", toc.Pages)
	}

	pages, err := r.TocPages("", toc.Entries)
	if err != nil {
		t.Fatalf("render toc: %v", err)
	}
	if len(pages) != toc.Pages {
		t.Fatalf("rendered %d toc pages, builder reserved %d", len(pages), toc.Pages)
	}
	headerBand := image.Rect(0, 40+cfg.TopPadding, 480, 40+cfg.TopPadding+30)
	if countInk(pages[0], headerBand) == 0 {
		t.Error("no header ink on the first toc page")
	}
}

func TestOverlayProgressGeometry(t *testing.T) {
	r, _, cfg := testRenderer(t)
	img := newWhite(cfg.PageWidth, cfg.PageHeight)

	entries := []layout.TocEntry{
		{ChapterID: "ch1", Title: "One", Page: 1},
		{ChapterID: "ch2", Title: "Two", Page: 6},
	}
	if err := r.OverlayProgress(img, 5, 10, entries); err != nil {
		t.Fatalf("overlay: %v", err)
	}

	barTop := cfg.PageHeight - barBottomGap
	span := cfg.PageWidth - 2*barSideInset

	if img.GrayAt(barSideInset, barTop).Y != 0 {
		t.Error("bar outline corner not drawn")
	}
	// page 5 of 10 fills half the span
	if img.GrayAt(barSideInset+span/2-2, barTop+2).Y != 0 {
		t.Error("bar fill missing before the halfway mark")
	}
	if img.GrayAt(barSideInset+span/2+20, barTop+2).Y != 0xff {
		t.Error("bar fill extends past the halfway mark")
	}
	// chapter two starts at page 6: tick above the bar at its fraction
	tickX := (6-1)*span/10 + barSideInset
	if img.GrayAt(tickX, barTop-2).Y != 0 {
		t.Error("chapter tick not drawn")
	}
	footerBand := image.Rect(0, cfg.PageHeight-footerGap, 480, cfg.PageHeight-footerGap+20)
	if countInk(img, footerBand) == 0 {
		t.Error("footer text missing")
	}

	if img.GrayAt(240, 400).Y != 0xff {
		t.Error("overlay touched page content area")
	}
}
