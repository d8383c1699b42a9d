package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"

	"e2x/book"
)

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 30, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writeEPUB(t *testing.T, files map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.epub")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write epub: %v", err)
	}
	return path
}

func basicEPUB(t *testing.T) string {
	t.Helper()
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="id">urn:isbn:9780000000001</dc:identifier>
    <dc:title>Voyage</dc:title>
    <dc:creator>J. Verne</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="cover" href="cover.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="pic" href="images/map.png" media-type="application/octet-stream"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="cover"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`
	ncx := `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1"><navLabel><text>Departure</text></navLabel><content src="text/ch1.xhtml"/></navPoint>
    <navPoint id="n2"><navLabel><text>The Storm</text></navLabel><content src="text/ch2.xhtml#start"/></navPoint>
  </navMap>
</ncx>`
	ch1 := `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
  <h1>Departure</h1>
  <p>We left the harbour with <em>great   expectations</em> and a steady wind.</p>
  <p>The <strong>old</strong> captain said nothing.</p>
</body></html>`
	ch2 := `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
  <div>
    <h2>The Storm</h2>
    Loose text before the map.
    <img src="../images/map.png"/>
  </div>
</body></html>`
	cover := `<html><body><p>v</p></body></html>`

	return writeEPUB(t, map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf":      []byte(opf),
		"OEBPS/toc.ncx":          []byte(ncx),
		"OEBPS/cover.xhtml":      []byte(cover),
		"OEBPS/text/ch1.xhtml":   []byte(ch1),
		"OEBPS/text/ch2.xhtml":   []byte(ch2),
		"OEBPS/images/map.png":   testPNG(t, 24, 16),
	})
}

func TestLoadBasicEPUB(t *testing.T) {
	b, err := Load(context.Background(), basicEPUB(t), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if b.ID != "urn:isbn:9780000000001" {
		t.Errorf("id %q, want the package identifier", b.ID)
	}
	if b.Title != "Voyage" {
		t.Errorf("title %q, want Voyage", b.Title)
	}
	if len(b.Authors) != 1 || b.Authors[0] != "J. Verne" {
		t.Errorf("authors %v", b.Authors)
	}
	if b.Lang != language.English {
		t.Errorf("language %v, want en", b.Lang)
	}

	// the one-letter cover page is filtered out
	if len(b.Chapters) != 2 {
		t.Fatalf("chapters %d, want 2", len(b.Chapters))
	}
	if b.Chapters[0].Title != "Departure" || b.Chapters[1].Title != "The Storm" {
		t.Errorf("chapter titles %q, %q", b.Chapters[0].Title, b.Chapters[1].Title)
	}
	for _, ch := range b.Chapters {
		if !ch.Visible {
			t.Errorf("chapter %q not visible by default", ch.Title)
		}
	}
}

func TestLoadChapterBlocks(t *testing.T) {
	b, err := Load(context.Background(), basicEPUB(t), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	blocks := b.Chapters[0].Blocks
	if len(blocks) != 3 {
		t.Fatalf("chapter 1 has %d blocks, want 3", len(blocks))
	}
	if blocks[0].Kind != book.BlockHeading || blocks[0].Level != 1 {
		t.Errorf("block 0 = %+v, want h1 heading", blocks[0])
	}

	para := blocks[1]
	if para.Kind != book.BlockParagraph || len(para.Spans) != 3 {
		t.Fatalf("block 1 = %+v, want paragraph of 3 spans", para)
	}
	if para.Spans[0].Text != "We left the harbour with " || para.Spans[0].Italic {
		t.Errorf("span 0 = %+v", para.Spans[0])
	}
	// whitespace inside the emphasis collapses to single spaces
	if para.Spans[1].Text != "great expectations" || !para.Spans[1].Italic {
		t.Errorf("span 1 = %+v", para.Spans[1])
	}
	if !b.Chapters[0].Blocks[2].Spans[1].Bold {
		t.Errorf("strong span not bold: %+v", blocks[2].Spans)
	}
}

func TestLoadImagesAndImplicitParagraphs(t *testing.T) {
	b, err := Load(context.Background(), basicEPUB(t), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	blocks := b.Chapters[1].Blocks
	if len(blocks) != 3 {
		t.Fatalf("chapter 2 has %d blocks, want 3", len(blocks))
	}
	if blocks[1].Kind != book.BlockParagraph || blocks[1].Spans[0].Text != "Loose text before the map." {
		t.Errorf("implicit paragraph = %+v", blocks[1])
	}
	img := blocks[2]
	if img.Kind != book.BlockImage || img.Asset != "OEBPS/images/map.png" {
		t.Errorf("image block = %+v, want resolved container path", img)
	}

	asset, ok := b.Assets["OEBPS/images/map.png"]
	if !ok {
		t.Fatal("map.png not loaded as asset")
	}
	// manifest declared application/octet-stream, the bytes say otherwise
	if asset.MimeType != "image/png" {
		t.Errorf("asset media type %q, want sniffed image/png", asset.MimeType)
	}
	if asset.Width != 24 || asset.Height != 16 {
		t.Errorf("asset intrinsic size %dx%d, want 24x16", asset.Width, asset.Height)
	}
}

func TestLoadPrefersNavDoc(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Nav Test</dc:title><dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
	nav := `<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops"><body>
  <nav epub:type="toc"><ol><li><a href="ch1.xhtml">From The Nav</a></li></ol></nav>
</body></html>`
	ch1 := `<html><body><h1>Heading Title</h1><p>Enough text to be a real chapter, well past fifty characters in total.</p></body></html>`

	path := writeEPUB(t, map[string][]byte{
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf":      []byte(opf),
		"OEBPS/nav.xhtml":        []byte(nav),
		"OEBPS/ch1.xhtml":        []byte(ch1),
	})
	b, err := Load(context.Background(), path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(b.Chapters) != 1 || b.Chapters[0].Title != "From The Nav" {
		t.Fatalf("chapters %+v, want single chapter titled from nav doc", b.Chapters)
	}
}

func TestLoadGeneratesMissingIdentifier(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Anonymous</dc:title><dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
	ch1 := `<html><body><h1>One</h1><p>Enough text to be a real chapter, well past fifty characters in total.</p></body></html>`

	path := writeEPUB(t, map[string][]byte{
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf":      []byte(opf),
		"OEBPS/ch1.xhtml":        []byte(ch1),
	})
	b, err := Load(context.Background(), path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.ID == "" {
		t.Error("document without dc:identifier should get a generated id")
	}
}

func TestLoadDeduplicatesSpineReferences(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Twice</dc:title><dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="ch1"/><itemref idref="ch1"/></spine>
</package>`
	ch1 := `<html><body><h1>One</h1><p>Enough text to be a real chapter, well past fifty characters in total.</p></body></html>`

	path := writeEPUB(t, map[string][]byte{
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf":      []byte(opf),
		"OEBPS/ch1.xhtml":        []byte(ch1),
	})
	b, err := Load(context.Background(), path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(b.Chapters) != 1 {
		t.Fatalf("chapters %d, want the duplicate itemref collapsed to 1", len(b.Chapters))
	}
}

func TestLoadRejectsBrokenContainers(t *testing.T) {
	log := zaptest.NewLogger(t)
	ctx := context.Background()

	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.epub")
		if err := os.WriteFile(path, []byte("not a zip"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(ctx, path, log); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("no rootfile", func(t *testing.T) {
		path := writeEPUB(t, map[string][]byte{"mimetype": []byte("application/epub+zip")})
		if _, err := Load(ctx, path, log); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("no readable chapters", func(t *testing.T) {
		opf := `<package xmlns="http://www.idpf.org/2007/opf">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Empty</dc:title></metadata>
  <manifest><item id="c" href="c.xhtml" media-type="application/xhtml+xml"/></manifest>
  <spine><itemref idref="c"/></spine>
</package>`
		path := writeEPUB(t, map[string][]byte{
			"META-INF/container.xml": []byte(testContainerXML),
			"OEBPS/content.opf":      []byte(opf),
			"OEBPS/c.xhtml":          []byte(`<html><body><p>x</p></body></html>`),
		})
		if _, err := Load(ctx, path, log); err == nil {
			t.Error("expected error")
		}
	})
}
