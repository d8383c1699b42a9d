package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"e2x/config"
	"e2x/state"
	"e2x/xtc"
)

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Voyage</dc:title>
    <dc:creator>J. Verne</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

func testChapterXHTML(title string) []byte {
	body := `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
  <h1>` + title + `</h1>
  <p>` + strings.Repeat("The sea kept its own slow time and we kept ours. ", 20) + `</p>
</body></html>`
	return []byte(body)
}

func writeTestEPUB(t *testing.T, path string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf":      []byte(testOPF),
		"OEBPS/ch1.xhtml":        testChapterXHTML("Departure"),
		"OEBPS/ch2.xhtml":        testChapterXHTML("The Storm"),
	}
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
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write epub: %v", err)
	}
	return path
}

func testEnvContext(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()

	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load default configuration: %v", err)
	}
	cfg.Document.Layout.ScreenWidth = 300
	cfg.Document.Layout.ScreenHeight = 400
	cfg.Document.InsertSoftHyphen = false

	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)
	return ctx, env
}

func TestProcessBookEndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := writeTestEPUB(t, filepath.Join(dir, "voyage.epub"))
	out := filepath.Join(dir, "out")

	ctx, env := testEnvContext(t)
	if err := processBook(ctx, src, "voyage.epub", out, env.Log); err != nil {
		t.Fatalf("process book: %v", err)
	}

	f, err := os.Open(filepath.Join(out, "voyage.xtc"))
	if err != nil {
		t.Fatalf("open produced container: %v", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	r, err := xtc.NewReader(f, fi.Size())
	if err != nil {
		t.Fatalf("read container: %v", err)
	}

	if w, h := r.PageSize(); w != 300 || h != 400 {
		t.Errorf("container page size %dx%d, configured 300x400", w, h)
	}
	toc := r.TOC()
	if len(toc) != 2 || toc[0].Title != "Departure" || toc[1].Title != "The Storm" {
		t.Fatalf("unexpected toc records: %+v", toc)
	}
	for _, rec := range toc {
		if rec.Page < 1 || rec.Page > r.Pages() {
			t.Errorf("toc target %d outside container [1..%d]", rec.Page, r.Pages())
		}
	}
	// toc page plus at least one body page per chapter
	if r.Pages() < 3 {
		t.Fatalf("container has only %d pages", r.Pages())
	}
	for i := 1; i <= r.Pages(); i++ {
		img, err := r.Page(i)
		if err != nil {
			t.Fatalf("decode page %d: %v", i, err)
		}
		if got := img.Bounds().Dx(); got != 300 {
			t.Fatalf("page %d decoded %d wide", i, got)
		}
	}
}

func TestProcessBookRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := writeTestEPUB(t, filepath.Join(dir, "voyage.epub"))
	out := filepath.Join(dir, "out")

	ctx, env := testEnvContext(t)
	if err := processBook(ctx, src, "voyage.epub", out, env.Log); err != nil {
		t.Fatalf("first conversion: %v", err)
	}
	if err := processBook(ctx, src, "voyage.epub", out, env.Log); err == nil {
		t.Fatal("second conversion succeeded without overwrite permission")
	}

	env.Overwrite = true
	if err := processBook(ctx, src, "voyage.epub", out, env.Log); err != nil {
		t.Fatalf("overwriting conversion: %v", err)
	}
}

func TestProcessDirKeepsStructure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writeTestEPUB(t, filepath.Join(in, "one.epub"))
	writeTestEPUB(t, filepath.Join(in, "series", "two.epub"))
	out := filepath.Join(dir, "out")

	ctx, env := testEnvContext(t)
	if err := process(ctx, in, out, env.Log); err != nil {
		t.Fatalf("process dir: %v", err)
	}

	for _, name := range []string{
		filepath.Join(out, "one.xtc"),
		filepath.Join(out, "series", "two.xtc"),
	} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected output %s: %v", name, err)
		}
	}

	flat := filepath.Join(dir, "flat")
	env.NoDirs = true
	if err := process(ctx, in, flat, env.Log); err != nil {
		t.Fatalf("process dir with nodirs: %v", err)
	}
	if _, err := os.Stat(filepath.Join(flat, "two.xtc")); err != nil {
		t.Errorf("nodirs output not flattened: %v", err)
	}
}

func TestIsBookFile(t *testing.T) {
	dir := t.TempDir()
	epub := writeTestEPUB(t, filepath.Join(dir, "book.epub"))

	fake := filepath.Join(dir, "fake.epub")
	if err := os.WriteFile(fake, []byte("not a zip at all"), 0o600); err != nil {
		t.Fatal(err)
	}
	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("PK\x03\x04"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		path string
		want bool
	}{
		{epub, true},
		{fake, false},
		{txt, false},
	} {
		got, err := isBookFile(tc.path)
		if err != nil {
			t.Fatalf("isBookFile(%s): %v", tc.path, err)
		}
		if got != tc.want {
			t.Errorf("isBookFile(%s) = %v, want %v", filepath.Base(tc.path), got, tc.want)
		}
	}
}

func TestApplyChapterVisibility(t *testing.T) {
	b := testBook(3, 1)
	b.Chapters[2].Title = "Acknowledgements"

	applyChapterVisibility(b, []string{"ch1", "ACKNOWLEDGEMENTS"})

	if b.Chapters[0].Visible {
		t.Error("chapter hidden by id still visible")
	}
	if !b.Chapters[1].Visible {
		t.Error("unrelated chapter lost visibility")
	}
	if b.Chapters[2].Visible {
		t.Error("chapter hidden by case-insensitive title still visible")
	}
}
