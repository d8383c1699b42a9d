package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"e2x/assets"
	"e2x/render"
	"e2x/xtc"
)

// writeDocument rasterizes every page of the document and writes the
// container to outputName. Writing goes through a temporary file in the
// destination directory which is verified end to end and renamed into place
// only on success, so a failed conversion never leaves a readable but
// truncated container behind.
func writeDocument(ctx context.Context, d *Document, outputName string, log *zap.Logger) error {
	start := time.Now()

	pipe := assets.NewPipeline(log)
	if err := pipe.Prewarm(ctx, d.Pages, d.Content.Book, runtime.NumCPU()); err != nil {
		return fmt.Errorf("unable to prepare images: %w", err)
	}
	log.Debug("Images prepared", zap.Duration("elapsed", time.Since(start)))

	r := render.New(d.Cfg, d.Fonts, d.Measure, d.FontSize, pipe, log)
	total := d.TotalPages()

	tmp, err := os.CreateTemp(filepath.Dir(outputName), "."+filepath.Base(outputName)+".*")
	if err != nil {
		return fmt.Errorf("unable to create temporary output: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	records := make([]xtc.TocRecord, 0, len(d.TOC.Entries))
	for _, e := range d.TOC.Entries {
		records = append(records, xtc.TocRecord{Title: e.Title, Page: e.Page})
	}

	w, err := xtc.NewWriter(tmp, d.Cfg.PageWidth, d.Cfg.PageHeight, total, uint8(d.Orientation), records)
	if err != nil {
		return fmt.Errorf("unable to create container: %w", err)
	}

	tocPages, err := r.TocPages(d.TocTitle, d.TOC.Entries)
	if err != nil {
		return fmt.Errorf("unable to render table of contents: %w", err)
	}
	if len(tocPages) != d.TOC.Pages {
		// pagination and rendering disagree on toc geometry - never emit a
		// container with wrong targets
		return fmt.Errorf("toc rendered %d pages, %d were reserved", len(tocPages), d.TOC.Pages)
	}
	for i, img := range tocPages {
		if err := r.OverlayProgress(img, i+1, total, d.TOC.Entries); err != nil {
			return err
		}
		if err := w.WritePage(img); err != nil {
			return fmt.Errorf("unable to write toc page %d: %w", i+1, err)
		}
	}

	for i := range d.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pg := &d.Pages[i]
		img, err := r.Page(ctx, pg, d.Content.Book)
		if err != nil {
			return fmt.Errorf("unable to render page %d: %w", pg.Index, err)
		}
		if err := r.OverlayProgress(img, pg.Index, total, d.TOC.Entries); err != nil {
			return err
		}
		if err := w.WritePage(img); err != nil {
			return fmt.Errorf("unable to write page %d: %w", pg.Index, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("unable to finalize container: %w", err)
	}
	if err := verifyContainer(tmp, total); err != nil {
		return fmt.Errorf("container verification failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), outputName); err != nil {
		return fmt.Errorf("unable to move output into place: %w", err)
	}
	tmp = nil
	return nil
}

// verifyContainer re-reads what was just written: header, both directories
// and the last page payload. Catches short writes before the file is renamed
// into place.
func verifyContainer(f *os.File, total int) error {
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	r, err := xtc.NewReader(f, fi.Size())
	if err != nil {
		return err
	}
	if r.Pages() != total {
		return fmt.Errorf("container has %d pages, expected %d", r.Pages(), total)
	}
	if _, err := r.Page(total); err != nil {
		return err
	}
	return nil
}
