package convert

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"

	"e2x/assets"
	"e2x/config"
	"e2x/content"
	"e2x/render"
)

// ErrNoDocument is returned by preview requests before the first successful
// recompute completes.
var ErrNoDocument = errors.New("no document has been built yet")

// ErrSuperseded is reported by a recompute that was cancelled because a newer
// configuration change arrived while it was running.
var ErrSuperseded = errors.New("recompute superseded by a newer configuration")

// Result delivers the outcome of an asynchronous recompute.
type Result struct {
	Doc *Document
	Err error
}

// Preview is a single rendered page for interactive navigation.
type Preview struct {
	Image        *image.Gray
	ChapterStart bool
}

// Session owns derived document state for an interactive consumer. Every
// configuration change fully discards and recomputes the document - there is
// no incremental patching. At most one recompute runs at a time: a new change
// cancels the in-flight one and starts fresh, only the latest result is ever
// installed.
type Session struct {
	log *zap.Logger
	c   *content.Content

	mu       sync.Mutex
	cancel   context.CancelFunc
	gen      uint64
	doc      *Document
	view     *render.Renderer
	tocPages []*image.Gray // rendered lazily, reset on every install
}

func NewSession(c *content.Content, log *zap.Logger) *Session {
	return &Session{log: log.Named("session"), c: c}
}

// Recompute rebuilds the document against the given configuration. The
// returned channel delivers exactly one Result. An in-flight recompute is
// cancelled first and reports ErrSuperseded - its result is never installed.
func (s *Session) Recompute(ctx context.Context, doc *config.DocumentConfig, log *zap.Logger) <-chan Result {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	rctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		defer cancel()

		d, err := BuildDocument(rctx, s.c, doc, log)
		if err == nil {
			err = rctx.Err()
		}

		s.mu.Lock()
		if gen != s.gen {
			// a newer change won the race while we were finishing
			err = ErrSuperseded
		}
		if err == nil {
			s.doc = d
			s.view = render.New(d.Cfg, d.Fonts, d.Measure, d.FontSize, assets.NewPipeline(s.log), s.log)
			s.tocPages = nil
		}
		s.mu.Unlock()

		if err != nil {
			out <- Result{Err: err}
			return
		}
		out <- Result{Doc: d}
	}()
	return out
}

// Document returns the currently installed document, nil before the first
// successful recompute.
func (s *Session) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// RenderPage renders page n (1-based, toc pages included) of the installed
// document without re-running the pipeline. Progress overlay is applied the
// same way the exporter does it, so the preview matches the container byte
// for byte.
func (s *Session) RenderPage(ctx context.Context, n int) (*Preview, error) {
	s.mu.Lock()
	d, view := s.doc, s.view
	s.mu.Unlock()

	if d == nil {
		return nil, ErrNoDocument
	}
	total := d.TotalPages()
	if n < 1 || n > total {
		return nil, fmt.Errorf("page %d out of range [1..%d]", n, total)
	}

	var (
		img   *image.Gray
		start bool
		err   error
	)
	if n <= d.TOC.Pages {
		if img, err = s.tocPage(view, d, n); err != nil {
			return nil, err
		}
	} else {
		pg := &d.Pages[n-1-d.TOC.Pages]
		if img, err = view.Page(ctx, pg, d.Content.Book); err != nil {
			return nil, err
		}
		start = pg.ChapterStart
	}
	if err := view.OverlayProgress(img, n, total, d.TOC.Entries); err != nil {
		return nil, err
	}
	return &Preview{Image: img, ChapterStart: start}, nil
}

// tocPage renders all toc pages on first demand and caches them for the
// lifetime of the installed document. Returned images are copied since the
// caller gets the progress overlay stamped on top.
func (s *Session) tocPage(view *render.Renderer, d *Document, n int) (*image.Gray, error) {
	s.mu.Lock()
	pages := s.tocPages
	s.mu.Unlock()

	if pages == nil {
		rendered, err := view.TocPages(d.TocTitle, d.TOC.Entries)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.doc == d {
			s.tocPages = rendered
		}
		s.mu.Unlock()
		pages = rendered
	}
	if n-1 >= len(pages) {
		return nil, fmt.Errorf("toc page %d was not rendered", n)
	}

	src := pages[n-1]
	img := image.NewGray(src.Bounds())
	copy(img.Pix, src.Pix)
	return img, nil
}
