package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"e2x/book"
	"e2x/content"
	"e2x/content/text"
	"e2x/epub"
	"e2x/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process handles the core conversion logic independently of CLI framework.
// It determines the input type (directory or single file) and processes
// accordingly.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}

	if fi.Mode().IsDir() {
		if err := processDir(ctx, src, dst, log); err != nil {
			return errors.New("unable to process directory")
		}
		return nil
	}

	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}

	book, err := isBookFile(src)
	if err != nil {
		// checking format - but cannot open target file
		return fmt.Errorf("unable to check file type: %w", err)
	}
	if !book {
		return fmt.Errorf("input was not recognized as EPUB book (%s)", src)
	}
	if err := processBook(ctx, src, filepath.Base(src), dst, log); err != nil {
		log.Error("Unable to process file", zap.String("file", src), zap.Error(err))
	}
	return nil
}

// processDir walks directory tree finding epub files and processes them.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		book, err := isBookFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !book {
			log.Debug("Skipping file, not recognized as book", zap.String("file", path))
			return nil
		}

		count++

		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processBook(ctx, path, src, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
	return err
}

// processBook converts a single EPUB file. "src" is part of the source path
// (always including file name) relative to the original path. When actual
// file was specified it will be just base file name without a path. When
// walking a directory it will be relative path inside that directory. "dst"
// is the destination directory where the converted file should be written.
func processBook(ctx context.Context, path, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		// NOTE: some of golang graphic processing libraries are not mature
		// enough if multiple books are being processed we do not want to stop.
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	b, err := epub.Load(ctx, path, log)
	if err != nil {
		return fmt.Errorf("unable to parse epub source (%s): %w", src, err)
	}
	applyChapterVisibility(b, env.Cfg.Document.TOC.HiddenChapters)

	var hyphen *text.Hyphenator
	if env.Cfg.Document.InsertSoftHyphen {
		hyphen = text.NewHyphenator(b.Lang, log)
	}

	c, err := content.Prepare(ctx, b, src, hyphen, log)
	if err != nil {
		return fmt.Errorf("unable to prepare content (%s): %w", src, err)
	}
	if ce := log.Check(zap.DebugLevel, "Content stream"); ce != nil {
		ce.Write(zap.String("dump", c.String()))
	}

	d, err := BuildDocument(ctx, c, &env.Cfg.Document, log)
	if err != nil {
		return err
	}

	// Determine output file name and path based on input and configuration.
	outputName = buildOutputPath(c, src, dst, env)

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := writeDocument(ctx, d, outputName, log); err != nil {
		return fmt.Errorf("unable to generate output: %w", err)
	}
	return nil
}

// applyChapterVisibility hides chapters listed in configuration from the toc
// and the progress bar. Entries match either chapter id exactly or title
// case-insensitively. Hidden chapters still occupy pages.
func applyChapterVisibility(b *book.Book, hidden []string) {
	if len(hidden) == 0 {
		return
	}
	for i := range b.Chapters {
		ch := &b.Chapters[i]
		for _, h := range hidden {
			if h == ch.ID || strings.EqualFold(h, ch.Title) {
				ch.Visible = false
				break
			}
		}
	}
}

var zipSignature = []byte{'P', 'K', 0x03, 0x04}

// isBookFile sniffs whether path looks like an EPUB: .epub extension over a
// zip container. Content structure is validated later by the loader.
func isBookFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".epub") {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var sig [4]byte
	if _, err := io.ReadFull(f, sig[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(sig[:], zipSignature), nil
}
