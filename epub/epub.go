// Package epub loads an EPUB container into the normalized book model:
// metadata, spine documents flattened to blocks, TOC titles and raw image
// assets. Only what the fixed-layout pipeline needs survives - stylesheets,
// scripts and fonts inside the container are ignored.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/url"
	"path"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/text/language"

	"e2x/book"
	"e2x/utils/images"
)

const containerPath = "META-INF/container.xml"

// minChapterChars filters structural spine items: documents with less text,
// no image and no TOC entry do not become chapters.
const minChapterChars = 50

type manifestItem struct {
	id         string
	href       string // resolved container path
	mediaType  string
	properties string
}

type loader struct {
	files map[string]*zip.File
	log   *zap.Logger

	opfDir   string
	items    map[string]manifestItem // by id
	spine    []string                // idrefs in reading order
	ncxID    string
	tocTitle map[string]string // resolved document path -> TOC title
}

// Load reads the EPUB at srcPath into the normalized model.
func Load(ctx context.Context, srcPath string, log *zap.Logger) (*book.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(srcPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open EPUB container: %w", err)
	}
	defer zr.Close()

	l := &loader{
		files:    make(map[string]*zip.File, len(zr.File)),
		log:      log,
		items:    make(map[string]manifestItem),
		tocTitle: make(map[string]string),
	}
	for _, f := range zr.File {
		l.files[path.Clean(f.Name)] = f
	}

	opfPath, err := l.rootFilePath()
	if err != nil {
		return nil, err
	}
	l.opfDir = path.Dir(opfPath)

	b := &book.Book{Assets: make(map[string]*book.Asset)}
	if err := l.parseOPF(opfPath, b); err != nil {
		return nil, err
	}
	l.parseTOC()
	if err := l.loadAssets(ctx, b); err != nil {
		return nil, err
	}
	if err := l.loadChapters(ctx, b); err != nil {
		return nil, err
	}

	log.Debug("EPUB loaded",
		zap.String("id", b.ID), zap.String("title", b.Title), zap.Stringer("language", b.Lang),
		zap.Int("chapters", len(b.Chapters)), zap.Int("assets", len(b.Assets)))
	return b, nil
}

func (l *loader) read(name string) ([]byte, error) {
	f, ok := l.files[path.Clean(name)]
	if !ok {
		return nil, fmt.Errorf("no %q in container", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to open %q: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("unable to read %q: %w", name, err)
	}
	return data, nil
}

// rootFilePath locates the OPF package document via META-INF/container.xml.
func (l *loader) rootFilePath() (string, error) {
	data, err := l.read(containerPath)
	if err != nil {
		return "", err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", fmt.Errorf("unable to parse %s: %w", containerPath, err)
	}
	for _, el := range doc.FindElements("//rootfile") {
		if p := el.SelectAttrValue("full-path", ""); p != "" {
			return path.Clean(p), nil
		}
	}
	return "", fmt.Errorf("%s names no rootfile", containerPath)
}

// resolve maps a manifest href onto a container path relative to the OPF
// directory, dropping any fragment and URL escaping.
func (l *loader) resolve(href string) string {
	return resolveRelative(path.Join(l.opfDir, "package.opf"), href)
}

// resolveRelative maps a reference found inside the container file from onto
// the container path it points to.
func resolveRelative(from, src string) string {
	src, _, _ = strings.Cut(src, "#")
	if u, err := url.PathUnescape(src); err == nil {
		src = u
	}
	dir := path.Dir(from)
	if dir == "." {
		return path.Clean(src)
	}
	return path.Clean(path.Join(dir, src))
}

func (l *loader) parseOPF(opfPath string, b *book.Book) error {
	data, err := l.read(opfPath)
	if err != nil {
		return err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("unable to parse package document %q: %w", opfPath, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "package" {
		return fmt.Errorf("package document %q has no package root", opfPath)
	}

	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "metadata":
			l.parseMetadata(child, b)
		case "manifest":
			for _, item := range child.ChildElements() {
				if item.Tag != "item" {
					continue
				}
				mi := manifestItem{
					id:         item.SelectAttrValue("id", ""),
					href:       l.resolve(item.SelectAttrValue("href", "")),
					mediaType:  item.SelectAttrValue("media-type", ""),
					properties: item.SelectAttrValue("properties", ""),
				}
				if mi.id != "" {
					l.items[mi.id] = mi
				}
			}
		case "spine":
			l.ncxID = child.SelectAttrValue("toc", "")
			seen := make(map[string]struct{})
			for _, ref := range child.ChildElements() {
				if ref.Tag != "itemref" {
					continue
				}
				id := ref.SelectAttrValue("idref", "")
				if id == "" {
					continue
				}
				// a repeated idref would produce two chapters with one id,
				// only the first occurrence is read
				if _, ok := seen[id]; ok {
					l.log.Warn("Duplicate spine reference, skipping", zap.String("idref", id))
					continue
				}
				seen[id] = struct{}{}
				l.spine = append(l.spine, id)
			}
		}
	}
	if len(l.spine) == 0 {
		return fmt.Errorf("package document %q has an empty spine", opfPath)
	}
	return nil
}

func (l *loader) parseMetadata(el *etree.Element, b *book.Book) {
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "identifier":
			if b.ID == "" {
				b.ID = strings.TrimSpace(child.Text())
			}
		case "title":
			if b.Title == "" {
				b.Title = strings.TrimSpace(child.Text())
			}
		case "creator":
			if a := strings.TrimSpace(child.Text()); a != "" {
				b.Authors = append(b.Authors, a)
			}
		case "language":
			tag, err := language.Parse(strings.TrimSpace(child.Text()))
			if err != nil {
				l.log.Warn("Unparsable document language, assuming English",
					zap.String("language", child.Text()), zap.Error(err))
				tag = language.English
			}
			b.Lang = tag
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
		l.log.Debug("Document carries no identifier, generated one", zap.String("id", b.ID))
	}
	if b.Title == "" {
		b.Title = "Untitled"
	}
	if b.Lang == language.Und || b.Lang.IsRoot() {
		b.Lang = language.English
	}
}

// loadAssets pulls every manifest image into the book, sniffing items whose
// media type is missing or wrong and recording intrinsic pixel sizes.
func (l *loader) loadAssets(ctx context.Context, b *book.Book) error {
	for _, item := range l.items {
		if err := ctx.Err(); err != nil {
			return err
		}
		isImage := strings.HasPrefix(item.mediaType, "image/")
		data, err := l.read(item.href)
		if err != nil {
			if isImage {
				l.log.Warn("Manifest image missing from container", zap.String("href", item.href))
			}
			continue
		}
		mediaType := item.mediaType
		if !isImage {
			// manifest lies sometimes, trust the bytes
			kind, err := filetype.Match(data)
			if err == nil && kind != filetype.Unknown && kind.MIME.Type == "image" {
				mediaType = kind.MIME.Value
				isImage = true
			}
		}
		if !isImage {
			continue
		}

		asset := &book.Asset{ID: item.href, MimeType: mediaType, Data: data}
		if mediaType == "image/svg+xml" {
			if w, h, err := images.SVGSize(data); err == nil {
				asset.Width, asset.Height = w, h
			}
		} else if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			asset.Width, asset.Height = cfg.Width, cfg.Height
		} else {
			l.log.Warn("Unable to size image asset", zap.String("href", item.href), zap.Error(err))
		}
		b.Assets[item.href] = asset
	}
	return nil
}

// loadChapters walks the spine and turns each content document into a
// chapter, filtering structural items that carry no real content.
func (l *loader) loadChapters(ctx context.Context, b *book.Book) error {
	for _, idref := range l.spine {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, ok := l.items[idref]
		if !ok {
			l.log.Warn("Spine references unknown manifest item, skipping", zap.String("idref", idref))
			continue
		}
		data, err := l.read(item.href)
		if err != nil {
			l.log.Warn("Spine document missing from container, skipping",
				zap.String("href", item.href), zap.Error(err))
			continue
		}

		blocks, htmlTitle, err := parseChapterHTML(data, item.href, l.log)
		if err != nil {
			l.log.Warn("Unable to parse spine document, skipping",
				zap.String("href", item.href), zap.Error(err))
			continue
		}

		tocTitle := l.tocTitle[item.href]
		chars, hasImage := measureBlocks(blocks)
		if tocTitle == "" && chars < minChapterChars && !hasImage {
			l.log.Debug("Skipping structural spine item",
				zap.String("href", item.href), zap.Int("chars", chars))
			continue
		}

		title := tocTitle
		if title == "" {
			title = htmlTitle
		}
		if title == "" {
			title = fmt.Sprintf("Section %d", len(b.Chapters)+1)
		}
		b.Chapters = append(b.Chapters, book.Chapter{
			ID:      idref,
			Title:   title,
			Visible: true,
			Blocks:  blocks,
		})
	}
	if len(b.Chapters) == 0 {
		return fmt.Errorf("document has no readable chapters")
	}
	return nil
}

func measureBlocks(blocks []book.Block) (chars int, hasImage bool) {
	for _, blk := range blocks {
		if blk.Kind == book.BlockImage {
			hasImage = true
		}
		for _, sp := range blk.Spans {
			chars += len(sp.Text)
		}
	}
	return chars, hasImage
}
