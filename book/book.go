// Package book defines the normalized document model produced by format
// loaders and consumed by the content flattener. It deliberately knows
// nothing about EPUB, HTML or layout - ordered chapters of block and inline
// markup plus a raw asset table.
package book

import "golang.org/x/text/language"

// BlockKind enumerates supported block-level markup.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockImage
	BlockEmptyLine
)

// Span is a contiguous run of text with uniform inline styling.
type Span struct {
	Text   string
	Italic bool
	Bold   bool
}

// Block is a single block-level element of a chapter. Every block implies a
// forced line break after its content.
type Block struct {
	Kind  BlockKind
	Spans []Span // BlockParagraph, BlockHeading
	Level int    // BlockHeading: 1..6
	Asset string // BlockImage: asset id
}

// Chapter is an ordered sequence of blocks with a stable id. Visible controls
// TOC entry and progress bar tick generation, hidden chapters still occupy
// pages.
type Chapter struct {
	ID      string
	Title   string
	Visible bool
	Blocks  []Block
}

// Asset holds raw undecoded image data together with its intrinsic pixel
// size when it is known at load time.
type Asset struct {
	ID       string
	MimeType string
	Data     []byte
	Width    int
	Height   int
}

// Book is the top of the normalized model. Ordering of chapters and blocks
// is significant and immutable once produced.
type Book struct {
	// ID is the stable document identifier: the package identifier when the
	// source carries one, a generated one otherwise. Never empty.
	ID       string
	Title    string
	Authors  []string
	Lang     language.Tag
	Chapters []Chapter
	Assets   map[string]*Asset
}
