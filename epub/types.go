package epub

import "errors"

// Defaults applied when metadata fields are left empty, matching the output
// of earlier versions of this tool.
const (
	DefaultTitle      = "My Scanned Project"
	DefaultLanguage   = "en"
	DefaultIdentifier = "id123456"
	DefaultAuthor     = "Scan2Ebook User"
)

// MimeType is the exact payload of the container's first entry. The entry
// name, the payload bytes, and the stored (uncompressed) method are a hard
// conformance contract; readers reject files that get any of the three wrong.
const MimeType = "application/epub+zip"

var (
	// ErrNoPages is returned when a book has no content pages.
	ErrNoPages = errors.New("epub: book has no pages")
	// ErrPageOrder is returned when page indices are not 0..N-1.
	ErrPageOrder = errors.New("epub: page indices out of order")
)

// Metadata carries the Dublin Core fields written to the root descriptor.
type Metadata struct {
	Title       string
	Language    string
	Identifier  string
	Author      string
	Description string
}

func (m Metadata) withDefaults() Metadata {
	if m.Title == "" {
		m.Title = DefaultTitle
	}
	if m.Language == "" {
		m.Language = DefaultLanguage
	}
	if m.Identifier == "" {
		m.Identifier = DefaultIdentifier
	}
	if m.Author == "" {
		m.Author = DefaultAuthor
	}
	return m
}

// Page is one content document in reading order. Index is zero-based and
// defines both the entry name (page_1.xhtml for index 0) and the spine
// position.
type Page struct {
	Index   int
	Title   string
	Content string // complete XHTML document
}

// Cover is an optional image that becomes the container's cover entry.
type Cover struct {
	Data      []byte
	MediaType string // e.g. image/jpeg; empty means image/jpeg
}

// Book aggregates everything the assembler writes into one container.
type Book struct {
	Metadata Metadata
	Pages    []Page
	Cover    *Cover
	// CSS overrides the default stylesheet when non-empty.
	CSS string
}

// defaultCSS matches the stylesheet shipped with books produced by the
// original publisher.
const defaultCSS = "h1 { text-align: center; color: #333; } p { font-family: sans-serif; }"
