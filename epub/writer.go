// Package epub assembles the packaged document: a zip container whose first
// entry is an uncompressed mimetype marker, plus the OCF container pointer,
// the OPF root descriptor (manifest and spine), NCX and EPUB3 navigation
// documents, a stylesheet, the content pages, and an optional cover.
package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Entry names inside the container.
const (
	entryMimetype  = "mimetype"
	entryContainer = "META-INF/container.xml"
	entryOPF       = "OEBPS/content.opf"
	entryNCX       = "OEBPS/toc.ncx"
	entryNav       = "OEBPS/nav.xhtml"
	entryCSS       = "OEBPS/style/nav.css"
	entryCoverIMG  = "OEBPS/cover.jpg"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

// pageEntryName returns the archive path for the zero-based page index. The
// one-based file name follows the original publisher's page_N.xhtml scheme.
func pageEntryName(index int) string {
	return fmt.Sprintf("OEBPS/page_%d.xhtml", index+1)
}

// Write assembles the book into w. The mimetype entry is always written
// first and stored uncompressed; every other entry uses deflate.
func Write(w io.Writer, book Book) error {
	if len(book.Pages) == 0 {
		return ErrNoPages
	}
	pages := append([]Page(nil), book.Pages...)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	for i, p := range pages {
		if p.Index != i {
			return fmt.Errorf("%w: page %d has index %d", ErrPageOrder, i, p.Index)
		}
	}
	meta := book.Metadata.withDefaults()

	zw := zip.NewWriter(w)

	// Entry zero: stored, exact payload, no trailing newline.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: entryMimetype, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create mimetype entry: %w", err)
	}
	if _, err := mt.Write([]byte(MimeType)); err != nil {
		return fmt.Errorf("write mimetype entry: %w", err)
	}

	css := book.CSS
	if css == "" {
		css = defaultCSS
	}
	entries := []struct {
		name string
		data []byte
	}{
		{entryContainer, []byte(containerXML)},
		{entryOPF, buildOPF(meta, pages, book.Cover != nil)},
		{entryNCX, buildNCX(meta, pages)},
		{entryNav, buildNav(meta, pages)},
		{entryCSS, []byte(css)},
	}
	for _, e := range entries {
		if err := writeDeflated(zw, e.name, e.data); err != nil {
			return err
		}
	}
	for _, p := range pages {
		if err := writeDeflated(zw, pageEntryName(p.Index), []byte(p.Content)); err != nil {
			return err
		}
	}
	if book.Cover != nil {
		if err := writeDeflated(zw, entryCoverIMG, book.Cover.Data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize container: %w", err)
	}
	return nil
}

// WriteFile assembles the book at path, replacing any existing file only on
// success so a failed assembly never leaves a truncated artifact behind.
func WriteFile(path string, book Book) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".epub-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, book); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

func writeDeflated(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}
