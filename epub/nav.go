package epub

import (
	"bytes"
	"fmt"
)

// buildNCX renders the legacy navigation document. Readers only need one
// navPoint to accept the file; we emit one per page.
func buildNCX(meta Metadata, pages []Page) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">` + "\n")
	b.WriteString("  <head>\n")
	fmt.Fprintf(&b, "    <meta name=\"dtb:uid\" content=\"%s\"/>\n", esc(meta.Identifier))
	b.WriteString(`    <meta name="dtb:depth" content="1"/>` + "\n")
	b.WriteString("  </head>\n")
	fmt.Fprintf(&b, "  <docTitle><text>%s</text></docTitle>\n", esc(meta.Title))
	b.WriteString("  <navMap>\n")
	for _, p := range pages {
		title := p.Title
		if title == "" {
			title = fmt.Sprintf("Page %d", p.Index+1)
		}
		fmt.Fprintf(&b, "    <navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", p.Index+1, p.Index+1)
		fmt.Fprintf(&b, "      <navLabel><text>%s</text></navLabel>\n", esc(title))
		fmt.Fprintf(&b, "      <content src=\"page_%d.xhtml\"/>\n", p.Index+1)
		b.WriteString("    </navPoint>\n")
	}
	b.WriteString("  </navMap>\n")
	b.WriteString("</ncx>\n")
	return b.Bytes()
}

// buildNav renders the EPUB3 navigation document referenced from the
// manifest with the nav property.
func buildNav(meta Metadata, pages []Page) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">` + "\n")
	fmt.Fprintf(&b, "<head><title>%s</title></head>\n", esc(meta.Title))
	b.WriteString("<body>\n")
	b.WriteString(`<nav epub:type="toc">` + "\n")
	b.WriteString("<ol>\n")
	for _, p := range pages {
		title := p.Title
		if title == "" {
			title = fmt.Sprintf("Page %d", p.Index+1)
		}
		fmt.Fprintf(&b, "<li><a href=\"page_%d.xhtml\">%s</a></li>\n", p.Index+1, esc(title))
	}
	b.WriteString("</ol>\n</nav>\n</body>\n</html>\n")
	return b.Bytes()
}
