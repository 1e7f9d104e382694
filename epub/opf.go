package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// esc escapes a string for use in XML character data or attribute values.
func esc(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// buildOPF renders the root descriptor: Dublin Core metadata, a manifest
// listing every entry, and the spine declaring reading order.
func buildOPF(meta Metadata, pages []Page, hasCover bool) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="book-id">` + "\n")

	b.WriteString(`  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">` + "\n")
	fmt.Fprintf(&b, "    <dc:identifier id=\"book-id\">%s</dc:identifier>\n", esc(meta.Identifier))
	fmt.Fprintf(&b, "    <dc:title>%s</dc:title>\n", esc(meta.Title))
	fmt.Fprintf(&b, "    <dc:language>%s</dc:language>\n", esc(meta.Language))
	fmt.Fprintf(&b, "    <dc:creator>%s</dc:creator>\n", esc(meta.Author))
	if meta.Description != "" {
		fmt.Fprintf(&b, "    <dc:description>%s</dc:description>\n", esc(meta.Description))
	}
	if hasCover {
		b.WriteString("    <meta name=\"cover\" content=\"cover-image\"/>\n")
	}
	b.WriteString("  </metadata>\n")

	b.WriteString("  <manifest>\n")
	b.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
	b.WriteString(`    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
	b.WriteString(`    <item id="style_nav" href="style/nav.css" media-type="text/css"/>` + "\n")
	if hasCover {
		b.WriteString(`    <item id="cover-image" href="cover.jpg" media-type="image/jpeg" properties="cover-image"/>` + "\n")
	}
	for _, p := range pages {
		fmt.Fprintf(&b, "    <item id=\"page_%d\" href=\"page_%d.xhtml\" media-type=\"application/xhtml+xml\"/>\n",
			p.Index+1, p.Index+1)
	}
	b.WriteString("  </manifest>\n")

	b.WriteString(`  <spine toc="ncx">` + "\n")
	b.WriteString(`    <itemref idref="nav"/>` + "\n")
	for _, p := range pages {
		fmt.Fprintf(&b, "    <itemref idref=\"page_%d\"/>\n", p.Index+1)
	}
	b.WriteString("  </spine>\n")
	b.WriteString("</package>\n")
	return b.Bytes()
}
