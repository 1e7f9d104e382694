// Package render turns corrected page text into the XHTML fragments that go
// into the assembled container. Correction output is treated as untrusted
// markdown-flavored text: goldmark renders it, then the fragment is sanitized
// before it is embedded in a page document.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/correct"
)

var md = goldmark.New(
	goldmark.WithRendererOptions(
		ghtml.WithXHTML(),
		ghtml.WithHardWraps(),
	),
)

// Fragment renders corrected text to a sanitized XHTML body fragment.
// Single newlines become line breaks, blank lines paragraph boundaries,
// matching how scanned pages are transcribed.
func Fragment(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return Sanitize(buf.String())
}

// Page produces a complete XHTML page document for the zero-based page index.
// The visible heading is one-based, following the original book layout.
func Page(index int, text string, style correct.Style) (string, error) {
	body, err := Fragment(text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		body = "<p></p>"
	}
	title := fmt.Sprintf("Page %d", index+1)

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml"`)
	if style.Direction == correct.RightToLeft {
		sb.WriteString(` dir="rtl"`)
	}
	sb.WriteString(">\n<head>\n")
	sb.WriteString(fmt.Sprintf("<title>%s</title>\n", title))
	sb.WriteString(`<link rel="stylesheet" type="text/css" href="style/nav.css"/>` + "\n")
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", title))
	sb.WriteString(body)
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}
