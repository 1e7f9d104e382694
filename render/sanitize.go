package render

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedAtoms is the element whitelist for page fragments. Anything else is
// unwrapped (children kept, element dropped); script and style subtrees are
// removed entirely.
var allowedAtoms = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.Em:         true,
	atom.Strong:     true,
	atom.Blockquote: true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
	atom.Hr:         true,
	atom.Span:       true,
}

// Sanitize parses an HTML fragment and re-serializes it with only whitelisted
// elements, no attributes. The output is well-formed XHTML-compatible markup.
func Sanitize(fragment string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		writeSanitized(&buf, n)
	}
	return buf.String(), nil
}

// PlainText extracts the text content of an HTML fragment, paragraphs
// separated by newlines. Used by the preview boundary and by tests.
func PlainText(fragment string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	var sb strings.Builder
	for _, n := range nodes {
		collectText(&sb, n)
	}
	return strings.TrimSpace(sb.String()), nil
}

func writeSanitized(buf *bytes.Buffer, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
		if allowedAtoms[n.DataAtom] {
			if n.DataAtom == atom.Br || n.DataAtom == atom.Hr {
				fmt.Fprintf(buf, "<%s/>", n.Data)
				return
			}
			fmt.Fprintf(buf, "<%s>", n.Data)
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				writeSanitized(buf, c)
			}
			fmt.Fprintf(buf, "</%s>", n.Data)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeSanitized(buf, c)
	}
}

func collectText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(sb, c)
	}
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.P, atom.Br, atom.H1, atom.H2, atom.H3, atom.H4, atom.Li:
			sb.WriteString("\n")
		}
	}
}
