package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// lineBreaks end a line of visible text
var lineBreaks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Br: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Section: true, atom.Article: true,
	atom.Dd: true, atom.Dt: true, atom.Figcaption: true,
}

var invisible = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Iframe: true, atom.Template: true, atom.Svg: true,
}

// VisibleText parses HTML and returns its visible text, one line per block.
// An anchor whose text does not show its absolute http(s) target is followed
// by the target in parentheses so the citation survives for link checking.
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	var w textWriter
	w.walk(doc)
	return strings.TrimSpace(w.buf.String()), nil
}

type textWriter struct {
	buf     strings.Builder
	lineEnd bool
}

func (w *textWriter) word(s string) {
	if w.buf.Len() > 0 && !w.lineEnd {
		w.buf.WriteByte(' ')
	}
	w.buf.WriteString(s)
	w.lineEnd = false
}

func (w *textWriter) newline() {
	if w.buf.Len() > 0 && !w.lineEnd {
		w.buf.WriteByte('\n')
		w.lineEnd = true
	}
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			w.word(text)
		}
		return
	case html.ElementNode:
		if invisible[n.DataAtom] {
			return
		}
	}

	start := w.buf.Len()
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	if n.Type != html.ElementNode {
		return
	}
	if n.DataAtom == atom.A {
		href := attr(n, "href")
		if isWebURL(href) && !strings.Contains(w.buf.String()[start:], href) {
			w.word("(" + href + ")")
		}
	}
	if lineBreaks[n.DataAtom] {
		w.newline()
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func isWebURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
