// CLAUDE:SUMMARY Normalises incoming bodies: HTML is sanitised (bluemonday) and converted to heading-marked text (html-to-markdown) before parsing.
package content

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BodyKind tells how the raw body is encoded.
type BodyKind string

const (
	BodyText BodyKind = "text"
	BodyHTML BodyKind = "html"
	// BodyAuto converts only bodies that are markup throughout.
	BodyAuto BodyKind = "auto"
)

var policy = bluemonday.UGCPolicy()

// Normalize prepares a body for Parse. Line endings become "\n". HTML bodies
// (declared, or detected when kind is BodyAuto) are sanitised and converted
// to Markdown so that <h1>/<h2> become "# "/"## " lines.
func Normalize(body string, kind BodyKind) (string, error) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")

	if kind == BodyAuto && LooksLikeHTML(body) {
		kind = BodyHTML
	}
	if kind != BodyHTML {
		return body, nil
	}

	clean := policy.Sanitize(body)
	md, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("content: html to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// LooksLikeHTML reports whether s is an HTML document: at least one block
// element, and no bare text between the top-level elements. Prose that
// merely mentions a tag stays text.
func LooksLikeHTML(s string) bool {
	if !strings.HasPrefix(strings.TrimSpace(s), "<") {
		return false
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return false
	}
	body := findBody(doc)
	if body == nil {
		return false
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return false
		}
	}
	return hasBlockElement(body)
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func hasBlockElement(n *html.Node) bool {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
			atom.Div, atom.Br, atom.Ul, atom.Ol, atom.Li, atom.Section,
			atom.Article, atom.Blockquote:
			return true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasBlockElement(c) {
			return true
		}
	}
	return false
}
