// Package goquery extracts text content and outbound links from HTML
// documents using PuerkitoBio/goquery.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sitechat"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Ensure Extractor implements sitechat.Extractor.
var _ sitechat.Extractor = (*Extractor)(nil)

// DefaultMaxContentLength is the default cap on extracted text, in characters.
const DefaultMaxContentLength = 100000

// contentSelectors lists the primary content regions in order of preference.
var contentSelectors = []string{"main", "article", "div.content"}

// Extractor extracts a page's title and the plain text of its primary
// content region.
type Extractor struct {
	// MaxContentLength caps the extracted text in characters.
	// Zero or negative disables the cap.
	MaxContentLength int
}

// NewExtractor creates an Extractor that truncates content to maxContentLength.
func NewExtractor(maxContentLength int) *Extractor {
	return &Extractor{MaxContentLength: maxContentLength}
}

// Extract implements sitechat.Extractor.
func (e *Extractor) Extract(rawHTML string) (*sitechat.ExtractResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, sitechat.Errorf(sitechat.EINVALID, "failed to parse HTML: %v", err)
	}

	title := normalizeSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript, template").Remove()

	region := doc.Selection
	for _, sel := range contentSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			region = found
			break
		}
	}

	content := normalizeSpace(text(region))
	content = truncate(content, e.MaxContentLength)

	return &sitechat.ExtractResult{
		Title:   title,
		Content: content,
	}, nil
}

// text returns the text of the selection, separating block-level
// elements with spaces so that adjacent blocks do not run together.
func text(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Title || n.DataAtom == atom.Head {
				return
			}
			if isBlock(n.DataAtom) {
				b.WriteByte(' ')
				defer b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Br,
		atom.Dd, atom.Div, atom.Dl, atom.Dt, atom.Fieldset, atom.Figcaption,
		atom.Figure, atom.Footer, atom.Form, atom.H1, atom.H2, atom.H3,
		atom.H4, atom.H5, atom.H6, atom.Header, atom.Hr, atom.Li, atom.Main,
		atom.Nav, atom.Ol, atom.P, atom.Pre, atom.Section, atom.Table,
		atom.Td, atom.Th, atom.Tr, atom.Ul:
		return true
	}
	return false
}

// normalizeSpace collapses runs of whitespace to single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most max characters.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
