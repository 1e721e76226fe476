package fetcher

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a fetched page: its raw markup, title and a structural query
// surface over the parsed tree.
type Document struct {
	URL   string
	Title string

	content string
	doc     *goquery.Document
	base    *url.URL
}

// Link is an anchor discovered in a document.
type Link struct {
	// Raw is the href attribute exactly as written in the markup.
	Raw string
	// Href is Raw resolved against the document URL.
	Href      string
	Selection *goquery.Selection
}

// NewDocument parses content. When title is empty it is read from the
// document's <title> element.
func NewDocument(pageURL, title, content string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("document: parse %s: %w", pageURL, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("document: parse url %q: %w", pageURL, err)
	}

	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return &Document{
		URL:     pageURL,
		Title:   title,
		content: content,
		doc:     doc,
		base:    base,
	}, nil
}

// Content returns the raw markup of the page.
func (d *Document) Content() string {
	return d.content
}

// Text returns the text content of the page body.
func (d *Document) Text() string {
	body := d.doc.Find("body")
	if body.Length() == 0 {
		return d.doc.Text()
	}
	return body.Text()
}

// Find runs a CSS selector over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Links returns the anchors matched by selector that carry a non-empty href,
// in document order.
func (d *Document) Links(selector string) []Link {
	var links []Link
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		raw, ok := s.Attr("href")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			return
		}
		links = append(links, Link{Raw: raw, Href: d.Resolve(raw), Selection: s})
	})
	return links
}

// Resolve turns a possibly relative href into an absolute URL. Hrefs that
// fail to parse are returned unchanged.
func (d *Document) Resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return d.base.ResolveReference(ref).String()
}
