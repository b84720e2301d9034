package observer

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// StaticPage is a Page backed by an HTML string that can be replaced
type StaticPage struct {
	url string

	mu   sync.RWMutex
	html string
}

// NewStaticPage returns a page at pageURL with the given markup
func NewStaticPage(pageURL, html string) *StaticPage {
	return &StaticPage{url: pageURL, html: html}
}

// URL returns the page address
func (p *StaticPage) URL() string {
	return p.url
}

// SetHTML replaces the markup. Callers should follow with Agent.Mutated.
func (p *StaticPage) SetHTML(html string) {
	p.mu.Lock()
	p.html = html
	p.mu.Unlock()
}

// Snapshot parses the current markup
func (p *StaticPage) Snapshot() (*goquery.Document, error) {
	p.mu.RLock()
	html := p.html
	p.mu.RUnlock()
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
