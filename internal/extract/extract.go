// Package extract finds the checkout total on a retailer page. Each vendor
// has an ordered list of strategies; the first one that yields an amount wins.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/eshaffer321/nudgepay-go/internal/money"
)

// MaxLabelCandidates caps how many label elements a LabelRow strategy inspects
const MaxLabelCandidates = 200

var currencyPattern = regexp.MustCompile(`\$\s?[\d,.]+`)

// Strategy inspects a page snapshot and returns an amount when it finds one
type Strategy func(doc *goquery.Document) (decimal.Decimal, bool)

// DetectedTotal is the result of one extraction run
type DetectedTotal struct {
	Vendor string           `json:"vendor"`
	Amount *decimal.Decimal `json:"total"`
}

// Found reports whether an amount was detected
func (d DetectedTotal) Found() bool {
	return d.Amount != nil
}

// Profile is a vendor name plus its strategies in priority order
type Profile struct {
	Vendor     string
	Strategies []Strategy
}

// Extract runs the strategies in order and returns the first match.
// A strategy that panics counts as a miss.
func (p Profile) Extract(doc *goquery.Document) DetectedTotal {
	result := DetectedTotal{Vendor: p.Vendor}
	if doc == nil {
		return result
	}
	for _, s := range p.Strategies {
		if amount, ok := runStrategy(s, doc); ok {
			result.Amount = &amount
			return result
		}
	}
	return result
}

func runStrategy(s Strategy, doc *goquery.Document) (amount decimal.Decimal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			amount, ok = decimal.Zero, false
		}
	}()
	return s(doc)
}

// firstCurrency parses the first currency-shaped substring of text
func firstCurrency(text string) (decimal.Decimal, bool) {
	m := currencyPattern.FindString(text)
	if m == "" {
		return decimal.Zero, false
	}
	return money.Parse(m)
}

// hiddenElements never contribute rendered text
var hiddenElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// visibleText is Selection.Text without the contents of hidden elements
func visibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if hiddenElements[n.Data] {
				return
			}
		case html.CommentNode:
			return
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

// normalize lower-cases and trims text for label comparisons
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
