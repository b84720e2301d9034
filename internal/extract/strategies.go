package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// MatchMode controls how a label's text is compared
type MatchMode int

const (
	// MatchExact requires the whole label text to equal the wanted label
	MatchExact MatchMode = iota
	// MatchPrefix requires the label text to start with the wanted label
	MatchPrefix
)

func (m MatchMode) matches(text, label string) bool {
	if m == MatchPrefix {
		return strings.HasPrefix(text, label)
	}
	return text == label
}

// LabelRow looks for leaf elements whose text matches label, walks up to the
// closest enclosing container and reads the first currency amount inside it.
func LabelRow(label string, mode MatchMode, leafSelector, containerSelector string) Strategy {
	label = normalize(label)
	return func(doc *goquery.Document) (decimal.Decimal, bool) {
		var (
			amount  decimal.Decimal
			found   bool
			checked int
		)
		doc.Find(leafSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if el.Children().Length() > 0 {
				return true
			}
			if !mode.matches(normalize(visibleText(el)), label) {
				return true
			}
			checked++
			if checked > MaxLabelCandidates {
				return false
			}
			container := el.Closest(containerSelector)
			if container.Length() == 0 {
				return true
			}
			amount, found = firstCurrency(visibleText(container))
			return !found
		})
		return amount, found
	}
}

// KnownContainers checks well-known summary containers in order
func KnownContainers(selectors ...string) Strategy {
	return func(doc *goquery.Document) (decimal.Decimal, bool) {
		for _, sel := range selectors {
			container := doc.Find(sel).First()
			if container.Length() == 0 {
				continue
			}
			if amount, ok := firstCurrency(visibleText(container)); ok {
				return amount, true
			}
		}
		return decimal.Zero, false
	}
}

// PageRegex searches the text of the first present scope (falling back to
// body) for the label followed by a currency amount.
func PageRegex(scopeSelectors []string, label string) Strategy {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `[^$]*\$\s?[\d,.]+`)
	return func(doc *goquery.Document) (decimal.Decimal, bool) {
		scope := firstPresent(doc, scopeSelectors)
		if scope == nil {
			return decimal.Zero, false
		}
		m := pattern.FindString(visibleText(scope))
		if m == "" {
			return decimal.Zero, false
		}
		return firstCurrency(m)
	}
}

// StructuredRow finds a label by a stable attribute selector, then reads the
// amount from the label's row or, failing that, from the next sibling row.
func StructuredRow(labelSelector, rowSelector string) Strategy {
	return func(doc *goquery.Document) (decimal.Decimal, bool) {
		label := doc.Find(labelSelector).First()
		if label.Length() == 0 {
			return decimal.Zero, false
		}
		row := label.Closest(rowSelector)
		if row.Length() == 0 {
			row = label.Parent()
		}
		if amount, ok := firstCurrency(visibleText(row)); ok {
			return amount, true
		}
		next := row.NextFiltered(rowSelector)
		if next.Length() == 0 {
			next = row.Next()
		}
		return firstCurrency(visibleText(next))
	}
}

func firstPresent(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return nil
}
