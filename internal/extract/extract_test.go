package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func requireAmount(t *testing.T, want string, got DetectedTotal) {
	t.Helper()
	require.True(t, got.Found(), "expected an amount")
	assert.Equal(t, want, got.Amount.StringFixed(2))
}

func TestAmazon_LabelRow(t *testing.T) {
	doc := loadDoc(t, `<html><body>
		<div class="a-row"><span>Items:</span><span>$50.00</span></div>
		<div class="a-row"><span>Order total:</span><span>$56.78</span></div>
	</body></html>`)

	got := Amazon().Extract(doc)
	assert.Equal(t, VendorAmazon, got.Vendor)
	requireAmount(t, "56.78", got)
}

func TestAmazon_KnownContainer(t *testing.T) {
	doc := loadDoc(t, `<html><body>
		<div id="orderSummary"><p>Estimated amount $1,204.10</p></div>
	</body></html>`)

	requireAmount(t, "1204.10", Amazon().Extract(doc))
}

func TestAmazon_EarlierStrategyWins(t *testing.T) {
	doc := loadDoc(t, `<html><body>
		<table><tr><td>Order total:</td><td>$56.78</td></tr></table>
		<section id="orderSummary">Subtotal $10.00</section>
	</body></html>`)

	requireAmount(t, "56.78", Amazon().Extract(doc))
}

func TestAmazon_PageRegex(t *testing.T) {
	doc := loadDoc(t, `<html><body>
		<p>Your ORDER TOTAL is <b>$99.10</b> today</p>
	</body></html>`)

	requireAmount(t, "99.10", Amazon().Extract(doc))
}

func TestAmazon_StructuredRowNextSibling(t *testing.T) {
	doc := loadDoc(t, `<html><body>
		<table>
			<tr><td data-testid="order-total-label">Grand</td></tr>
			<tr><td>$12.34</td></tr>
		</table>
	</body></html>`)

	requireAmount(t, "12.34", Amazon().Extract(doc))
}

func TestUberEats_ExactLabel(t *testing.T) {
	doc := loadDoc(t, `<html><body><ul>
		<li><span>Subtotal</span><span>$20.00</span></li>
		<li><span>Total</span><span>$23.45</span></li>
	</ul></body></html>`)

	got := UberEats().Extract(doc)
	assert.Equal(t, VendorUberEats, got.Vendor)
	requireAmount(t, "23.45", got)
}

func TestUberEats_ScopedRegex(t *testing.T) {
	doc := loadDoc(t, `<html><body><main>
		<p>Total due</p><p>$30.00</p>
	</main></body></html>`)

	requireAmount(t, "30.00", UberEats().Extract(doc))
}

func TestPageRegex_IgnoresScriptText(t *testing.T) {
	doc := loadDoc(t, `<html><body>
		<script>s="Order total $999"</script>
		<p>Order total</p><p>$12.34</p>
	</body></html>`)

	amount, ok := PageRegex([]string{"body"}, "Order total")(doc)
	require.True(t, ok)
	assert.Equal(t, "12.34", amount.StringFixed(2))
}

func TestKnownContainers_IgnoresHiddenElements(t *testing.T) {
	doc := loadDoc(t, `<html><body>
		<div id="summary">
			<style>.price::after { content: "$1.00"; }</style>
			<noscript>Total $5.00</noscript>
			<template><span>$7.00</span></template>
			<span>Total</span> <span>$42.50</span>
		</div>
	</body></html>`)

	amount, ok := KnownContainers("#summary")(doc)
	require.True(t, ok)
	assert.Equal(t, "42.50", amount.StringFixed(2))
}

func TestAmazon_LabelRowSkipsScriptDecoy(t *testing.T) {
	doc := loadDoc(t, `<html><body>
		<div class="a-row"><script>window.cart={total:"$999.00"}</script><span>Order total:</span><span>$56.78</span></div>
	</body></html>`)

	requireAmount(t, "56.78", Amazon().Extract(doc))
}

func TestExtract_NoMatch(t *testing.T) {
	doc := loadDoc(t, `<html><body><h1>Your cart is empty</h1></body></html>`)

	for _, p := range []Profile{Amazon(), UberEats()} {
		got := p.Extract(doc)
		assert.False(t, got.Found(), p.Vendor)
		assert.Equal(t, p.Vendor, got.Vendor)
	}
}

func TestExtract_NilDocument(t *testing.T) {
	assert.False(t, Amazon().Extract(nil).Found())
}

func TestExtract_PanickingStrategyIsAMiss(t *testing.T) {
	p := Profile{
		Vendor: "Test",
		Strategies: []Strategy{
			func(*goquery.Document) (decimal.Decimal, bool) { panic("boom") },
			func(*goquery.Document) (decimal.Decimal, bool) { return decimal.NewFromInt(5), true },
		},
	}

	doc := loadDoc(t, `<html><body></body></html>`)
	requireAmount(t, "5.00", p.Extract(doc))
}

func TestLabelRow_CandidateCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < MaxLabelCandidates; i++ {
		b.WriteString(`<div><span>Order total</span></div>`)
	}
	b.WriteString(`<div><span>Order total</span><span>$1.00</span></div>`)
	b.WriteString("</body></html>")
	doc := loadDoc(t, b.String())

	s := LabelRow("order total", MatchPrefix, "span", "div")
	_, ok := s(doc)
	assert.False(t, ok)
}

func TestDetectedTotal_JSON(t *testing.T) {
	data, err := json.Marshal(DetectedTotal{Vendor: VendorAmazon})
	require.NoError(t, err)
	assert.JSONEq(t, `{"vendor":"Amazon","total":null}`, string(data))

	var got DetectedTotal
	require.NoError(t, json.Unmarshal([]byte(`{"vendor":"Uber Eats","total":23.45}`), &got))
	requireAmount(t, "23.45", got)
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		url    string
		vendor string
		ok     bool
	}{
		{"https://www.amazon.com/gp/buy/spc/handlers/display.html", VendorAmazon, true},
		{"https://smile.amazon.co.uk/checkout", VendorAmazon, true},
		{"https://www.ubereats.com/checkout", VendorUberEats, true},
		{"https://example.com/cart", "", false},
		{"not a url", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			p, ok := r.Lookup(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.vendor, p.Vendor)
		})
	}
}
