package extract

import (
	"net/url"
	"strings"
)

// Vendor names as shown to the user
const (
	VendorAmazon   = "Amazon"
	VendorUberEats = "Uber Eats"
)

// Amazon returns the checkout profile for Amazon pages
func Amazon() Profile {
	return Profile{
		Vendor: VendorAmazon,
		Strategies: []Strategy{
			LabelRow("order total", MatchPrefix, "span, div, td, th", "tr, .a-row, .a-section, div"),
			KnownContainers(
				"#subtotals-marketplace-table",
				"#orderSummary",
				"#checkout-summary",
				"#subtotals-table",
				".order-summary",
			),
			PageRegex([]string{"body"}, "Order total"),
			StructuredRow("[data-testid='order-total-label']", "tr"),
		},
	}
}

// UberEats returns the checkout profile for Uber Eats pages
func UberEats() Profile {
	return Profile{
		Vendor: VendorUberEats,
		Strategies: []Strategy{
			LabelRow("total", MatchExact, "span, div, p", "div, li, section"),
			PageRegex([]string{"[data-testid*='checkout']", "main"}, "Total"),
			StructuredRow("[data-testid='total-label']", "div"),
		},
	}
}

type hostRule struct {
	fragment string
	profile  Profile
}

// Registry maps page hosts to vendor profiles
type Registry struct {
	rules []hostRule
}

// NewRegistry returns a registry with the built-in vendor profiles
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register("amazon.", Amazon())
	r.Register("ubereats.", UberEats())
	return r
}

// Register adds a profile for hosts containing fragment. Earlier
// registrations take precedence.
func (r *Registry) Register(fragment string, p Profile) {
	r.rules = append(r.rules, hostRule{fragment: strings.ToLower(fragment), profile: p})
}

// Lookup returns the profile for pageURL, if any
func (r *Registry) Lookup(pageURL string) (Profile, bool) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return Profile{}, false
	}
	host := strings.ToLower(u.Hostname())
	for _, rule := range r.rules {
		if strings.Contains(host, rule.fragment) {
			return rule.profile, true
		}
	}
	return Profile{}, false
}
