// Package platform maps retailer hints found in URLs, image paths and free text to canonical
// retailer labels.
package platform

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// Aggregator is the label used when no retailer can be identified.
	Aggregator    = "BuyHatke"
	AggregatorURL = "https://buyhatke.com"
)

type rule struct {
	keywords []string
	label    string
}

// Checked in order; the first hit wins.
var rules = []rule{
	{[]string{"amazon"}, "Amazon"},
	{[]string{"flipkart"}, "Flipkart"},
	{[]string{"myntra"}, "Myntra"},
	{[]string{"tatacliq", "tata_cliq", "tata cliq"}, "Tata CLiQ"},
	{[]string{"ajio"}, "Ajio"},
	{[]string{"nykaa"}, "Nykaa"},
	{[]string{"paytm"}, "Paytm"},
	{[]string{"snapdeal"}, "Snapdeal"},
	{[]string{"shopclues"}, "ShopClues"},
	{[]string{"croma"}, "Croma"},
	{[]string{"reliance"}, "Reliance Digital"},
	{[]string{"vijaysales", "vijay sales", "vijay_sales"}, "Vijay Sales"},
}

var titler = cases.Title(language.English)

func lookup(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.label, true
			}
		}
	}
	return "", false
}

// Classify returns the retailer named anywhere in text, or Aggregator.
func Classify(text string) string {
	if label, ok := lookup(text); ok {
		return label
	}
	return Aggregator
}

func Recognized(text string) bool {
	_, ok := lookup(text)
	return ok
}

// Normalize turns a scraped platform name into its canonical label. Unknown names are
// title-cased so they still group consistently.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if label, ok := lookup(name); ok {
		return label
	}
	if strings.EqualFold(name, Aggregator) {
		return Aggregator
	}
	return titler.String(strings.ToLower(name))
}

// Slug is the lowercase, space-free form used in aggregator URLs.
func Slug(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "")
}

func Labels() []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.label)
	}
	return out
}
