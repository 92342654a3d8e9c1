// Package match decides whether scraped listings are relevant to a query and whether two
// listings describe the same product.
package match

import (
	"spedify/pkg/models"
	"strings"
	"unicode"
)

// NameKeyLength is how many characters of the normalized name take part in identity matching.
const NameKeyLength = 30

var std = DefaultRules()

func IsRelevant(name, query string) bool {
	return std.IsRelevant(name, query)
}

// IsRelevant rejects accessory listings unless the query asks for an accessory.
func (r *Rules) IsRelevant(name, query string) bool {
	name = strings.ToLower(name)
	query = strings.ToLower(query)

	queryWords := words(query)
	for _, acc := range r.Accessories {
		if hasPhrase(queryWords, acc) {
			return true
		}
	}

	score := r.AccessoryScore(name)

	cat := r.Category(query)
	if cat == nil {
		return score < r.DefaultMaxAccessories
	}

	if !containsAny(name, cat.ProductKeywords) {
		return false
	}
	if cat.MaxAccessories > 0 && score >= cat.MaxAccessories {
		return false
	}
	return !containsAny(name, cat.Exclude)
}

// AccessoryScore counts the accessory keywords present in a lowercased name.
func (r *Rules) AccessoryScore(name string) int {
	score := 0
	for _, acc := range r.Accessories {
		if strings.Contains(name, acc) {
			score++
		}
	}
	return score
}

// Category returns the first category whose query keywords occur in the query as words.
func (r *Rules) Category(query string) *Category {
	queryWords := words(strings.ToLower(query))
	for i := range r.Categories {
		for _, kw := range r.Categories[i].QueryKeywords {
			if hasPhrase(queryWords, kw) {
				return &r.Categories[i]
			}
		}
	}
	return nil
}

// RelevanceScore counts query terms longer than two characters found in any of texts.
func RelevanceScore(query string, texts ...string) int {
	haystack := strings.ToLower(strings.Join(texts, " "))
	score := 0
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if len(term) > 2 && strings.Contains(haystack, term) {
			score++
		}
	}
	return score
}

// NameKey is the case and space insensitive prefix used to match names across sources.
func NameKey(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			continue
		}
		if n == NameKeyLength {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

func SameName(a, b string) bool {
	ka, kb := NameKey(a), NameKey(b)
	if ka == "" || kb == "" {
		return false
	}
	return strings.Contains(ka, kb) || strings.Contains(kb, ka)
}

func SameProduct(a, b models.ProductRecord) bool {
	if SameName(a.Name, b.Name) {
		return true
	}
	ua, ub := a.URL(), b.URL()
	return ua != "" && ua == ub && strings.EqualFold(a.Platform, b.Platform)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// hasPhrase matches a keyword against whole words, tolerating a plural "s".
func hasPhrase(ws []string, phrase string) bool {
	parts := words(phrase)
	if len(parts) == 0 || len(parts) > len(ws) {
		return false
	}
	for i := 0; i+len(parts) <= len(ws); i++ {
		ok := true
		for j, p := range parts {
			w := ws[i+j]
			if w != p && w != p+"s" {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
