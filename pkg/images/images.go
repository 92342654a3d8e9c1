// Package images validates scraped product image URLs and supplies category placeholders.
package images

import "strings"

// CategoryRule assigns a category when any keyword occurs in the lowercased product name and
// none of the Unless keywords do.
type CategoryRule struct {
	Category string
	Keywords []string
	Unless   []string
}

// Resolver holds the lookup tables. The table contents reflect one scrape of the aggregator
// and need revalidation from time to time.
type Resolver struct {
	BrokenPatterns  []string
	TrustedDomains  []string
	ValidExtensions []string
	Categories      []CategoryRule
	Placeholders    map[string]string
	Fallback        string
}

const (
	CategoryPhone     = "phone"
	CategoryLaptop    = "laptop"
	CategoryTablet    = "tablet"
	CategoryHeadphone = "headphone"
	CategoryWatch     = "watch"
	CategoryUnknown   = "unknown"
)

func DefaultResolver() *Resolver {
	return &Resolver{
		BrokenPatterns: []string{
			"/assets/placeholder", "/images/placeholder", "/default-image", "no-image-available",
			"image-not-found", "placeholder.jpg", "placeholder.png", "default.jpg", "default.png",
			"noimage", "no_image", "missing-image",
		},
		TrustedDomains: []string{
			"amazon.com", "media-amazon.com", "ssl-images-amazon.com", "images-amazon.com",
			"flipkart.com", "rukminim", "flixcart.com",
		},
		ValidExtensions: []string{".jpg", ".jpeg", ".png", ".webp", ".gif"},
		Categories: []CategoryRule{
			{Category: CategoryTablet, Keywords: []string{"ipad", "tablet", "galaxy tab"}},
			{Category: CategoryPhone, Keywords: []string{"iphone", "phone", "mobile"}},
			{Category: CategoryPhone, Keywords: []string{"galaxy"}, Unless: []string{"tab"}},
			{Category: CategoryLaptop, Keywords: []string{"macbook", "laptop", "thinkpad", "computer"}},
			{Category: CategoryWatch, Keywords: []string{"watch", "smartwatch"}},
			{Category: CategoryHeadphone, Keywords: []string{"airpods", "headphone", "earphone", "speaker"}},
		},
		Placeholders: map[string]string{
			CategoryPhone:     "https://via.placeholder.com/400x400/e3f2fd/1565c0?text=PHONE",
			CategoryLaptop:    "https://via.placeholder.com/400x400/f3e5f5/7b1fa2?text=LAPTOP",
			CategoryTablet:    "https://via.placeholder.com/400x400/e8f5e8/2e7d32?text=TABLET",
			CategoryHeadphone: "https://via.placeholder.com/400x400/fff3e0/ef6c00?text=AUDIO",
			CategoryWatch:     "https://via.placeholder.com/400x400/fce4ec/c2185b?text=WATCH",
		},
		Fallback: "https://via.placeholder.com/400x400/f5f5f5/9e9e9e?text=PRODUCT",
	}
}

// Resolve returns url when it looks like a real product image, otherwise the placeholder for
// the product's category.
func (r *Resolver) Resolve(url, productName string) string {
	if r.Valid(url) {
		return strings.TrimSpace(url)
	}
	return r.Placeholder(productName)
}

func (r *Resolver) Valid(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" || url == "null" || len(url) < 10 {
		return false
	}
	lower := strings.ToLower(url)
	if containsAny(lower, r.BrokenPatterns) {
		return false
	}
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	if containsAny(lower, r.TrustedDomains) {
		return true
	}
	return containsAny(lower, r.ValidExtensions)
}

// IsPlaceholder reports whether url is one of the resolver's own placeholders.
func (r *Resolver) IsPlaceholder(url string) bool {
	if url == r.Fallback {
		return true
	}
	for _, p := range r.Placeholders {
		if url == p {
			return true
		}
	}
	return false
}

func (r *Resolver) Category(productName string) string {
	lower := strings.ToLower(productName)
	for _, rule := range r.Categories {
		if containsAny(lower, rule.Keywords) && !containsAny(lower, rule.Unless) {
			return rule.Category
		}
	}
	return CategoryUnknown
}

func (r *Resolver) Placeholder(productName string) string {
	if p, ok := r.Placeholders[r.Category(productName)]; ok {
		return p
	}
	return r.Fallback
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
