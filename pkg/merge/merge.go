// Package merge combines observations from several extractors into one deduplicated,
// ranked view.
package merge

import (
	"fmt"
	"math"
	"sort"
	"spedify/pkg/match"
	"spedify/pkg/models"
	"spedify/pkg/price"
	"strings"
	"time"
)

const (
	BestPrice  = "Best Price"
	CheckPrice = "Check Price"
	NoPrice    = "N/A"
)

type platformed interface {
	PlatformName() string
}

// Merge keeps every platform's first occurrence, taking primary before secondary. Items
// without a platform are dropped.
func Merge[T platformed](primary, secondary []T) []T {
	seen := make(map[string]bool, len(primary)+len(secondary))
	out := make([]T, 0, len(primary)+len(secondary))
	for _, set := range [][]T{primary, secondary} {
		for _, item := range set {
			key := strings.ToLower(strings.TrimSpace(item.PlatformName()))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, item)
		}
	}
	return out
}

// SortEntries orders by ascending price with unknown (zero) prices last. The sort is stable.
func SortEntries(entries []models.PlatformPriceEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return sortKey(entries[i].PriceNumeric) < sortKey(entries[j].PriceNumeric)
	})
}

func sortKey(v float64) float64 {
	if v <= 0 {
		return math.Inf(1)
	}
	return v
}

// Dedupe drops repeated (platform, price) pairs, keeping the first.
func Dedupe(entries []models.PlatformPriceEntry) []models.PlatformPriceEntry {
	type key struct{ platform, price string }
	seen := make(map[key]bool, len(entries))
	out := make([]models.PlatformPriceEntry, 0, len(entries))
	for _, e := range entries {
		k := key{e.Platform, e.PriceDisplay}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

func BuildComparison(name, sourceURL string, entries []models.PlatformPriceEntry, now time.Time) models.ComparisonResult {
	sorted := make([]models.PlatformPriceEntry, len(entries))
	copy(sorted, entries)
	SortEntries(sorted)

	low, high := 0.0, 0.0
	for _, e := range sorted {
		if e.PriceNumeric <= 0 {
			continue
		}
		if low == 0 || e.PriceNumeric < low {
			low = e.PriceNumeric
		}
		if e.PriceNumeric > high {
			high = e.PriceNumeric
		}
	}

	for i := range sorted {
		sorted[i].PriceRankLabel = RankLabel(sorted[i].PriceNumeric, low)
	}

	result := models.ComparisonResult{
		ProductName:    name,
		Entries:        sorted,
		TotalPlatforms: len(sorted),
		LowestPrice:    NoPrice,
		HighestPrice:   NoPrice,
		CurrentPrice:   NoPrice,
		SourceURL:      sourceURL,
		GeneratedAt:    now,
	}
	if low > 0 {
		result.LowestPrice = price.FormatDisplay(math.Round(low))
		result.HighestPrice = price.FormatDisplay(math.Round(high))
		result.CurrentPrice = displayOf(sorted[0].PriceDisplay, sorted[0].PriceNumeric)
	}
	return result
}

// RankLabel describes a price relative to the cheapest known price.
func RankLabel(v, lowest float64) string {
	if v <= 0 || lowest <= 0 {
		return CheckPrice
	}
	if v <= lowest {
		return BestPrice
	}
	return fmt.Sprintf("%.0f%% Higher", (v-lowest)/lowest*100)
}

// BestPerPlatform picks one listing per platform: Available beats any other availability,
// then the lower known price wins. Platforms keep first-seen order.
func BestPerPlatform(records []models.ProductRecord) []models.PlatformPriceEntry {
	var order []string
	best := make(map[string]models.ProductRecord)
	for _, r := range records {
		key := strings.ToLower(r.Platform)
		if key == "" {
			continue
		}
		cur, ok := best[key]
		if !ok {
			order = append(order, key)
			best[key] = r
			continue
		}
		if better(r, cur) {
			best[key] = r
		}
	}

	entries := make([]models.PlatformPriceEntry, 0, len(order))
	for _, key := range order {
		r := best[key]
		entries = append(entries, models.PlatformPriceEntry{
			Platform:         r.Platform,
			PriceDisplay:     displayOf(r.PriceDisplay, r.PriceNumeric),
			PriceNumeric:     r.PriceNumeric,
			Availability:     r.Availability,
			RetailerURL:      r.URL(),
			ExtractionMethod: models.MethodSearchAggregation,
		})
	}
	return entries
}

func better(a, b models.ProductRecord) bool {
	aAvail, bAvail := a.Availability == models.Available, b.Availability == models.Available
	if aAvail != bAvail {
		return aAvail
	}
	return sortKey(a.PriceNumeric) < sortKey(b.PriceNumeric)
}

func displayOf(display string, v float64) string {
	if v > 0 {
		if display != "" {
			return display
		}
		return price.FormatDisplay(v)
	}
	return price.NotAvailable
}

// EnrichProducts copies images from markup cards onto structured records describing the same
// product, then appends cards that matched no structured record.
func EnrichProducts(structured, cards []models.ProductRecord, isPlaceholder func(string) bool) []models.ProductRecord {
	out := make([]models.ProductRecord, 0, len(structured)+len(cards))
	for _, p := range structured {
		for _, c := range cards {
			if !match.SameName(p.Name, c.Name) {
				continue
			}
			if c.ImageURL != "" && !isPlaceholder(c.ImageURL) {
				p.ImageURL = c.ImageURL
				p.ExtractionMethod = models.MethodMerged
			}
			break
		}
		out = append(out, p)
	}

	for _, c := range cards {
		matched := false
		for _, p := range structured {
			if match.SameName(p.Name, c.Name) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, c)
		}
	}
	return out
}
