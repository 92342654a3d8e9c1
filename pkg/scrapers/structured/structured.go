// Package structured reads the product dump the aggregator serializes into inline scripts as
// `v.prod="..."; v.link="..."; v.price=...` assignments.
package structured

import (
	"fmt"
	"regexp"
	"spedify/pkg/images"
	"spedify/pkg/match"
	"spedify/pkg/models"
	"spedify/pkg/platform"
	"spedify/pkg/price"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	MaxPerPlatform = 25
	MaxProducts    = 60
	MinNameLength  = 6

	// products below this popularity are reported as Limited Stock
	PopularityThreshold = 10
	slugWords           = 8
)

const ident = `([a-zA-Z_$][a-zA-Z0-9_$]*)`

var (
	prodRe        = regexp.MustCompile(ident + `\.prod="([^"]+)"`)
	linkRe        = regexp.MustCompile(ident + `\.link="([^"]+)"`)
	priceRe       = regexp.MustCompile(ident + `\.price=([^;,}\s]+)`)
	imageRe       = regexp.MustCompile(ident + `\.image="([^"]*)"`)
	siteImageRe   = regexp.MustCompile(ident + `\.siteImage="([^"]*)"`)
	popularityRe  = regexp.MustCompile(ident + `\.popularity=([^;,}]+)`)
	isActiveRe    = regexp.MustCompile(ident + `\.isActive=([^;,}]+)`)
	internalPidRe = regexp.MustCompile(ident + `\.internalPid=([^;,}]+)`)

	digitsRe    = regexp.MustCompile(`^\d+$`)
	slugCleanRe = regexp.MustCompile(`[^\w\s-]`)
	spacesRe    = regexp.MustCompile(`\s+`)
)

// entry collects every field assigned to one script variable.
type entry struct {
	name, link, price, image, siteImage string
	popularity, isActive, internalPid   string
}

type Extractor struct {
	Images *images.Resolver
	Rules  *match.Rules
	Now    func() time.Time
	log    *zap.Logger
}

func NewExtractor(log *zap.Logger) *Extractor {
	return &Extractor{
		Images: images.DefaultResolver(),
		Rules:  match.DefaultRules(),
		Now:    time.Now,
		log:    log,
	}
}

// Extract returns models.ErrNoProducts when the page carries no complete, relevant record.
func (e *Extractor) Extract(html, query string) ([]models.ProductRecord, error) {
	order, entries := scan(html)
	e.log.Debug("structured data scan",
		zap.Int("variables", len(order)),
		zap.String("query", query),
	)

	now := e.Now()
	perPlatform := make(map[string]int)
	var products []models.ProductRecord

	for i, v := range order {
		en := entries[v]
		if en.name == "" || en.link == "" {
			continue
		}

		name := strings.TrimSpace(en.name)
		if len(name) < MinNameLength || !e.Rules.IsRelevant(name, query) {
			continue
		}

		label := platform.Classify(en.siteImage + " " + en.link)
		if perPlatform[label] >= MaxPerPlatform {
			continue
		}
		perPlatform[label]++

		products = append(products, e.record(i, name, label, en, now))
		if len(products) >= MaxProducts {
			break
		}
	}

	if len(products) == 0 {
		return nil, models.ErrNoProducts
	}
	return products, nil
}

func (e *Extractor) record(i int, name, label string, en *entry, now time.Time) models.ProductRecord {
	value := parseInt(en.price)

	link := strings.TrimSpace(en.link)
	rec := models.ProductRecord{
		ID:                  fmt.Sprintf("json_product_%d", i+1),
		Name:                name,
		PriceNumeric:        float64(value),
		Platform:            label,
		AggregatorDetailURL: DetailURL(label, name, link, parseInt(en.internalPid)),
		ImageURL:            e.Images.Resolve(en.image, name),
		Availability:        availability(en, value),
		ExtractionMethod:    models.MethodJSONData,
		ObservedAt:          now,
	}
	if value > 0 {
		rec.PriceDisplay = price.FormatDisplay(float64(value))
	}
	if isAbsolute(link) {
		rec.RetailerURL = link
	}
	return rec
}

func availability(en *entry, value int) string {
	if active, ok := parseFlag(en.isActive); ok && !active {
		return models.OutOfStock
	}
	if value == 0 {
		return models.PriceNotAvailable
	}
	if en.popularity != "" && parseInt(en.popularity) < PopularityThreshold {
		return models.LimitedStock
	}
	return models.Available
}

// RetailerLinks maps lowercased product names to the retailer link assigned alongside them.
func RetailerLinks(html string) map[string]string {
	order, entries := scan(html)
	links := make(map[string]string, len(order))
	for _, v := range order {
		en := entries[v]
		if en.name != "" && en.link != "" {
			links[strings.ToLower(strings.TrimSpace(en.name))] = strings.TrimSpace(en.link)
		}
	}
	return links
}

// DetailURL builds the aggregator's comparison page link for a listing.
func DetailURL(label, name, link string, pid int) string {
	if pid > 0 && label != platform.Aggregator {
		category := "electronics"
		if strings.Contains(strings.ToLower(name), "headphone") {
			category = "63"
		}
		parts := append([]string{platform.Slug(label)}, slugWordsOf(name, slugWords)...)
		parts = append(parts, "price-in-india", category, strconv.Itoa(pid))
		return platform.AggregatorURL + "/" + strings.Join(parts, "-")
	}
	if strings.HasPrefix(link, "/") {
		return platform.AggregatorURL + link
	}
	return fmt.Sprintf("%s/%s-%s-price-in-india", platform.AggregatorURL, platform.Slug(label), Slug(name))
}

// Slug lowercases name, drops punctuation and joins words with dashes.
func Slug(name string) string {
	return strings.Join(slugWordsOf(name, 0), "-")
}

func slugWordsOf(name string, limit int) []string {
	cleaned := slugCleanRe.ReplaceAllString(strings.ToLower(name), "")
	words := strings.Fields(spacesRe.ReplaceAllString(cleaned, " "))
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}

func scan(html string) ([]string, map[string]*entry) {
	var order []string
	entries := make(map[string]*entry)

	get := func(v string) *entry {
		en, ok := entries[v]
		if !ok {
			en = &entry{}
			entries[v] = en
			order = append(order, v)
		}
		return en
	}

	// names first so variable order follows the product listing
	for _, m := range prodRe.FindAllStringSubmatch(html, -1) {
		get(m[1]).name = m[2]
	}

	assign := func(re *regexp.Regexp, set func(*entry, string)) {
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			if en, ok := entries[m[1]]; ok {
				set(en, m[2])
			}
		}
	}
	assign(linkRe, func(en *entry, s string) { en.link = s })
	assign(priceRe, func(en *entry, s string) { en.price = s })
	assign(imageRe, func(en *entry, s string) { en.image = s })
	assign(siteImageRe, func(en *entry, s string) { en.siteImage = s })
	assign(popularityRe, func(en *entry, s string) { en.popularity = s })
	assign(isActiveRe, func(en *entry, s string) { en.isActive = s })
	assign(internalPidRe, func(en *entry, s string) { en.internalPid = s })

	return order, entries
}

func parseInt(raw string) int {
	s := strings.Trim(strings.TrimSpace(raw), `"'`)
	if !digitsRe.MatchString(s) {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseFlag(raw string) (value, ok bool) {
	switch strings.Trim(strings.TrimSpace(raw), `"'`) {
	case "1", "true", "!0":
		return true, true
	case "0", "false", "!1":
		return false, true
	}
	return false, false
}

func isAbsolute(link string) bool {
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}
