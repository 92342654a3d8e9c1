// Package markup extracts products and price comparisons from rendered aggregator pages.
// Every extractor tries its selector strategies in order and returns an empty result rather
// than an error when nothing matches.
package markup

import (
	"fmt"
	"spedify/pkg/images"
	"spedify/pkg/models"
	"spedify/pkg/platform"
	"spedify/pkg/price"
	"spedify/pkg/scrapers/structured"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	MaxCards      = 50
	MinNameLength = 6
)

type Extractor struct {
	Images *images.Resolver
	Now    func() time.Time
	log    *zap.Logger
}

func NewExtractor(log *zap.Logger) *Extractor {
	return &Extractor{
		Images: images.DefaultResolver(),
		Now:    time.Now,
		log:    log,
	}
}

// FindCards returns product-card anchors using the first strategy that matches anything.
func FindCards(doc *goquery.Document) *goquery.Selection {
	strategies := []func() *goquery.Selection{
		func() *goquery.Selection { return doc.Find(`a[class*="text-left"][class*="w-full"]`) },
		func() *goquery.Selection { return doc.Find(`a[href*="price-in-india"]`) },
		func() *goquery.Selection { return doc.Find(`a[href]`).Has("img") },
	}
	for _, find := range strategies {
		if cards := find(); cards.Length() > 0 {
			return cards
		}
	}
	return doc.FindNodes()
}

// ExtractSearch reads product cards. links maps lowercased names to retailer URLs recovered
// from the page's script data.
func (e *Extractor) ExtractSearch(doc *goquery.Document, query string, links map[string]string) []models.ProductRecord {
	cards := FindCards(doc)
	e.log.Debug("markup cards found", zap.Int("cards", cards.Length()))

	now := e.Now()
	var products []models.ProductRecord
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= MaxCards {
			return false
		}
		href, _ := card.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return true
		}

		name := cardName(card)
		if utf8.RuneCountInString(name) < 5 {
			name = fmt.Sprintf("Product from %s - %d", query, i+1)
		}
		if utf8.RuneCountInString(name) < MinNameLength {
			return true
		}

		rawImage := cardImage(card)
		label := platform.Classify(rawImage + " " + href)
		display, value := price.Canonical(cardPrice(card))

		rec := models.ProductRecord{
			ID:               fmt.Sprintf("html_product_%d", i+1),
			Name:             name,
			PriceDisplay:     display,
			PriceNumeric:     value,
			Platform:         label,
			ImageURL:         e.Images.Resolve(rawImage, name),
			Availability:     models.Available,
			ExtractionMethod: models.MethodHTMLParsing,
			ObservedAt:       now,
		}
		if value == 0 {
			rec.Availability = models.PriceNotAvailable
		}

		switch {
		case strings.HasPrefix(href, "/"):
			rec.AggregatorDetailURL = platform.AggregatorURL + href
			rec.RetailerURL = links[strings.ToLower(name)]
		default:
			rec.AggregatorDetailURL = structured.DetailURL(label, name, href, 0)
			if !strings.Contains(strings.ToLower(href), "buyhatke.com") {
				rec.RetailerURL = href
			}
		}

		products = append(products, rec)
		return true
	})
	return products
}

func cardName(card *goquery.Selection) string {
	if title, ok := card.Attr("title"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}

	var name string
	card.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if utf8.RuneCountInString(text) > 10 && !strings.Contains(text, price.Symbol) {
			name = text
			return false
		}
		return true
	})
	if name != "" {
		return name
	}

	alt, _ := card.Find("img").First().Attr("alt")
	return strings.TrimSpace(alt)
}

func cardPrice(card *goquery.Selection) string {
	if p := card.Find(`p[class*="font-semibold"]`).First(); p.Length() > 0 {
		return strings.TrimSpace(p.Text())
	}
	span := card.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return strings.Contains(strings.ToLower(class), "price")
	}).First()
	if span.Length() > 0 {
		return strings.TrimSpace(span.Text())
	}
	rupee := card.Find("p").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), price.Symbol)
	}).First()
	return strings.TrimSpace(rupee.Text())
}

func cardImage(card *goquery.Selection) string {
	var src string
	card.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		s, _ := img.Attr("src")
		s = strings.TrimSpace(s)
		if s == "" || strings.Contains(s, "site_icons") || len(s) <= 20 {
			return true
		}
		src = AbsoluteURL(s)
		return false
	})
	return src
}

// AbsoluteURL resolves protocol-relative, site-relative and bare-host image sources.
func AbsoluteURL(src string) string {
	switch {
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return platform.AggregatorURL + src
	case strings.HasPrefix(src, "http"):
		return src
	default:
		return "https://" + src
	}
}
