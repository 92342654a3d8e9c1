// Package generative is the last-resort extractor: product cards are sent in batches to a
// text model that answers with a JSON array.
package generative

import (
	"context"
	"encoding/json"
	"fmt"
	"spedify/pkg/images"
	"spedify/pkg/jsonwalk"
	"spedify/pkg/models"
	"spedify/pkg/platform"
	"spedify/pkg/price"
	"spedify/pkg/scrapers/markup"
	"spedify/pkg/scrapers/structured"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	MaxCards     = 45
	BatchSize    = 15
	BatchTimeout = 60 * time.Second

	unknownName = "Unknown Product"
)

const promptTemplate = `The HTML below contains product cards from a price comparison search for %q.
Return ONLY a JSON array. Each element must have the keys "name", "price", "platform", "url" and "image_url".
Use the price exactly as shown on the card. Leave a key empty when the card does not show it.

%s`

type Extractor struct {
	Images       *images.Resolver
	BatchTimeout time.Duration
	Now          func() time.Time
	gen          Generator
	log          *zap.Logger
}

func NewExtractor(gen Generator, log *zap.Logger) *Extractor {
	return &Extractor{
		Images:       images.DefaultResolver(),
		BatchTimeout: BatchTimeout,
		Now:          time.Now,
		gen:          gen,
		log:          log,
	}
}

// Batches returns the outer HTML of the page's product cards grouped for the model.
func Batches(doc *goquery.Document) []string {
	var cards []string
	markup.FindCards(doc).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= MaxCards {
			return false
		}
		if html, err := goquery.OuterHtml(s); err == nil {
			cards = append(cards, html)
		}
		return true
	})

	var batches []string
	for start := 0; start < len(cards); start += BatchSize {
		end := min(start+BatchSize, len(cards))
		batches = append(batches, strings.Join(cards[start:end], "\n"))
	}
	return batches
}

// Extract runs the batches one after another. A batch that fails or returns an unusable reply
// contributes no records.
func (e *Extractor) Extract(ctx context.Context, doc *goquery.Document, query string) []models.ProductRecord {
	batches := Batches(doc)
	e.log.Info("generative extraction", zap.String("query", query), zap.Int("batches", len(batches)))

	var products []models.ProductRecord
	for n, batch := range batches {
		items, err := e.runBatch(ctx, query, batch)
		if err != nil {
			e.log.Warn("batch failed", zap.Int("batch", n+1), zap.Error(err))
			continue
		}
		for _, item := range items {
			if rec, ok := e.record(item, len(products)+1); ok {
				products = append(products, rec)
			}
		}
	}
	return products
}

func (e *Extractor) runBatch(ctx context.Context, query, batch string) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, e.BatchTimeout)
	defer cancel()

	reply, err := e.gen.Generate(ctx, fmt.Sprintf(promptTemplate, query, batch))
	if err != nil {
		return nil, err
	}
	return ParseReply(reply)
}

// ParseReply strips code fences and decodes the first JSON array in reply.
func ParseReply(reply string) ([]map[string]any, error) {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json array in reply")
	}

	var raw []any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	items := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if obj, ok := r.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items, nil
}

func (e *Extractor) record(item map[string]any, n int) (models.ProductRecord, bool) {
	name := jsonwalk.Stringify(item["name"])
	if name == "" || name == unknownName {
		return models.ProductRecord{}, false
	}

	label := platform.Normalize(jsonwalk.Stringify(item["platform"]))
	if label == "" {
		label = platform.Aggregator
	}
	display, value := price.Canonical(jsonwalk.Stringify(item["price"]))
	link := jsonwalk.Stringify(item["url"])

	rec := models.ProductRecord{
		ID:               fmt.Sprintf("ai_product_%d", n),
		Name:             name,
		PriceDisplay:     display,
		PriceNumeric:     value,
		Platform:         label,
		ImageURL:         e.Images.Resolve(jsonwalk.Stringify(item["image_url"]), name),
		Availability:     models.Available,
		ExtractionMethod: models.MethodAIExtraction,
		ObservedAt:       e.Now(),
	}
	if value == 0 {
		rec.Availability = models.PriceNotAvailable
	}
	if strings.HasPrefix(link, "http") && !strings.Contains(link, "buyhatke.com") {
		rec.RetailerURL = link
	}
	if strings.Contains(link, "buyhatke.com") {
		rec.AggregatorDetailURL = link
	} else {
		rec.AggregatorDetailURL = structured.DetailURL(label, name, link, 0)
	}
	return rec, true
}
