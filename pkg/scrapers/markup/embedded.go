package markup

import (
	"encoding/json"
	"regexp"
	"spedify/pkg/jsonwalk"
	"spedify/pkg/merge"
	"spedify/pkg/models"
	"spedify/pkg/platform"
	"spedify/pkg/price"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	scriptPriceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?s)priceData\s*[:=]\s*(\[.*?\])`),
		regexp.MustCompile(`(?s)allPrices\s*[:=]\s*(\[.*?\])`),
		regexp.MustCompile(`(?s)platforms\s*[:=]\s*(\[.*?\])`),
		regexp.MustCompile(`(?s)"prices"\s*:\s*(\[.*?\])`),
		regexp.MustCompile(`(?s)priceComparison\s*[:=]\s*(\[.*?\])`),
		regexp.MustCompile(`(?s)compareData\s*[:=]\s*(\[.*?\])`),
	}

	nextDataKeys = []string{"prices", "platforms", "stores", "vendors"}

	hiddenSelectors = []string{
		`[style*="display: none"]`,
		`[class*="hidden"]`,
		`[class*="collapsed"]`,
		`[data-toggle="collapse"]`,
		`[aria-expanded="false"]`,
	}

	hiddenPlatformRe = regexp.MustCompile(`(?i)(amazon|flipkart|myntra|croma|jiomart|tatacliq|ajio|nykaa|paytm|snapdeal)`)
	hiddenPriceRe    = regexp.MustCompile(`₹\s*([\d,]+)`)

	nameSelectors = []string{
		`h1[title*="Amazon"]`,
		`h1.capitalize`,
		`h1`,
		`[title*="Amazon"]`,
		`.text-base.line-clamp-2`,
	}
)

// ProductName returns the detail page's product title, or "" when none is found.
func ProductName(doc *goquery.Document) string {
	for _, sel := range nameSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if i := strings.Index(text, " - Amazon"); i > 0 {
			text = text[:i]
		}
		return text
	}
	return ""
}

// EmbeddedPrices reads price lists serialized into inline scripts, including the
// __NEXT_DATA__ payload.
func EmbeddedPrices(doc *goquery.Document) []models.PlatformPriceEntry {
	var entries []models.PlatformPriceEntry
	add := func(obj map[string]any) {
		if e, ok := merge.NormalizeEntry(obj, models.MethodAdditionalData); ok {
			entries = append(entries, e)
		}
	}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if id, _ := s.Attr("id"); id == "__NEXT_DATA__" {
			var data any
			if err := json.Unmarshal([]byte(text), &data); err == nil {
				jsonwalk.Collect(data, nextDataKeys, jsonwalk.DefaultMaxDepth, add)
			}
			return
		}
		for _, re := range scriptPriceRes {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				var list []any
				if err := json.Unmarshal([]byte(m[1]), &list); err != nil {
					continue
				}
				for _, item := range list {
					if obj, ok := item.(map[string]any); ok {
						add(obj)
					}
				}
			}
		}
	})
	return entries
}

// HiddenPrices reads platform prices from collapsed or hidden elements.
func HiddenPrices(doc *goquery.Document) []models.PlatformPriceEntry {
	var entries []models.PlatformPriceEntry
	for _, sel := range hiddenSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := s.Text()
			if !strings.Contains(strings.ToLower(text), "price") && !strings.Contains(text, price.Symbol) {
				return
			}
			pm := hiddenPlatformRe.FindStringSubmatch(text)
			vm := hiddenPriceRe.FindStringSubmatch(text)
			if pm == nil || vm == nil {
				return
			}
			v := price.ParseNumeric(vm[1])
			if v <= 0 {
				return
			}
			entries = append(entries, models.PlatformPriceEntry{
				Platform:         platform.Normalize(pm[1]),
				PriceDisplay:     price.FormatDisplay(v),
				PriceNumeric:     v,
				Availability:     models.Available,
				ExtractionMethod: models.MethodHiddenElement,
			})
		})
	}
	return entries
}
