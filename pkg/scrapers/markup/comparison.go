package markup

import (
	"regexp"
	"spedify/pkg/merge"
	"spedify/pkg/models"
	"spedify/pkg/platform"
	"spedify/pkg/price"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	containerClassRe = regexp.MustCompile(`price.*item|platform.*price|price.*card`)
	currencyRe       = regexp.MustCompile(`(?:₹|â‚¹|â¹)\s*[\d,]+(?:\.\d+)?`)
	discountRe       = regexp.MustCompile(`-?\d+(?:\.\d+)?\s*%(?:\s*off)?`)
	deliveryRe       = regexp.MustCompile(`(?i)delivery`)

	// retailer names as they appear in comparison row text
	textPlatforms = []string{"Amazon", "Flipkart", "Myntra", "Croma", "JioMart", "Tata CLiQ", "Tatacliq", "Ajio", "Nykaa", "Paytm", "Snapdeal", "ShopClues", "Reliance", "Vijay Sales"}
)

// ExtractComparison reads the per-platform price rows of a detail page, deduplicated on
// (platform, price) and sorted cheapest first with unknown prices last.
func ExtractComparison(doc *goquery.Document) []models.PlatformPriceEntry {
	var entries []models.PlatformPriceEntry
	comparisonRows(doc).Each(func(_ int, row *goquery.Selection) {
		if e, ok := rowEntry(row); ok {
			entries = append(entries, e)
		}
	})
	entries = merge.Dedupe(entries)
	merge.SortEntries(entries)
	return entries
}

func comparisonRows(doc *goquery.Document) *goquery.Selection {
	if rows := doc.Find(`button.p-2.flex.items-center.gap-2.cursor-pointer`); rows.Length() > 0 {
		return rows
	}

	rows := doc.Find("div, button").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return containerClassRe.MatchString(classOf(s))
	})
	if rows.Length() > 0 {
		return rows
	}

	if rows := doc.Find(`[data-price], [data-platform]`); rows.Length() > 0 {
		return rows
	}

	return doc.Find("body *").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return currencyRe.MatchString(ownText(s)) && platform.Recognized(s.Text())
	})
}

func rowEntry(row *goquery.Selection) (models.PlatformPriceEntry, bool) {
	name := platform.Normalize(rowPlatform(row))
	if name == "" {
		return models.PlatformPriceEntry{}, false
	}

	raw := rowPrice(row)
	if raw == "" {
		return models.PlatformPriceEntry{}, false
	}
	v := price.ParseNumeric(raw)

	e := models.PlatformPriceEntry{
		Platform:         name,
		PriceDisplay:     price.Display(v),
		PriceNumeric:     v,
		Availability:     models.Available,
		Discount:         rowDiscount(row),
		DeliveryInfo:     rowDelivery(row),
		ExtractionMethod: models.MethodPriceComparison,
	}
	if v == 0 {
		e.Availability = models.PriceNotAvailable
	}
	if href, ok := row.Attr("href"); ok && strings.HasPrefix(href, "http") {
		e.RetailerURL = href
	} else if href, ok := row.Find("a[href^='http']").First().Attr("href"); ok {
		e.RetailerURL = href
	}
	return e, true
}

func rowPlatform(row *goquery.Selection) string {
	selectors := []func(class string) bool{
		func(c string) bool { return strings.Contains(c, "font-semibold") && strings.Contains(c, "capitalize") },
		func(c string) bool { return strings.Contains(strings.ToLower(c), "platform") },
		func(c string) bool { return platform.Recognized(c) },
	}
	for _, sel := range selectors {
		el := row.Find("p, span, div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return sel(classOf(s))
		}).First()
		if text := strings.TrimSpace(el.Text()); text != "" {
			return text
		}
	}

	for _, attr := range []string{"data-platform", "data-site"} {
		if v, ok := row.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}

	text := strings.ToLower(row.Text())
	for _, p := range textPlatforms {
		if strings.Contains(text, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

func rowPrice(row *goquery.Selection) string {
	if v, ok := row.Attr("data-price"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	styled := row.Find("p, span, div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class := strings.ToLower(classOf(s))
		return strings.Contains(class, "font-bold") || strings.Contains(class, "price")
	})
	var text string
	styled.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := currencyRe.FindString(s.Text()); m != "" {
			text = m
			return false
		}
		return true
	})
	if text != "" {
		return text
	}
	return currencyRe.FindString(row.Text())
}

func rowDiscount(row *goquery.Selection) string {
	el := row.Find("p, span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class := classOf(s)
		return strings.Contains(class, "highlightred") || strings.Contains(class, "percent")
	}).First()
	if text := strings.TrimSpace(el.Text()); text != "" {
		return text
	}
	return discountRe.FindString(row.Text())
}

func rowDelivery(row *goquery.Selection) string {
	if text := strings.TrimSpace(row.Find(`p[class*="text-gray-500"]`).First().Text()); text != "" {
		return text
	}
	var text string
	row.Find("p, span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		own := strings.TrimSpace(ownText(s))
		if deliveryRe.MatchString(own) {
			text = own
			return false
		}
		return true
	})
	return text
}

func classOf(s *goquery.Selection) string {
	class, _ := s.Attr("class")
	return class
}

// ownText returns only the text nodes directly under the first element of s.
func ownText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for c := s.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
