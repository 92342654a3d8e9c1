// Package deal reads the aggregator's "deal scanner" panel from a detail page.
package deal

import (
	"fmt"
	"math"
	"regexp"
	"spedify/pkg/models"
	"spedify/pkg/price"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	baseScore     = 50
	maxComponent  = 50.0
	scoreCeiling  = 100
	analyticPrice = `[^₹]*₹\s*([\d,]+(?:\.\d+)?)`
)

var scoreRes = []*regexp.Regexp{
	regexp.MustCompile(`deal\s+score[:\s]*(\d+)`),
	regexp.MustCompile(`score[:\s]*(\d+)\s*/\s*100`),
	regexp.MustCompile(`(\d+)\s*/\s*100\s*deal`),
}

type badge struct {
	re    *regexp.Regexp
	label string
}

var badges = []badge{
	{regexp.MustCompile(`deal\s+mirage`), "Deal Mirage"},
	{regexp.MustCompile(`great\s+deal`), "Great Deal"},
	{regexp.MustCompile(`good\s+deal`), "Good Deal"},
}

var (
	highestRe   = regexp.MustCompile(`highest` + analyticPrice)
	averageRe   = regexp.MustCompile(`average` + analyticPrice)
	lowestRe    = regexp.MustCompile(`lowest` + analyticPrice)
	referenceRe = regexp.MustCompile(`gif` + analyticPrice)
)

// Each breakdown line reads "<phrase> ... +N points"; the phrase becomes the description.
var breakdownRes = []*regexp.Regexp{
	regexp.MustCompile(`((?:below|above)\s+last\s+sale\s+price)[^\n]*?([+-]?\d+)\s*(?:points|pts)\b`),
	regexp.MustCompile(`(no\s+price\s+hike\s+before\s+sale)[^\n]*?([+-]?\d+)\s*(?:points|pts)\b`),
	regexp.MustCompile(`((?:below|above|at)\s+all\s+time\s+low(?:\s+price)?)[^\n]*?([+-]?\d+)\s*(?:points|pts)\b`),
	regexp.MustCompile(`((?:below|above|at)\s+\d+\s+months?\s+low)[^\n]*?([+-]?\d+)\s*(?:points|pts)\b`),
	regexp.MustCompile(`((?:below|above)\s+average\s+price)[^\n]*?([+-]?\d+)\s*(?:points|pts)\b`),
}

type insight struct {
	re     *regexp.Regexp
	format string
}

// A format with a verb takes the first capture group.
var insights = []insight{
	{regexp.MustCompile(`higher\s+than\s+6\s+mon(?:ths?)?\s+min`), "Price is higher than the 6 month minimum"},
	{regexp.MustCompile(`price\s+drop\s+alert`), "Price has dropped recently"},
	{regexp.MustCompile(`limited\s+time\s+offer`), "Limited time offer"},
	{regexp.MustCompile(`same\s+(?:price\s+)?as\s+last\s+sale`), "Same price as last sale"},
	{regexp.MustCompile(`better\s+than\s+last\s+(\d+)\s+sales?`), "Better than last %s sales"},
	{regexp.MustCompile(`(\d+)%\s+lower\s+than\s+average\s+price`), "%s%% lower than average price"},
	{regexp.MustCompile(`no\s+price\s+hike\s+in\s+last\s+(\d+)\s+days?`), "No price hike in last %s days"},
}

var morePricesRe = regexp.MustCompile(`view\s+(\d+)\s+more\s+prices`)

// Scan reads the visible text of doc. It returns nil when the page has no deal panel.
func Scan(doc *goquery.Document) *models.DealInsight {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return ScanText(body.Text())
}

func ScanText(text string) *models.DealInsight {
	text = strings.ToLower(text)
	found := false

	d := &models.DealInsight{}
	explicit := -1
	for _, re := range scoreRes {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v <= scoreCeiling {
				explicit = v
				break
			}
		}
	}

	for _, b := range badges {
		if b.re.MatchString(text) {
			d.Badge = b.label
			found = true
			break
		}
	}

	d.PriceAnalytics = models.PriceAnalytics{
		Highest:   analytic(highestRe, text),
		Average:   analytic(averageRe, text),
		Lowest:    analytic(lowestRe, text),
		Reference: analytic(referenceRe, text),
	}
	if d.PriceAnalytics != (models.PriceAnalytics{}) {
		found = true
	}

	total := 0
	for _, re := range breakdownRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			points, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			total += points
			d.ScoreBreakdown = append(d.ScoreBreakdown, models.ScoreComponent{
				Description: describe(m[1]),
				Points:      points,
				Progress:    Progress(points),
			})
		}
	}

	for _, in := range insights {
		m := in.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			d.Insights = append(d.Insights, fmt.Sprintf(in.format, m[1]))
		} else {
			d.Insights = append(d.Insights, in.format)
		}
	}

	if m := morePricesRe.FindStringSubmatch(text); m != nil {
		d.MorePrices, _ = strconv.Atoi(m[1])
	}

	found = found || explicit >= 0 || len(d.ScoreBreakdown) > 0 || len(d.Insights) > 0 || d.MorePrices > 0
	if !found {
		return nil
	}

	if explicit >= 0 {
		d.DealScore = explicit
	} else {
		d.DealScore = Score(total)
	}
	return d
}

// Score derives a 0-100 score from breakdown points when the page shows none.
func Score(points int) int {
	return min(max(baseScore+points, 0), scoreCeiling)
}

// Progress is the share of the per-component maximum, capped at 100.
func Progress(points int) float64 {
	return math.Min(math.Abs(float64(points))*100/maxComponent, 100)
}

func analytic(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	_, v := price.Canonical(m[1])
	if v == 0 {
		return ""
	}
	return price.FormatDisplay(math.Round(v))
}

func describe(phrase string) string {
	phrase = strings.Join(strings.Fields(phrase), " ")
	if phrase == "" {
		return ""
	}
	return strings.ToUpper(phrase[:1]) + phrase[1:]
}
