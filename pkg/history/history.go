// Package history builds price observations and summarizes a product's observed prices.
// The tracker keeps no state; callers own and persist the sequence.
package history

import (
	"fmt"
	"math"
	"spedify/pkg/models"
	"spedify/pkg/price"
	"time"
)

// TimeLayout renders like "12/12/25, 10:30 am".
const TimeLayout = "02/01/06, 3:04 pm"

const unknownPlatform = "Unknown"

type Tracker struct {
	Now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{Now: time.Now}
}

// Record builds the point that follows history. It does not append it.
func (t *Tracker) Record(history []models.PriceHistoryPoint, display, platform string) models.PriceHistoryPoint {
	if platform == "" {
		platform = unknownPlatform
	}
	now := t.Now()
	return models.PriceHistoryPoint{
		PriceDisplay:  display,
		Platform:      platform,
		Timestamp:     now,
		FormattedTime: now.Format(TimeLayout),
	}
}

// Statistics summarizes the parsable prices in history. The trend compares the first and last
// parsable price.
func Statistics(history []models.PriceHistoryPoint) models.Stats {
	var prices []float64
	for _, p := range history {
		if v := price.ParseNumeric(p.PriceDisplay); v > 0 {
			prices = append(prices, v)
		}
	}
	if len(prices) == 0 {
		return models.Stats{}
	}

	lowest, highest, sum := prices[0], prices[0], 0.0
	for _, v := range prices {
		lowest = math.Min(lowest, v)
		highest = math.Max(highest, v)
		sum += v
	}

	stats := models.Stats{
		Current:      history[len(history)-1].PriceDisplay,
		Lowest:       rounded(lowest),
		Highest:      rounded(highest),
		Average:      rounded(sum / float64(len(prices))),
		TotalEntries: len(history),
	}

	if len(prices) < 2 {
		return stats
	}
	first, last := prices[0], prices[len(prices)-1]
	switch {
	case last < first:
		drop := first - last
		stats.PriceDrop = fmt.Sprintf("%s (%.1f%%)", rounded(drop), drop/first*100)
	case last > first:
		rise := last - first
		stats.PriceIncrease = fmt.Sprintf("%s (+%.1f%%)", rounded(rise), rise/first*100)
	}
	return stats
}

func rounded(v float64) string {
	return price.FormatDisplay(math.Round(v))
}
