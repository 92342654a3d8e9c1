package models

import "time"

type PriceHistoryPoint struct {
	PriceDisplay  string    `json:"price_display"`
	Platform      string    `json:"platform"`
	Timestamp     time.Time `json:"timestamp"`
	FormattedTime string    `json:"formatted_time"`
}

// Stats is empty (zero TotalEntries) when no point carries a parsable price.
type Stats struct {
	Current       string `json:"current,omitempty"`
	Lowest        string `json:"lowest,omitempty"`
	Highest       string `json:"highest,omitempty"`
	Average       string `json:"average,omitempty"`
	TotalEntries  int    `json:"total_entries"`
	PriceDrop     string `json:"price_drop,omitempty"`
	PriceIncrease string `json:"price_increase,omitempty"`
}
