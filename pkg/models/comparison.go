package models

import "time"

type PlatformPriceEntry struct {
	Platform         string  `json:"platform"`
	PriceDisplay     string  `json:"price_display"`
	PriceNumeric     float64 `json:"price_numeric"`
	Availability     string  `json:"availability"`
	RetailerURL      string  `json:"retailer_url,omitempty"`
	PriceRankLabel   string  `json:"price_rank_label,omitempty"`
	Discount         string  `json:"discount,omitempty"`
	DeliveryInfo     string  `json:"delivery_info,omitempty"`
	ExtractionMethod string  `json:"extraction_method,omitempty"`
}

func (e PlatformPriceEntry) PlatformName() string { return e.Platform }

type ComparisonResult struct {
	ProductName    string               `json:"product_name"`
	Entries        []PlatformPriceEntry `json:"entries"`
	TotalPlatforms int                  `json:"total_platforms"`
	LowestPrice    string               `json:"lowest_price"`
	HighestPrice   string               `json:"highest_price"`
	CurrentPrice   string               `json:"current_price"`
	DealInsight    *DealInsight         `json:"deal_insight,omitempty"`
	SourceURL      string               `json:"source_url"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Error          string               `json:"error,omitempty"`
}

type ScoreComponent struct {
	Description string  `json:"description"`
	Points      int     `json:"points"`
	Progress    float64 `json:"progress"`
}

type PriceAnalytics struct {
	Highest   string `json:"highest,omitempty"`
	Average   string `json:"average,omitempty"`
	Lowest    string `json:"lowest,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type DealInsight struct {
	DealScore      int              `json:"deal_score"`
	Badge          string           `json:"badge,omitempty"`
	PriceAnalytics PriceAnalytics   `json:"price_analytics"`
	ScoreBreakdown []ScoreComponent `json:"score_breakdown,omitempty"`
	Insights       []string         `json:"insights,omitempty"`
	MorePrices     int              `json:"more_prices,omitempty"`
}
