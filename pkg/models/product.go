package models

import (
	"errors"
	"time"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrNoProducts           = errors.New("no products extracted")
	ErrNoSearchResults      = errors.New("no_search_results")
	ErrGeneratorUnavailable = errors.New("generative extractor unavailable")
)

const (
	Available         = "Available"
	OutOfStock        = "Out of Stock"
	LimitedStock      = "Limited Stock"
	PriceNotAvailable = "Price Not Available"
)

// Extraction method tags. Used as provenance on every record.
const (
	MethodJSONData          = "json_data"
	MethodHTMLParsing       = "html_parsing"
	MethodAIExtraction      = "ai_extraction"
	MethodPriceComparison   = "price_comparison"
	MethodAdditionalData    = "additional_data"
	MethodHiddenElement     = "hidden_element"
	MethodAPIProbe          = "api_probe"
	MethodSearchAggregation = "search_aggregation"
	MethodMerged            = "json_html_merged"
)

type ProductRecord struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	PriceDisplay        string    `json:"price_display,omitempty"`
	PriceNumeric        float64   `json:"price_numeric"`
	Platform            string    `json:"platform"`
	RetailerURL         string    `json:"retailer_url,omitempty"`
	AggregatorDetailURL string    `json:"aggregator_detail_url"`
	ImageURL            string    `json:"image_url"`
	Availability        string    `json:"availability"`
	ExtractionMethod    string    `json:"extraction_method"`
	ObservedAt          time.Time `json:"observed_at"`
}

// URL returns the best link a shopper can follow for this listing.
func (p ProductRecord) URL() string {
	if p.RetailerURL != "" {
		return p.RetailerURL
	}
	return p.AggregatorDetailURL
}

func (p ProductRecord) PlatformName() string { return p.Platform }

type SearchResult struct {
	RunID       string          `json:"run_id"`
	Query       string          `json:"query"`
	Method      string          `json:"method"`
	Products    []ProductRecord `json:"products"`
	GeneratedAt time.Time       `json:"generated_at"`
}
