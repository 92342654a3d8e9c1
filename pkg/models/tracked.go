package models

import "time"

// TrackedProduct is a product registered for scheduled price re-checks.
type TrackedProduct struct {
	ProductKey string    `json:"product_key"`
	Name       string    `json:"name"`
	DetailURL  string    `json:"detail_url"`
	CreatedAt  time.Time `json:"created_at"`
}
