package cache

import (
	"path/filepath"
	"spedify/pkg/models"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache.db"), ttl, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSearchResults(t *testing.T) {
	c := newTestCache(t, time.Hour)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, ok := c.GetSearch("iphone"); ok {
		t.Fatal("Expected miss on empty cache")
	}

	res := &models.SearchResult{
		RunID:       "run-1",
		Query:       "iphone",
		Method:      models.MethodJSONData,
		Products:    []models.ProductRecord{{ID: "json_product_1", Name: "Apple iPhone 15", PriceNumeric: 69900, Platform: "Amazon"}},
		GeneratedAt: now,
	}
	c.SetSearch("iphone", res)

	got, ok := c.GetSearch("iphone")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if got.RunID != "run-1" || len(got.Products) != 1 || got.Products[0].PriceNumeric != 69900 {
		t.Errorf("Unexpected cached result: %+v", got)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := c.GetSearch("iphone"); ok {
		t.Error("Expected expired entry to miss")
	}

	res.RunID = "run-2"
	res.GeneratedAt = now
	c.SetSearch("iphone", res)
	if got, ok := c.GetSearch("iphone"); !ok || got.RunID != "run-2" {
		t.Errorf("Expected overwritten entry, got %+v", got)
	}
}

func TestComparisons(t *testing.T) {
	c := newTestCache(t, time.Hour)
	url := "https://buyhatke.com/apple-iphone-15-price-in-india-21-1001"

	c.SetComparison(url, &models.ComparisonResult{
		ProductName: "Apple iPhone 15",
		Entries:     []models.PlatformPriceEntry{{Platform: "Flipkart", PriceDisplay: "₹52,000", PriceNumeric: 52000}},
		DealInsight: &models.DealInsight{DealScore: 70},
		GeneratedAt: time.Now(),
	})

	got, ok := c.GetComparison(url)
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if got.ProductName != "Apple iPhone 15" || got.DealInsight == nil || got.DealInsight.DealScore != 70 {
		t.Errorf("Unexpected cached comparison: %+v", got)
	}
	if _, ok := c.GetComparison(url + "-other"); ok {
		t.Error("Expected miss for unknown url")
	}
}

func TestHistory(t *testing.T) {
	c := newTestCache(t, time.Hour)
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	for i, display := range []string{"₹1,299", "₹1,199", "₹1,249"} {
		p := models.PriceHistoryPoint{
			PriceDisplay:  display,
			Platform:      "Myntra",
			Timestamp:     base.Add(time.Duration(i) * time.Hour),
			FormattedTime: "01/01/26, 9:00 am",
		}
		if err := c.AppendHistory("shoe-1", p); err != nil {
			t.Fatalf("AppendHistory failed: %v", err)
		}
	}
	if err := c.AppendHistory("other", models.PriceHistoryPoint{PriceDisplay: "₹5", Platform: "Ajio", Timestamp: base}); err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}

	points, err := c.History("shoe-1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(points))
	}
	if points[0].PriceDisplay != "₹1,299" || points[2].PriceDisplay != "₹1,249" {
		t.Errorf("Expected insertion order, got %+v", points)
	}
	if !points[1].Timestamp.Equal(base.Add(time.Hour)) {
		t.Errorf("Expected timestamp round trip, got %v", points[1].Timestamp)
	}

	empty, err := c.History("missing")
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty history, got %v %v", empty, err)
	}
}

func TestTracked(t *testing.T) {
	c := newTestCache(t, time.Hour)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := c.Track(models.TrackedProduct{ProductKey: "iphone-15", Name: "Apple iPhone 15", DetailURL: "https://buyhatke.com/a-1", CreatedAt: created}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if err := c.Track(models.TrackedProduct{ProductKey: "iphone-15", Name: "Apple iPhone 15 (Blue)", DetailURL: "https://buyhatke.com/a-2", CreatedAt: created}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	tracked, err := c.Tracked()
	if err != nil {
		t.Fatalf("Tracked failed: %v", err)
	}
	if len(tracked) != 1 {
		t.Fatalf("Expected re-registration to replace, got %+v", tracked)
	}
	if tracked[0].Name != "Apple iPhone 15 (Blue)" || tracked[0].DetailURL != "https://buyhatke.com/a-2" {
		t.Errorf("Unexpected tracked product: %+v", tracked[0])
	}
}
