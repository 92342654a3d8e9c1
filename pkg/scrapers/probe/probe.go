// Package probe queries guessed API endpoints of the aggregator for platform prices that the
// detail page itself does not render.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"spedify/pkg/fetch"
	"spedify/pkg/jsonwalk"
	"spedify/pkg/merge"
	"spedify/pkg/models"
	"spedify/pkg/platform"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
)

const DefaultTimeout = 5 * time.Second

// Templates are expanded with the product id and resolved against Prober.Base.
var Templates = []string{
	"/api/product/%s",
	"/api/prices/%s",
	"/api/comparison/%s",
	"/product/%s/prices",
}

var listKeys = []string{"prices", "platforms", "stores", "comparison"}

type Prober struct {
	Base    string
	Timeout time.Duration
	fetcher fetch.Fetcher
	log     *zap.Logger
}

func NewProber(f fetch.Fetcher, timeout time.Duration, log *zap.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		Base:    platform.AggregatorURL,
		Timeout: timeout,
		fetcher: f,
		log:     log,
	}
}

// ProductID returns the trailing numeric segment of a detail URL path, or "".
func ProductID(detailURL string) string {
	u, err := url.Parse(detailURL)
	if err != nil {
		return ""
	}
	last := path.Base(strings.TrimRight(u.Path, "/"))
	if i := strings.LastIndex(last, "-"); i >= 0 {
		last = last[i+1:]
	}
	if last == "" || strings.IndexFunc(last, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return ""
	}
	return last
}

// Probe runs every endpoint concurrently and returns the entries found, in template order.
// Failed probes contribute nothing.
func (p *Prober) Probe(ctx context.Context, detailURL string) []models.PlatformPriceEntry {
	id := ProductID(detailURL)
	if id == "" {
		p.log.Debug("no product id in detail url", zap.String("url", detailURL))
		return nil
	}

	headers := fetch.JSONHeaders()
	headers["Referer"] = detailURL

	results := make([][]models.PlatformPriceEntry, len(Templates))
	var wg sync.WaitGroup
	for i, tmpl := range Templates {
		wg.Add(1)
		go func(i int, endpoint string) {
			defer wg.Done()
			results[i] = p.probeOne(ctx, endpoint, headers)
		}(i, p.Base+fmt.Sprintf(tmpl, id))
	}
	wg.Wait()

	var entries []models.PlatformPriceEntry
	for _, r := range results {
		entries = append(entries, r...)
	}
	return entries
}

func (p *Prober) probeOne(ctx context.Context, endpoint string, headers map[string]string) []models.PlatformPriceEntry {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	resp, err := p.fetcher.Fetch(ctx, endpoint, headers)
	if err != nil || !resp.OK() {
		return nil
	}

	var data any
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil
	}

	var entries []models.PlatformPriceEntry
	jsonwalk.Collect(data, listKeys, jsonwalk.DefaultMaxDepth, func(obj map[string]any) {
		if e, ok := merge.NormalizeEntry(obj, models.MethodAPIProbe); ok {
			entries = append(entries, e)
		}
	})
	if len(entries) > 0 {
		p.log.Info("probe found prices", zap.String("endpoint", endpoint), zap.Int("count", len(entries)))
	}
	return entries
}
