// Package search drives the extractors in priority order for free-text queries and builds
// cross-platform comparisons for single products.
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"spedify/pkg/fetch"
	"spedify/pkg/merge"
	"spedify/pkg/models"
	"spedify/pkg/platform"
	"spedify/pkg/scrapers/deal"
	"spedify/pkg/scrapers/generative"
	"spedify/pkg/scrapers/markup"
	"spedify/pkg/scrapers/probe"
	"spedify/pkg/scrapers/structured"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultParallelism  = 3
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrUpstreamStatus = errors.New("unexpected upstream status")
)

type Options struct {
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
	// Parallelism bounds the concurrent searches of CompareFromSearch.
	Parallelism int
}

type Orchestrator struct {
	BaseURL string
	Now     func() time.Time

	opts       Options
	fetcher    fetch.Fetcher
	structured *structured.Extractor
	markup     *markup.Extractor
	generative *generative.Extractor
	prober     *probe.Prober
	log        *zap.Logger
}

// New wires the extractors around f. gen may be nil, in which case the generative fallback is
// skipped.
func New(f fetch.Fetcher, gen generative.Generator, opts Options, log *zap.Logger) *Orchestrator {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}

	o := &Orchestrator{
		BaseURL:    platform.AggregatorURL,
		Now:        time.Now,
		opts:       opts,
		fetcher:    f,
		structured: structured.NewExtractor(log.Named("structured")),
		markup:     markup.NewExtractor(log.Named("markup")),
		prober:     probe.NewProber(f, opts.ProbeTimeout, log.Named("probe")),
		log:        log,
	}
	if gen != nil {
		o.generative = generative.NewExtractor(gen, log.Named("generative"))
	}
	return o
}

func (o *Orchestrator) SearchURL(query string) string {
	return o.BaseURL + "/search?product=" + url.QueryEscape(query)
}

// Search returns the products of the first extractor that yields any, or models.ErrNoProducts.
func (o *Orchestrator) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	body, err := o.fetchPage(ctx, o.SearchURL(query))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}
	html := string(body)

	cards := o.markup.ExtractSearch(doc, query, structured.RetailerLinks(html))

	var (
		products []models.ProductRecord
		method   string
	)
	if found, err := o.structured.Extract(html, query); err == nil {
		products = merge.EnrichProducts(found, cards, o.markup.Images.IsPlaceholder)
		method = models.MethodJSONData
	} else if len(cards) > 0 {
		products = cards
		method = models.MethodHTMLParsing
	} else if o.generative != nil {
		products = o.generative.Extract(ctx, doc, query)
		method = models.MethodAIExtraction
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("search %q: %w", query, models.ErrNoProducts)
	}
	o.log.Info("search complete",
		zap.String("query", query),
		zap.String("method", method),
		zap.Int("products", len(products)),
	)

	return &models.SearchResult{
		RunID:       uuid.NewString(),
		Query:       query,
		Method:      method,
		Products:    products,
		GeneratedAt: o.Now(),
	}, nil
}

// Compare builds the comparison for one detail page. A page that cannot be fetched or no longer
// exists is replaced by a comparison assembled from searches for name.
func (o *Orchestrator) Compare(ctx context.Context, detailURL, name string) (*models.ComparisonResult, error) {
	fctx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	resp, err := o.fetcher.Fetch(fctx, detailURL, fetch.BrowserHeaders())
	cancel()

	if err != nil || resp.StatusCode == http.StatusNotFound {
		o.log.Warn("detail page unavailable, comparing from search",
			zap.String("url", detailURL),
			zap.Error(err),
		)
		return o.CompareFromSearch(ctx, name)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("compare %s: status %d: %w", detailURL, resp.StatusCode, ErrUpstreamStatus)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	primary := markup.ExtractComparison(doc)
	primary = merge.Merge(primary, markup.EmbeddedPrices(doc))
	primary = merge.Merge(primary, markup.HiddenPrices(doc))
	entries := merge.Merge(primary, o.prober.Probe(ctx, detailURL))

	if len(entries) == 0 && name != "" {
		o.log.Info("detail page has no prices, comparing from search", zap.String("url", detailURL))
		return o.CompareFromSearch(ctx, name)
	}

	productName := markup.ProductName(doc)
	if productName == "" {
		productName = name
	}
	result := merge.BuildComparison(productName, detailURL, entries, o.Now())
	result.DealInsight = deal.Scan(doc)
	return &result, nil
}

// CompareFromSearch searches for name and its shorter variants concurrently and keeps the best
// listing per platform. When nothing is found it returns a result carrying the error marker
// together with models.ErrNoSearchResults.
func (o *Orchestrator) CompareFromSearch(ctx context.Context, name string) (*models.ComparisonResult, error) {
	variants := QueryVariants(name)
	results := make([][]models.ProductRecord, len(variants))

	sem := make(chan struct{}, o.opts.Parallelism)
	var wg sync.WaitGroup
	for i, q := range variants {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}

			res, err := o.Search(ctx, q)
			if err != nil {
				o.log.Debug("variant search failed", zap.String("query", q), zap.Error(err))
				return
			}
			results[i] = res.Products
		}(i, q)
	}
	wg.Wait()

	var all []models.ProductRecord
	for _, r := range results {
		all = append(all, r...)
	}
	if len(all) == 0 {
		return &models.ComparisonResult{
			ProductName: name,
			GeneratedAt: o.Now(),
			Error:       models.ErrNoSearchResults.Error(),
		}, models.ErrNoSearchResults
	}

	result := merge.BuildComparison(name, "", merge.BestPerPlatform(all), o.Now())
	return &result, nil
}

// QueryVariants returns name plus its first two and first three words when name is long enough.
func QueryVariants(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	variants := []string{name}
	words := strings.Fields(name)
	if len(words) >= 3 {
		variants = appendUnique(variants, strings.Join(words[:2], " "))
	}
	if len(words) >= 4 {
		variants = appendUnique(variants, strings.Join(words[:3], " "))
	}
	return variants
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func (o *Orchestrator) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	resp, err := o.fetcher.Fetch(ctx, pageURL, fetch.BrowserHeaders())
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUpstreamStatus)
	}
	return resp.Body, nil
}
