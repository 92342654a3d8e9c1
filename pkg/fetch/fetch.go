// Package fetch provides the page retrieval primitive used by every extractor.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var ErrEmptyResponse = errors.New("empty response")

type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK && len(r.Body) > 0
}

type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (*Response, error)
}

// BrowserHeaders are sent with page requests so the aggregator serves its normal markup.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

// JSONHeaders are sent with API-style probe requests.
func JSONHeaders() map[string]string {
	return map[string]string{
		"Accept":           "application/json, text/plain, */*",
		"X-Requested-With": "XMLHttpRequest",
	}
}

type CollyFetcher struct {
	Timeout time.Duration
	log     *zap.Logger
}

func NewCollyFetcher(timeout time.Duration, log *zap.Logger) *CollyFetcher {
	return &CollyFetcher{Timeout: timeout, log: log}
}

// Fetch returns non-2xx responses with their status code instead of an error.
func (f *CollyFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	c := colly.NewCollector(
		colly.UserAgent(UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.Timeout)
	c.ParseHTTPErrorResponse = true

	c.OnRequest(func(r *colly.Request) {
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	})

	var resp *Response
	c.OnResponse(func(r *colly.Response) {
		resp = &Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})

	f.log.Debug("fetching page", zap.String("url", url))
	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("fetch %s: %w", url, ErrEmptyResponse)
	}
	return resp, nil
}

// FallbackFetcher tries each fetcher in turn until one returns a usable page.
type FallbackFetcher struct {
	fetchers []Fetcher
	log      *zap.Logger
}

func NewFallbackFetcher(log *zap.Logger, fetchers ...Fetcher) *FallbackFetcher {
	return &FallbackFetcher{fetchers: fetchers, log: log}
}

func (f *FallbackFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	var (
		last    *Response
		lastErr error = ErrEmptyResponse
	)
	for i, fetcher := range f.fetchers {
		resp, err := fetcher.Fetch(ctx, url, headers)
		if err == nil && resp.OK() {
			return resp, nil
		}
		if err != nil {
			f.log.Warn("fetcher failed", zap.Int("fetcher", i), zap.String("url", url), zap.Error(err))
			lastErr = err
			continue
		}
		last, lastErr = resp, nil
		// a definitive 404 will not change with a different transport
		if resp.StatusCode == http.StatusNotFound {
			break
		}
	}
	if last != nil {
		return last, nil
	}
	return nil, lastErr
}
