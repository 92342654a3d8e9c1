package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// RenderedFetcher loads pages in headless Chrome for markup that only exists after scripts run.
type RenderedFetcher struct {
	Timeout time.Duration
	log     *zap.Logger
}

func NewRenderedFetcher(timeout time.Duration, log *zap.Logger) *RenderedFetcher {
	return &RenderedFetcher{Timeout: timeout, log: log}
}

func (f *RenderedFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	runCtx, cancelRun := context.WithTimeout(browserCtx, f.Timeout)
	defer cancelRun()

	extra := make(network.Headers, len(headers))
	for k, v := range headers {
		extra[k] = v
	}

	f.log.Debug("rendering page", zap.String("url", url))

	navResp, err := chromedp.RunResponse(runCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(extra),
		chromedp.Navigate(url),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp navigate %s: %w", url, err)
	}

	var html string
	err = chromedp.Run(runCtx,
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp execution failed: %w", err)
	}

	status := 200
	if navResp != nil {
		status = int(navResp.Status)
	}
	return &Response{URL: url, StatusCode: status, Body: []byte(html)}, nil
}
