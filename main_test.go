package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"spedify/pkg/api"
	"spedify/pkg/cache"
	"spedify/pkg/models"
	"spedify/pkg/search"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubSearcher struct {
	searchErr    error
	compareErr   error
	searchCalls  int
	compareCalls int
}

func (s *stubSearcher) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	s.searchCalls++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return &models.SearchResult{
		RunID:       "run-1",
		Query:       query,
		Method:      models.MethodHTMLParsing,
		Products:    []models.ProductRecord{{ID: "html_product_1", Name: "Apple iPhone 15", PriceNumeric: 69900, Platform: "Amazon"}},
		GeneratedAt: time.Now(),
	}, nil
}

func (s *stubSearcher) Compare(ctx context.Context, detailURL, name string) (*models.ComparisonResult, error) {
	s.compareCalls++
	if s.compareErr != nil {
		return nil, s.compareErr
	}
	return &models.ComparisonResult{
		ProductName: name,
		Entries:     []models.PlatformPriceEntry{{Platform: "Flipkart", PriceDisplay: "₹52,000", PriceNumeric: 52000}},
		SourceURL:   detailURL,
		GeneratedAt: time.Now(),
	}, nil
}

func newTestServer(t *testing.T, searcher Searcher) http.Handler {
	t.Helper()
	store, err := cache.New(filepath.Join(t.TempDir(), "cache.db"), time.Hour, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return newServer(searcher, store, zap.NewNop()).routes([]string{"*"})
}

func TestProblemResponses(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		searcher       *stubSearcher
		expectedStatus int
		expectedDetail string
	}{
		{
			name:           "Search - Missing query",
			method:         "GET",
			path:           "/search",
			searcher:       &stubSearcher{},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Missing query parameter q",
		},
		{
			name:           "Search - No products",
			method:         "GET",
			path:           "/search?q=zzzz",
			searcher:       &stubSearcher{searchErr: fmt.Errorf("search %q: %w", "zzzz", models.ErrNoProducts)},
			expectedStatus: http.StatusNotFound,
			expectedDetail: "no products extracted",
		},
		{
			name:           "Search - Upstream timeout",
			method:         "GET",
			path:           "/search?q=tv",
			searcher:       &stubSearcher{searchErr: fmt.Errorf("search %q: %w", "tv", context.DeadlineExceeded)},
			expectedStatus: http.StatusGatewayTimeout,
			expectedDetail: "Upstream service timed out",
		},
		{
			name:           "Search - Upstream status",
			method:         "GET",
			path:           "/search?q=tv",
			searcher:       &stubSearcher{searchErr: fmt.Errorf("status 503: %w", search.ErrUpstreamStatus)},
			expectedStatus: http.StatusBadGateway,
			expectedDetail: "status 503",
		},
		{
			name:           "Search - Unexpected failure",
			method:         "GET",
			path:           "/search?q=tv",
			searcher:       &stubSearcher{searchErr: errors.New("parse search page: broken")},
			expectedStatus: http.StatusInternalServerError,
			expectedDetail: "parse search page",
		},
		{
			name:           "Compare - Missing url",
			method:         "GET",
			path:           "/compare?name=pixel",
			searcher:       &stubSearcher{},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Missing query parameter url",
		},
		{
			name:           "Compare - No search results",
			method:         "GET",
			path:           "/compare?url=https://buyhatke.com/gone-1&name=gone",
			searcher:       &stubSearcher{compareErr: models.ErrNoSearchResults},
			expectedStatus: http.StatusNotFound,
			expectedDetail: "no_search_results",
		},
		{
			name:           "History - Invalid body",
			method:         "POST",
			path:           "/history",
			body:           "{not json",
			searcher:       &stubSearcher{},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Invalid JSON body",
		},
		{
			name:           "History - Missing price",
			method:         "POST",
			path:           "/history",
			body:           `{"product_key":"shoe-1"}`,
			searcher:       &stubSearcher{},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "product_key and price are required",
		},
		{
			name:           "History - Missing product key",
			method:         "GET",
			path:           "/history",
			searcher:       &stubSearcher{},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Missing query parameter product_key",
		},
		{
			name:           "Track - Missing detail url",
			method:         "POST",
			path:           "/track",
			body:           `{"product_key":"iphone-15","name":"Apple iPhone 15"}`,
			searcher:       &stubSearcher{},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "product_key and detail_url are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}

			rr := httptest.NewRecorder()
			newTestServer(t, tt.searcher).ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, tt.expectedStatus)
			}

			expectedContentType := "application/problem+json"
			if contentType := rr.Header().Get("Content-Type"); contentType != expectedContentType {
				t.Errorf("handler returned wrong content type: got %v want %v",
					contentType, expectedContentType)
			}

			var pd api.ProblemDetails
			if err := json.Unmarshal(rr.Body.Bytes(), &pd); err != nil {
				t.Errorf("handler returned invalid JSON: %v. Body: %s", err, rr.Body.String())
			}

			if pd.Status != tt.expectedStatus {
				t.Errorf("JSON status mismatch: got %v want %v", pd.Status, tt.expectedStatus)
			}
			if pd.Type != "about:blank" {
				t.Errorf("JSON type mismatch: got %v want about:blank", pd.Type)
			}
			if !strings.Contains(pd.Detail, tt.expectedDetail) {
				t.Errorf("JSON detail mismatch: got %q, want substring %q", pd.Detail, tt.expectedDetail)
			}
			if !strings.HasPrefix(tt.path, pd.Instance) || pd.Instance == "" {
				t.Errorf("JSON instance mismatch: got %q for path %q", pd.Instance, tt.path)
			}
		})
	}
}

func TestSearchHandler_UsesCache(t *testing.T) {
	searcher := &stubSearcher{}
	h := newTestServer(t, searcher)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/search?q=iphone+15", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: got status %v", i, rr.Code)
		}
		var res models.SearchResult
		if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if res.Query != "iphone 15" || len(res.Products) != 1 {
			t.Errorf("unexpected result %+v", res)
		}
	}

	if searcher.searchCalls != 1 {
		t.Errorf("expected second request served from cache, got %d searches", searcher.searchCalls)
	}
}

func TestCompareHandler(t *testing.T) {
	searcher := &stubSearcher{}
	h := newTestServer(t, searcher)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/compare?url=https://buyhatke.com/pixel-8-1002&name=Google+Pixel+8", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v: %s", rr.Code, rr.Body.String())
	}
	var res models.ComparisonResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if res.ProductName != "Google Pixel 8" || res.SourceURL != "https://buyhatke.com/pixel-8-1002" {
		t.Errorf("unexpected comparison %+v", res)
	}
}

func TestHistoryHandlers(t *testing.T) {
	h := newTestServer(t, &stubSearcher{})

	for _, price := range []string{"₹1,000", "₹900"} {
		body := fmt.Sprintf(`{"product_key":"shoe-1","price":%q,"platform":"Myntra"}`, price)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("POST", "/history", strings.NewReader(body)))
		if rr.Code != http.StatusCreated {
			t.Fatalf("record %s: got status %v: %s", price, rr.Code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/history?product_key=shoe-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v", rr.Code)
	}

	var res historyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(res.History) != 2 || res.History[1].PriceDisplay != "₹900" {
		t.Errorf("unexpected history %+v", res.History)
	}
	if res.Stats.Current != "₹900" || res.Stats.TotalEntries != 2 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}
	if res.Stats.PriceDrop != "₹100 (10.0%)" {
		t.Errorf("expected drop ₹100 (10.0%%), got %q", res.Stats.PriceDrop)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/history?product_key=unknown", nil))
	if !strings.Contains(rr.Body.String(), `"history":[]`) {
		t.Errorf("expected empty history array, got %s", rr.Body.String())
	}
}

func TestTrackHandler(t *testing.T) {
	h := newTestServer(t, &stubSearcher{})

	body := `{"product_key":"iphone-15","name":"Apple iPhone 15","detail_url":"https://buyhatke.com/iphone-15-1001"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/track", strings.NewReader(body)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("got status %v: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"product_key":"iphone-15"`) {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestFirstLANAddress(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPAddr{IP: net.ParseIP("10.0.0.9")},
		&net.IPNet{IP: net.ParseIP("192.168.1.20"), Mask: net.CIDRMask(24, 32)},
	}
	if got := firstLANAddress(addrs); !got.Equal(net.ParseIP("192.168.1.20")) {
		t.Errorf("expected 192.168.1.20, got %v", got)
	}
	if got := firstLANAddress(addrs[:2]); got != nil {
		t.Errorf("expected nil without a LAN IPv4 address, got %v", got)
	}
}
