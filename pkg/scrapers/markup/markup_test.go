package markup

import (
	"spedify/pkg/models"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func newTestExtractor() *Extractor {
	e := NewExtractor(zap.NewNop())
	e.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

const searchPage = `
<html><body>
<a class="flex text-left w-full" href="/apple-iphone-15-blue-128-gb-price-in-india-21-1001" title="Apple iPhone 15 (Blue, 128 GB)">
	<img src="https://buyhatke.com/site_icons/amazon.png">
	<img src="https://m.media-amazon.com/images/I/61bK6PMOC3L._SX679_.jpg" alt="iphone">
	<p class="font-semibold">₹69,900</p>
</a>
<a class="text-left w-full" href="https://www.flipkart.com/google-pixel-8/p/itm1">
	<p>Google Pixel 8 (Obsidian, 128 GB)</p>
	<span class="item-price">Rs. 52,999</span>
</a>
<a class="text-left w-full" href="/oneplus-12r-price-in-india-1">
	<img src="//img.buyhatke.com/images/p/abc123456789.jpg" alt="OnePlus 12R 5G">
</a>
<a class="text-left w-full" href=""><p>Ignored card without link</p></a>
</body></html>`

func TestExtractSearch(t *testing.T) {
	links := map[string]string{"apple iphone 15 (blue, 128 gb)": "https://www.amazon.in/dp/B0CHX1W1XY"}
	products := newTestExtractor().ExtractSearch(parse(t, searchPage), "iphone", links)

	if len(products) != 3 {
		t.Fatalf("Expected 3 products, got %d", len(products))
	}

	iphone := products[0]
	if iphone.ID != "html_product_1" || iphone.Name != "Apple iPhone 15 (Blue, 128 GB)" {
		t.Errorf("Unexpected first product: %+v", iphone)
	}
	if iphone.Platform != "Amazon" || iphone.PriceNumeric != 69900 || iphone.PriceDisplay != "₹69,900" {
		t.Errorf("Unexpected platform or price: %+v", iphone)
	}
	if iphone.ImageURL != "https://m.media-amazon.com/images/I/61bK6PMOC3L._SX679_.jpg" {
		t.Errorf("Expected product image, got %s", iphone.ImageURL)
	}
	if iphone.AggregatorDetailURL != "https://buyhatke.com/apple-iphone-15-blue-128-gb-price-in-india-21-1001" {
		t.Errorf("Unexpected detail url: %s", iphone.AggregatorDetailURL)
	}
	if iphone.RetailerURL != "https://www.amazon.in/dp/B0CHX1W1XY" {
		t.Errorf("Expected retailer url from script mapping, got %s", iphone.RetailerURL)
	}

	pixel := products[1]
	if pixel.Name != "Google Pixel 8 (Obsidian, 128 GB)" || pixel.Platform != "Flipkart" || pixel.PriceNumeric != 52999 {
		t.Errorf("Unexpected second product: %+v", pixel)
	}
	if pixel.RetailerURL != "https://www.flipkart.com/google-pixel-8/p/itm1" {
		t.Errorf("Expected absolute href as retailer url, got %s", pixel.RetailerURL)
	}
	if pixel.AggregatorDetailURL != "https://buyhatke.com/flipkart-google-pixel-8-obsidian-128-gb-price-in-india" {
		t.Errorf("Unexpected synthesized detail url: %s", pixel.AggregatorDetailURL)
	}

	oneplus := products[2]
	if oneplus.Name != "OnePlus 12R 5G" || oneplus.ImageURL != "https://img.buyhatke.com/images/p/abc123456789.jpg" {
		t.Errorf("Unexpected third product: %+v", oneplus)
	}
	if oneplus.PriceNumeric != 0 || oneplus.Availability != models.PriceNotAvailable {
		t.Errorf("Expected unknown price, got %+v", oneplus)
	}
}

func TestFindCards_Strategies(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"class strategy", searchPage, 4},
		{"href strategy", `<a href="/samsung-galaxy-s24-price-in-india-2" title="Samsung Galaxy S24 Ultra">x</a><a href="/about">About</a>`, 1},
		{"image strategy", `<a href="https://x.com/p"><img src="https://cdn.x.com/img/product-1.png" alt="Boat Airdopes 141"></a><a href="/about">About</a>`, 1},
		{"nothing", `<div>No cards</div>`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindCards(parse(t, tt.html)).Length(); got != tt.want {
				t.Errorf("Expected %d cards, got %d", tt.want, got)
			}
		})
	}
}

func TestExtractSearch_FallbackName(t *testing.T) {
	html := `<a class="text-left w-full" href="/p-price-in-india-1" title="TV"></a>`
	products := newTestExtractor().ExtractSearch(parse(t, html), "led tv", nil)
	if len(products) != 1 || products[0].Name != "Product from led tv - 1" {
		t.Errorf("Expected synthesized name, got %+v", products)
	}
}

func TestExtractComparison_Buttons(t *testing.T) {
	html := `<html><body>
	<button class="p-2 flex items-center gap-2 cursor-pointer">
		<p class="font-semibold capitalize">amazon</p>
		<p class="font-bold">₹54,900</p>
		<p class="highlightred">5% off</p>
		<p class="text-gray-500">Free delivery by Tomorrow</p>
	</button>
	<button class="p-2 flex items-center gap-2 cursor-pointer">
		<p class="font-semibold capitalize">flipkart</p>
		<p class="font-bold">₹52,000</p>
	</button>
	<button class="p-2 flex items-center gap-2 cursor-pointer">
		<p class="font-semibold capitalize">croma</p>
		<p class="font-bold">₹60,000</p>
	</button>
	<button class="p-2 flex items-center gap-2 cursor-pointer">
		<p class="font-semibold capitalize">flipkart</p>
		<p class="font-bold">₹52,000</p>
	</button>
	<button class="p-2 flex items-center gap-2 cursor-pointer" data-price="N/A">
		<p class="font-semibold capitalize">paytm</p>
	</button>
	</body></html>`

	entries := ExtractComparison(parse(t, html))
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d: %+v", len(entries), entries)
	}

	wantPlatforms := []string{"Flipkart", "Amazon", "Croma", "Paytm"}
	wantPrices := []float64{52000, 54900, 60000, 0}
	for i := range wantPlatforms {
		if entries[i].Platform != wantPlatforms[i] || entries[i].PriceNumeric != wantPrices[i] {
			t.Errorf("position %d: expected %s %v, got %s %v", i, wantPlatforms[i], wantPrices[i], entries[i].Platform, entries[i].PriceNumeric)
		}
	}

	amazon := entries[1]
	if amazon.Discount != "5% off" {
		t.Errorf("Expected discount '5%% off', got %q", amazon.Discount)
	}
	if amazon.DeliveryInfo != "Free delivery by Tomorrow" {
		t.Errorf("Expected delivery info, got %q", amazon.DeliveryInfo)
	}
	if entries[3].Availability != models.PriceNotAvailable {
		t.Errorf("Expected unparsable price to be marked, got %s", entries[3].Availability)
	}
}

func TestExtractComparison_DataAttributes(t *testing.T) {
	html := `<div data-platform="Croma" data-price="₹56,499"></div><div data-platform="Reliance Digital" data-price="55999"></div>`

	entries := ExtractComparison(parse(t, html))
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Platform != "Reliance Digital" || entries[0].PriceNumeric != 55999 {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[1].Platform != "Croma" || entries[1].PriceDisplay != "₹56,499" {
		t.Errorf("Unexpected second entry: %+v", entries[1])
	}
}

func TestExtractComparison_TextScan(t *testing.T) {
	html := `<div><span>Seller</span><p>Deal at ₹54,900 on Amazon today</p></div>`

	entries := ExtractComparison(parse(t, html))
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Platform != "Amazon" || entries[0].PriceNumeric != 54900 {
		t.Errorf("Unexpected entry: %+v", entries[0])
	}
}

func TestExtractComparison_Empty(t *testing.T) {
	if entries := ExtractComparison(parse(t, `<p>No prices here</p>`)); len(entries) != 0 {
		t.Errorf("Expected no entries, got %+v", entries)
	}
}

func TestEmbeddedPrices(t *testing.T) {
	html := `<html><head>
	<script>window.priceData = [{"site":"amazon","price":54900},{"store":"Croma","cost":"₹56,000"},{"site":"nobody"}];</script>
	<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"product":{"vendors":[{"vendor":"Tata CLiQ","sellingPrice":55500,"inStock":true}]}}}}</script>
	</head><body></body></html>`

	entries := EmbeddedPrices(parse(t, html))
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d: %+v", len(entries), entries)
	}
	want := map[string]float64{"Amazon": 54900, "Croma": 56000, "Tata CLiQ": 55500}
	for _, e := range entries {
		if want[e.Platform] != e.PriceNumeric {
			t.Errorf("Unexpected entry %+v", e)
		}
		if e.ExtractionMethod != models.MethodAdditionalData {
			t.Errorf("Expected additional_data method, got %s", e.ExtractionMethod)
		}
	}
}

func TestHiddenPrices(t *testing.T) {
	html := `<div style="display: none"><p>Myntra price ₹1,299</p></div><div class="collapsed">Paytm ₹1,350</div><div class="hidden">No retailer ₹10</div>`

	entries := HiddenPrices(parse(t, html))
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Platform != "Myntra" || entries[0].PriceNumeric != 1299 {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[1].Platform != "Paytm" || entries[1].ExtractionMethod != models.MethodHiddenElement {
		t.Errorf("Unexpected second entry: %+v", entries[1])
	}
}

func TestProductName(t *testing.T) {
	doc := parse(t, `<h1 class="capitalize">Apple iPhone 15 (Blue, 128 GB) - Amazon.in</h1>`)
	if got := ProductName(doc); got != "Apple iPhone 15 (Blue, 128 GB)" {
		t.Errorf("Expected trimmed title, got %q", got)
	}
	if got := ProductName(parse(t, `<div></div>`)); got != "" {
		t.Errorf("Expected empty name, got %q", got)
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := map[string]string{
		"//img.x.com/a.jpg":   "https://img.x.com/a.jpg",
		"/images/a.jpg":       "https://buyhatke.com/images/a.jpg",
		"https://img.x/a.jpg": "https://img.x/a.jpg",
		"img.x.com/a.jpg":     "https://img.x.com/a.jpg",
	}
	for in, want := range tests {
		if got := AbsoluteURL(in); got != want {
			t.Errorf("AbsoluteURL(%q) = %q, want %q", in, got, want)
		}
	}
}
