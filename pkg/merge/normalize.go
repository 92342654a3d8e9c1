package merge

import (
	"spedify/pkg/jsonwalk"
	"spedify/pkg/models"
	"spedify/pkg/platform"
	"spedify/pkg/price"
	"strings"
)

// NormalizeEntry reads a loosely shaped price object through the alias tables. ok is false
// when the object names no platform or carries no usable price.
func NormalizeEntry(obj map[string]any, method string) (models.PlatformPriceEntry, bool) {
	name := jsonwalk.PickString(obj, jsonwalk.PlatformFields)
	name = platform.Normalize(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return models.PlatformPriceEntry{}, false
	}

	raw, _ := jsonwalk.Pick(obj, jsonwalk.PriceFields)
	var v float64
	switch p := raw.(type) {
	case float64:
		v = p
	case string:
		v = price.ParseNumeric(p)
	}
	if v <= 0 {
		return models.PlatformPriceEntry{}, false
	}

	avail, _ := jsonwalk.Pick(obj, jsonwalk.AvailabilityFields)
	return models.PlatformPriceEntry{
		Platform:         name,
		PriceDisplay:     price.FormatDisplay(v),
		PriceNumeric:     v,
		Availability:     Availability(avail),
		RetailerURL:      jsonwalk.PickString(obj, jsonwalk.URLFields),
		Discount:         jsonwalk.PickString(obj, jsonwalk.DiscountFields),
		ExtractionMethod: method,
	}, true
}

// Availability maps free-form stock values onto the fixed availability labels.
func Availability(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return models.Available
		}
		return models.OutOfStock
	case float64:
		if t > 0 {
			return models.Available
		}
		return models.OutOfStock
	case string:
		s := strings.ToLower(t)
		switch {
		case strings.Contains(s, "out"), strings.Contains(s, "unavailable"), s == "false", s == "0":
			return models.OutOfStock
		case strings.Contains(s, "limited"), strings.Contains(s, "few left"):
			return models.LimitedStock
		}
	}
	return models.Available
}
