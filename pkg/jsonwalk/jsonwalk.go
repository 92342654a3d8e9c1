// Package jsonwalk searches decoded JSON documents for lists stored under known keys and reads
// fields through ordered alias tables.
package jsonwalk

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultMaxDepth bounds recursion on documents of unknown shape.
const DefaultMaxDepth = 8

// Aliases is an ordered list of field names; the first present one wins.
type Aliases []string

var (
	PlatformFields     = Aliases{"platform", "site", "store", "vendor", "seller", "name"}
	PriceFields        = Aliases{"price", "cost", "amount", "value", "finalPrice", "sellingPrice"}
	AvailabilityFields = Aliases{"availability", "status", "stock", "inStock"}
	URLFields          = Aliases{"url", "link"}
	DiscountFields     = Aliases{"discount", "savings"}
)

// Collect calls fn for every object found in a list stored under one of keys, at any depth up
// to maxDepth. Objects are visited in document order; map keys are visited in keys order.
func Collect(data any, keys []string, maxDepth int, fn func(obj map[string]any)) {
	collect(data, keys, maxDepth, fn)
}

func collect(data any, keys []string, depth int, fn func(map[string]any)) {
	if depth < 0 {
		return
	}
	switch v := data.(type) {
	case map[string]any:
		sorted := sortedKeys(v)
		for _, t := range keys {
			for _, k := range sorted {
				if !strings.EqualFold(k, t) {
					continue
				}
				list, ok := v[k].([]any)
				if !ok {
					continue
				}
				for _, item := range list {
					if obj, ok := item.(map[string]any); ok {
						fn(obj)
					}
				}
			}
		}
		for _, k := range sorted {
			if isTarget(k, keys) {
				if _, ok := v[k].([]any); ok {
					continue
				}
			}
			collect(v[k], keys, depth-1, fn)
		}
	case []any:
		for _, item := range v {
			collect(item, keys, depth-1, fn)
		}
	}
}

func isTarget(k string, keys []string) bool {
	for _, t := range keys {
		if strings.EqualFold(k, t) {
			return true
		}
	}
	return false
}

// Pick returns the first non-nil value stored under one of the aliases.
func Pick(obj map[string]any, aliases Aliases) (any, bool) {
	for _, name := range aliases {
		if v, ok := obj[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// PickString is Pick rendered as text. Numbers are formatted without exponent.
func PickString(obj map[string]any, aliases Aliases) string {
	v, ok := Pick(obj, aliases)
	if !ok {
		return ""
	}
	return Stringify(v)
}

func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
