// Package extract pulls engagement metrics out of loosely structured
// provider responses: raw post HTML, embedded ld+json blocks, and nested
// JSON payloads with inconsistent field names.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// compactNumberRe matches compact counts like "12.5k" or "3m".
var compactNumberRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)([kmb])$`)

// Number coerces a loosely typed value into an integer count.
//
// nil and bool yield nil. Numeric values are truncated. Strings are trimmed,
// stripped of comma separators and lower-cased, then parsed either as a
// compact count ("12.5k", "3m", "1b") or as plain digits. Anything else
// yields nil; Number never fails.
func Number(v any) *int64 {
	switch n := v.(type) {
	case nil:
		return nil
	case bool:
		return nil
	case int:
		return ptr(int64(n))
	case int64:
		return ptr(n)
	case float64:
		return ptr(int64(n))
	case string:
		return numberFromString(n)
	}
	return nil
}

func numberFromString(s string) *int64 {
	cleaned := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if m := compactNumberRe.FindStringSubmatch(cleaned); m != nil {
		base, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		mult := map[string]float64{"k": 1_000, "m": 1_000_000, "b": 1_000_000_000}[m[2]]
		return ptr(int64(base * mult))
	}
	if cleaned != "" && allDigits(cleaned) {
		n, err := strconv.ParseInt(cleaned, 10, 64)
		if err != nil {
			return nil
		}
		return ptr(n)
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func ptr(n int64) *int64 {
	return &n
}
