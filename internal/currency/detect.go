package currency

import "strings"

// DefaultCurrency is assumed when no marker matches. Most submissions in
// the book are Colombian.
const DefaultCurrency = "COP"

// currencyMarkers maps insured-name and filename substrings to the
// currency the related amounts are denominated in. Checked in order;
// first match wins.
var currencyMarkers = []struct {
	marker   string
	currency string
}{
	{"costeña", "MXN"},
	{"costena", "MXN"},
	{"conagua", "MXN"},
	{"magdalena", "COP"},
	{"antioquia", "COP"},
	{"colombia", "COP"},
}

// Detect infers the submission currency from any of the given identifying
// strings, typically the insured name and the uploaded filenames.
func Detect(hints ...string) string {
	for _, hint := range hints {
		h := strings.ToLower(hint)
		for _, m := range currencyMarkers {
			if strings.Contains(h, m.marker) {
				return m.currency
			}
		}
	}
	return DefaultCurrency
}
