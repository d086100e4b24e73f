// Package markets validates the featured market keys arbiter polls and
// detects on, adapted from Mercury's per-sport market list into a single
// generic set (spec §6's markets config option).
package markets

import "fmt"

const (
	H2H     = "h2h"
	Spreads = "spreads"
	Totals  = "totals"
)

// Featured is the full set of supported market keys.
var Featured = []string{H2H, Spreads, Totals}

var featuredSet = map[string]bool{H2H: true, Spreads: true, Totals: true}

// IsFeatured reports whether key is one of the three supported market
// keys.
func IsFeatured(key string) bool { return featuredSet[key] }

// HasPoint reports whether a market key carries a spread/total line.
func HasPoint(key string) bool { return key == Spreads || key == Totals }

// Validate checks a CSV-derived market key list against the supported set,
// returning the first unsupported key as an error.
func Validate(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("markets: at least one market key is required")
	}
	for _, k := range keys {
		if !IsFeatured(k) {
			return fmt.Errorf("markets: unsupported market key %q", k)
		}
	}
	return nil
}
