package search

import (
	"regexp"
	"sort"
	"strings"
)

// styleKeywords is the whitelist of architectural and visual terms that turn
// free text into strict metadata filters.
var styleKeywords = map[string]struct{}{
	"indoor": {}, "garden": {}, "gardens": {}, "greenery": {}, "trees": {}, "plants": {},
	"glass": {}, "modern": {}, "classic": {}, "vault": {}, "arched": {}, "arches": {},
	"wood": {}, "bamboo": {}, "fabric": {}, "curved": {}, "color": {}, "bright": {},
	"lotus": {}, "heritage": {}, "spacious": {}, "art": {}, "biophilic": {},
	"beautiful": {}, "facade": {}, "facades": {},
}

// regionOrder fixes the region detection order; the first matching region
// wins.
var regionOrder = []string{"asia", "europe", "africa", "america", "oceania"}

var regionCountries = map[string][]string{
	"asia":    {"india", "china", "japan", "singapore", "uae", "indonesia", "korea", "thailand", "qatar"},
	"europe":  {"france", "uk", "germany", "italy", "switzerland", "spain", "netherlands", "turkey"},
	"africa":  {"south africa", "egypt", "ethiopia", "morocco"},
	"america": {"usa", "canada", "mexico", "brazil"},
	"oceania": {"australia", "new zealand"},
}

var wordPattern = regexp.MustCompile(`[a-zA-Z]+`)

// ExtractKeywords returns the whitelisted style keywords found in the query
// text, lowercased, deduplicated and sorted.
func ExtractKeywords(text string) []string {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)

	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if _, ok := styleKeywords[tok]; ok {
			seen[tok] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	keywords := make([]string, 0, len(seen))
	for kw := range seen {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	return keywords
}

// DetectRegion returns the country set of the first region whose name or
// member country appears in the query text, or nil when none matches.
func DetectRegion(text string) []string {
	lower := strings.ToLower(text)
	for _, region := range regionOrder {
		countries := regionCountries[region]
		if strings.Contains(lower, region) {
			return append([]string(nil), countries...)
		}
		for _, c := range countries {
			if strings.Contains(lower, c) {
				return append([]string(nil), countries...)
			}
		}
	}
	return nil
}

// Enrich folds keywords and region countries detected in the query text into
// the given filters. Explicitly set filters win over detected ones.
func Enrich(text string, filters Filters) Filters {
	var opts []FiltersOption
	if keywords := ExtractKeywords(text); len(keywords) > 0 && len(filters.Keywords()) == 0 {
		opts = append(opts, WithKeywords(keywords))
	}
	if countries := DetectRegion(text); len(countries) > 0 && len(filters.Countries()) == 0 {
		opts = append(opts, WithCountries(countries))
	}
	if len(opts) == 0 {
		return filters
	}
	return filters.Merge(NewFilters(opts...))
}
