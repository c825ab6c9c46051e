// Package menutext holds the price and text heuristics the site scrapers
// share. Everything here is regex glue; site-specific quirks stay in the
// site files.
package menutext

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceRe  = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d{1,2})?)`)
	numberRe = regexp.MustCompile(`[\d,]+(?:\.\d{1,2})?`)
	addonRe  = regexp.MustCompile(`(?i)(?:add|\+)\s+([A-Z][^,.]+?)(?:\s+\$(\d+(?:\.\d{2})?))?(?:[,.]|$)`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// sentinels are price strings passed through untouched.
var sentinels = map[string]string{
	"mp":           "MP",
	"market price": "Market Price",
	"market":       "Market Price",
}

// Clean normalizes scraped text: non-breaking spaces, mojibake leftovers and
// runs of whitespace.
func Clean(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, "Â", "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// ExtractPrice returns the first dollar price found in text ("$12.50"),
// or "" when there is none.
func ExtractPrice(text string) string {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return "$" + strings.ReplaceAll(m[1], ",", "")
}

// NormalizePrice forces a single leading $ onto a free-form price string.
// Known sentinels (MP, Market Price) pass through; anything without digits
// comes back empty.
func NormalizePrice(raw string) string {
	raw = Clean(raw)
	if raw == "" {
		return ""
	}
	if s, ok := sentinels[strings.ToLower(raw)]; ok {
		return s
	}
	m := numberRe.FindString(raw)
	if m == "" {
		return ""
	}
	return "$" + strings.ReplaceAll(m, ",", "")
}

// EnsureDollar forces a $ prefix onto every bare amount in a price string.
// Unlike NormalizePrice it preserves multi-price strings, so
// "Small 12 | Large 30" becomes "Small $12 | Large $30". Prices that already
// carry a $, known sentinels, and digit-free strings pass through.
func EnsureDollar(raw string) string {
	raw = Clean(raw)
	if raw == "" {
		return ""
	}
	if s, ok := sentinels[strings.ToLower(raw)]; ok {
		return s
	}
	if strings.Contains(raw, "$") {
		return raw
	}
	return numberRe.ReplaceAllString(raw, "$$$0")
}

// FormatAmount renders a numeric price as "$12" or "$12.5", trimming
// trailing zeros the way the storefront APIs report them.
func FormatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return "$" + s
}

// ExtractAddons pulls "add X $Y" / "+ X" patterns out of an item's text and
// renders them as an "Add-ons: ..." suffix for the description, or "" when
// none are present.
func ExtractAddons(text string) string {
	var addons []string
	for _, m := range addonRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || len(name) > 100 {
			continue
		}
		if m[2] != "" {
			addons = append(addons, name+" +$"+m[2])
		} else {
			addons = append(addons, name)
		}
	}
	if len(addons) == 0 {
		return ""
	}
	return "Add-ons: " + strings.Join(addons, " / ")
}
