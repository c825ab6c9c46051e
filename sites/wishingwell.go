package sites

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
	"github.com/saratoga-data/menuharvest/vision"
)

func init() { Register(wishingWell{}) }

// wishingWell combines the Wishing Well's PDF dining menu (vision) with the
// wine, cocktail, specials and happy hour pages, which render as menu-block
// divs of free-form paragraphs.
type wishingWell struct{}

const (
	wishingWellURL    = "https://www.wishingwellrestaurant.com/"
	wishingWellPDFURL = "https://www.wishingwellrestaurant.com/wp-content/uploads/2025/10/WW-New-Menu-10.27.25.pdf"
)

var wishingWellPages = []struct {
	url      string
	menuType string
	style    string // "wine", "cocktail" or "special"
}{
	{"https://www.wishingwellrestaurant.com/menus/wine/", "Wine", "wine"},
	{"https://www.wishingwellrestaurant.com/menus/cocktails/", "Cocktails", "cocktail"},
	{"https://www.wishingwellrestaurant.com/menus/specials/", "Specials", "special"},
	{"https://www.wishingwellrestaurant.com/menus/happy-hour/", "Happy Hour", "special"},
}

var (
	wwBinRe      = regexp.MustCompile(`^(?:Bin\s*#?\s*)?(\d+)\s+`)
	wwTailRe     = regexp.MustCompile(`([\d/]+)\s*$`)
	wwAnyPriceRe = regexp.MustCompile(`\$?([\d.]+)`)
)

func (wishingWell) Slug() string { return "wishingwellrestaurant_com" }
func (wishingWell) Restaurant() (string, string) {
	return "The Wishing Well Restaurant", wishingWellURL
}
func (wishingWell) NeedsBrowser() bool { return false }
func (wishingWell) NeedsVision() bool  { return true }

func (w wishingWell) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	name, siteURL := w.Restaurant()
	var all []models.Item

	if pdf, err := env.Fetch.GetPDF(ctx, wishingWellPDFURL); err != nil {
		slog.Warn("dining menu PDF download failed", "error", err)
	} else if items, verr := env.Vision.ExtractFromPDF(ctx, pdf, vision.MenuPrompt(name, siteURL, "Dining Room Menu")); verr != nil {
		slog.Warn("dining menu PDF extraction failed", "error", verr)
	} else {
		for i := range items {
			items[i].MenuType = "Dining Room"
			items[i].MenuName = "Dining Room Menu"
			if items[i].Section == "" {
				items[i].Section = "Menu"
			}
		}
		all = append(all, items...)
	}

	for _, page := range wishingWellPages {
		body, err := env.Fetch.Get(ctx, page.url,
			fetch.WithReferer("https://www.wishingwellrestaurant.com/menus/dining-room/"),
		)
		if err != nil {
			slog.Warn("menu page fetch failed", "url", page.url, "error", err)
			continue
		}
		items, perr := w.parseBlocks(body, page.menuType, page.style)
		if perr != nil {
			slog.Warn("menu page parse failed", "url", page.url, "error", perr)
			continue
		}
		all = append(all, items...)
	}

	if len(all) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeParse, "no menu source yielded items", nil)
	}
	return models.Dedupe(all), nil
}

// parseBlocks walks the menu-block divs. Each h2 names a section; each
// paragraph is one item whose trailing digits are the price.
func (w wishingWell) parseBlocks(body []byte, menuType, style string) ([]models.Item, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse menu page", err)
	}

	name, siteURL := w.Restaurant()
	var items []models.Item

	for _, block := range htmlquery.Find(doc, `//div[contains(@class,'menu-block')]`) {
		section := menuType
		if h2 := htmlquery.FindOne(block, `.//h2`); h2 != nil {
			if s := menutext.Clean(htmlquery.InnerText(h2)); s != "" {
				section = s
			}
		}

		for _, p := range htmlquery.Find(block, `.//p`) {
			text := menutext.Clean(htmlquery.InnerText(p))
			if len(text) < 3 {
				continue
			}

			var it models.Item
			var ok bool
			switch style {
			case "wine":
				it, ok = w.parseWineLine(p, text, section)
			case "cocktail":
				it, ok = w.parseCocktailLine(text, section)
			default:
				it, ok = w.parseSpecialLine(text, section)
			}
			if !ok {
				continue
			}

			it.MenuType = menuType
			it.MenuName = menuType
			it.RestaurantName = name
			it.RestaurantURL = siteURL
			items = append(items, it)
		}
	}
	return items, nil
}

// parseWineLine reads lines like "101 Chardonnay, Sonoma 18/72". A "18/72"
// tail is the glass and bottle price; an optional leading bin number joins
// the name.
func (w wishingWell) parseWineLine(p *html.Node, text, section string) (models.Item, bool) {
	low := strings.ToLower(text)
	switch low {
	case "white wines by the glass", "red wines by the glass", "wines by the glass":
		return models.Item{}, false
	}
	// Italic-only paragraphs without digits are tasting notes.
	if htmlquery.FindOne(p, `.//em`) != nil && !strings.ContainsAny(text, "0123456789") {
		return models.Item{}, false
	}

	binNum := ""
	if m := wwBinRe.FindStringSubmatch(text); m != nil {
		binNum = m[1]
		text = strings.TrimSpace(text[len(m[0]):])
	}

	m := wwTailRe.FindStringSubmatchIndex(text)
	if m == nil {
		return models.Item{}, false
	}
	price := formatWishingWellPrice(text[m[2]:m[3]], true)

	nameDesc := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text[:m[0]]), ","))
	itemName, desc := splitCommaNameDesc(nameDesc)
	if binNum != "" {
		itemName = "Bin #" + binNum + " " + itemName
	}
	if len(itemName) <= 2 {
		return models.Item{}, false
	}
	return models.Item{Name: itemName, Description: desc, Price: price, Section: section}, true
}

func (w wishingWell) parseCocktailLine(text, section string) (models.Item, bool) {
	m := wwTailRe.FindStringSubmatchIndex(text)
	if m == nil {
		return models.Item{}, false
	}
	price := formatWishingWellPrice(text[m[2]:m[3]], false)
	nameDesc := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text[:m[0]]), ","))
	itemName, desc := splitCommaNameDesc(nameDesc)
	if itemName == "" {
		return models.Item{}, false
	}
	return models.Item{Name: itemName, Description: desc, Price: price, Section: section}, true
}

func (w wishingWell) parseSpecialLine(text, section string) (models.Item, bool) {
	// Promo copy and contact lines slip into these pages.
	if len(text) > 500 || strings.Contains(strings.ToLower(text), "http") || strings.Contains(text, "@") {
		return models.Item{}, false
	}

	price := ""
	nameDesc := text
	if m := wwAnyPriceRe.FindStringSubmatch(text); m != nil {
		price = "$" + m[1]
		nameDesc = menutext.Clean(strings.Replace(text, m[0], "", 1))
	}

	itemName, desc := nameDesc, ""
	if idx := strings.Index(nameDesc, " - "); idx >= 0 {
		itemName, desc = strings.TrimSpace(nameDesc[:idx]), strings.TrimSpace(nameDesc[idx+3:])
	} else if idx := strings.Index(nameDesc, ":"); idx >= 0 {
		itemName, desc = strings.TrimSpace(nameDesc[:idx]), strings.TrimSpace(nameDesc[idx+1:])
	}

	if len(itemName) <= 2 || len(itemName) >= 200 {
		return models.Item{}, false
	}
	return models.Item{Name: itemName, Description: desc, Price: price, Section: section}, true
}

// splitCommaNameDesc treats the first comma field as the name and the rest
// as the description.
func splitCommaNameDesc(nameDesc string) (string, string) {
	parts := strings.Split(nameDesc, ",")
	itemName := strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return itemName, ""
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return itemName, strings.Join(parts[1:], ", ")
}

// formatWishingWellPrice renders "18/72" as Glass/Bottle pricing for wines
// and as "$18 | $72" elsewhere.
func formatWishingWellPrice(raw string, wine bool) string {
	if !strings.Contains(raw, "/") {
		return "$" + raw
	}
	prices := strings.Split(raw, "/")
	if wine && len(prices) == 2 {
		return "Glass $" + prices[0] + " | Bottle $" + prices[1]
	}
	for i, p := range prices {
		prices[i] = "$" + p
	}
	return strings.Join(prices, " | ")
}
