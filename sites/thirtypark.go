package sites

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/saratoga-data/menuharvest/browser"
	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
	"github.com/saratoga-data/menuharvest/vision"
)

func init() { Register(thirtyPark{}) }

// thirtyPark parses the tabbed menu at 30parkcp.com/restaurant/. The tabs
// are server-rendered, so a plain fetch usually suffices; when the page
// comes back as an app shell the browser renders it, and when the markup
// defeats the selectors entirely the text goes to the vision model.
type thirtyPark struct{}

const (
	thirtyParkURL     = "https://www.30parkcp.com/"
	thirtyParkMenuURL = "https://www.30parkcp.com/restaurant/"
)

// Tab labels as printed on the menu page.
var thirtyParkTabs = []string{
	"Happy Hour", "Snacks", "Soup & Salad", "Appetizers",
	"Handful", "Knife & Fork", "Drinks", "Sweet Treats",
}

var (
	// "– 2 FOR $8" style prices embedded in the item name.
	tpDollarPriceRe = regexp.MustCompile(`[\s–-]*(?:\d+\s+)?(?:FOR|for)?\s*\$\s*(\d+(?:\s*\|\s*\d+)?)`)
	tpDollarTailRe  = regexp.MustCompile(`[\s–-]*(?:\d+\s+)?(?:FOR|for)?\s*\$\s*\d+(?:\s*\|\s*\d+)?.*$`)
	// Bare trailing amounts: "CHEESE CURDS 6 | 10".
	tpTrailPriceRe = regexp.MustCompile(`[\s$]*(\d+(?:\s*\|\s*\d+)?)\s*$`)
	tpTrailTailRe  = regexp.MustCompile(`[\s–-]*(?:\d+\s+)?(?:FOR|for)?\s*[\s$]*\d+(?:\s*\|\s*\d+)?\s*$`)
	tpDashTailRe   = regexp.MustCompile(`[\s–-]+$`)
	tpLeadDashRe   = regexp.MustCompile(`^\s*[-–]\s*`)
	// Wine lists: "Josh Cellar (CA) – GLS 12 | BTL 38".
	tpWineGlsBtlRe = regexp.MustCompile(`(?i)([A-Za-z\s&!]+?)\s*\([^)]+\)\s*[–-]?\s*(?:GLS|GLAS)\s*(\d+)\s*\|\s*BTL\s*(\d+)`)
	tpWineGlsRe    = regexp.MustCompile(`(?i)([A-Za-z\s&!]+?)\s*\([^)]+\)\s*[–-]?\s*(?:GLS|GLAS)\s*(\d+)(\s*\|\s*BTL)?`)
	tpGlsBtlNameRe = regexp.MustCompile(`(?i)(?:GLS|GLAS)\s*(\d+)\s*\|\s*BTL\s*(\d+)`)
	tpGlsTailRe    = regexp.MustCompile(`(?i)[\s–-]*(?:GLS|GLAS)\s*\d+.*$`)
	// Unstyled lines like "Razzle Dazzle 11".
	tpBareLineRe = regexp.MustCompile(`^([A-Za-z\s&']+?)\s+(\d+)(?:\s+\|?\s*\d+)?(?:\s|$)`)
)

func (thirtyPark) Slug() string                 { return "30parkcp_com" }
func (thirtyPark) Restaurant() (string, string) { return "30 Park", thirtyParkURL }
func (thirtyPark) NeedsBrowser() bool           { return true }
func (thirtyPark) NeedsVision() bool            { return true }

func (t thirtyPark) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	body, err := env.Fetch.Get(ctx, thirtyParkMenuURL, fetch.WithReferer(thirtyParkURL))
	if err != nil {
		return nil, err
	}

	html := string(body)
	if fetch.NeedsBrowser(body) {
		session, berr := env.Browser()
		if berr != nil {
			return nil, berr
		}
		html, err = session.Render(ctx, browser.Request{URL: thirtyParkMenuURL})
		if err != nil {
			return nil, err
		}
	}

	items, err := t.parseTabs(html)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return models.Dedupe(items), nil
	}

	// Selector miss: hand the flattened page to the vision model.
	slog.Warn("tab selectors yielded nothing, falling back to text extraction")
	if !env.Vision.Enabled() {
		return nil, models.NewScrapeError(models.ErrCodeParse,
			"tab selectors yielded nothing and no vision key is configured", nil)
	}
	md, err := vision.PrepareHTML(html, thirtyParkMenuURL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "flatten menu page", err)
	}
	name, siteURL := t.Restaurant()
	return env.Vision.ExtractFromText(ctx, md, vision.MenuPrompt(name, siteURL, "Menu"))
}

func (t thirtyPark) parseTabs(html string) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse menu page", err)
	}

	panels := doc.Find(`div[role="tabpanel"]`)
	name, siteURL := t.Restaurant()

	var items []models.Item
	for i, tabName := range thirtyParkTabs {
		var panel *goquery.Selection
		if i < panels.Length() {
			panel = panels.Eq(i)
		} else {
			panels.EachWithBreak(func(_ int, p *goquery.Selection) bool {
				heading := strings.ToLower(p.Find("h2, h3").First().Text())
				if strings.Contains(heading, strings.ToLower(tabName)) {
					panel = p
					return false
				}
				return true
			})
		}
		if panel == nil {
			continue
		}

		panel.Find("li").Each(func(_ int, li *goquery.Selection) {
			items = append(items, t.parseListItem(li, tabName, name, siteURL)...)
		})
	}
	return items, nil
}

// parseListItem handles the page's three item shapes: a strong name carrying
// a trailing price, wine entries expanding into one item per bottle, and
// bare "Name 11" lines without any markup.
func (t thirtyPark) parseListItem(li *goquery.Selection, tabName, name, siteURL string) []models.Item {
	text := menutext.Clean(li.Text())
	strong := menutext.Clean(li.Find("strong").First().Text())

	if strong == "" {
		m := tpBareLineRe.FindStringSubmatch(text)
		if m == nil || len(strings.TrimSpace(m[1])) <= 2 {
			return nil
		}
		itemName := strings.TrimSpace(m[1])
		desc := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(text, itemName, ""), m[2], ""))
		desc = tpLeadDashRe.ReplaceAllString(desc, "")
		return []models.Item{{
			Name:           strings.ToUpper(itemName),
			Description:    strings.TrimSpace(desc),
			Price:          "$" + m[2],
			Section:        tabName,
			MenuType:       tabName,
			MenuName:       tabName,
			RestaurantName: name,
			RestaurantURL:  siteURL,
		}}
	}

	// Wine entries expand to one item per labeled bottle.
	if wines := t.parseWines(strong, text, tabName, name, siteURL); wines != nil {
		return wines
	}

	itemName, price := splitNamePrice(strong)
	if len(itemName) < 2 {
		return nil
	}

	desc := strings.TrimSpace(strings.Replace(text, strong, "", 1))
	desc = strings.TrimSpace(tpLeadDashRe.ReplaceAllString(desc, ""))

	return []models.Item{{
		Name:           itemName,
		Description:    desc,
		Price:          formatThirtyParkPrice(price),
		Section:        tabName,
		MenuType:       tabName,
		MenuName:       tabName,
		RestaurantName: name,
		RestaurantURL:  siteURL,
	}}
}

func (t thirtyPark) parseWines(strong, text, tabName, name, siteURL string) []models.Item {
	glsBtl := tpWineGlsBtlRe.FindAllStringSubmatch(text, -1)
	var glsOnly [][]string
	for _, m := range tpWineGlsRe.FindAllStringSubmatch(text, -1) {
		if m[3] == "" {
			glsOnly = append(glsOnly, m)
		}
	}
	if len(glsBtl) == 0 && len(glsOnly) == 0 {
		// Single-wine names like "PINOT NOIR – GLS 12 | BTL 46".
		if m := tpGlsBtlNameRe.FindStringSubmatch(strong); m != nil {
			base := strings.TrimSpace(tpDashTailRe.ReplaceAllString(tpGlsTailRe.ReplaceAllString(strong, ""), ""))
			return []models.Item{{
				Name:           base,
				Price:          "$" + m[1] + " (glass) | $" + m[2] + " (bottle)",
				Section:        tabName,
				MenuType:       tabName,
				MenuName:       tabName,
				RestaurantName: name,
				RestaurantURL:  siteURL,
			}}
		}
		return nil
	}

	base := strings.TrimSpace(tpDashTailRe.ReplaceAllString(tpGlsTailRe.ReplaceAllString(strong, ""), ""))
	seen := map[string]struct{}{}
	var items []models.Item

	add := func(wineName, price string) {
		full := strings.ToUpper(strings.TrimSpace(base + " " + wineName))
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}
		items = append(items, models.Item{
			Name:           full,
			Price:          price,
			Section:        tabName,
			MenuType:       tabName,
			MenuName:       tabName,
			RestaurantName: name,
			RestaurantURL:  siteURL,
		})
	}

	for _, m := range glsBtl {
		wineName := strings.TrimSpace(m[1])
		if strings.HasPrefix(strings.ToUpper(wineName), strings.ToUpper(base)) {
			wineName = strings.TrimSpace(wineName[len(base):])
		}
		add(wineName, "$"+m[2]+" (glass) | $"+m[3]+" (bottle)")
	}
	for _, m := range glsOnly {
		wineName := strings.TrimSpace(m[1])
		if strings.HasPrefix(strings.ToUpper(wineName), strings.ToUpper(base)) {
			wineName = strings.TrimSpace(wineName[len(base):])
		}
		add(wineName, "$"+m[2])
	}
	return items
}

// splitNamePrice peels the trailing price off a strong-tag heading.
func splitNamePrice(heading string) (string, string) {
	if m := tpDollarPriceRe.FindStringSubmatch(heading); m != nil {
		name := tpDashTailRe.ReplaceAllString(tpDollarTailRe.ReplaceAllString(heading, ""), "")
		return strings.TrimSpace(name), strings.TrimSpace(m[1])
	}
	if m := tpTrailPriceRe.FindStringSubmatch(heading); m != nil {
		name := tpDashTailRe.ReplaceAllString(tpTrailTailRe.ReplaceAllString(heading, ""), "")
		return strings.TrimSpace(name), strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(heading), ""
}

// formatThirtyParkPrice renders "6 | 10" as "$6 (small) | $10 (large)".
func formatThirtyParkPrice(price string) string {
	if price == "" {
		return ""
	}
	if strings.Contains(price, "|") {
		parts := strings.Split(price, "|")
		if len(parts) == 2 {
			return "$" + strings.TrimSpace(parts[0]) + " (small) | $" + strings.TrimSpace(parts[1]) + " (large)"
		}
		for i, p := range parts {
			parts[i] = "$" + strings.TrimSpace(p)
		}
		return strings.Join(parts, " | ")
	}
	return "$" + price
}
