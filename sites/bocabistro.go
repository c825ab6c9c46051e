package sites

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
)

func init() { Register(bocaBistro{}) }

// bocaBistro reads the SinglePlatform menu widget bocabistro.com embeds in
// an iframe. Each menu is a separate widget document keyed by display_menu.
type bocaBistro struct{}

const bocaWidgetAPIKey = "ke09z8icq4xu8uiiccighy1bw"

// Widget menu IDs, discovered from the embed markup. Wine and Bar span
// several IDs that share a label.
var bocaMenus = []struct {
	id   int
	name string
}{
	{1826557, "Lunch"},
	{1826548, "Dinner"},
	{3602541, "Brunch"},
	{1826518, "Wine"},
	{4084039, "Wine"},
	{1826513, "Bar"},
	{1826515, "Bar"},
	{4456918, "Bar"},
	{4205378, "Bar"},
	{4510664, "Bar"},
	{4976717, "Bar"},
	{4000880, "Siesta"},
	{6210883, "Flights & Bites"},
	{1947377, "DZ at Home"},
}

// The widget markup is stable, so the selectors are compiled once.
var (
	bocaTitleSel      = cascadia.MustCompile("h2.menu-title")
	bocaMenuSel       = cascadia.MustCompile("div.menu")
	bocaSectionSel    = cascadia.MustCompile("div.section")
	bocaItemTitleSel  = cascadia.MustCompile("h4.item-title")
	bocaTitleRowSel   = cascadia.MustCompile("div.item-title-row")
	bocaMultipriceSel = cascadia.MustCompile("div.multiprice-group div.multiprice")
	bocaAddonSel      = cascadia.MustCompile("div.addon")
)

var bocaItemClassRe = regexp.MustCompile(`\bitem\b`)
var bocaBareAmountRe = regexp.MustCompile(`(\d+\.?\d*)`)

func (bocaBistro) Slug() string                 { return "bocabistro_com" }
func (bocaBistro) Restaurant() (string, string) { return "Boca Bistro", "https://bocabistro.com/" }
func (bocaBistro) NeedsBrowser() bool           { return false }
func (bocaBistro) NeedsVision() bool            { return false }

func (b bocaBistro) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	var all []models.Item
	for _, menu := range bocaMenus {
		items, err := b.scrapeWidget(ctx, env, menu.id, menu.name)
		if err != nil {
			slog.Warn("menu widget failed", "menu", menu.name, "id", menu.id, "error", err)
			continue
		}
		all = append(all, items...)
	}
	if len(all) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeParse, "no menu widgets yielded items", nil)
	}
	return models.Dedupe(all), nil
}

func (b bocaBistro) scrapeWidget(ctx context.Context, env *Env, menuID int, menuName string) ([]models.Item, error) {
	widgetURL := fmt.Sprintf(
		"https://places.singleplatform.com/boca-bistro/menu_widget?api_key=%s&display_menu=%d&hide_cover_photo=true&hide_disclaimer=true&widget_background_color=%s",
		bocaWidgetAPIKey, menuID, url.QueryEscape("rgba(0, 0, 0, 0)"),
	)

	// The widget expects iframe-shaped requests from the restaurant's page.
	body, err := env.Fetch.Get(ctx, widgetURL,
		fetch.WithReferer("https://bocabistro.com/"),
		fetch.WithHeader("Sec-Fetch-Dest", "iframe"),
		fetch.WithHeader("Sec-Fetch-Mode", "navigate"),
		fetch.WithHeader("Sec-Fetch-Site", "cross-site"),
	)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse menu widget", err)
	}

	name, siteURL := b.Restaurant()
	var items []models.Item

	doc.FindMatcher(bocaTitleSel).Each(func(_ int, title *goquery.Selection) {
		container := title.ParentsFiltered("div.menu").First()
		if container.Length() == 0 {
			container = title.NextAllFiltered("div.menu").First()
		}
		if container.Length() == 0 {
			return
		}

		container.FindMatcher(bocaSectionSel).Each(func(_ int, section *goquery.Selection) {
			sectionName := menutext.Clean(section.Find("div.title h3").First().Text())
			if sectionName == "" {
				sectionName = "Menu"
			}
			sectionAddons := bocaSectionAddons(section)

			section.Children().Each(func(_ int, el *goquery.Selection) {
				b.walkItems(el, menuName, sectionName, sectionAddons, name, siteURL, &items)
			})
		})
	})

	return items, nil
}

// walkItems descends el collecting divs whose class contains "item" and that
// carry an item-title-row, which separates real items from section notes.
func (b bocaBistro) walkItems(el *goquery.Selection, menuName, sectionName, sectionAddons, name, siteURL string, items *[]models.Item) {
	cls, _ := el.Attr("class")
	if goquery.NodeName(el) == "div" && bocaItemClassRe.MatchString(cls) &&
		el.FindMatcher(bocaTitleRowSel).Length() > 0 {
		if it, ok := b.parseItem(el, menuName, sectionName, sectionAddons, name, siteURL); ok {
			*items = append(*items, it)
		}
		return
	}
	el.Children().Each(func(_ int, child *goquery.Selection) {
		b.walkItems(child, menuName, sectionName, sectionAddons, name, siteURL, items)
	})
}

func (b bocaBistro) parseItem(el *goquery.Selection, menuName, sectionName, sectionAddons, name, siteURL string) (models.Item, bool) {
	itemName := menutext.Clean(el.FindMatcher(bocaItemTitleSel).First().Text())
	if itemName == "" {
		return models.Item{}, false
	}

	desc := ""
	el.Find("div.description.text").EachWithBreak(func(_ int, d *goquery.Selection) bool {
		text := menutext.Clean(d.Text())
		if text != "" && !strings.EqualFold(text, "small plates") && !strings.EqualFold(text, "small plate") {
			desc = text
			return false
		}
		return true
	})

	if addons := bocaItemAddons(el); len(addons) > 0 {
		if desc != "" {
			desc = desc + ". " + strings.Join(addons, " | ")
		} else {
			desc = strings.Join(addons, " | ")
		}
	}

	// Section-level "Add Chicken for $8..." notes only apply to salads
	// and bowls on this menu.
	low := strings.ToLower(itemName)
	if sectionAddons != "" && (strings.Contains(low, "salad") || strings.Contains(low, "bowl")) {
		if desc != "" {
			desc = desc + ". " + sectionAddons
		} else {
			desc = sectionAddons
		}
	}

	price := menutext.Clean(el.FindMatcher(bocaTitleRowSel).First().Find("span.price").First().Text())
	if price == "" {
		var parts []string
		el.FindMatcher(bocaMultipriceSel).Each(func(_ int, mp *goquery.Selection) {
			title := menutext.Clean(mp.Find("span.title").First().Text())
			val := menutext.Clean(mp.Find("span.price").First().Text())
			if title != "" && val != "" {
				parts = append(parts, val+" ("+title+")")
			}
		})
		price = strings.Join(parts, " | ")
	}
	if price != "" && !strings.HasPrefix(price, "$") {
		if m := bocaBareAmountRe.FindStringSubmatch(price); m != nil {
			price = strings.Replace(price, m[1], "$"+m[1], 1)
		}
	}

	// Descriptions consisting only of add-on text mark pseudo-items.
	if strings.HasPrefix(desc, "Add ") && strings.Contains(desc, "for $") {
		return models.Item{}, false
	}

	return models.Item{
		Name:           strings.ToUpper(itemName),
		Description:    desc,
		Price:          price,
		Section:        sectionName,
		MenuType:       strings.ToUpper(menuName) + " - " + strings.ToUpper(sectionName),
		MenuName:       menuName,
		RestaurantName: name,
		RestaurantURL:  siteURL,
	}, true
}

// bocaSectionAddons finds a section-wide "Add X for $Y" note.
func bocaSectionAddons(section *goquery.Selection) string {
	out := ""
	section.Find("div.description.text").EachWithBreak(func(_ int, d *goquery.Selection) bool {
		text := menutext.Clean(d.Text())
		if text != "" && strings.Contains(strings.ToLower(text), "add") {
			out = text
			return false
		}
		return true
	})
	return out
}

// bocaItemAddons collects per-item addon rows ("Add Chorizo $5.00").
func bocaItemAddons(el *goquery.Selection) []string {
	var addons []string
	el.FindMatcher(bocaAddonSel).Each(func(_ int, addon *goquery.Selection) {
		title := menutext.Clean(addon.Find("span.title li").First().Text())
		if title == "" {
			title = menutext.Clean(addon.Find("span.title").First().Text())
		}
		price := menutext.Clean(addon.Find("span.price li").First().Text())
		if price == "" {
			price = menutext.Clean(addon.Find("span.price").First().Text())
		}
		if title == "" || price == "" {
			return
		}
		if !strings.HasPrefix(price, "$") {
			price = "$" + price
		}
		addons = append(addons, title+" "+price)
	})
	return addons
}
