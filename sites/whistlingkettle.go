package sites

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/saratoga-data/menuharvest/browser"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
)

func init() { Register(whistlingKettle{}) }

// whistlingKettle renders the cafe menu app at cafe.thewhistlingkettle.com.
// The page is a client-side tab widget; every tab has to be clicked before
// its panel exists in the DOM.
type whistlingKettle struct{}

const kettleMenuURL = "https://cafe.thewhistlingkettle.com/menu"

func (whistlingKettle) Slug() string { return "thewhistlingkettle_com" }
func (whistlingKettle) Restaurant() (string, string) {
	return "The Whistling Kettle", "https://www.thewhistlingkettle.com/"
}
func (whistlingKettle) NeedsBrowser() bool { return true }
func (whistlingKettle) NeedsVision() bool  { return false }

func (w whistlingKettle) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	session, err := env.Browser()
	if err != nil {
		return nil, err
	}

	name, siteURL := w.Restaurant()
	var items []models.Item

	_, err = session.Render(ctx, browser.Request{
		URL: kettleMenuURL,
		// Shopify storefronts behave better with session markers present.
		Cookies: []*http.Cookie{
			{Name: "_shopify_y", Value: "b27f8a39-e625-4d04-9898-7e7bb24a45e2", Domain: ".thewhistlingkettle.com", Path: "/"},
			{Name: "_shopify_s", Value: "9afb260b-7e96-4e9c-b70b-13a5caa73d45", Domain: ".thewhistlingkettle.com", Path: "/"},
		},
		TabSelector: `button[role="tab"]`,
		OnTab: func(label, html string) error {
			section := menutext.Clean(label)
			tabItems, parseErr := w.parseTabPanel(html, section, name, siteURL)
			if parseErr != nil {
				return parseErr
			}
			items = append(items, tabItems...)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return models.Dedupe(items), nil
}

// parseTabPanel reads the active tab's panel out of the rendered DOM. The
// panel is matched to the tab through aria-labelledby; when the widget does
// not expose that, the first panel with list items wins.
func (w whistlingKettle) parseTabPanel(html, section, name, siteURL string) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse tab panel", err)
	}

	panel := w.findPanel(doc, section)
	if panel == nil {
		return nil, nil
	}

	var items []models.Item
	panel.Find("li").Each(func(_ int, li *goquery.Selection) {
		if it, ok := w.parseMenuItem(li, section, name, siteURL); ok {
			items = append(items, it)
		}
	})
	return items, nil
}

func (whistlingKettle) findPanel(doc *goquery.Document, section string) *goquery.Selection {
	var match *goquery.Selection
	doc.Find(`div[role="tabpanel"]`).EachWithBreak(func(_ int, panel *goquery.Selection) bool {
		labelledBy, _ := panel.Attr("aria-labelledby")
		if labelledBy != "" {
			trigger := doc.Find("button#" + labelledBy).First()
			if menutext.Clean(trigger.Text()) == section {
				match = panel
				return false
			}
		}
		return true
	})
	if match != nil {
		return match
	}

	doc.Find(`div[role="tabpanel"]`).EachWithBreak(func(_ int, panel *goquery.Selection) bool {
		if panel.Find("li").Length() > 0 {
			match = panel
			return false
		}
		return true
	})
	return match
}

func (whistlingKettle) parseMenuItem(li *goquery.Selection, section, name, siteURL string) (models.Item, bool) {
	itemName := menutext.Clean(li.Find("strong").First().Text())
	if itemName == "" {
		return models.Item{}, false
	}

	desc := menutext.Clean(li.Find("p").First().Text())

	// Dietary badges render as rounded pills next to the name.
	var dietary []string
	li.Find("div.inline-flex.items-center.rounded-full").Each(func(_ int, badge *goquery.Selection) {
		text := menutext.Clean(badge.Text())
		for _, seen := range dietary {
			if seen == text {
				return
			}
		}
		if text != "" {
			dietary = append(dietary, text)
		}
	})
	if len(dietary) > 0 {
		desc = strings.TrimSpace(desc + " (" + strings.Join(dietary, ", ") + ")")
	}

	allText := menutext.Clean(li.Text())
	if addons := menutext.ExtractAddons(allText); addons != "" {
		if desc != "" {
			desc = desc + ". " + addons
		} else {
			desc = addons
		}
	}

	return models.Item{
		Name:           itemName,
		Description:    desc,
		Price:          menutext.ExtractPrice(allText),
		Section:        section,
		MenuType:       "Menu",
		MenuName:       section,
		RestaurantName: name,
		RestaurantURL:  siteURL,
	}, true
}
