package sites

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
)

func init() { Register(morrisseys{}) }

// morrisseys parses the dine-in menus page at morrisseyslounge.com. The page
// ships every menu as a pre-rendered tab pane, so one fetch covers all tabs.
type morrisseys struct{}

// Tab pane IDs and their menu labels as the theme renders them.
var morrisseysTabs = []struct {
	paneID   string
	menuType string
}{
	{"tab-breakfast", "Breakfast"},
	{"tab-brunch", "Brunch"},
	{"tab-lunch", "Lunch"},
	{"tab-sushi", "Sushi"},
	{"tab-dinner", "Dinner"},
	{"tab-dessert", "Dessert"},
	{"tab-libations", "Libations"},
}

func (morrisseys) Slug() string { return "morrisseyslounge_com" }
func (morrisseys) Restaurant() (string, string) {
	return "Morrissey's Lounge & Bistro", "https://morrisseyslounge.com/"
}
func (morrisseys) NeedsBrowser() bool { return false }
func (morrisseys) NeedsVision() bool  { return false }

func (m morrisseys) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	body, err := env.Fetch.Get(ctx, "https://morrisseyslounge.com/home/dinein-menus/",
		fetch.WithReferer("https://morrisseyslounge.com/"),
	)
	if err != nil {
		return nil, err
	}
	return m.parseMenus(body)
}

func (m morrisseys) parseMenus(body []byte) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse menus page", err)
	}

	var items []models.Item
	for _, tab := range morrisseysTabs {
		pane := doc.Find("div#" + tab.paneID)
		if pane.Length() == 0 {
			continue
		}
		items = append(items, m.parsePane(pane, tab.menuType)...)
	}
	return items, nil
}

// parsePane walks one tab pane in document order. An h5 starts a new section
// that applies to every nectar_food_menu_item until the next h5.
func (m morrisseys) parsePane(pane *goquery.Selection, menuType string) []models.Item {
	name, url := m.Restaurant()
	section := menuType

	var items []models.Item
	pane.Find("h5, div.nectar_food_menu_item").Each(func(_ int, el *goquery.Selection) {
		if goquery.NodeName(el) == "h5" {
			if s := menutext.Clean(el.Text()); s != "" {
				section = s
			}
			return
		}

		itemName := menutext.Clean(el.Find("div.item_name h4").First().Text())
		if itemName == "" {
			return
		}
		price := menutext.Clean(el.Find("div.item_price h4").First().Text())
		desc := menutext.Clean(el.Find("div.item_description").First().Text())

		// Bare names with neither price nor description are decorative.
		if price == "" && desc == "" {
			return
		}

		items = append(items, models.Item{
			Name:           itemName,
			Description:    desc,
			Price:          price,
			Section:        section,
			MenuType:       menuType,
			MenuName:       section,
			RestaurantName: name,
			RestaurantURL:  url,
		})
	})
	return items
}
