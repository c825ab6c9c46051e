package sites

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
)

func init() { Register(kruCoffee{}) }

// kruCoffee reads the Webflow storefront at krucoffee.com. Only the coffee
// category sells menu-like goods; apparel and accessories are skipped.
type kruCoffee struct{}

func (kruCoffee) Slug() string                  { return "krucoffee_com" }
func (kruCoffee) Restaurant() (string, string)  { return "Kru Coffee", "https://www.krucoffee.com/" }
func (kruCoffee) NeedsBrowser() bool            { return false }
func (kruCoffee) NeedsVision() bool             { return false }

func (k kruCoffee) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	body, err := env.Fetch.Get(ctx, "https://www.krucoffee.com/category/coffee",
		fetch.WithReferer("https://www.krucoffee.com/"),
	)
	if err != nil {
		return nil, err
	}
	return k.parseCategory(body, "Coffee")
}

func (k kruCoffee) parseCategory(body []byte, menuType string) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse category page", err)
	}

	name, url := k.Restaurant()
	var items []models.Item

	doc.Find("div.collection-item").Each(func(_ int, card *goquery.Selection) {
		// Cards without a /product/ link are layout filler.
		link := card.Find("a[href*='/product/']")
		if link.Length() == 0 {
			return
		}
		itemName := menutext.Clean(card.Find("div.product-name-text").Text())
		if itemName == "" {
			return
		}

		// Price renders as "$ 18.00 USD" with non-breaking spaces.
		price := menutext.ExtractPrice(menutext.Clean(card.Find("div.product-price-text").Text()))

		desc := ""
		card.Find("p, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			cls, _ := s.Attr("class")
			low := strings.ToLower(cls)
			if strings.Contains(low, "description") || strings.Contains(low, "summary") {
				desc = menutext.Clean(s.Text())
				return false
			}
			return true
		})

		items = append(items, models.Item{
			Name:           itemName,
			Description:    desc,
			Price:          price,
			MenuType:       menuType,
			MenuName:       menuType,
			RestaurantName: name,
			RestaurantURL:  url,
		})
	})

	return items, nil
}
