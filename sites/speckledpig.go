package sites

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
)

func init() { Register(speckledPig{}) }

// speckledPig reads the Shopify pages behind speckledpigbrewing.com. Beers
// and pizzas live in multicolumn cards; wine and flights hang off their own
// headings on the beer page.
type speckledPig struct{}

const (
	pigURL      = "https://speckledpigbrewing.com/"
	pigBeerURL  = "https://www.speckledpigbrewing.com/pages/beer-menu"
	pigPizzaURL = "https://www.speckledpigbrewing.com/pages/pizza-menu"
)

var (
	pigABVRe    = regexp.MustCompile(`([\d.]+)%\s*ABV`)
	pigSizeRe   = regexp.MustCompile(`(\d+)oz`)
	pigPriceRe  = regexp.MustCompile(`\$([\d.]+)`)
	pigH3TailRe = regexp.MustCompile(`\s*-\s*\$[\d.]+\s*`)
)

func (speckledPig) Slug() string { return "speckledpigbrewing_com" }
func (speckledPig) Restaurant() (string, string) {
	return "Speckled Pig Brewing Co.", pigURL
}
func (speckledPig) NeedsBrowser() bool { return false }
func (speckledPig) NeedsVision() bool  { return false }

func (s speckledPig) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	beerBody, err := env.Fetch.Get(ctx, pigBeerURL)
	if err != nil {
		return nil, err
	}
	items, err := s.parseBeerPage(beerBody)
	if err != nil {
		return nil, err
	}

	pizzaBody, err := env.Fetch.Get(ctx, pigPizzaURL, fetch.WithReferer(pigBeerURL))
	if err != nil {
		return nil, err
	}
	pizzaItems, err := s.parsePizzaPage(pizzaBody)
	if err != nil {
		return nil, err
	}

	return append(items, pizzaItems...), nil
}

func (s speckledPig) parseBeerPage(body []byte) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse beer menu page", err)
	}

	name, siteURL := s.Restaurant()
	var items []models.Item

	doc.Find("div.multicolumn-card").Each(func(_ int, card *goquery.Selection) {
		info := card.Find("div.multicolumn-card__info").First()
		if info.Length() == 0 {
			return
		}
		beerName := menutext.Clean(info.Find("h3.inline-richtext").First().Text())
		if beerName == "" || strings.Contains(beerName, "Wine") {
			return
		}

		price, size, abv := "", "", ""
		var descParts []string
		info.Find("div.rte li").Each(func(_ int, li *goquery.Selection) {
			text := menutext.Clean(li.Text())
			if text == "" {
				return
			}
			// The stats line ("6.2% ABV, 13oz, $7.00") is bolded.
			if li.Find("strong").Length() > 0 {
				strongText := menutext.Clean(li.Find("strong").First().Text())
				if m := pigABVRe.FindStringSubmatch(strongText); m != nil {
					abv = m[1] + "%"
				}
				if m := pigSizeRe.FindStringSubmatch(strongText); m != nil {
					size = m[1] + "oz"
				}
				if m := pigPriceRe.FindStringSubmatch(strongText); m != nil {
					price = "$" + m[1]
				}
				return
			}
			descParts = append(descParts, text)
		})

		desc := strings.Join(descParts, "; ")
		if abv != "" {
			if desc != "" {
				desc = "ABV: " + abv + "; " + desc
			} else {
				desc = "ABV: " + abv
			}
		}
		if size != "" && price != "" {
			price = size + " - " + price
		}

		items = append(items, models.Item{
			Name:           beerName,
			Description:    desc,
			Price:          price,
			Section:        "Beer",
			MenuType:       "Beer",
			MenuName:       "Beer Menu",
			RestaurantName: name,
			RestaurantURL:  siteURL,
		})
	})

	items = append(items, s.parseWineCards(doc)...)
	items = append(items, s.parseFlights(doc)...)
	return items, nil
}

// parseWineCards handles the "Wine" card embedded on the beer page, where
// each list entry is one pour.
func (s speckledPig) parseWineCards(doc *goquery.Document) []models.Item {
	name, siteURL := s.Restaurant()
	var items []models.Item

	doc.Find("h3.inline-richtext").Each(func(_ int, h3 *goquery.Selection) {
		if !strings.Contains(h3.Text(), "Wine") {
			return
		}
		info := h3.ParentsFiltered("div.multicolumn-card__info").First()
		if info.Length() == 0 {
			return
		}
		info.Find("div.rte li").Each(func(_ int, li *goquery.Selection) {
			text := menutext.Clean(li.Text())
			if text == "" {
				return
			}
			price := ""
			if m := pigPriceRe.FindStringSubmatch(text); m != nil {
				price = "$" + m[1]
				text = menutext.Clean(strings.Replace(text, m[0], "", 1))
				text = strings.TrimRight(text, " -")
			}
			if text == "" {
				return
			}
			items = append(items, models.Item{
				Name:           text,
				Price:          price,
				Section:        "Wine",
				MenuType:       "Wine",
				MenuName:       "Beer Menu",
				RestaurantName: name,
				RestaurantURL:  siteURL,
			})
		})
	})
	return items
}

// parseFlights reads the "Flights of 4 (5oz.) - $10" banner heading.
func (s speckledPig) parseFlights(doc *goquery.Document) []models.Item {
	name, siteURL := s.Restaurant()
	var items []models.Item

	doc.Find("h2.image-with-text__heading").EachWithBreak(func(_ int, h2 *goquery.Selection) bool {
		text := menutext.Clean(h2.Text())
		if !strings.Contains(text, "Flights") {
			return true
		}
		m := pigPriceRe.FindStringSubmatch(text)
		if m == nil {
			return true
		}
		items = append(items, models.Item{
			Name:           "Flights of 4 (5oz.)",
			Price:          "$" + m[1],
			Section:        "Flights",
			MenuType:       "Flights",
			MenuName:       "Beer Menu",
			RestaurantName: name,
			RestaurantURL:  siteURL,
		})
		return false
	})
	return items
}

func (s speckledPig) parsePizzaPage(body []byte) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse pizza menu page", err)
	}

	name, siteURL := s.Restaurant()
	var items []models.Item

	doc.Find("div.multicolumn-card").Each(func(_ int, card *goquery.Selection) {
		info := card.Find("div.multicolumn-card__info").First()
		if info.Length() == 0 {
			return
		}
		// Names carry the price inline: "The Figgy Piggy - $15.00".
		heading := menutext.Clean(info.Find("h3.inline-richtext").First().Text())
		if heading == "" {
			return
		}
		m := pigPriceRe.FindStringSubmatch(heading)
		if m == nil {
			return
		}
		pizzaName := menutext.Clean(pigH3TailRe.ReplaceAllString(heading, ""))

		var descParts []string
		info.Find("div.rte li").Each(func(_ int, li *goquery.Selection) {
			if text := menutext.Clean(li.Text()); text != "" {
				descParts = append(descParts, text)
			}
		})

		items = append(items, models.Item{
			Name:           pizzaName,
			Description:    strings.Join(descParts, "; "),
			Price:          "$" + m[1],
			Section:        "Pizza",
			MenuType:       "Pizza",
			MenuName:       "Pizza Menu",
			RestaurantName: name,
			RestaurantURL:  siteURL,
		})
	})
	return items, nil
}
