package sites

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
)

func init() { Register(sushiThaiGarden{}) }

// sushiThaiGarden reads the online-ordering storefront for Sushi Thai Garden.
// The list page gives names and prices; each item's modal endpoint adds the
// full description and the add-on checkboxes.
type sushiThaiGarden struct{}

const (
	sushiThaiOrderURL  = "https://order.sushithaigardensaratoga.com/"
	sushiThaiDetailURL = "https://order.sushithaigardensaratoga.com/menu/65590/"
)

var sushiThaiAddonPriceRe = regexp.MustCompile(`\(\+\$([\d.]+)\)`)

func (sushiThaiGarden) Slug() string { return "sushithaigardensaratoga_com" }
func (sushiThaiGarden) Restaurant() (string, string) {
	return "Sushi Thai Garden", "https://www.sushithaigardensaratoga.com/"
}
func (sushiThaiGarden) NeedsBrowser() bool { return false }
func (sushiThaiGarden) NeedsVision() bool  { return false }

func (s sushiThaiGarden) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	body, err := env.Fetch.Get(ctx, sushiThaiOrderURL,
		fetch.WithReferer("https://www.sushithaigardensaratoga.com/"),
	)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse order page", err)
	}

	name, url := s.Restaurant()
	var items []models.Item

	doc.Find("div.menu-section").Each(func(_ int, section *goquery.Selection) {
		sectionName := s.sectionName(section)
		if sectionName == "" {
			return
		}
		sectionDesc := menutext.Clean(section.Find("div.menu-section-desc").First().Text())

		section.Find("a.menu-item").Each(func(_ int, link *goquery.Selection) {
			menuDesc := link.Find("div.menu-desc").First()
			itemName := menutext.Clean(menuDesc.Find("h4").First().Text())
			if itemName == "" {
				return
			}

			price := menutext.Clean(menuDesc.Find("h5.item-price span.price").First().Text())
			if price == "" {
				price = menutext.Clean(menuDesc.Find("h5.item-price").First().Text())
			}

			desc := ""
			menuDesc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
				cls, _ := p.Attr("class")
				if strings.Contains(strings.ToLower(cls), "description") {
					desc = menutext.Clean(p.Text())
					return false
				}
				return true
			})

			var addons []string
			if itemID, ok := link.Attr("data-id"); ok && itemID != "" {
				detailDesc, detailAddons := s.itemDetails(ctx, env, itemID)
				if detailDesc != "" {
					desc = detailDesc
				}
				addons = detailAddons
			}

			full := buildSushiThaiDescription(sectionDesc, desc, addons)
			formatted := formatSushiThaiPrice(price)

			if formatted == "" && full == "" {
				return
			}

			items = append(items, models.Item{
				Name:           itemName,
				Description:    full,
				Price:          formatted,
				Section:        sectionName,
				MenuType:       "Online Order",
				MenuName:       "Online Order Menu",
				RestaurantName: name,
				RestaurantURL:  url,
			})
		})
	})

	return items, nil
}

// sectionName strips the item-count and chevron spans out of the header h2.
func (sushiThaiGarden) sectionName(section *goquery.Selection) string {
	h2 := section.Find("div.menu-section-header h2").First()
	if h2.Length() == 0 {
		n, _ := section.Attr("data-category-name")
		return menutext.Clean(n)
	}
	clone := h2.Clone()
	clone.Find("span").Remove()
	return menutext.Clean(clone.Text())
}

// itemDetails pulls the modal fragment for one item. Failures degrade to the
// list-page data; detail pages repeat across sections so the fetch cache
// absorbs most of the traffic.
func (sushiThaiGarden) itemDetails(ctx context.Context, env *Env, itemID string) (string, []string) {
	body, err := env.Fetch.Get(ctx, sushiThaiDetailURL+itemID,
		fetch.WithReferer(sushiThaiOrderURL),
		fetch.WithHeader("X-Requested-With", "XMLHttpRequest"),
		fetch.WithAccept("text/html, */*; q=0.01"),
	)
	if err != nil {
		slog.Warn("item detail fetch failed", "item", itemID, "error", err)
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", nil
	}

	desc := ""
	doc.Find("div.modal-header div.text-gray-light").EachWithBreak(func(_ int, d *goquery.Selection) bool {
		text := menutext.Clean(d.Text())
		// Short fragments here are spacing, not descriptions.
		if len(text) > 20 {
			desc = text
			return false
		}
		return true
	})

	var addons []string
	doc.Find("div.options-block").Each(func(_ int, block *goquery.Selection) {
		heading := strings.ToLower(block.Find("h4").First().Text())
		if !strings.Contains(heading, "want") && !strings.Contains(heading, "add") {
			return
		}
		block.Find("input[type=checkbox]").Each(func(_ int, box *goquery.Selection) {
			label := box.ParentsFiltered("label").First()
			if label.Length() == 0 {
				return
			}
			span := label.Find("span").First()
			if span.Length() == 0 {
				return
			}

			priceText := ""
			if inc, ok := box.Attr("data-incprice"); ok && inc != "" {
				priceText = "+$" + inc
			} else if m := sushiThaiAddonPriceRe.FindStringSubmatch(span.Text()); m != nil {
				priceText = "+$" + m[1]
			}

			clone := span.Clone()
			clone.Find("span.text-muted").Remove()
			addonName := menutext.Clean(sushiThaiAddonPriceRe.ReplaceAllString(clone.Text(), ""))
			if addonName == "" {
				return
			}
			if priceText != "" {
				addons = append(addons, addonName+" "+priceText)
			} else {
				addons = append(addons, addonName)
			}
		})
	})

	return desc, addons
}

func buildSushiThaiDescription(sectionDesc, itemDesc string, addons []string) string {
	full := itemDesc
	if sectionDesc != "" && !strings.Contains(itemDesc, sectionDesc) {
		if full != "" {
			full = sectionDesc + ". " + full
		} else {
			full = sectionDesc
		}
	}
	if len(addons) > 0 {
		suffix := "Add-ons: " + strings.Join(addons, " / ")
		if full != "" {
			full = full + ". " + suffix
		} else {
			full = suffix
		}
	}
	return full
}

var sushiThaiAmountRe = regexp.MustCompile(`\$?([\d.]+)`)
var sushiThaiSizeRe = regexp.MustCompile(`^([A-Za-z\s]+?)\s+\$?[\d.]+`)

// formatSushiThaiPrice normalizes multi-price strings like "Lunch 12 / Dinner
// 18" into "Lunch $12 | Dinner $18"; single prices just gain a $.
func formatSushiThaiPrice(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if strings.ContainsAny(raw, "/|,") {
		var parts []string
		for _, part := range regexp.MustCompile(`[/|,]`).Split(raw, -1) {
			part = strings.TrimSpace(part)
			m := sushiThaiAmountRe.FindStringSubmatch(part)
			if m == nil {
				continue
			}
			if size := sushiThaiSizeRe.FindStringSubmatch(part); size != nil {
				parts = append(parts, strings.TrimSpace(size[1])+" $"+m[1])
			} else {
				parts = append(parts, "$"+m[1])
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " | ")
		}
	}

	if m := sushiThaiAmountRe.FindStringSubmatch(raw); m != nil {
		return "$" + m[1]
	}
	return raw
}
