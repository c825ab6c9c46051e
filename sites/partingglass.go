package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
)

func init() { Register(partingGlass{}) }

// partingGlass reads the Popmenu GraphQL API behind partingglasspub.com.
// Popmenu only accepts persisted queries, so each section is fetched with
// the site's published operation ID rather than a query document.
type partingGlass struct{}

const (
	partingGlassGraphQL     = "https://www.partingglasspub.com/graphql"
	partingGlassOperationID = "PopmenuClient/238fca77b51509238a53cdae6d14140c"
)

// Section IDs observed in the menu page's own GraphQL traffic.
var partingGlassSections = []struct {
	id   int
	name string
}{
	{901935, "Starters"},
	{901947, "Soups & Salads"},
	{901961, "Irish Fare"},
	{901975, "Kids Pics"},
	{901985, "Pub Grub"},
	{901993, "Specialty Burgers with fries"},
	{902001, "Bar Menu"},
	{902047, "Domestic, Imported & Craft Brews"},
	{902105, "Non-Alcoholic"},
	{902123, "Wines by The Glass"},
	{902129, "Wines by The Bottles"},
	{902139, "Dessert Menu"},
}

type popmenuExtra struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

type popmenuItem struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	HTMLContent     string         `json:"htmlContent"`
	Price           *float64       `json:"price"`
	PriceCustomText string         `json:"priceCustomText"`
	IsEnabled       *bool          `json:"isEnabled"`
	Extras          []popmenuExtra `json:"extras"`
	ExtraGroups     []struct {
		Name   string         `json:"name"`
		Extras []popmenuExtra `json:"extras"`
	} `json:"extraGroups"`
}

type popmenuSectionResp struct {
	Data struct {
		MenuSection struct {
			Name        string `json:"name"`
			Subsections []struct {
				Name  string        `json:"name"`
				Title string        `json:"title"`
				Items []popmenuItem `json:"items"`
			} `json:"subsections"`
		} `json:"menuSection"`
	} `json:"data"`
}

func (partingGlass) Slug() string { return "partingglasspub_com" }
func (partingGlass) Restaurant() (string, string) {
	return "Parting Glass Pub", "https://www.partingglasspub.com/"
}
func (partingGlass) NeedsBrowser() bool { return false }
func (partingGlass) NeedsVision() bool  { return false }

func (p partingGlass) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "*/*").
		SetHeader("Referer", "https://www.partingglasspub.com/menu")

	var all []models.Item
	for _, section := range partingGlassSections {
		items, err := p.scrapeSection(ctx, client, section.id, section.name)
		if err != nil {
			slog.Warn("menu section failed", "section", section.name, "id", section.id, "error", err)
			continue
		}
		all = append(all, items...)
	}
	if len(all) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeParse, "no menu sections yielded items", nil)
	}
	return all, nil
}

func (p partingGlass) scrapeSection(ctx context.Context, client *resty.Client, sectionID int, sectionName string) ([]models.Item, error) {
	variables, _ := json.Marshal(map[string]any{
		"orderingEventId":        -1,
		"orderingEventAvailable": false,
		"sectionId":              sectionID,
	})
	extensions, _ := json.Marshal(map[string]any{
		"operationId": partingGlassOperationID,
	})

	endpoint := fmt.Sprintf("%s?operationName=menuSection&variables=%s&extensions=%s",
		partingGlassGraphQL,
		url.QueryEscape(string(variables)),
		url.QueryEscape(string(extensions)),
	)

	var out popmenuSectionResp
	resp, err := client.R().SetContext(ctx).SetResult(&out).Get(endpoint)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "GraphQL request failed", err)
	}
	if resp.IsError() {
		return nil, models.NewScrapeError(models.ErrCodeFetch,
			fmt.Sprintf("GraphQL request returned %d", resp.StatusCode()), nil)
	}

	name, siteURL := p.Restaurant()
	var items []models.Item

	for _, sub := range out.Data.MenuSection.Subsections {
		subName := sub.Name
		if subName == "" {
			subName = sub.Title
		}
		if subName == "" {
			subName = sectionName
		}

		for _, raw := range sub.Items {
			if raw.IsEnabled != nil && !*raw.IsEnabled {
				continue
			}
			itemName := strings.TrimSpace(raw.Name)
			if itemName == "" {
				continue
			}

			desc := raw.Description
			if desc == "" {
				desc = raw.HTMLContent
			}
			desc = menutext.Clean(htmlTagRe.ReplaceAllString(desc, ""))

			price := ""
			switch {
			case raw.PriceCustomText != "":
				price = raw.PriceCustomText
			case raw.Price != nil:
				price = menutext.FormatAmount(*raw.Price)
			}

			addons := popmenuAddons(raw)
			desc, addons = extractDescriptionAddons(desc, addons)
			if len(addons) > 0 {
				suffix := "Add-ons: " + strings.Join(addons, " / ")
				if desc != "" {
					desc = desc + " | " + suffix
				} else {
					desc = suffix
				}
			}

			items = append(items, models.Item{
				Name:           itemName,
				Description:    desc,
				Price:          price,
				Section:        subName,
				MenuType:       "Menu",
				MenuName:       subName,
				RestaurantName: name,
				RestaurantURL:  siteURL,
			})
		}
	}
	return items, nil
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// descAddonRe matches inline addon notes like "Additional items .50: mush,
// onion, bacon".
var descAddonRe = regexp.MustCompile(`(?i)(?:Additional items?|Add-ons?|Extras?)\s+\$?(\.?\d+\.?\d*)\s*[:\-]?\s*([^.\n]+)`)

func popmenuAddons(raw popmenuItem) []string {
	var addons []string
	for _, extra := range raw.Extras {
		if extra.Name != "" && extra.Price != nil {
			addons = append(addons, extra.Name+" "+menutext.FormatAmount(*extra.Price))
		}
	}
	for _, group := range raw.ExtraGroups {
		for _, extra := range group.Extras {
			if extra.Name != "" && extra.Price != nil {
				addons = append(addons, extra.Name+" "+menutext.FormatAmount(*extra.Price))
			}
		}
	}
	return addons
}

// extractDescriptionAddons peels an "Additional items .50: ..." tail off the
// description and turns each listed topping into an addon entry.
func extractDescriptionAddons(desc string, addons []string) (string, []string) {
	m := descAddonRe.FindStringSubmatchIndex(desc)
	if m == nil {
		return desc, addons
	}

	priceStr := desc[m[2]:m[3]]
	if strings.HasPrefix(priceStr, ".") {
		priceStr = "0" + priceStr
	}
	list := strings.TrimRight(strings.TrimSpace(desc[m[4]:m[5]]), ".")

	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "or ")
		if part != "" {
			addons = append(addons, part+" $"+priceStr)
		}
	}
	return strings.TrimSpace(desc[:m[0]]), addons
}
