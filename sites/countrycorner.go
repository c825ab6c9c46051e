package sites

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
)

func init() { Register(countryCorner{}) }

// countryCorner pulls the Country Corner Cafe menu from the Square Online
// store API behind countrycornercafe.square.site. The store IDs are fixed
// per site and were lifted from the storefront's own network calls.
type countryCorner struct{}

const (
	squareAPIBase        = "https://cdn5.editmysite.com/app/store/api/v28/editor"
	squareCacheVersion   = "2023-11-13"
	countryCornerUser    = "132583133"
	countryCornerSite    = "845493430833411312"
	countryCornerLoc     = "F3XRZCTN550JM"
	countryCornerSiteURL = "https://countrycornercafe.square.site/?location=F3XRZCTN550JM#7G4IXI7W77PAMRTYKFLU7UJF"
)

type squareProduct struct {
	SiteProductID    any    `json:"site_product_id"`
	Name             string `json:"name"`
	ShortDescription string `json:"short_description"`
	Price            struct {
		LowFormatted  string `json:"low_formatted"`
		HighFormatted string `json:"high_formatted"`
	} `json:"price"`
}

type squareProductsPage struct {
	Data       []squareProduct `json:"data"`
	Pagination struct {
		HasMore bool `json:"has_more"`
	} `json:"pagination"`
}

type squareCategory struct {
	ID            any              `json:"id"`
	Name          string           `json:"name"`
	ProductCounts struct {
		Direct int `json:"direct"`
	} `json:"product_counts"`
	PreferredOrderProductIDs []any            `json:"preferred_order_product_ids"`
	Children                 []squareCategory `json:"children"`
}

type squareCategoriesResp struct {
	Data []squareCategory `json:"data"`
}

func (countryCorner) Slug() string { return "countrycornercafe_net" }
func (countryCorner) Restaurant() (string, string) {
	return "The Country Corner Cafe", countryCornerSiteURL
}
func (countryCorner) NeedsBrowser() bool { return false }
func (countryCorner) NeedsVision() bool  { return false }

func (c countryCorner) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	client := resty.New().SetTimeout(30 * time.Second)

	products, err := c.fetchProducts(ctx, client)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeParse, "store API returned no products", nil)
	}

	productCategory := map[string]string{}
	if cats, catErr := c.fetchCategories(ctx, client); catErr == nil {
		for _, cat := range cats {
			for _, pid := range cat.productIDs {
				productCategory[pid] = cat.name
			}
		}
	}

	name, siteURL := c.Restaurant()
	var items []models.Item
	for _, p := range products {
		itemName := strings.TrimSpace(p.Name)
		if itemName == "" {
			continue
		}
		category := productCategory[anyID(p.SiteProductID)]
		if category == "" {
			category = "Items"
		}
		items = append(items, models.Item{
			Name:           itemName,
			Description:    stripHTMLText(p.ShortDescription),
			Price:          formatSquarePrice(p.Price.LowFormatted, p.Price.HighFormatted),
			Section:        category,
			MenuType:       category,
			MenuName:       "Menu",
			RestaurantName: name,
			RestaurantURL:  siteURL,
		})
	}
	return items, nil
}

func (countryCorner) fetchProducts(ctx context.Context, client *resty.Client) ([]squareProduct, error) {
	var all []squareProduct
	for page := 1; ; page++ {
		url := fmt.Sprintf(
			"%s/users/%s/sites/%s/store-locations/%s/products?page=%d&per_page=200&include=images,discounts,media_files&fulfillments[]=pickup&cache-version=%s",
			squareAPIBase, countryCornerUser, countryCornerSite, countryCornerLoc, page, squareCacheVersion,
		)

		var out squareProductsPage
		resp, err := client.R().SetContext(ctx).SetResult(&out).Get(url)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeFetch, "store products request failed", err)
		}
		if resp.IsError() {
			return nil, models.NewScrapeError(models.ErrCodeFetch,
				fmt.Sprintf("store products request returned %d", resp.StatusCode()), nil)
		}
		if len(out.Data) == 0 {
			break
		}
		all = append(all, out.Data...)
		if !out.Pagination.HasMore {
			break
		}
	}
	return all, nil
}

type flatCategory struct {
	name       string
	productIDs []string
}

func (c countryCorner) fetchCategories(ctx context.Context, client *resty.Client) ([]flatCategory, error) {
	url := fmt.Sprintf("%s/users/%s/sites/%s/categories?max_depth=2&nested=1&cache-version=%s",
		squareAPIBase, countryCornerUser, countryCornerSite, squareCacheVersion)

	var out squareCategoriesResp
	resp, err := client.R().SetContext(ctx).SetResult(&out).Get(url)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "store categories request failed", err)
	}
	if resp.IsError() {
		return nil, models.NewScrapeError(models.ErrCodeFetch,
			fmt.Sprintf("store categories request returned %d", resp.StatusCode()), nil)
	}
	return flattenCategories(out.Data, ""), nil
}

// flattenCategories unwraps the nested tree into "Parent - Child" names.
// The synthetic "Online Menu" root carries no products of its own and is
// skipped in favor of its children.
func flattenCategories(cats []squareCategory, parent string) []flatCategory {
	var out []flatCategory
	for _, cat := range cats {
		if cat.Name == "Online Menu" && cat.ProductCounts.Direct == 0 {
			out = append(out, flattenCategories(cat.Children, parent)...)
			continue
		}
		full := cat.Name
		if parent != "" {
			full = parent + " - " + cat.Name
		}
		ids := make([]string, 0, len(cat.PreferredOrderProductIDs))
		for _, id := range cat.PreferredOrderProductIDs {
			ids = append(ids, anyID(id))
		}
		out = append(out, flatCategory{name: full, productIDs: ids})
		out = append(out, flattenCategories(cat.Children, full)...)
	}
	return out
}

// anyID renders the API's sometimes-number-sometimes-string IDs uniformly.
func anyID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprintf("%v", id)
	}
}

// formatSquarePrice renders either a single price or a low-high range.
func formatSquarePrice(low, high string) string {
	switch {
	case low != "" && high != "" && low != high:
		return low + " - " + high
	case low != "":
		return low
	default:
		return high
	}
}

// stripHTMLText flattens the HTML fragments the store uses for descriptions.
func stripHTMLText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(fragment)))
	if err != nil {
		return menutext.Clean(fragment)
	}
	return menutext.Clean(doc.Text())
}
