package sites

import (
	"context"
	"log/slog"

	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/models"
	"github.com/saratoga-data/menuharvest/vision"
)

func init() { Register(nkMilton{}) }

// nkMilton reads Neighborhood Kitchen's to-go menu, which the site publishes
// only as two JPEG photos on the Squarespace CDN. The CDN paths rotate with
// each seasonal menu, so they are pinned like the PDF sites.
type nkMilton struct{}

var nkMenuImages = []struct {
	url  string
	page string
}{
	{"https://images.squarespace-cdn.com/content/v1/638f724fe45ff113f0433fe6/5f876283-0b42-4dc0-90c5-8d39df63a940/NeighborhoodKitchen-TOGO-FALL2025.jpg?format=2500w", "Menu Page 1"},
	{"https://images.squarespace-cdn.com/content/v1/638f724fe45ff113f0433fe6/44e0d79c-b34a-49b7-900c-649738ef6992/NeighborhoodKitchen-TOGO-FALL2025-2.jpg?format=2500w", "Menu Page 2"},
}

func (nkMilton) Slug() string { return "nkmilton_com" }
func (nkMilton) Restaurant() (string, string) {
	return "Neighborhood Kitchen", "http://www.nkmilton.com/"
}
func (nkMilton) NeedsBrowser() bool { return false }
func (nkMilton) NeedsVision() bool  { return true }

func (n nkMilton) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	name, siteURL := n.Restaurant()

	var all []models.Item
	for _, menu := range nkMenuImages {
		img, err := env.Fetch.Get(ctx, menu.url,
			fetch.WithAccept("image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"),
			fetch.WithReferer(siteURL),
			fetch.NoCache(),
		)
		if err != nil {
			slog.Warn("menu image download failed", "page", menu.page, "error", err)
			continue
		}
		items, err := env.Vision.ExtractFromImage(ctx, img, "image/jpeg",
			vision.MenuPrompt(name, siteURL, menu.page))
		if err != nil {
			slog.Warn("menu image extraction failed", "page", menu.page, "error", err)
			continue
		}
		all = append(all, labelNKItems(items, menu.page)...)
	}
	if len(all) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "no menu image yielded items", nil)
	}
	return models.Dedupe(all), nil
}

// labelNKItems stamps the menu fields: the section the model read becomes
// the menu name, falling back to the photo's page label when a section is
// missing.
func labelNKItems(items []models.Item, page string) []models.Item {
	for i := range items {
		items[i].MenuType = "Menu"
		if items[i].Section != "" {
			items[i].MenuName = items[i].Section
		} else {
			items[i].MenuName = page
		}
	}
	return items
}
