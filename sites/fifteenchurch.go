package sites

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
	"github.com/saratoga-data/menuharvest/vision"
)

func init() { Register(fifteenChurch{}) }

// fifteenChurch discovers the PDF menus linked from the 15 Church menus page
// and reads each one with the vision model. The link text names the menu.
type fifteenChurch struct{}

const (
	fifteenChurchURL      = "https://www.15churchrestaurant.com/"
	fifteenChurchMenusURL = "https://www.15churchrestaurant.com/saratoga-springs/menus/"
)

func (fifteenChurch) Slug() string                 { return "15churchrestaurant_com" }
func (fifteenChurch) Restaurant() (string, string) { return "15 Church", fifteenChurchURL }
func (fifteenChurch) NeedsBrowser() bool           { return false }
func (fifteenChurch) NeedsVision() bool            { return true }

func (f fifteenChurch) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	body, err := env.Fetch.Get(ctx, fifteenChurchMenusURL, fetch.WithReferer(fifteenChurchURL))
	if err != nil {
		return nil, err
	}

	links, err := f.findPDFLinks(body)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeParse, "no PDF menus found on menus page", nil)
	}

	name, siteURL := f.Restaurant()
	var all []models.Item
	for _, link := range links {
		pdf, pdfErr := env.Fetch.GetPDF(ctx, link.url)
		if pdfErr != nil {
			slog.Warn("menu PDF download failed", "menu", link.name, "url", link.url, "error", pdfErr)
			continue
		}
		items, visErr := env.Vision.ExtractFromPDF(ctx, pdf, vision.MenuPrompt(name, siteURL, link.name))
		if visErr != nil {
			slog.Warn("menu PDF extraction failed", "menu", link.name, "error", visErr)
			continue
		}
		for i := range items {
			items[i].MenuType = link.name
			items[i].MenuName = link.name
		}
		all = append(all, items...)
	}
	if len(all) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "no PDF menu yielded items", nil)
	}
	return models.Dedupe(all), nil
}

type pdfLink struct {
	url  string
	name string
}

func (fifteenChurch) findPDFLinks(body []byte) ([]pdfLink, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "parse menus page", err)
	}

	seen := map[string]struct{}{}
	var links []pdfLink
	doc.Find(`a[href$=".pdf"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}
		switch {
		case strings.HasPrefix(href, "/"):
			href = "https://www.15churchrestaurant.com" + href
		case !strings.HasPrefix(href, "http"):
			href = "https://www.15churchrestaurant.com/" + href
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		menuName := menutext.Clean(a.Text())
		if menuName == "" {
			parts := strings.Split(href, "/")
			menuName = parts[len(parts)-1]
		}
		links = append(links, pdfLink{url: href, name: menuName})
	})
	return links, nil
}
