// Package sites holds one scraper per restaurant. Each file knows a single
// site's layout; nothing here tries to generalize across restaurants.
package sites

import (
	"context"
	"sort"
	"sync"

	"github.com/saratoga-data/menuharvest/browser"
	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/models"
	"github.com/saratoga-data/menuharvest/vision"
)

// Env carries the shared plumbing a scraper may use. Browser is a lazy
// getter: the Chromium process only launches when a scraper asks for it.
type Env struct {
	Fetch   *fetch.Client
	Vision  *vision.Client
	Browser func() (*browser.Session, error)
}

// Scraper is one restaurant's menu extractor.
type Scraper interface {
	// Slug names the output file (<slug>_menu.json) and the CLI argument.
	Slug() string
	// Restaurant returns the display name and canonical site URL stamped
	// onto every extracted item.
	Restaurant() (name, url string)
	// NeedsBrowser reports whether the site only renders client-side.
	NeedsBrowser() bool
	// NeedsVision reports whether the site requires the Gemini client
	// (PDF or image menus).
	NeedsVision() bool
	// Scrape fetches and parses the site's menus.
	Scrape(ctx context.Context, env *Env) ([]models.Item, error)
}

var (
	mu       sync.Mutex
	registry = map[string]Scraper{}
)

// Register adds a scraper to the registry. Called from init() in each site
// file; duplicate slugs panic since that is a programming error.
func Register(s Scraper) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[s.Slug()]; dup {
		panic("sites: duplicate scraper slug " + s.Slug())
	}
	registry[s.Slug()] = s
}

// All returns every registered scraper sorted by slug.
func All() []Scraper {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Scraper, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug() < out[j].Slug() })
	return out
}

// Lookup finds a scraper by slug.
func Lookup(slug string) (Scraper, bool) {
	mu.Lock()
	defer mu.Unlock()
	s, ok := registry[slug]
	return s, ok
}
