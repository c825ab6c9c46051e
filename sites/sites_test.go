package sites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saratoga-data/menuharvest/models"
)

func TestRegistryHoldsAllScrapers(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)

	slugs := make(map[string]bool, len(all))
	for _, s := range all {
		slugs[s.Slug()] = true

		name, url := s.Restaurant()
		assert.NotEmpty(t, name, "scraper %s has no restaurant name", s.Slug())
		assert.Contains(t, url, "http", "scraper %s has no restaurant URL", s.Slug())
	}

	for _, want := range []string{
		"krucoffee_com",
		"morrisseyslounge_com",
		"sushithaigardensaratoga_com",
		"bocabistro_com",
		"countrycornercafe_net",
		"partingglasspub_com",
		"thewhistlingkettle_com",
		"30parkcp_com",
		"15churchrestaurant_com",
		"hattiesrestaurants_com",
		"wishingwellrestaurant_com",
		"speckledpigbrewing_com",
		"nkmilton_com",
	} {
		assert.True(t, slugs[want], "missing scraper %s", want)
	}

	// Slugs are sorted for stable CLI output.
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Slug(), all[i].Slug())
	}
}

func TestNKMiltonLabelItems(t *testing.T) {
	items := labelNKItems([]models.Item{
		{Name: "Chicken Riggies", Section: "Entrees"},
		{Name: "House Salad"},
	}, "Menu Page 1")

	require.Len(t, items, 2)
	assert.Equal(t, "Menu", items[0].MenuType)
	assert.Equal(t, "Entrees", items[0].MenuName)
	assert.Equal(t, "Menu Page 1", items[1].MenuName)
}

func TestLookup(t *testing.T) {
	s, ok := Lookup("krucoffee_com")
	require.True(t, ok)
	assert.Equal(t, "krucoffee_com", s.Slug())

	_, ok = Lookup("nonexistent_site")
	assert.False(t, ok)
}

func TestKruCoffeeParseCategory(t *testing.T) {
	html := `<html><body>
		<div class="collection-item">
			<a href="/product/ethiopia-yirgacheffe">Ethiopia</a>
			<div class="product-name-text">Ethiopia Yirgacheffe</div>
			<div class="product-price-text">$&nbsp;18.00 USD</div>
		</div>
		<div class="collection-item">
			<div class="product-name-text">No link card</div>
		</div>
	</body></html>`

	items, err := kruCoffee{}.parseCategory([]byte(html), "Coffee")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Ethiopia Yirgacheffe", items[0].Name)
	assert.Equal(t, "$18.00", items[0].Price)
	assert.Equal(t, "Coffee", items[0].MenuType)
	assert.Equal(t, "Kru Coffee", items[0].RestaurantName)
}

func TestMorrisseysParseMenus(t *testing.T) {
	html := `<html><body>
	<div id="tab-dinner">
		<h5>Starters</h5>
		<div class="nectar_food_menu_item">
			<div class="item_name"><h4>Wings</h4></div>
			<div class="item_price"><h4>$16</h4></div>
			<div class="item_description">buffalo or bbq</div>
		</div>
		<h5>Entrees</h5>
		<div class="nectar_food_menu_item">
			<div class="item_name"><h4>Ribeye</h4></div>
			<div class="item_price"><h4>MP</h4></div>
		</div>
		<div class="nectar_food_menu_item">
			<div class="item_name"><h4>Decoration Only</h4></div>
		</div>
	</div>
	</body></html>`

	items, err := morrisseys{}.parseMenus([]byte(html))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Wings", items[0].Name)
	assert.Equal(t, "Starters", items[0].Section)
	assert.Equal(t, "Dinner", items[0].MenuType)
	assert.Equal(t, "$16", items[0].Price)
	assert.Equal(t, "buffalo or bbq", items[0].Description)

	assert.Equal(t, "Ribeye", items[1].Name)
	assert.Equal(t, "Entrees", items[1].Section)
	assert.Equal(t, "MP", items[1].Price)
}

func TestWhistlingKettleParseTabPanel(t *testing.T) {
	html := `<html><body>
	<button role="tab" id="trigger-teas">Teas</button>
	<div role="tabpanel" aria-labelledby="trigger-teas">
		<ul>
			<li>
				<strong>Earl Grey Creme</strong>
				<div class="inline-flex items-center rounded-full">Vegan</div>
				<p>black tea with bergamot and vanilla</p>
				$4.50
			</li>
			<li><p>no name here</p></li>
		</ul>
	</div>
	</body></html>`

	items, err := whistlingKettle{}.parseTabPanel(html, "Teas", "The Whistling Kettle", "https://www.thewhistlingkettle.com/")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Earl Grey Creme", items[0].Name)
	assert.Equal(t, "$4.50", items[0].Price)
	assert.Equal(t, "Teas", items[0].Section)
	assert.Contains(t, items[0].Description, "bergamot")
	assert.Contains(t, items[0].Description, "(Vegan)")
}

func TestWishingWellWineLines(t *testing.T) {
	html := `<html><body>
	<div class="menu-block">
		<h2>White Wines</h2>
		<p>101 Chardonnay, Sonoma Coast 18/72</p>
		<p>Bin #117 Sancerre, Loire Valley 85</p>
		<p><em>crisp and mineral driven</em></p>
	</div>
	</body></html>`

	items, err := wishingWell{}.parseBlocks([]byte(html), "Wine", "wine")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Bin #101 Chardonnay", items[0].Name)
	assert.Equal(t, "Sonoma Coast", items[0].Description)
	assert.Equal(t, "Glass $18 | Bottle $72", items[0].Price)
	assert.Equal(t, "White Wines", items[0].Section)

	assert.Equal(t, "Bin #117 Sancerre", items[1].Name)
	assert.Equal(t, "$85", items[1].Price)
}

func TestSpeckledPigBeerPage(t *testing.T) {
	html := `<html><body>
	<div class="multicolumn-card">
		<div class="multicolumn-card__info">
			<h3 class="inline-richtext">Hazy Daze IPA</h3>
			<div class="rte"><ul>
				<li><strong>6.2% ABV, 13oz, $7.00</strong></li>
				<li>citra and mosaic hops</li>
			</ul></div>
		</div>
	</div>
	<h2 class="image-with-text__heading">Flights of 4 (5oz.) - $10</h2>
	</body></html>`

	items, err := speckledPig{}.parseBeerPage([]byte(html))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Hazy Daze IPA", items[0].Name)
	assert.Equal(t, "13oz - $7.00", items[0].Price)
	assert.Equal(t, "ABV: 6.2%; citra and mosaic hops", items[0].Description)
	assert.Equal(t, "Beer", items[0].Section)

	assert.Equal(t, "Flights of 4 (5oz.)", items[1].Name)
	assert.Equal(t, "$10", items[1].Price)
}

func TestSpeckledPigPizzaPage(t *testing.T) {
	html := `<html><body>
	<div class="multicolumn-card">
		<div class="multicolumn-card__info">
			<h3 class="inline-richtext">The Figgy Piggy - $15.00</h3>
			<div class="rte"><ul><li>fig jam, prosciutto, arugula</li></ul></div>
		</div>
	</div>
	</body></html>`

	items, err := speckledPig{}.parsePizzaPage([]byte(html))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "The Figgy Piggy", items[0].Name)
	assert.Equal(t, "$15.00", items[0].Price)
	assert.Equal(t, "fig jam, prosciutto, arugula", items[0].Description)
}

func TestThirtyParkSplitNamePrice(t *testing.T) {
	tests := []struct {
		heading   string
		wantName  string
		wantPrice string
	}{
		{"CHEESE CURDS 6 | 10", "CHEESE CURDS", "6 | 10"},
		{"OYSTERS – 2 FOR $8", "OYSTERS", "8"},
		{"HOUSE SALAD 12", "HOUSE SALAD", "12"},
		{"SOMETHING WITHOUT PRICE", "SOMETHING WITHOUT PRICE", ""},
	}
	for _, tt := range tests {
		name, price := splitNamePrice(tt.heading)
		assert.Equal(t, tt.wantName, name, "heading %q", tt.heading)
		assert.Equal(t, tt.wantPrice, price, "heading %q", tt.heading)
	}
}

func TestThirtyParkFormatPrice(t *testing.T) {
	assert.Equal(t, "$6 (small) | $10 (large)", formatThirtyParkPrice("6 | 10"))
	assert.Equal(t, "$12", formatThirtyParkPrice("12"))
	assert.Equal(t, "", formatThirtyParkPrice(""))
}

func TestHattiesFillSectionPrices(t *testing.T) {
	items := fillSectionPrices([]models.Item{
		{Name: "Biscuits", Section: "Starters", MenuName: "Brunch Menu", Price: "$9"},
		{Name: "Grits", Section: "Starters", MenuName: "Brunch Menu"},
		{Name: "Fried Chicken", Section: "Mains", MenuName: "Brunch Menu", Price: "$18"},
		{Name: "Catfish", Section: "Mains", MenuName: "Brunch Menu", Price: "$21"},
		{Name: "Okra", Section: "Mains", MenuName: "Brunch Menu"},
	})

	assert.Equal(t, "$9", items[1].Price, "single-price section backfills")
	assert.Equal(t, "", items[4].Price, "mixed-price section never backfills")
}
