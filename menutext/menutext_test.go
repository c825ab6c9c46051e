package menutext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "$ 18.00 USD", Clean("$ 18.00  USD"))
	assert.Equal(t, "Pad Thai", Clean("  Pad   Thai\n"))
	assert.Equal(t, "", Clean("    "))
}

func TestExtractPrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"House Salad $8.50 with chicken", "$8.50"},
		{"$ 18.00 USD", "$18.00"},
		{"Market greens and shaved fennel", ""},
		{"Prime Rib $1,250", "$1250"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExtractPrice(c.in), c.in)
	}
}

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12", "$12"},
		{"$$12.00", "$12.00"},
		{"MP", "MP"},
		{"mp", "MP"},
		{"Market Price", "Market Price"},
		{"", ""},
		{"ask your server", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizePrice(c.in), c.in)
	}
}

func TestEnsureDollar(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"22", "$22"},
		{"18.50", "$18.50"},
		{"$14", "$14"},
		{"Small 12 | Large 30", "Small $12 | Large $30"},
		{"Glass $18 | Bottle $72", "Glass $18 | Bottle $72"},
		{"MP", "MP"},
		{"market price", "Market Price"},
		{"seasonal", "seasonal"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, EnsureDollar(c.in), c.in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$12", FormatAmount(12.0))
	assert.Equal(t, "$12.5", FormatAmount(12.50))
	assert.Equal(t, "$9.95", FormatAmount(9.95))
}

func TestExtractAddons(t *testing.T) {
	got := ExtractAddons("Served with fries. Add Bacon $2.00, add Avocado")
	assert.Equal(t, "Add-ons: Bacon +$2.00 / Avocado", got)

	assert.Equal(t, "", ExtractAddons("no extras here"))
}
