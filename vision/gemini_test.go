package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saratoga-data/menuharvest/config"
	"github.com/saratoga-data/menuharvest/models"
)

func TestDecodeItems(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{
			name: "bare array",
			raw:  `[{"name":"Burger","price":"15"},{"name":"Fries","price":"6"}]`,
			want: 2,
		},
		{
			name: "fenced array",
			raw:  "```json\n[{\"name\":\"Burger\"}]\n```",
			want: 1,
		},
		{
			name: "prose around array",
			raw:  `Here are the items: [{"name":"Burger"}] Let me know if you need more.`,
			want: 1,
		},
		{
			name: "empty names dropped",
			raw:  `[{"name":""},{"name":"  "},{"name":"Soup"}]`,
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := DecodeItems(tt.raw)
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestDecodeItemsNormalizesPrices(t *testing.T) {
	items, err := DecodeItems(`[
		{"name":"Fried Chicken","price":"22"},
		{"name":"Bisque","price":"18.50"},
		{"name":"Oysters","price":"MP"},
		{"name":"Mac and Cheese","price":"Small 12 | Large 30"},
		{"name":"Martini","price":"$14"},
		{"name":"Bread","price":""}
	]`)
	require.NoError(t, err)
	require.Len(t, items, 6)
	assert.Equal(t, "$22", items[0].Price)
	assert.Equal(t, "$18.50", items[1].Price)
	assert.Equal(t, "MP", items[2].Price)
	assert.Equal(t, "Small $12 | Large $30", items[3].Price)
	assert.Equal(t, "$14", items[4].Price)
	assert.Equal(t, "", items[5].Price)
}

func TestDecodeItemsInvalidJSON(t *testing.T) {
	_, err := DecodeItems("the menu could not be read")
	require.Error(t, err)
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeVisionFailure, se.Code)
}

func geminiReply(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]string{{"text": text}},
			},
		}},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestExtractFromText(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Write([]byte(geminiReply(`[{"name":"Pad Thai","price":"17","section":"Noodles"}]`)))
	}))
	defer srv.Close()

	c := NewClient(config.GeminiConfig{
		APIKey: "test-key", Model: "gemini-2.0-flash-exp",
		BaseURL: srv.URL, Temperature: 0.1, MaxOutputTokens: 8000,
	}, srv.Client())

	items, err := c.ExtractFromText(context.Background(), "Pad Thai ... 17", "extract the menu")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Pad Thai", items[0].Name)
	assert.Equal(t, "$17", items[0].Price)
	assert.Equal(t, "/models/gemini-2.0-flash-exp:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
}

func TestExtractClassifiesAuthErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.GeminiConfig{APIKey: "bad", Model: "m", BaseURL: srv.URL}, srv.Client())
	_, err := c.ExtractFromText(context.Background(), "x", "p")
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeVisionAuthFailure, se.Code)
}

func TestExtractClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL}, srv.Client())
	_, err := c.ExtractFromText(context.Background(), "x", "p")
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeVisionRateLimited, se.Code)
}

func TestExtractWithoutKey(t *testing.T) {
	c := NewClient(config.GeminiConfig{}, nil)
	assert.False(t, c.Enabled())
	_, err := c.ExtractFromText(context.Background(), "x", "p")
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeVisionAuthFailure, se.Code)
}
