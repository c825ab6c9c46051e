// Package vision extracts menu items from PDFs, images, and messy page text
// using the Gemini multimodal API.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/saratoga-data/menuharvest/config"
	"github.com/saratoga-data/menuharvest/menutext"
	"github.com/saratoga-data/menuharvest/models"
)

// Client is a lightweight Gemini generateContent client.
// It uses net/http directly, no SDK needed for a single endpoint.
type Client struct {
	cfg        config.GeminiConfig
	httpClient *http.Client
}

// NewClient creates a Gemini client. Pass nil to use a default http.Client.
func NewClient(cfg config.GeminiConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Enabled reports whether an API key is configured. Vision-dependent sites
// are skipped when it returns false.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// generateRequest is the Gemini generateContent request body.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// generateResponse is the minimal response shape we need.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// apiErrorResponse captures a Gemini API error.
type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ExtractFromPDF sends raw PDF bytes to the model and returns the menu items
// it reads off the document.
func (c *Client) ExtractFromPDF(ctx context.Context, pdf []byte, prompt string) ([]models.Item, error) {
	return c.extract(ctx, []part{
		{Text: prompt},
		{InlineData: &inlineData{
			MimeType: "application/pdf",
			Data:     base64.StdEncoding.EncodeToString(pdf),
		}},
	})
}

// ExtractFromImage sends a PNG or JPEG menu photo to the model.
func (c *Client) ExtractFromImage(ctx context.Context, img []byte, mimeType, prompt string) ([]models.Item, error) {
	return c.extract(ctx, []part{
		{Text: prompt},
		{InlineData: &inlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(img),
		}},
	})
}

// ExtractFromText sends already-flattened page text (markdown) to the model.
// Used when a page's markup defeats selector-based parsing.
func (c *Client) ExtractFromText(ctx context.Context, text, prompt string) ([]models.Item, error) {
	return c.extract(ctx, []part{
		{Text: prompt + "\n\nMENU CONTENT:\n" + text},
	})
}

func (c *Client) extract(ctx context.Context, parts []part) ([]models.Item, error) {
	if !c.Enabled() {
		return nil, models.NewScrapeError(
			models.ErrCodeVisionAuthFailure, "no Gemini API key configured", nil,
		)
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "vision request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "failed to read vision response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(resp.StatusCode, respBody)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "failed to parse vision response", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "vision model returned no candidates", nil)
	}

	var sb strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	items, err := DecodeItems(sb.String())
	if err != nil {
		return nil, err
	}
	slog.Debug("vision extraction complete", "items", len(items))
	return items, nil
}

// jsonArrayRe locates the outermost JSON array in model output that carries
// prose around it.
var jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// DecodeItems parses model output into menu items. The model is asked for a
// bare JSON array but sometimes wraps it in markdown fences or commentary,
// so both are stripped before unmarshalling. Items with an empty name are
// dropped, and prices get a $ prefix forced on, since the model echoes
// whatever the menu printed.
func DecodeItems(raw string) ([]models.Item, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "[") {
		if m := jsonArrayRe.FindString(s); m != "" {
			s = m
		}
	}

	var items []models.Item
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeVisionFailure, "vision model returned invalid JSON", err,
		)
	}

	kept := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		it.Price = menutext.EnsureDollar(it.Price)
		kept = append(kept, it)
	}
	return kept, nil
}

// classifyAPIError maps HTTP status codes to scrape error codes.
func classifyAPIError(statusCode int, body []byte) *models.ScrapeError {
	var errResp apiErrorResponse
	msg := "vision API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewScrapeError(models.ErrCodeVisionAuthFailure, msg, nil)
	case http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeVisionRateLimited, msg, nil)
	default:
		return models.NewScrapeError(models.ErrCodeVisionFailure,
			fmt.Sprintf("vision API returned %d: %s", statusCode, msg), nil)
	}
}
