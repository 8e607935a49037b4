// Package gemini adapts the external generative-AI service into the
// structured extraction contract the expense service consumes. Every failure
// mode — transport, empty reply, missing JSON, bad amount — collapses into
// core.ErrExtractionFailed; callers never see finer-grained subtypes.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"trackd/internal/core"

	genlang "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"
)

const imagePrompt = `Extract the following from this bill: amount spent, store name, and category. Return it as JSON in the format {"amount": ..., "store": ..., "category": ...}`

const textPromptFormat = `Extract expense information from this text and return it as JSON. Text: %q. Return in format: {"amount": number, "store": "store name", "category": "expense category"}`

type Client struct {
	svc   *genlang.Service
	model string
}

// New builds a client for the given model (e.g. "models/gemini-1.5-flash").
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("missing Gemini model name")
	}

	svc, err := genlang.NewService(ctx, goption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}

	return &Client{svc: svc, model: model}, nil
}

// ExtractFromImage sends a receipt photo to the model and parses the
// structured fields out of its reply.
func (c *Client) ExtractFromImage(ctx context.Context, image []byte) (core.ExtractedExpense, error) {
	req := &genlang.GenerateContentRequest{
		Contents: []*genlang.Content{{
			Parts: []*genlang.Part{
				{InlineData: &genlang.Blob{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: imagePrompt},
			},
		}},
	}
	return c.generate(ctx, req)
}

// ExtractFromText extracts expense fields from a free-text description.
func (c *Client) ExtractFromText(ctx context.Context, text string) (core.ExtractedExpense, error) {
	req := &genlang.GenerateContentRequest{
		Contents: []*genlang.Content{{
			Parts: []*genlang.Part{
				{Text: fmt.Sprintf(textPromptFormat, text)},
			},
		}},
	}
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, req *genlang.GenerateContentRequest) (core.ExtractedExpense, error) {
	resp, err := c.svc.Models.GenerateContent(c.model, req).Context(ctx).Do()
	if err != nil {
		slog.ErrorContext(ctx, "Gemini request failed", "model", c.model, "error", err)
		return core.ExtractedExpense{}, fmt.Errorf("%w: %v", core.ErrExtractionFailed, err)
	}

	reply, err := candidateText(resp)
	if err != nil {
		return core.ExtractedExpense{}, err
	}

	extracted, err := parseExtraction(reply, time.Now())
	if err != nil {
		slog.WarnContext(ctx, "Could not parse extraction reply", "model", c.model, "error", err)
		return core.ExtractedExpense{}, err
	}

	slog.InfoContext(ctx, "Extraction succeeded",
		"model", c.model,
		"amount", extracted.Amount,
		"shop_name", extracted.ShopName,
		"purpose", extracted.Purpose)

	return extracted, nil
}

func candidateText(resp *genlang.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty response", core.ErrExtractionFailed)
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", fmt.Errorf("%w: response has no content", core.ErrExtractionFailed)
	}
	return content.Parts[0].Text, nil
}

// parseExtraction locates the first balanced JSON object inside the model's
// free-form reply and maps it onto the extraction contract. The timestamp is
// always stamped with now; the model is not asked for dates.
func parseExtraction(reply string, now time.Time) (core.ExtractedExpense, error) {
	block, ok := firstJSONObject(reply)
	if !ok {
		return core.ExtractedExpense{}, fmt.Errorf("%w: no JSON object in reply", core.ErrExtractionFailed)
	}

	var raw struct {
		Amount   json.RawMessage `json:"amount"`
		Store    string          `json:"store"`
		Category string          `json:"category"`
	}
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return core.ExtractedExpense{}, fmt.Errorf("%w: decode reply JSON: %v", core.ErrExtractionFailed, err)
	}

	amount, err := coerceAmount(raw.Amount)
	if err != nil {
		return core.ExtractedExpense{}, err
	}

	return core.ExtractedExpense{
		Amount:    amount,
		ShopName:  raw.Store,
		Purpose:   raw.Category,
		Timestamp: now,
	}, nil
}

// firstJSONObject scans for the first balanced {...} block, tolerating
// surrounding prose and braces inside JSON strings.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// coerceAmount accepts the amount as a JSON number or a numeric string,
// since the model is not consistent about quoting.
func coerceAmount(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: missing amount", core.ErrExtractionFailed)
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return n, nil
		}
	}

	return 0, fmt.Errorf("%w: amount %q is not a number", core.ErrExtractionFailed, string(raw))
}
