// Package ai wraps the Gemini API behind the two oracle boundaries the
// application needs: category suggestion and invoice-text extraction.
// Callers treat both as best-effort advisors and downgrade any failure
// to a neutral default.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"economize/internal/core"
)

// ExtractedPurchase is one record the extraction oracle pulled out of
// freeform invoice text.
type ExtractedPurchase struct {
	Item         string  `json:"item"`
	Amount       float64 `json:"amount"`
	PurchaseDate string  `json:"purchaseDate"`
	Installments int     `json:"installments"`
}

type Client struct {
	client  *genai.Client
	suggest *genai.GenerativeModel
	extract *genai.GenerativeModel
}

// New creates a Gemini client with two model handles: a low-temperature
// one for category suggestion and a JSON-output one for extraction.
func New(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	suggest := client.GenerativeModel(modelName)
	suggest.SetTemperature(0.1)

	extract := client.GenerativeModel(modelName)
	extract.SetTemperature(0)
	extract.ResponseMIMEType = "application/json"

	return &Client{client: client, suggest: suggest, extract: extract}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SuggestCategory asks the model to pick one of the existing category
// names for the given purchase description. The answer is matched
// case-insensitively against the provided list; anything else falls
// back to the default category.
func (c *Client) SuggestCategory(ctx context.Context, description string, categories []string) (string, error) {
	prompt := fmt.Sprintf(
		"Categorize a seguinte compra baseada nestas categorias: %s. Descrição: %q. Responda apenas o nome da categoria.",
		strings.Join(categories, ", "), description)

	resp, err := c.suggest.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate category suggestion: %w", err)
	}

	answer := strings.TrimSpace(responseText(resp))
	return MatchCategory(answer, categories), nil
}

// ExtractPurchases asks the model to pull structured purchase records
// out of pasted credit-card invoice text, using the given year for
// dates that omit one.
func (c *Client) ExtractPurchases(ctx context.Context, text string, year int) ([]ExtractedPurchase, error) {
	prompt := fmt.Sprintf(
		"Extraia todas as compras do seguinte texto de fatura de cartão de crédito. Use o ano %d. "+
			"Responda apenas com um array JSON de objetos com os campos: "+
			"item (string), amount (número), purchaseDate (string ISO YYYY-MM-DD), "+
			"installments (inteiro, 1 se for à vista). Texto: %q", year, text)

	resp, err := c.extract.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate extraction: %w", err)
	}

	records, err := ParseExtraction(responseText(resp))
	if err != nil {
		return nil, fmt.Errorf("parse extraction output: %w", err)
	}
	return records, nil
}

// responseText flattens the text parts of a model response.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// CleanJSON strips markdown code fences the model sometimes wraps
// around JSON output.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseExtraction decodes the model's JSON array output.
func ParseExtraction(raw string) ([]ExtractedPurchase, error) {
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		return nil, nil
	}
	var records []ExtractedPurchase
	if err := json.Unmarshal([]byte(cleaned), &records); err != nil {
		return nil, fmt.Errorf("unmarshal extraction JSON: %w", err)
	}
	return records, nil
}

// MatchCategory resolves the model's answer against the known category
// names, case-insensitively. Unknown answers map to the default
// category.
func MatchCategory(answer string, categories []string) string {
	for _, c := range categories {
		if strings.EqualFold(c, answer) {
			return c
		}
	}
	return core.DefaultCategory
}
