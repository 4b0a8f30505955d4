package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bmwz1992yc/order-management/backend/model"
)

// Extractor turns one photographed order into the raw JSON text the
// provider produced. Each provider variant owns its own request and
// response mapping; the output contract is identical.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (string, error)
}

// extractionPrompt is the single fixed instruction both providers receive
const extractionPrompt = `You are reading a photographed handwritten order form. Extract the order into JSON with exactly these fields:
{
  "customer_name": string,
  "items": [{"name": string, "unit": string, "quantity": number, "unit_price": number, "amount": number}],
  "total_amount": number,
  "order_date": "YYYY-MM-DD"
}
Respond with the JSON object only, no explanation.`

// NewExtractor returns the variant for the given provider name
func NewExtractor(provider string, entry model.ProviderEntry, client *http.Client) (Extractor, error) {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	switch provider {
	case model.ProviderOpenAI:
		return &openAIExtractor{entry: entry, httpClient: client}, nil
	case model.ProviderGemini:
		return &geminiExtractor{entry: entry, httpClient: client}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// StripCodeFence removes a Markdown code fence around a JSON payload.
// Providers regularly wrap their output in ```json ... ``` despite being
// told not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
