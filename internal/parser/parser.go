// Package parser extracts receipt items from an image with a multimodal
// chat model.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"tally/internal/core"
	"tally/internal/llm"
)

// Completer is the chat model the parser talks to.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// LLMParser implements the receipt parser port on top of a chat model.
type LLMParser struct {
	llm Completer
}

func New(c Completer) *LLMParser {
	return &LLMParser{llm: c}
}

// Parse sends the image together with the workspace catalog and decodes the
// model's JSON answer. Items may name a catalog id or propose a new category
// name.
func (p *LLMParser) Parse(ctx context.Context, image []byte, catalog []core.Category) (core.Extraction, error) {
	msg := llm.Message{
		Role:    llm.RoleUser,
		Content: prompt(catalog),
		Images:  []llm.Image{{MIME: imageMIME(image), Data: image}},
	}
	answer, err := p.llm.Complete(ctx, []llm.Message{msg})
	if err != nil {
		return core.Extraction{}, fmt.Errorf("complete: %w", err)
	}
	return decode(answer)
}

func decode(answer string) (core.Extraction, error) {
	var x core.Extraction
	if err := json.Unmarshal([]byte(llm.StripFences(answer)), &x); err != nil {
		slog.Warn("Unreadable parser answer", "answer", truncate(answer, 200), "error", err)
		return core.Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}
	return x, nil
}

func prompt(catalog []core.Category) string {
	var list strings.Builder
	for _, c := range catalog {
		fmt.Fprintf(&list, "- %d: %s\n", c.ID, c.Name)
	}
	return fmt.Sprintf(`Extract the following information from the image of a receipt:
- A list of items with their text description, price, and either a matched category_id OR a new category_name if no match is found.
- Vendor name (store or brand name).
- Purchase date if available.
- Total amount.

Here is the list of available categories (with IDs) for this workspace:
%s
Match each item to the best category from this list. If none fits, return a "category_name" instead of "category_id".
Never confuse total with subtotal: look for a printed total and check it against the sum of prices. If they differ, prefer the printed total.

Return only a raw JSON object like this (no extra text or backticks):
{
  "items": [
    {"text": "Milk", "price": 2.49, "category_id": 1},
    {"text": "Yoga Mat", "price": 15.99, "category_name": "Fitness"}
  ],
  "vendor": "Vendor Name",
  "date": "YYYY-MM-DD",
  "total": 18.48
}`, list.String())
}

func imageMIME(image []byte) string {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		return "image/jpeg"
	}
	return mime
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
