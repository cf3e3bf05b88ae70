package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tally/internal/core"
	"tally/internal/llm"
)

type stubCompleter struct {
	answer string
	err    error
	got    []llm.Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	s.got = messages
	return s.answer, s.err
}

func TestParse(t *testing.T) {
	stub := &stubCompleter{answer: "```json\n" + `{
		"items": [
			{"text": "Milk", "price": 2.49, "category_id": 1},
			{"text": "Yoga Mat", "price": "15.99", "category_name": "Fitness"}
		],
		"vendor": "Corner Shop",
		"date": "2024-05-01",
		"total": 18.48
	}` + "\n```"}
	p := New(stub)

	x, err := p.Parse(context.Background(), []byte("\x89PNG\r\n\x1a\n"), []core.Category{{ID: 1, Name: "Groceries"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(x.Items) != 2 || x.Vendor != "Corner Shop" || x.Date != "2024-05-01" {
		t.Fatalf("extraction = %+v", x)
	}
	if id, ok := x.Items[0].Category.ID(); !ok || id != 1 {
		t.Fatalf("item 0 category = %v", x.Items[0].Category)
	}
	if name, ok := x.Items[1].Category.Name(); !ok || name != "Fitness" {
		t.Fatalf("item 1 category = %v", x.Items[1].Category)
	}
	if x.Total == nil || x.Total.String() != "18.48" {
		t.Fatalf("total = %v", x.Total)
	}

	msg := stub.got[0]
	if !strings.Contains(msg.Content, "- 1: Groceries") || len(msg.Images) != 1 || msg.Images[0].MIME != "image/png" {
		t.Fatalf("request = %+v", msg)
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		stub *stubCompleter
	}{
		{"model error", &stubCompleter{err: errors.New("rate limited")}},
		{"not json", &stubCompleter{answer: "I cannot read this receipt."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.stub).Parse(context.Background(), []byte("img"), nil); err == nil {
				t.Fatal("Parse succeeded, want error")
			}
		})
	}
}

func TestImageMIME(t *testing.T) {
	if got := imageMIME([]byte("plain text")); got != "image/jpeg" {
		t.Fatalf("imageMIME(text) = %q", got)
	}
	if got := imageMIME([]byte("\xff\xd8\xff\xe0")); got != "image/jpeg" {
		t.Fatalf("imageMIME(jpeg) = %q", got)
	}
}
