package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lifeorganizer/internal/models"
)

func TestSplitMessageIntoChunks(t *testing.T) {
	short := "hello"
	if chunks := splitMessageIntoChunks(short, 4000); len(chunks) != 1 || chunks[0] != short {
		t.Fatalf("short message must be a single chunk, got %v", chunks)
	}

	long := strings.Repeat("paragraph one two three.\n\n", 400)
	chunks := splitMessageIntoChunks(long, 4000)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 4000 {
			t.Fatalf("chunk %d exceeds limit: %d chars", i, len(c))
		}
	}
}

func TestSplitMessageIntoChunks_KeepsCodeFencesIntact(t *testing.T) {
	var b strings.Builder
	b.WriteString(strings.Repeat("lead paragraph text here.\n\n", 60))
	b.WriteString("```go\n")
	b.WriteString(strings.Repeat("fmt.Println(\"chunk\")\n", 40))
	b.WriteString("```\n\n")
	b.WriteString(strings.Repeat("trailing paragraph text.\n\n", 60))

	chunks := splitMessageIntoChunks(b.String(), 2000)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if strings.Count(c, "```")%2 != 0 {
			t.Fatalf("chunk %d splits a code fence", i)
		}
	}
}

func TestStripMarkdown(t *testing.T) {
	in := "**bold** and `code` and [link](https://example.com)"
	got := stripMarkdown(in)
	want := "bold and code and link (https://example.com)"
	if got != want {
		t.Fatalf("stripMarkdown = %q, want %q", got, want)
	}
}

func TestSendMessageFallsBackToPlainText(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)

		if _, hasMode := payload["parse_mode"]; hasMode {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	svc := NewTelegramService("test-token")
	svc.apiBase = srv.URL

	if err := svc.SendMessage(context.Background(), 7, "**broken <markup**"); err != nil {
		t.Fatalf("expected plain-text fallback to succeed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected HTML attempt then plain retry, got %d calls", calls)
	}
}

func TestSendChoicesKeyboardShape(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	svc := NewTelegramService("test-token")
	svc.apiBase = srv.URL

	buttons := []models.ChoiceButton{{Label: "A", Data: "pick a"}, {Label: "B", Data: "pick b"}}
	if err := svc.SendChoices(context.Background(), 7, "Which one?", buttons); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	markup, ok := captured["reply_markup"].(map[string]any)
	if !ok {
		t.Fatalf("expected reply_markup, got %v", captured)
	}
	rows, ok := markup["inline_keyboard"].([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("expected 2 keyboard rows, got %v", markup)
	}
}
