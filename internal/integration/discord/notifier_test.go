package discord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lvow2022/research-assistant/internal/domain"
)

func newTestWebhook(t *testing.T, status int, sink *payload) (*Webhook, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sink != nil {
			_ = json.NewDecoder(r.Body).Decode(sink)
		}
		w.WriteHeader(status)
	}))
	wh := NewWebhook(srv.URL, "Research Assistant")
	wh.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }
	return wh, srv.Close
}

func TestSendResearchUpdate(t *testing.T) {
	var got payload
	wh, done := newTestWebhook(t, http.StatusNoContent, &got)
	defer done()

	err := wh.SendResearchUpdate(context.Background(), domain.ResearchUpdate{
		PapersUpdated:      []string{"Paper A", "Paper B"},
		WritingSuggestions: strings.Repeat("x", 2000),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Username != "Research Assistant" || len(got.Embeds) != 1 {
		t.Fatalf("payload = %+v", got)
	}
	e := got.Embeds[0]
	if e.Description != "Progress summary for March 05, 2024" {
		t.Fatalf("description = %q", e.Description)
	}
	if len(e.Fields) != 2 {
		t.Fatalf("only non-empty sections should be present, got %d fields", len(e.Fields))
	}
	if e.Fields[0].Value != "• Paper A\n• Paper B" {
		t.Fatalf("papers field = %q", e.Fields[0].Value)
	}
	if len(e.Fields[1].Value) != fieldLimit {
		t.Fatalf("suggestions should be clipped, got %d", len(e.Fields[1].Value))
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	wh, done := newTestWebhook(t, http.StatusBadRequest, nil)
	defer done()
	if err := wh.SendMessage(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error on 400")
	}
}

func TestWebhookNotConfigured(t *testing.T) {
	wh := NewWebhook("", "x")
	if err := wh.SendMessage(context.Background(), "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestUploadEmbed(t *testing.T) {
	e := UploadEmbed(domain.Analysis{
		Title:          "T",
		Summary:        "S",
		PrimaryTheme:   "General",
		SuggestedTheme: "QA",
		KeyConcepts:    []string{"a", "b", "c", "d"},
	}, true, time.Now())
	if e.Fields[0].Value != "QA" {
		t.Fatalf("theme = %q", e.Fields[0].Value)
	}
	if e.Fields[2].Value != "a, b, c" {
		t.Fatalf("concepts = %q", e.Fields[2].Value)
	}
	if len(e.Fields) != 4 || e.Fields[3].Name != "📝 Notion" {
		t.Fatalf("notion field missing: %+v", e.Fields)
	}

	empty := UploadEmbed(domain.Analysis{Title: "T", PrimaryTheme: "AI"}, false, time.Now())
	if empty.Fields[2].Value != "None identified" || len(empty.Fields) != 3 {
		t.Fatalf("fields = %+v", empty.Fields)
	}
}

func TestGapPaperEmbed(t *testing.T) {
	e := GapPaperEmbed("Orig", domain.SearchPaper{Title: "New", URL: "http://arxiv.org/abs/1"}, "", time.Now())
	if e.Color != ColorGreen || len(e.Fields) != 3 {
		t.Fatalf("embed = %+v", e)
	}
	if e.Fields[1].Value != "[New...](http://arxiv.org/abs/1)" {
		t.Fatalf("link = %q", e.Fields[1].Value)
	}
	withLink := GapPaperEmbed("Orig", domain.SearchPaper{Title: "New"}, "https://notion.so/p", time.Now())
	if len(withLink.Fields) != 4 {
		t.Fatalf("notion link field missing")
	}
}
