package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/integration/discord"
	"github.com/lvow2022/research-assistant/internal/integration/notion"
	"github.com/lvow2022/research-assistant/internal/pkg/llm"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/internal/repository/dao"
)

func newTestRepo(t *testing.T) repository.PaperRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "papers.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := dao.InitTables(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return repository.NewPaperRepository(dao.NewPaperDAO(db))
}

// fakeLLM answers every request with reply, or err.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeLLM) Ping(context.Context) error { return f.err }
func (f *fakeLLM) Name() string               { return "fake" }

type fakeNotion struct {
	mu       sync.Mutex
	enabled  bool
	err      error
	created  []notion.PageProperties
	existing []notion.Page
	queries  []string
	updated  map[string]map[string]any
}

func (f *fakeNotion) CreatePage(_ context.Context, p notion.PageProperties) (notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return notion.Page{}, f.err
	}
	f.created = append(f.created, p)
	return notion.Page{ID: "page-1", URL: "https://notion.so/page-1"}, nil
}

func (f *fakeNotion) UpdatePage(_ context.Context, pageID string, props map[string]any) (notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return notion.Page{}, f.err
	}
	if f.updated == nil {
		f.updated = map[string]map[string]any{}
	}
	f.updated[pageID] = props
	return notion.Page{ID: pageID}, nil
}

func (f *fakeNotion) QueryByTitle(_ context.Context, title string) ([]notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, title)
	var out []notion.Page
	for _, p := range f.existing {
		if p.Prop("Title") == title {
			out = append(out, p)
		}
	}
	return out, f.err
}

func (f *fakeNotion) QueryUpdatedSince(context.Context, time.Time) ([]notion.Page, error) {
	return f.existing, f.err
}

func (f *fakeNotion) RetrieveDatabase(context.Context) error { return f.err }
func (f *fakeNotion) Enabled() bool                          { return f.enabled }

func notionPage(t *testing.T, title, status, notes string) notion.Page {
	t.Helper()
	raw, _ := json.Marshal(map[string]any{
		"id": "p-" + title,
		"properties": map[string]any{
			"Title":  map[string]any{"type": "title", "title": []map[string]string{{"plain_text": title}}},
			"Status": map[string]any{"type": "select", "select": map[string]string{"name": status}},
			"Notes":  map[string]any{"type": "rich_text", "rich_text": []map[string]string{{"plain_text": notes}}},
		},
	})
	var p notion.Page
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("build page: %v", err)
	}
	return p
}

type fakeDiscord struct {
	mu      sync.Mutex
	enabled bool
	err     error
	embeds  []discord.Embed
	updates []domain.ResearchUpdate
}

func (f *fakeDiscord) SendMessage(context.Context, string) error { return f.err }

func (f *fakeDiscord) SendEmbeds(_ context.Context, embeds ...discord.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.embeds = append(f.embeds, embeds...)
	return nil
}

func (f *fakeDiscord) SendResearchUpdate(_ context.Context, u domain.ResearchUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeDiscord) Enabled() bool { return f.enabled }

type fakeArxiv struct {
	results map[string][]domain.SearchPaper
	detail  domain.PaperDetail
	err     error
	queries []string
}

func (f *fakeArxiv) Search(_ context.Context, q string, _ int) ([]domain.SearchPaper, error) {
	f.queries = append(f.queries, q)
	return f.results[q], f.err
}

func (f *fakeArxiv) FetchAbstractPage(_ context.Context, url string) (domain.PaperDetail, error) {
	if f.err != nil {
		return domain.PaperDetail{}, f.err
	}
	d := f.detail
	d.URL = url
	return d, nil
}
