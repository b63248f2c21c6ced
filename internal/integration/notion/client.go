// Package notion talks to the Notion REST API to mirror papers into the
// research tracking database.
package notion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNotConfigured = errors.New("notion: not configured")

// RichTextLimit is the longest text Notion accepts in one rich_text item.
const RichTextLimit = 2000

const (
	defaultBaseURL = "https://api.notion.com"
	defaultVersion = "2022-06-28"
)

// Tracker is the subset of Notion the services rely on.
type Tracker interface {
	CreatePage(ctx context.Context, props PageProperties) (Page, error)
	UpdatePage(ctx context.Context, pageID string, props map[string]any) (Page, error)
	QueryByTitle(ctx context.Context, title string) ([]Page, error)
	QueryUpdatedSince(ctx context.Context, since time.Time) ([]Page, error)
	RetrieveDatabase(ctx context.Context) error
	Enabled() bool
}

type Client struct {
	databaseID string
	http       *resty.Client
}

func New(apiKey, databaseID, baseURL, version string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if version == "" {
		version = defaultVersion
	}
	c := resty.New().
		SetTimeout(20*time.Second).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Notion-Version", version).
		SetHeader("Content-Type", "application/json")
	return &Client{databaseID: databaseID, http: c}
}

func (c *Client) Enabled() bool { return c != nil && c.databaseID != "" }

// PageProperties is the paper row written to the database.
type PageProperties struct {
	Title        string
	Theme        string
	Status       string
	Summary      string
	Notes        string
	KeyFindings  string
	ResearchGaps string
	PDFLink      string
	LastUpdated  time.Time
}

func (p PageProperties) toAPI() map[string]any {
	props := map[string]any{
		"Title":  map[string]any{"title": richText(p.Title)},
		"Theme":  map[string]any{"select": map[string]string{"name": p.Theme}},
		"Status": map[string]any{"select": map[string]string{"name": p.Status}},
	}
	props["Summary"] = map[string]any{"rich_text": richText(p.Summary)}
	props["Notes"] = map[string]any{"rich_text": richText(p.Notes)}
	props["Key Findings"] = map[string]any{"rich_text": richText(p.KeyFindings)}
	props["Research Gaps"] = map[string]any{"rich_text": richText(p.ResearchGaps)}
	if p.PDFLink != "" {
		props["PDF Link"] = map[string]any{"url": p.PDFLink}
	}
	t := p.LastUpdated
	if t.IsZero() {
		t = time.Now()
	}
	props["Last Updated"] = map[string]any{"date": map[string]string{"start": t.UTC().Format(time.RFC3339)}}
	return props
}

// StatusProperties moves a row to status and stamps Last Updated.
func StatusProperties(status string, at time.Time) map[string]any {
	return map[string]any{
		"Status":       map[string]any{"select": map[string]string{"name": status}},
		"Last Updated": map[string]any{"date": map[string]string{"start": at.UTC().Format(time.RFC3339)}},
	}
}

func richText(s string) []map[string]any {
	return []map[string]any{{"text": map[string]string{"content": Clip(s, RichTextLimit)}}}
}

// Page is a database row as returned by the API.
type Page struct {
	ID             string                  `json:"id"`
	URL            string                  `json:"url"`
	LastEditedTime time.Time               `json:"last_edited_time"`
	Properties     map[string]PropertyItem `json:"properties"`
}

type PropertyItem struct {
	Type     string      `json:"type"`
	Title    []textBlock `json:"title,omitempty"`
	RichText []textBlock `json:"rich_text,omitempty"`
	Select   *struct {
		Name string `json:"name"`
	} `json:"select,omitempty"`
	URL  *string `json:"url,omitempty"`
	Date *struct {
		Start string `json:"start"`
	} `json:"date,omitempty"`
}

type textBlock struct {
	PlainText string `json:"plain_text"`
	Text      struct {
		Content string `json:"content"`
	} `json:"text"`
}

// Text flattens a title or rich_text property.
func (p PropertyItem) Text() string {
	blocks := p.Title
	if len(blocks) == 0 {
		blocks = p.RichText
	}
	var sb strings.Builder
	for _, b := range blocks {
		if b.PlainText != "" {
			sb.WriteString(b.PlainText)
		} else {
			sb.WriteString(b.Text.Content)
		}
	}
	return sb.String()
}

// Prop returns the flattened text of a named property.
func (p Page) Prop(name string) string {
	item, ok := p.Properties[name]
	if !ok {
		return ""
	}
	if item.Select != nil {
		return item.Select.Name
	}
	if item.URL != nil {
		return *item.URL
	}
	return item.Text()
}

type queryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) CreatePage(ctx context.Context, props PageProperties) (Page, error) {
	if !c.Enabled() {
		return Page{}, ErrNotConfigured
	}
	body := map[string]any{
		"parent":     map[string]string{"database_id": c.databaseID},
		"properties": props.toAPI(),
	}
	var page Page
	if err := c.do(ctx, resty.MethodPost, "/v1/pages", body, &page); err != nil {
		return Page{}, fmt.Errorf("notion create page: %w", err)
	}
	return page, nil
}

func (c *Client) UpdatePage(ctx context.Context, pageID string, props map[string]any) (Page, error) {
	if !c.Enabled() {
		return Page{}, ErrNotConfigured
	}
	var page Page
	if err := c.do(ctx, resty.MethodPatch, "/v1/pages/"+pageID, map[string]any{"properties": props}, &page); err != nil {
		return Page{}, fmt.Errorf("notion update page: %w", err)
	}
	return page, nil
}

// QueryByTitle finds rows whose title contains title.
func (c *Client) QueryByTitle(ctx context.Context, title string) ([]Page, error) {
	filter := map[string]any{
		"property": "Title",
		"title":    map[string]string{"contains": title},
	}
	return c.query(ctx, filter)
}

// QueryUpdatedSince lists rows whose "Last Updated" date is after since,
// most recently updated first.
func (c *Client) QueryUpdatedSince(ctx context.Context, since time.Time) ([]Page, error) {
	filter := map[string]any{
		"property": "Last Updated",
		"date":     map[string]string{"after": since.UTC().Format(time.RFC3339)},
	}
	return c.query(ctx, filter,
		map[string]string{"property": "Last Updated", "direction": "descending"},
		map[string]string{"timestamp": "last_edited_time", "direction": "descending"},
	)
}

func (c *Client) query(ctx context.Context, filter map[string]any, sorts ...map[string]string) ([]Page, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	var out []Page
	cursor := ""
	for {
		body := map[string]any{"filter": filter, "page_size": 100}
		if len(sorts) > 0 {
			body["sorts"] = sorts
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		var resp queryResponse
		if err := c.do(ctx, resty.MethodPost, "/v1/databases/"+c.databaseID+"/query", body, &resp); err != nil {
			return nil, fmt.Errorf("notion query: %w", err)
		}
		out = append(out, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return out, nil
		}
		cursor = resp.NextCursor
	}
}

// RetrieveDatabase checks that the database is reachable with our token.
func (c *Client) RetrieveDatabase(ctx context.Context) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if err := c.do(ctx, resty.MethodGet, "/v1/databases/"+c.databaseID, nil, nil); err != nil {
		return fmt.Errorf("notion retrieve database: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var fail apiError
	req := c.http.R().SetContext(ctx).SetError(&fail)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	r, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if r.IsError() {
		if fail.Message != "" {
			return fmt.Errorf("%s: %s (%s)", r.Status(), fail.Message, fail.Code)
		}
		return fmt.Errorf("%s", r.Status())
	}
	return nil
}

// Clip shortens s to at most n runes.
func Clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
