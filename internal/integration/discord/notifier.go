package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lvow2022/research-assistant/internal/domain"
)

var ErrNotConfigured = errors.New("discord: not configured")

// Embed colours.
const (
	ColorBlue  = 5814783
	ColorGreen = 65280
)

// Discord field values are limited to 1024 characters.
const fieldLimit = 1024

type Notifier interface {
	SendMessage(ctx context.Context, text string) error
	SendEmbeds(ctx context.Context, embeds ...Embed) error
	SendResearchUpdate(ctx context.Context, u domain.ResearchUpdate) error
	Enabled() bool
}

type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Footer struct {
	Text string `json:"text"`
}

type payload struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

type Webhook struct {
	url      string
	username string
	http     *resty.Client
	now      func() time.Time
}

func NewWebhook(url, username string) *Webhook {
	return &Webhook{
		url:      url,
		username: username,
		http:     resty.New().SetTimeout(15 * time.Second),
		now:      time.Now,
	}
}

func (w *Webhook) Enabled() bool { return w != nil && w.url != "" }

func (w *Webhook) SendMessage(ctx context.Context, text string) error {
	return w.post(ctx, payload{Username: w.username, Content: text})
}

func (w *Webhook) SendEmbeds(ctx context.Context, embeds ...Embed) error {
	return w.post(ctx, payload{Username: w.username, Embeds: embeds})
}

// SendResearchUpdate posts the periodic digest. Sections without content
// are left out.
func (w *Webhook) SendResearchUpdate(ctx context.Context, u domain.ResearchUpdate) error {
	now := w.now()
	e := Embed{
		Title:       "📚 PhD Research Update",
		Description: "Progress summary for " + now.Format("January 02, 2006"),
		Color:       ColorBlue,
		Footer:      &Footer{Text: "Research Assistant"},
		Timestamp:   now.Format(time.RFC3339),
	}
	if len(u.PapersUpdated) > 0 {
		e.Fields = append(e.Fields, Field{Name: "📝 Papers Updated", Value: clip(bullets(u.PapersUpdated), fieldLimit)})
	}
	if len(u.NewLiterature) > 0 {
		e.Fields = append(e.Fields, Field{
			Name:   "🔍 New Literature Found",
			Value:  fmt.Sprintf("%d relevant papers discovered", len(u.NewLiterature)),
			Inline: true,
		})
	}
	if u.WritingSuggestions != "" {
		e.Fields = append(e.Fields, Field{Name: "💡 Writing Suggestions", Value: clip(u.WritingSuggestions, fieldLimit)})
	}
	if len(u.NextMilestones) > 0 {
		e.Fields = append(e.Fields, Field{Name: "🎯 Next Milestones", Value: clip(bullets(u.NextMilestones), fieldLimit)})
	}
	return w.SendEmbeds(ctx, e)
}

func (w *Webhook) post(ctx context.Context, p payload) error {
	if !w.Enabled() {
		return ErrNotConfigured
	}
	r, err := w.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	if r.IsError() {
		return fmt.Errorf("discord webhook: %s; body: %s", r.Status(), clip(r.String(), 300))
	}
	return nil
}

// UploadEmbed announces a freshly analysed upload.
func UploadEmbed(a domain.Analysis, notionCreated bool, now time.Time) Embed {
	concepts := a.KeyConcepts
	if len(concepts) > 3 {
		concepts = concepts[:3]
	}
	conceptText := strings.Join(concepts, ", ")
	if conceptText == "" {
		conceptText = "None identified"
	}
	e := Embed{
		Title:       "📄 New Paper Uploaded: " + clip(a.Title, 100),
		Description: clip(a.Summary, 500),
		Color:       ColorBlue,
		Fields: []Field{
			{Name: "🏷️ Theme", Value: orNone(a.Theme()), Inline: true},
			{Name: "📊 Status", Value: domain.StatusDraft, Inline: true},
			{Name: "🔍 Key Concepts", Value: clip(conceptText, fieldLimit)},
		},
		Footer:    &Footer{Text: "Uploaded by Research Assistant"},
		Timestamp: now.Format(time.RFC3339),
	}
	if notionCreated {
		e.Fields = append(e.Fields, Field{Name: "📝 Notion", Value: "Entry created successfully", Inline: true})
	}
	return e
}

// GapPaperEmbed announces a paper added to close a research gap.
func GapPaperEmbed(originalTitle string, p domain.SearchPaper, notionURL string, now time.Time) Embed {
	e := Embed{
		Title:       "🎯 Gap-Filling Paper Added",
		Description: "Found and added a paper to address research gaps",
		Color:       ColorGreen,
		Fields: []Field{
			{Name: "📖 Original Paper", Value: orNone(clip(originalTitle, 100))},
			{Name: "📄 New Paper Added", Value: fmt.Sprintf("[%s...](%s)", clip(p.Title, 80), p.URL)},
			{Name: "📝 Status", Value: "Added as 'To Read'", Inline: true},
		},
		Footer:    &Footer{Text: "Research Gap Agent"},
		Timestamp: now.Format(time.RFC3339),
	}
	if notionURL != "" {
		e.Fields = append(e.Fields, Field{Name: "🔗 Notion Link", Value: fmt.Sprintf("[View in Notion](%s)", notionURL), Inline: true})
	}
	return e
}

// StatusEmbed is the connectivity test message.
func StatusEmbed(version string) Embed {
	return Embed{
		Title:       "System Status",
		Description: "All systems operational",
		Color:       ColorBlue,
		Fields: []Field{
			{Name: "Status", Value: "✅ Online", Inline: true},
			{Name: "Version", Value: version, Inline: true},
		},
	}
}

func bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "• "+it)
	}
	return strings.Join(lines, "\n")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Discord rejects empty field values.
func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
