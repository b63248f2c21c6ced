package domain

import "time"

// 论文状态
const (
	StatusDraft   = "Draft"
	StatusToRead  = "To Read"
	StatusReading = "Reading"
	StatusDone    = "Done"
)

// 论文来源
const (
	SourceUpload       = "upload"
	SourceGapAgent     = "gap-agent"
	DefaultTheme       = "General"
	ThemeAI            = "AI"
	ThemeHallucination = "LLM Hallucinations"
	ThemeDevFlow       = "Developer Workflows"
	ThemeQA            = "QA"
)

// Themes lists the research themes papers are filed under.
var Themes = []string{ThemeAI, ThemeHallucination, ThemeDevFlow, ThemeQA, DefaultTheme}

// Statuses lists the valid reading states.
var Statuses = []string{StatusDraft, StatusToRead, StatusReading, StatusDone}

type Paper struct {
	Id                int64
	Title             string
	Filename          string
	Theme             string
	SuggestedTheme    string
	Status            string
	Summary           string
	KeyConcepts       []string
	ResearchGaps      string
	Methodology       string
	Notes             string
	Pages             int
	ExtractionSuccess bool
	NotionPageID      string
	NotionURL         string
	PDFLink           string
	Source            string

	// UTC 0 的时区
	Ctime time.Time
	Utime time.Time
}

// EffectiveTheme is the suggested theme when present, else the requested one.
func (p Paper) EffectiveTheme() string {
	if p.SuggestedTheme != "" {
		return p.SuggestedTheme
	}
	if p.Theme != "" {
		return p.Theme
	}
	return DefaultTheme
}

// Analysis is what an upload yields after text extraction and model review.
type Analysis struct {
	Title             string   `json:"title"`
	Summary           string   `json:"summary"`
	KeyConcepts       []string `json:"key_concepts"`
	ResearchGaps      string   `json:"research_gaps"`
	Methodology       string   `json:"methodology"`
	PrimaryTheme      string   `json:"primary_theme"`
	SuggestedTheme    string   `json:"suggested_theme,omitempty"`
	Filename          string   `json:"filename"`
	Pages             int      `json:"pages"`
	ExtractionSuccess bool     `json:"extraction_success"`
}

// Theme is the suggested theme when present, else the primary one.
func (a Analysis) Theme() string {
	if a.SuggestedTheme != "" {
		return a.SuggestedTheme
	}
	return a.PrimaryTheme
}

type ServicesUsed struct {
	PDFExtracted    bool `json:"pdf_extracted"`
	ClaudeAnalyzed  bool `json:"claude_analyzed"`
	NotionCreated   bool `json:"notion_created"`
	DiscordNotified bool `json:"discord_notified"`
}

// PaperStats backs the dashboard counters.
type PaperStats struct {
	Total    int64            `json:"total"`
	ByTheme  map[string]int64 `json:"by_theme"`
	ByStatus map[string]int64 `json:"by_status"`
}

// ValidStatus reports whether s is one of Statuses.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}
