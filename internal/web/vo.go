package web

import (
	"time"

	"github.com/lvow2022/research-assistant/internal/domain"
)

// PaperVO is the JSON view of a stored paper.
type PaperVO struct {
	Id                int64    `json:"id"`
	Title             string   `json:"title"`
	Filename          string   `json:"filename"`
	Theme             string   `json:"theme"`
	SuggestedTheme    string   `json:"suggested_theme,omitempty"`
	Status            string   `json:"status"`
	Summary           string   `json:"summary"`
	KeyConcepts       []string `json:"key_concepts"`
	ResearchGaps      string   `json:"research_gaps"`
	Methodology       string   `json:"methodology"`
	Notes             string   `json:"notes"`
	Pages             int      `json:"pages"`
	ExtractionSuccess bool     `json:"extraction_success"`
	NotionURL         string   `json:"notion_url,omitempty"`
	PDFLink           string   `json:"pdf_link"`
	Source            string   `json:"source"`
	Ctime             string   `json:"ctime"`
	Utime             string   `json:"utime"`
}

func toPaperVO(p domain.Paper) PaperVO {
	concepts := p.KeyConcepts
	if concepts == nil {
		concepts = []string{}
	}
	return PaperVO{
		Id:                p.Id,
		Title:             p.Title,
		Filename:          p.Filename,
		Theme:             p.EffectiveTheme(),
		SuggestedTheme:    p.SuggestedTheme,
		Status:            p.Status,
		Summary:           p.Summary,
		KeyConcepts:       concepts,
		ResearchGaps:      p.ResearchGaps,
		Methodology:       p.Methodology,
		Notes:             p.Notes,
		Pages:             p.Pages,
		ExtractionSuccess: p.ExtractionSuccess,
		NotionURL:         p.NotionURL,
		PDFLink:           p.PDFLink,
		Source:            p.Source,
		Ctime:             p.Ctime.Format(time.RFC3339),
		Utime:             p.Utime.Format(time.RFC3339),
	}
}
