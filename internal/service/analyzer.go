package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/pkg/llm"
	"github.com/lvow2022/research-assistant/pkg/log"
)

// Summaries shown when no model analysis is available.
const (
	SummaryProcessing      = "Processing..."
	SummaryFailed          = "AI analysis failed. Please check the logs."
	SummaryNotConfigured   = "Claude not configured. Enable AI analysis in settings."
	SummaryNoText          = "Could not extract text from PDF."
	SummaryMissing         = "No summary available"
	SuggestionsUnavailable = "Unable to generate suggestions at this time."
)

// unparsedSummaryLen bounds the raw reply kept when it is not valid JSON.
const unparsedSummaryLen = 500

// AbstractAnalysis is the model's reading of a paper abstract.
type AbstractAnalysis struct {
	KeyConcepts []string `json:"key_concepts"`
	Methodology string   `json:"methodology"`
	Theme       string   `json:"theme"`
}

type AnalyzerService interface {
	// AnalyzePaper fills base from the model's reading of text. The bool
	// reports whether the model answered.
	AnalyzePaper(ctx context.Context, text, researchContext string, base domain.Analysis) (domain.Analysis, bool)
	GenerateWritingSuggestions(ctx context.Context, status, notes string) string
	GenerateSearchQueries(ctx context.Context, gaps string, concepts []string) []string
	AnalyzeAbstract(ctx context.Context, title, abstract string) (AbstractAnalysis, bool)
	Enabled() bool
}

// AnalysisParams are the sampling settings of the full paper analysis.
// The shorter prompts keep their own fixed budgets.
type AnalysisParams struct {
	MaxTokens   int
	Temperature float64
}

var DefaultAnalysisParams = AnalysisParams{MaxTokens: 1000, Temperature: 0.7}

type AnalyzerOption func(*analyzerService)

// WithAnalysisParams overrides DefaultAnalysisParams. Zero fields keep the
// default.
func WithAnalysisParams(p AnalysisParams) AnalyzerOption {
	return func(svc *analyzerService) {
		if p.MaxTokens > 0 {
			svc.params.MaxTokens = p.MaxTokens
		}
		if p.Temperature > 0 {
			svc.params.Temperature = p.Temperature
		}
	}
}

type analyzerService struct {
	client llm.Client
	params AnalysisParams
}

func NewAnalyzerService(client llm.Client, opts ...AnalyzerOption) AnalyzerService {
	if client == nil {
		client = llm.Disabled{}
	}
	svc := &analyzerService{client: client, params: DefaultAnalysisParams}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *analyzerService) Enabled() bool { return llm.Enabled(svc.client) }

// paperReply tolerates models that answer list fields with a string and
// text fields with a list.
type paperReply struct {
	Title          *string  `json:"title"`
	Summary        *string  `json:"summary"`
	KeyConcepts    flexList `json:"key_concepts"`
	ResearchGaps   flexText `json:"research_gaps"`
	Methodology    flexText `json:"methodology"`
	SuggestedTheme string   `json:"suggested_theme"`
}

func (svc *analyzerService) AnalyzePaper(ctx context.Context, text, researchContext string, base domain.Analysis) (domain.Analysis, bool) {
	a := base
	if !svc.Enabled() {
		a.Summary = SummaryNotConfigured
		return a, false
	}
	if strings.TrimSpace(text) == "" {
		a.Summary = SummaryNoText
		return a, false
	}

	prompt, err := llm.Render(llm.PromptAnalyzePaper, llm.PromptData{
		Text:    llm.Truncate(text, llm.MaxPaperChars),
		Context: researchContext,
	})
	if err != nil {
		log.WithError(err).Error("render analysis prompt")
		a.Summary = SummaryFailed
		return a, false
	}
	reply, err := svc.client.Complete(ctx, llm.Request{
		System:      llm.Persona(),
		Prompt:      prompt,
		MaxTokens:   svc.params.MaxTokens,
		Temperature: svc.params.Temperature,
	})
	if err != nil {
		log.WithError(err).WithField("file", base.Filename).Error("claude analysis failed")
		a.Summary = SummaryFailed
		return a, false
	}

	var r paperReply
	if !llm.DecodeJSON(reply, &r) {
		log.WithField("file", base.Filename).Warn("could not parse model reply as JSON")
		a.Summary = llm.Truncate(reply, unparsedSummaryLen)
		return a, true
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) != "" {
		a.Title = strings.TrimSpace(*r.Title)
	}
	a.Summary = SummaryMissing
	if r.Summary != nil {
		a.Summary = *r.Summary
	}
	a.KeyConcepts = []string(r.KeyConcepts)
	a.ResearchGaps = string(r.ResearchGaps)
	a.Methodology = string(r.Methodology)
	a.SuggestedTheme = base.PrimaryTheme
	if r.SuggestedTheme != "" {
		a.SuggestedTheme = r.SuggestedTheme
	}
	log.WithField("file", base.Filename).Info("claude analysis completed")
	return a, true
}

func (svc *analyzerService) GenerateWritingSuggestions(ctx context.Context, status, notes string) string {
	if !svc.Enabled() {
		return SuggestionsUnavailable
	}
	prompt, err := llm.Render(llm.PromptWritingSuggestions, llm.PromptData{Status: status, Notes: notes})
	if err != nil {
		log.WithError(err).Error("render suggestions prompt")
		return SuggestionsUnavailable
	}
	reply, err := svc.client.Complete(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   2000,
		Temperature: 0.8,
	})
	if err != nil {
		log.WithError(err).Error("failed to generate suggestions")
		return SuggestionsUnavailable
	}
	return strings.TrimSpace(reply)
}

func (svc *analyzerService) GenerateSearchQueries(ctx context.Context, gaps string, concepts []string) []string {
	queries := fallbackQueries(gaps, concepts)
	if !svc.Enabled() {
		return queries
	}
	prompt, err := llm.Render(llm.PromptSearchQueries, llm.PromptData{
		Gaps:     gaps,
		Concepts: strings.Join(concepts, ", "),
	})
	if err != nil {
		log.WithError(err).Error("render query prompt")
		return queries
	}
	reply, err := svc.client.Complete(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		log.WithError(err).Error("claude query generation failed")
		return queries
	}
	if lines := llm.Lines(reply, 3); len(lines) > 0 {
		return lines
	}
	return queries
}

// fallbackQueries builds queries from the gap text alone: its first ten
// words, and the leading concept paired with the first gap word.
func fallbackQueries(gaps string, concepts []string) []string {
	words := strings.Fields(gaps)
	var queries []string
	if len(words) > 0 {
		n := len(words)
		if n > 10 {
			n = 10
		}
		queries = append(queries, strings.Join(words[:n], " "))
	}
	if len(concepts) > 0 && strings.TrimSpace(concepts[0]) != "" {
		q := strings.TrimSpace(concepts[0])
		if len(words) > 0 {
			q += " " + words[0]
		}
		queries = append(queries, q)
	}
	return queries
}

func (svc *analyzerService) AnalyzeAbstract(ctx context.Context, title, abstract string) (AbstractAnalysis, bool) {
	if !svc.Enabled() || strings.TrimSpace(abstract) == "" {
		return AbstractAnalysis{}, false
	}
	prompt, err := llm.Render(llm.PromptAnalyzeAbstract, llm.PromptData{
		Title: title,
		Text:  llm.Truncate(abstract, llm.MaxAbstractChars),
	})
	if err != nil {
		log.WithError(err).Error("render abstract prompt")
		return AbstractAnalysis{}, false
	}
	reply, err := svc.client.Complete(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   300,
		Temperature: 0.5,
	})
	if err != nil {
		log.WithError(err).WithField("title", title).Error("claude abstract analysis failed")
		return AbstractAnalysis{}, false
	}
	var r struct {
		KeyConcepts flexList `json:"key_concepts"`
		Methodology flexText `json:"methodology"`
		Theme       string   `json:"theme"`
	}
	if !llm.DecodeJSON(reply, &r) {
		return AbstractAnalysis{}, false
	}
	return AbstractAnalysis{
		KeyConcepts: []string(r.KeyConcepts),
		Methodology: string(r.Methodology),
		Theme:       r.Theme,
	}, true
}

// flexList decodes either a JSON array of strings or a single string.
type flexList []string

func (l *flexList) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*l = nil
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// flexText decodes either a JSON string or an array of strings, joined.
type flexText string

func (t *flexText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = flexText(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*t = flexText(strings.Join(arr, "; "))
	return nil
}
