package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/integration/discord"
	"github.com/lvow2022/research-assistant/internal/integration/notion"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/pkg/log"
)

const (
	gapQueries       = 2
	gapResultsPerQry = 3
	dedupeKeyLen     = 50
	externalTitle    = "External Paper"
	externalSummary  = "External paper - manual review needed"
	gapPaperGapsNote = "Gap-filling paper - review for insights"
)

var ErrNoGaps = errors.New("paper has no research gaps recorded")

// ArxivClient is the part of the arXiv integration the gap agent needs.
type ArxivClient interface {
	Search(ctx context.Context, query string, max int) ([]domain.SearchPaper, error)
	FetchAbstractPage(ctx context.Context, url string) (domain.PaperDetail, error)
}

// FillResult reports one end-to-end gap fill for a stored paper.
type FillResult struct {
	Gaps       domain.GapResult    `json:"gaps"`
	Added      *domain.PaperDetail `json:"added,omitempty"`
	PaperID    int64               `json:"paper_id,omitempty"`
	NotionURL  string              `json:"notion_url,omitempty"`
	NotifiedOK bool                `json:"notified"`
}

type GapAgentService interface {
	FindPapersForGaps(ctx context.Context, gaps string, concepts []string, originalTitle string) domain.GapResult
	FetchAndAnalyzePaper(ctx context.Context, url string) (domain.PaperDetail, error)
	AddPaper(ctx context.Context, detail domain.PaperDetail, originalTitle, theme, gaps string) (int64, string, error)
	NotifyPaperAdded(ctx context.Context, originalTitle string, p domain.SearchPaper, notionURL string) bool
	FillGaps(ctx context.Context, paperID int64) (FillResult, error)
}

type gapAgentService struct {
	arxiv    ArxivClient
	analyzer AnalyzerService
	repo     repository.PaperRepository
	notion   notion.Tracker
	discord  discord.Notifier
	now      func() time.Time
}

func NewGapAgentService(arxiv ArxivClient, analyzer AnalyzerService, repo repository.PaperRepository,
	tracker notion.Tracker, notifier discord.Notifier) GapAgentService {
	return &gapAgentService{
		arxiv:    arxiv,
		analyzer: analyzer,
		repo:     repo,
		notion:   tracker,
		discord:  notifier,
		now:      time.Now,
	}
}

func (svc *gapAgentService) FindPapersForGaps(ctx context.Context, gaps string, concepts []string, originalTitle string) domain.GapResult {
	queries := svc.analyzer.GenerateSearchQueries(ctx, gaps, concepts)
	if queries == nil {
		queries = []string{}
	}

	var found []domain.SearchPaper
	for i, q := range queries {
		if i == gapQueries {
			break
		}
		papers, err := svc.arxiv.Search(ctx, q, gapResultsPerQry)
		if err != nil {
			log.WithError(err).WithField("query", q).Error("arXiv search error")
			continue
		}
		found = append(found, papers...)
	}
	unique := dedupePapers(found)

	res := domain.GapResult{
		Papers:        []domain.SearchPaper{},
		Summary:       fmt.Sprintf("Found %d papers addressing the research gaps", len(unique)),
		SearchQueries: queries,
	}
	for _, p := range unique {
		if strings.EqualFold(strings.TrimSpace(p.Title), strings.TrimSpace(originalTitle)) {
			continue
		}
		if !svc.paperExists(ctx, p.Title) {
			res.Papers = append(res.Papers, p)
			break
		}
	}
	return res
}

// paperExists checks Notion when it is configured and the local store
// otherwise. Lookup errors count as "not known".
func (svc *gapAgentService) paperExists(ctx context.Context, title string) bool {
	if svc.notion != nil && svc.notion.Enabled() {
		pages, err := svc.notion.QueryByTitle(ctx, notion.Clip(title, 30))
		if err != nil {
			log.WithError(err).Error("notion lookup failed")
			return false
		}
		return len(pages) > 0
	}
	ok, err := svc.repo.ExistsByTitle(ctx, title)
	if err != nil {
		log.WithError(err).Error("local paper lookup failed")
		return false
	}
	return ok
}

func dedupePapers(papers []domain.SearchPaper) []domain.SearchPaper {
	seen := make(map[string]struct{}, len(papers))
	out := make([]domain.SearchPaper, 0, len(papers))
	for _, p := range papers {
		key := notion.Clip(strings.ToLower(p.Title), dedupeKeyLen)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (svc *gapAgentService) FetchAndAnalyzePaper(ctx context.Context, url string) (domain.PaperDetail, error) {
	if !strings.Contains(url, "arxiv.org") {
		return domain.PaperDetail{Title: externalTitle, URL: url, Summary: externalSummary}, nil
	}
	d, err := svc.arxiv.FetchAbstractPage(ctx, url)
	if err != nil {
		return domain.PaperDetail{}, err
	}
	d.URL = url
	if d.PDFURL == "" {
		d.PDFURL = strings.Replace(url, "/abs/", "/pdf/", 1) + ".pdf"
	}
	d.Summary = d.Abstract
	if r := []rune(d.Abstract); len(r) > 500 {
		d.Summary = string(r[:500]) + "..."
	}
	d.KeyConcepts = []string{}
	d.Methodology = "Not analyzed"
	d.Theme = domain.DefaultTheme

	if a, ok := svc.analyzer.AnalyzeAbstract(ctx, d.Title, d.Abstract); ok {
		if len(a.KeyConcepts) > 0 {
			d.KeyConcepts = a.KeyConcepts
		}
		if a.Methodology != "" {
			d.Methodology = a.Methodology
		}
		if a.Theme != "" {
			d.Theme = a.Theme
		}
	}
	return d, nil
}

// AddPaper files detail locally as "To Read" and, when configured, in Notion.
// It returns the local id and the Notion page URL, if any.
func (svc *gapAgentService) AddPaper(ctx context.Context, d domain.PaperDetail, originalTitle, theme, gaps string) (int64, string, error) {
	title := d.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled Paper"
	}
	title = notion.Clip(title, 100)
	if d.Theme != "" {
		theme = d.Theme
	}
	if theme == "" {
		theme = domain.DefaultTheme
	}
	summary := d.Summary
	if summary == "" {
		summary = d.Abstract
	}
	link := d.PDFURL
	if link == "" {
		link = d.URL
	}
	notes := fmt.Sprintf("Auto-added by Research Gap Agent\nSource Paper: %s\nAddressing Gaps: %s...\nAdded: %s",
		originalTitle, notion.Clip(gaps, 200), svc.now().Format("2006-01-02 15:04"))

	paper, err := svc.repo.Create(ctx, domain.Paper{
		Title:        title,
		Filename:     link,
		Theme:        theme,
		Status:       domain.StatusToRead,
		Summary:      summary,
		KeyConcepts:  d.KeyConcepts,
		ResearchGaps: gapPaperGapsNote,
		Methodology:  d.Methodology,
		Notes:        notes,
		PDFLink:      link,
		Source:       domain.SourceGapAgent,
	})
	if err != nil {
		return 0, "", fmt.Errorf("store gap paper: %w", err)
	}

	if svc.notion == nil || !svc.notion.Enabled() {
		return paper.Id, "", nil
	}
	page, err := svc.notion.CreatePage(ctx, notion.PageProperties{
		Title:        title,
		Theme:        theme,
		Status:       domain.StatusToRead,
		Summary:      summary,
		Notes:        notes,
		KeyFindings:  strings.Join(d.KeyConcepts, "\n"),
		ResearchGaps: gapPaperGapsNote,
		PDFLink:      link,
		LastUpdated:  svc.now(),
	})
	if err != nil {
		log.WithError(err).WithField("title", title).Error("failed to add paper to notion")
		return paper.Id, "", nil
	}
	if err := svc.repo.UpdateNotion(ctx, paper.Id, page.ID, page.URL); err != nil {
		log.WithError(err).WithField("paper", paper.Id).Warn("could not record notion page")
	}
	return paper.Id, page.URL, nil
}

func (svc *gapAgentService) NotifyPaperAdded(ctx context.Context, originalTitle string, p domain.SearchPaper, notionURL string) bool {
	if svc.discord == nil || !svc.discord.Enabled() {
		return false
	}
	if err := svc.discord.SendEmbeds(ctx, discord.GapPaperEmbed(originalTitle, p, notionURL, svc.now())); err != nil {
		log.WithError(err).Error("discord notification failed")
		return false
	}
	return true
}

// FillGaps searches for, files and announces one paper addressing the gaps
// of a stored paper.
func (svc *gapAgentService) FillGaps(ctx context.Context, paperID int64) (FillResult, error) {
	src, err := svc.repo.FindById(ctx, paperID)
	if err != nil {
		return FillResult{}, err
	}
	if strings.TrimSpace(src.ResearchGaps) == "" {
		return FillResult{}, ErrNoGaps
	}
	res := FillResult{Gaps: svc.FindPapersForGaps(ctx, src.ResearchGaps, src.KeyConcepts, src.Title)}
	if len(res.Gaps.Papers) == 0 {
		return res, nil
	}
	hit := res.Gaps.Papers[0]
	detail, err := svc.FetchAndAnalyzePaper(ctx, hit.URL)
	if err != nil {
		log.WithError(err).WithField("url", hit.URL).Warn("falling back to search metadata")
		detail = detailFromSearch(hit)
	}
	if detail.Title == externalTitle {
		detail = detailFromSearch(hit)
	}
	id, url, err := svc.AddPaper(ctx, detail, src.Title, src.EffectiveTheme(), src.ResearchGaps)
	if err != nil {
		return res, err
	}
	res.Added, res.PaperID, res.NotionURL = &detail, id, url
	res.NotifiedOK = svc.NotifyPaperAdded(ctx, src.Title, hit, url)
	return res, nil
}

func detailFromSearch(p domain.SearchPaper) domain.PaperDetail {
	summary := p.Abstract
	if r := []rune(summary); len(r) > 500 {
		summary = string(r[:500]) + "..."
	}
	return domain.PaperDetail{
		Title:       p.Title,
		Abstract:    p.Abstract,
		Authors:     p.Authors,
		URL:         p.URL,
		PDFURL:      p.PDFURL,
		Summary:     summary,
		KeyConcepts: []string{},
		Methodology: "Not analyzed",
	}
}
