package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dlclark/regexp2"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/integration/discord"
	"github.com/lvow2022/research-assistant/internal/integration/notion"
	"github.com/lvow2022/research-assistant/internal/pkg/pdf"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/internal/repository/storage"
	"github.com/lvow2022/research-assistant/pkg/log"
)

var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrNotPDF         = errors.New("not a pdf file")
	ErrEmptyFile      = errors.New("uploaded file is empty")
	ErrFileTooLarge   = errors.New("uploaded file is too large")
)

// maxExtractPages bounds how much of a paper is read for analysis.
const maxExtractPages = 10

// PDFRoute is where stored uploads are served from.
const PDFRoute = "/uploads/"

var unsafeNameRE = regexp2.MustCompile(`[^A-Za-z0-9._-]+`, regexp2.None)

type UploadRequest struct {
	Filename string
	Content  []byte
	Theme    string
	Notes    string
}

type UploadResult struct {
	PaperID      int64               `json:"paper_id"`
	Analysis     domain.Analysis     `json:"analysis"`
	ServicesUsed domain.ServicesUsed `json:"services_used"`
}

type UploadOptions struct {
	// Accept holds glob patterns matched case-insensitively against the
	// file name.
	Accept   []string
	MaxBytes int64
}

// DocumentInfo describes a stored PDF without involving the model.
type DocumentInfo struct {
	Metadata pdf.Metadata      `json:"metadata"`
	Sections map[string]string `json:"sections"`
	Chunks   int               `json:"chunks"`
}

type UploadService interface {
	Process(ctx context.Context, req UploadRequest) (UploadResult, error)
	// Inspect reads the metadata and section excerpts of a stored upload.
	Inspect(ctx context.Context, filename string) (DocumentInfo, error)
}

type uploadService struct {
	store    storage.UploadStore
	repo     repository.PaperRepository
	analyzer AnalyzerService
	notion   notion.Tracker
	discord  discord.Notifier
	opts     UploadOptions
	now      func() time.Time
	extract  func(r io.ReaderAt, size int64, maxPages int) (string, int, error)
	metadata func(r io.ReaderAt, size int64) (pdf.Metadata, error)
}

func NewUploadService(store storage.UploadStore, repo repository.PaperRepository, analyzer AnalyzerService,
	tracker notion.Tracker, notifier discord.Notifier, opts UploadOptions) UploadService {
	if len(opts.Accept) == 0 {
		opts.Accept = []string{"*.pdf"}
	}
	return &uploadService{
		store:    store,
		repo:     repo,
		analyzer: analyzer,
		notion:   tracker,
		discord:  notifier,
		opts:     opts,
		now:      time.Now,
		extract:  pdf.ExtractText,
		metadata: pdf.ExtractMetadata,
	}
}

func (svc *uploadService) Process(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if err := svc.validate(req); err != nil {
		return UploadResult{}, err
	}
	name, err := svc.store.Save(SanitizeFilename(req.Filename), req.Content)
	if err != nil {
		return UploadResult{}, fmt.Errorf("save upload: %w", err)
	}
	logger := log.WithField("file", name)
	logger.Info("file uploaded")

	text, pages, err := svc.extract(bytes.NewReader(req.Content), int64(len(req.Content)), maxExtractPages)
	if err != nil {
		logger.WithError(err).Error("pdf extraction error")
		text, pages = "", 0
	} else {
		logger.Infof("extracted %d characters from %d pages", len(text), pages)
	}
	extracted := strings.TrimSpace(text) != ""

	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		theme = domain.DefaultTheme
	}
	base := domain.Analysis{
		Title:             titleFromFilename(name),
		Summary:           SummaryProcessing,
		KeyConcepts:       []string{},
		PrimaryTheme:      theme,
		Filename:          name,
		Pages:             pages,
		ExtractionSuccess: extracted,
	}
	analysis, _ := svc.analyzer.AnalyzePaper(ctx, text, req.Notes, base)
	if analysis.KeyConcepts == nil {
		analysis.KeyConcepts = []string{}
	}

	paper, err := svc.repo.Create(ctx, domain.Paper{
		Title:             analysis.Title,
		Filename:          name,
		Theme:             analysis.PrimaryTheme,
		SuggestedTheme:    analysis.SuggestedTheme,
		Status:            domain.StatusDraft,
		Summary:           analysis.Summary,
		KeyConcepts:       analysis.KeyConcepts,
		ResearchGaps:      analysis.ResearchGaps,
		Methodology:       analysis.Methodology,
		Notes:             req.Notes,
		Pages:             pages,
		ExtractionSuccess: extracted,
		PDFLink:           PDFRoute + name,
		Source:            domain.SourceUpload,
	})
	if err != nil {
		if rmErr := svc.store.Remove(name); rmErr != nil {
			logger.WithError(rmErr).Warn("could not remove orphaned upload")
		}
		return UploadResult{}, fmt.Errorf("store paper: %w", err)
	}

	used := domain.ServicesUsed{
		PDFExtracted:   extracted,
		ClaudeAnalyzed: svc.analyzer.Enabled() && len(analysis.KeyConcepts) > 0,
	}
	used.NotionCreated = svc.createNotionPage(ctx, paper.Id, analysis, req.Notes)
	used.DiscordNotified = svc.notify(ctx, analysis, used.NotionCreated)

	return UploadResult{PaperID: paper.Id, Analysis: analysis, ServicesUsed: used}, nil
}

func (svc *uploadService) Inspect(_ context.Context, filename string) (DocumentInfo, error) {
	f, err := svc.store.Open(filename)
	if err != nil {
		return DocumentInfo{}, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return DocumentInfo{}, err
	}
	md, err := svc.metadata(f, st.Size())
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("read metadata: %w", err)
	}
	text, _, err := svc.extract(f, st.Size(), 0)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("read text: %w", err)
	}
	return DocumentInfo{
		Metadata: md,
		Sections: pdf.ExtractSections(text),
		Chunks:   len(pdf.ChunkText(text, pdf.DefaultChunkSize)),
	}, nil
}

func (svc *uploadService) validate(req UploadRequest) error {
	if strings.TrimSpace(req.Filename) == "" {
		return ErrNoFileSelected
	}
	if !svc.accepted(req.Filename) {
		return ErrNotPDF
	}
	if len(req.Content) == 0 {
		return ErrEmptyFile
	}
	if svc.opts.MaxBytes > 0 && int64(len(req.Content)) > svc.opts.MaxBytes {
		return ErrFileTooLarge
	}
	return nil
}

func (svc *uploadService) accepted(filename string) bool {
	name := strings.ToLower(baseName(filename))
	for _, pattern := range svc.opts.Accept {
		if ok, _ := doublestar.Match(strings.ToLower(pattern), name); ok {
			return true
		}
	}
	return false
}

func (svc *uploadService) createNotionPage(ctx context.Context, paperID int64, a domain.Analysis, notes string) bool {
	if svc.notion == nil || !svc.notion.Enabled() {
		return false
	}
	page, err := svc.notion.CreatePage(ctx, notion.PageProperties{
		Title:        a.Title,
		Theme:        a.Theme(),
		Status:       domain.StatusDraft,
		Summary:      a.Summary,
		Notes:        notes,
		KeyFindings:  strings.Join(a.KeyConcepts, "\n"),
		ResearchGaps: a.ResearchGaps,
		PDFLink:      PDFRoute + a.Filename,
		LastUpdated:  svc.now(),
	})
	if err != nil {
		log.WithError(err).WithField("file", a.Filename).Error("notion creation error")
		return false
	}
	log.WithField("page", page.ID).Info("created notion entry")
	if err := svc.repo.UpdateNotion(ctx, paperID, page.ID, page.URL); err != nil {
		log.WithError(err).WithField("paper", paperID).Warn("could not record notion page")
	}
	return true
}

func (svc *uploadService) notify(ctx context.Context, a domain.Analysis, notionCreated bool) bool {
	if svc.discord == nil || !svc.discord.Enabled() {
		return false
	}
	if err := svc.discord.SendEmbeds(ctx, discord.UploadEmbed(a, notionCreated, svc.now())); err != nil {
		log.WithError(err).WithField("file", a.Filename).Error("discord notification error")
		return false
	}
	log.WithField("file", a.Filename).Info("discord notification sent")
	return true
}

// SanitizeFilename strips any directory part, turns whitespace runs into an
// underscore and drops characters outside [A-Za-z0-9._-]. Leading and
// trailing dots and underscores are trimmed from the stem.
func SanitizeFilename(name string) string {
	name = strings.Join(strings.Fields(baseName(name)), "_")
	clean, err := unsafeNameRE.Replace(name, "", -1, -1)
	if err != nil {
		clean = name
	}
	ext := path.Ext(clean)
	stem := strings.Trim(strings.TrimSuffix(clean, ext), "._")
	ext = strings.TrimRight(ext, "._")
	if stem == "" {
		if ext == "" {
			return "upload.pdf"
		}
		return "upload" + ext
	}
	return stem + ext
}

func baseName(name string) string {
	return path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
}

func titleFromFilename(name string) string {
	ext := path.Ext(name)
	if strings.EqualFold(ext, ".pdf") {
		return strings.TrimSuffix(name, ext)
	}
	return name
}
