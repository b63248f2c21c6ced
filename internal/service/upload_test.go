package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/pkg/pdf"
	"github.com/lvow2022/research-assistant/internal/pkg/pdf/pdftest"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/internal/repository/dao"
	"github.com/lvow2022/research-assistant/internal/repository/storage"
)

func newTestUploadService(t *testing.T, model *fakeLLM, tracker *fakeNotion, notifier *fakeDiscord) (*uploadService, storage.UploadStore) {
	t.Helper()
	store := storage.NewUploadStoreFs(afero.NewMemMapFs())
	var analyzer AnalyzerService
	if model != nil {
		analyzer = NewAnalyzerService(model)
	} else {
		analyzer = NewAnalyzerService(nil)
	}
	svc := NewUploadService(store, newTestRepo(t), analyzer, tracker, notifier, UploadOptions{MaxBytes: 1 << 20}).(*uploadService)
	svc.extract = func(r io.ReaderAt, size int64, maxPages int) (string, int, error) {
		if maxPages != maxExtractPages {
			t.Errorf("maxPages = %d", maxPages)
		}
		return "Large language models hallucinate APIs.", 3, nil
	}
	return svc, store
}

func TestUploadValidation(t *testing.T) {
	svc, _ := newTestUploadService(t, nil, &fakeNotion{}, &fakeDiscord{})
	svc.opts.MaxBytes = 4
	cases := []struct {
		req  UploadRequest
		want error
	}{
		{UploadRequest{Filename: "", Content: []byte("x")}, ErrNoFileSelected},
		{UploadRequest{Filename: "notes.docx", Content: []byte("x")}, ErrNotPDF},
		{UploadRequest{Filename: "paper.pdf"}, ErrEmptyFile},
		{UploadRequest{Filename: "paper.pdf", Content: []byte("12345")}, ErrFileTooLarge},
	}
	for _, c := range cases {
		if _, err := svc.Process(context.Background(), c.req); !errors.Is(err, c.want) {
			t.Errorf("Process(%q) err = %v, want %v", c.req.Filename, err, c.want)
		}
	}
}

func TestUploadAcceptsUppercaseExtension(t *testing.T) {
	svc, _ := newTestUploadService(t, nil, &fakeNotion{}, &fakeDiscord{})
	if !svc.accepted("REPORT.PDF") || !svc.accepted(`C:\papers\x.pdf`) {
		t.Fatalf("pdf names should be accepted")
	}
}

func TestUploadProcess(t *testing.T) {
	model := &fakeLLM{reply: `{"title": "API Hallucinations", "summary": "S", "key_concepts": ["apis"],
		"research_gaps": "only Python", "methodology": "benchmark", "suggested_theme": "LLM Hallucinations"}`}
	tracker := &fakeNotion{enabled: true}
	notifier := &fakeDiscord{enabled: true}
	svc, store := newTestUploadService(t, model, tracker, notifier)

	res, err := svc.Process(context.Background(), UploadRequest{
		Filename: "../My Paper (v2).pdf",
		Content:  []byte("%PDF-1.4 fake"),
		Theme:    "QA",
		Notes:    "read for chapter 3",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Analysis.Filename != "My_Paper_v2.pdf" {
		t.Fatalf("filename = %q", res.Analysis.Filename)
	}
	if _, err := store.Stat(res.Analysis.Filename); err != nil {
		t.Fatalf("upload not stored: %v", err)
	}
	want := domain.ServicesUsed{PDFExtracted: true, ClaudeAnalyzed: true, NotionCreated: true, DiscordNotified: true}
	if res.ServicesUsed != want {
		t.Fatalf("services = %+v", res.ServicesUsed)
	}
	if res.Analysis.Pages != 3 || !res.Analysis.ExtractionSuccess || res.Analysis.PrimaryTheme != "QA" {
		t.Fatalf("analysis = %+v", res.Analysis)
	}

	if len(tracker.created) != 1 {
		t.Fatalf("notion pages = %d", len(tracker.created))
	}
	page := tracker.created[0]
	if page.Theme != "LLM Hallucinations" || page.Status != domain.StatusDraft || page.Notes != "read for chapter 3" {
		t.Fatalf("page = %+v", page)
	}
	if page.PDFLink != "/uploads/"+res.Analysis.Filename {
		t.Fatalf("pdf link = %q", page.PDFLink)
	}
	if len(notifier.embeds) != 1 || !strings.HasPrefix(notifier.embeds[0].Title, "📄 New Paper Uploaded: API Hallucinations") {
		t.Fatalf("embeds = %+v", notifier.embeds)
	}

	stored, err := svc.repo.FindById(context.Background(), res.PaperID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.StatusDraft || stored.NotionPageID != "page-1" || stored.Source != domain.SourceUpload {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestUploadWithoutIntegrations(t *testing.T) {
	tracker := &fakeNotion{}
	notifier := &fakeDiscord{}
	svc, _ := newTestUploadService(t, nil, tracker, notifier)

	res, err := svc.Process(context.Background(), UploadRequest{Filename: "paper.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Analysis.Summary != SummaryNotConfigured || res.Analysis.Title != "paper" {
		t.Fatalf("analysis = %+v", res.Analysis)
	}
	if res.Analysis.PrimaryTheme != domain.DefaultTheme {
		t.Fatalf("theme = %q", res.Analysis.PrimaryTheme)
	}
	if res.ServicesUsed.ClaudeAnalyzed || res.ServicesUsed.NotionCreated || res.ServicesUsed.DiscordNotified {
		t.Fatalf("services = %+v", res.ServicesUsed)
	}
	papers, _ := svc.repo.List(context.Background(), dao.ListQuery{})
	if len(papers) != 1 {
		t.Fatalf("papers = %d", len(papers))
	}
}

func TestUploadExtractionFailure(t *testing.T) {
	svc, _ := newTestUploadService(t, &fakeLLM{reply: "{}"}, &fakeNotion{}, &fakeDiscord{})
	svc.extract = func(io.ReaderAt, int64, int) (string, int, error) { return "", 0, errors.New("malformed pdf") }
	res, err := svc.Process(context.Background(), UploadRequest{Filename: "paper.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	if res.ServicesUsed.PDFExtracted || res.Analysis.Summary != SummaryNoText {
		t.Fatalf("result = %+v", res)
	}
}

func TestUploadSurvivesBrokenPDF(t *testing.T) {
	svc, store := newTestUploadService(t, &fakeLLM{reply: "{}"}, &fakeNotion{}, &fakeDiscord{})
	svc.extract = pdf.ExtractText
	content := pdftest.Document("Broken", map[int]int{3: 2})

	res, err := svc.Process(context.Background(), UploadRequest{Filename: "broken.pdf", Content: content})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Analysis.Summary != SummaryNoText || res.Analysis.ExtractionSuccess || res.Analysis.Pages != 0 {
		t.Fatalf("analysis = %+v", res.Analysis)
	}
	if res.ServicesUsed.PDFExtracted {
		t.Fatalf("services = %+v", res.ServicesUsed)
	}
	if _, err := store.Stat(res.Analysis.Filename); err != nil {
		t.Fatalf("upload should stay stored with its record: %v", err)
	}

	svc.metadata = pdf.ExtractMetadata
	if _, err := svc.Inspect(context.Background(), res.Analysis.Filename); err == nil {
		t.Fatalf("inspect of a broken pdf should fail")
	}
}

func TestIntegrationFailuresDoNotFailUpload(t *testing.T) {
	tracker := &fakeNotion{enabled: true, err: errors.New("notion 500")}
	notifier := &fakeDiscord{enabled: true, err: errors.New("webhook 404")}
	svc, _ := newTestUploadService(t, &fakeLLM{reply: "{}"}, tracker, notifier)
	res, err := svc.Process(context.Background(), UploadRequest{Filename: "paper.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	if res.ServicesUsed.NotionCreated || res.ServicesUsed.DiscordNotified {
		t.Fatalf("services = %+v", res.ServicesUsed)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"paper.pdf":                "paper.pdf",
		"../../etc/passwd.pdf":     "passwd.pdf",
		`C:\Users\me\Dr Paper.pdf`: "Dr_Paper.pdf",
		"résumé final.pdf":         "rsum_final.pdf",
		"My Paper (2023).pdf":      "My_Paper_2023.pdf",
		"draft_ .pdf":              "draft.pdf",
		"notes.":                   "notes",
		"...":                      "upload.pdf",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInspectStoredUpload(t *testing.T) {
	svc, store := newTestUploadService(t, nil, &fakeNotion{}, &fakeDiscord{})
	name, err := store.Save("survey.pdf", []byte("%PDF-1.4 stub"))
	if err != nil {
		t.Fatal(err)
	}
	svc.metadata = func(io.ReaderAt, int64) (pdf.Metadata, error) {
		return pdf.Metadata{Title: "A Survey", Author: "Unknown", Pages: 12}, nil
	}
	svc.extract = func(_ io.ReaderAt, _ int64, maxPages int) (string, int, error) {
		if maxPages != 0 {
			t.Errorf("inspect should read every page, got maxPages = %d", maxPages)
		}
		return "Abstract: hallucinated APIs.\nMethods: interviews.\nReferences: [1]", 12, nil
	}

	info, err := svc.Inspect(context.Background(), name)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Metadata.Title != "A Survey" || info.Chunks != 1 {
		t.Fatalf("info = %+v", info)
	}
	if !strings.HasPrefix(info.Sections["methodology"], "Methods: interviews.") {
		t.Fatalf("methodology = %q", info.Sections["methodology"])
	}

	if _, err := svc.Inspect(context.Background(), "absent.pdf"); err == nil {
		t.Fatalf("missing upload should fail")
	}
}

type failingCreateRepo struct {
	repository.PaperRepository
}

func (failingCreateRepo) Create(context.Context, domain.Paper) (domain.Paper, error) {
	return domain.Paper{}, errors.New("disk full")
}

func TestUploadRemovesFileWhenRecordFails(t *testing.T) {
	svc, store := newTestUploadService(t, nil, &fakeNotion{}, &fakeDiscord{})
	svc.repo = failingCreateRepo{svc.repo}

	if _, err := svc.Process(context.Background(), UploadRequest{Filename: "lost.pdf", Content: []byte("%PDF")}); err == nil {
		t.Fatalf("expected failure")
	}
	if _, err := store.Stat("lost.pdf"); err == nil {
		t.Fatalf("orphaned upload left in store")
	}
}
