package pdf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lvow2022/research-assistant/internal/pkg/pdf/pdftest"
)

func TestChunkText(t *testing.T) {
	text := strings.Repeat("word ", 10) // each word counts 5 toward the size
	chunks := ChunkText(text, 12)
	// 5+5=10 < 12, 15 >= 12 -> three words per chunk
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "word word word" {
		t.Fatalf("first chunk = %q", chunks[0])
	}
	if chunks[3] != "word" {
		t.Fatalf("tail chunk = %q", chunks[3])
	}
}

func TestChunkTextDefaults(t *testing.T) {
	if got := ChunkText("", 0); len(got) != 0 {
		t.Fatalf("empty text should give no chunks, got %q", got)
	}
	if got := ChunkText("a b c", 0); len(got) != 1 || got[0] != "a b c" {
		t.Fatalf("short text = %q", got)
	}
}

func TestExtractSections(t *testing.T) {
	text := "Title\nAbstract: We study hallucinations.\n1. Introduction\nLLMs are popular.\n" +
		"Methods: survey of 40 developers.\nResults show drift.\nConclusion: more QA is needed."
	s := ExtractSections(text)

	if !strings.HasPrefix(s["abstract"], "Abstract: We study") || !strings.HasSuffix(s["abstract"], "...") {
		t.Fatalf("abstract = %q", s["abstract"])
	}
	if !strings.HasPrefix(s["introduction"], "Introduction") {
		t.Fatalf("introduction = %q", s["introduction"])
	}
	if !strings.HasPrefix(s["methodology"], "Methods") {
		t.Fatalf("methodology = %q", s["methodology"])
	}
	if !strings.HasPrefix(s["conclusion"], "Conclusion") {
		t.Fatalf("conclusion = %q", s["conclusion"])
	}
	if s["references"] != "" {
		t.Fatalf("references should be empty, got %q", s["references"])
	}
	if len(s) != 6 {
		t.Fatalf("expected all six keys, got %d", len(s))
	}
}

func TestExtractSectionsExcerptLength(t *testing.T) {
	text := "abstract " + strings.Repeat("x", 2000)
	got := ExtractSections(text)["abstract"]
	if len(got) != sectionExcerpt+len("...") {
		t.Fatalf("excerpt length = %d", len(got))
	}
}

func TestExtractTextRejectsGarbage(t *testing.T) {
	data := []byte("this is not a pdf")
	if _, _, err := ExtractText(bytes.NewReader(data), int64(len(data)), 10); err == nil {
		t.Fatalf("expected error for non-pdf input")
	}
	if _, err := ExtractMetadata(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Fatalf("expected error for non-pdf input")
	}
}

func TestExtractFromWellFormedDocument(t *testing.T) {
	data := pdftest.Document("Gap Study", nil)
	md, err := ExtractMetadata(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if md.Title != "Gap Study" || md.Author != "Unknown" || md.Pages != 1 {
		t.Fatalf("metadata = %+v", md)
	}
	if _, pages, err := ExtractText(bytes.NewReader(data), int64(len(data)), 10); err != nil || pages != 1 {
		t.Fatalf("text: pages=%d err=%v", pages, err)
	}
}

func TestExtractFromBrokenObjectTable(t *testing.T) {
	// page object resolves to the page tree
	data := pdftest.Document("Broken", map[int]int{3: 2})
	text, pages, err := ExtractText(bytes.NewReader(data), int64(len(data)), 10)
	if err == nil {
		t.Fatalf("expected error, got text=%q pages=%d", text, pages)
	}
	if text != "" || pages != 0 {
		t.Fatalf("partial result leaked: text=%q pages=%d", text, pages)
	}

	// page tree resolves to the catalog
	data = pdftest.Document("Broken", map[int]int{2: 1})
	if md, err := ExtractMetadata(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Fatalf("expected error, got %+v", md)
	}
}

func TestExtractSectionsNonASCII(t *testing.T) {
	// "İ" changes byte length when lowercased
	text := strings.Repeat("İ", 40) + " ABSTRACT: Straße ohne Ende."
	got := ExtractSections(text)["abstract"]
	if got != "ABSTRACT: Straße ohne Ende...." {
		t.Fatalf("abstract = %q", got)
	}
}
