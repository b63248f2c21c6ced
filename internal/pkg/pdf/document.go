// Package pdf pulls text, metadata and rough section boundaries out of
// uploaded papers.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/ledongthuc/pdf"
)

// DefaultChunkSize is the chunk length used when callers pass zero.
const DefaultChunkSize = 3000

type Metadata struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Subject string `json:"subject"`
	Creator string `json:"creator"`
	Pages   int    `json:"pages"`
}

// ExtractText returns the plain text of the first maxPages pages (all pages
// when maxPages <= 0), each followed by a newline, and the number of pages
// read. Pages whose text cannot be decoded contribute an empty line.
// A structurally broken file yields an error.
func ExtractText(r io.ReaderAt, size int64, maxPages int) (text string, pages int, err error) {
	// the reader panics on objects that do not resolve
	defer func() {
		if p := recover(); p != nil {
			text, pages, err = "", 0, fmt.Errorf("malformed pdf: %v", p)
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	total := reader.NumPage()
	n := total
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= n; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			sb.WriteString("\n")
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := p.GetPlainText(fonts)
		if err != nil {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), n, nil
}

// ExtractMetadata reads the document info dictionary.
func ExtractMetadata(r io.ReaderAt, size int64) (md Metadata, err error) {
	defer func() {
		if p := recover(); p != nil {
			md, err = Metadata{}, fmt.Errorf("malformed pdf: %v", p)
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return Metadata{}, fmt.Errorf("open pdf: %w", err)
	}
	md = Metadata{Pages: reader.NumPage()}
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return md, nil
	}
	md.Title = orDefault(info.Key("Title").Text(), "Unknown")
	md.Author = orDefault(info.Key("Author").Text(), "Unknown")
	md.Subject = info.Key("Subject").Text()
	md.Creator = info.Key("Creator").Text()
	return md, nil
}

// ChunkText splits text on whitespace into chunks of roughly chunkSize
// characters. A chunk closes as soon as it reaches chunkSize.
func ChunkText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var (
		chunks  []string
		current []string
		size    int
	)
	for _, word := range strings.Fields(text) {
		current = append(current, word)
		size += len(word) + 1
		if size >= chunkSize {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			size = 0
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// Section names returned by ExtractSections.
var sectionOrder = []string{"abstract", "introduction", "methodology", "results", "conclusion", "references"}

var sectionKeywords = map[string][]string{
	"abstract":     {"abstract"},
	"introduction": {"introduction", "1. introduction", "1 introduction"},
	"methodology":  {"methodology", "methods", "method"},
	"results":      {"results", "findings"},
	"conclusion":   {"conclusion", "conclusions", "discussion"},
	"references":   {"references", "bibliography", "works cited"},
}

// sectionPatterns holds one case-insensitive matcher per keyword, in the
// order of sectionKeywords.
var sectionPatterns = compileSectionPatterns()

func compileSectionPatterns() map[string][]*regexp2.Regexp {
	out := make(map[string][]*regexp2.Regexp, len(sectionKeywords))
	for name, kws := range sectionKeywords {
		for _, kw := range kws {
			out[name] = append(out[name], regexp2.MustCompile(regexp2.Escape(kw), regexp2.IgnoreCase))
		}
	}
	return out
}

// Window and excerpt lengths are in characters.
const (
	sectionWindow  = 1000
	sectionExcerpt = 500
)

// ExtractSections locates common paper sections by their first keyword hit
// and returns a short excerpt of each. Sections not found map to "".
func ExtractSections(text string) map[string]string {
	sections := make(map[string]string, len(sectionOrder))
	runes := []rune(text)
	for _, name := range sectionOrder {
		sections[name] = ""
		for _, re := range sectionPatterns[name] {
			m, err := re.FindRunesMatch(runes)
			if err != nil || m == nil {
				continue
			}
			// match positions count runes, not bytes
			end := min(m.Index+sectionWindow, len(runes))
			excerpt := runes[m.Index:end]
			if len(excerpt) > sectionExcerpt {
				excerpt = excerpt[:sectionExcerpt]
			}
			sections[name] = string(excerpt) + "..."
			break
		}
	}
	return sections
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
