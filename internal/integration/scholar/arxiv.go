package scholar

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/lvow2022/research-assistant/internal/domain"
)

type Arxiv struct {
	http *resty.Client
}

func NewArxiv(baseURL string) *Arxiv {
	return &Arxiv{http: newHTTP(baseURL)}
}

func (a *Arxiv) Name() string { return NameArxiv }

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

func (a *Arxiv) Search(ctx context.Context, query string, max int) ([]domain.SearchPaper, error) {
	r, err := a.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_query": "all:" + query,
			"start":        "0",
			"max_results":  strconv.Itoa(max),
			"sortBy":       "relevance",
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("arXiv request: %w", err)
	}
	if r.IsError() {
		return nil, statusError("arXiv", r)
	}
	return parseAtom(r.Body())
}

func parseAtom(body []byte) ([]domain.SearchPaper, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arXiv feed: %w", err)
	}
	papers := make([]domain.SearchPaper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p := domain.SearchPaper{
			Title:    collapse(e.Title),
			Abstract: strings.TrimSpace(e.Summary),
			URL:      strings.TrimSpace(e.ID),
			Source:   NameArxiv,
			Authors:  []string{},
		}
		for _, au := range e.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(au.Name))
		}
		if len(e.Published) >= 10 {
			p.Date = e.Published[:10]
			p.Year, _ = strconv.Atoi(e.Published[:4])
		}
		p.PDFURL = pdfLink(e.ID)
		papers = append(papers, p)
	}
	return papers, nil
}

// pdfLink derives the PDF address from an entry id. The feed's own pdf link
// lacks the .pdf suffix.
func pdfLink(entryID string) string {
	id := strings.TrimSpace(entryID)
	if id == "" {
		return ""
	}
	return strings.Replace(id, "/abs/", "/pdf/", 1) + ".pdf"
}

// FetchAbstractPage scrapes an arXiv landing page for title, abstract and
// authors.
func (a *Arxiv) FetchAbstractPage(ctx context.Context, url string) (domain.PaperDetail, error) {
	r, err := a.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return domain.PaperDetail{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	if r.IsError() {
		return domain.PaperDetail{}, statusError("arXiv", r)
	}
	return ParseAbstractPage(url, r.Body())
}

// ParseAbstractPage extracts paper details from arXiv abstract page HTML.
func ParseAbstractPage(url string, body []byte) (domain.PaperDetail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.PaperDetail{}, err
	}
	d := domain.PaperDetail{URL: url}
	d.Title = collapse(strings.TrimPrefix(collapse(doc.Find("h1.title").First().Text()), "Title:"))
	d.Abstract = collapse(strings.TrimPrefix(collapse(doc.Find("blockquote.abstract").First().Text()), "Abstract:"))
	doc.Find("div.authors a").Each(func(_ int, s *goquery.Selection) {
		if name := collapse(s.Text()); name != "" {
			d.Authors = append(d.Authors, name)
		}
	})
	if strings.Contains(url, "/abs/") {
		d.PDFURL = strings.Replace(url, "/abs/", "/pdf/", 1)
	}
	return d, nil
}
