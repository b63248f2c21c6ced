package scholar

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/lvow2022/research-assistant/internal/domain"
)

type IEEE struct {
	http   *resty.Client
	apiKey string
}

func NewIEEE(baseURL, apiKey string) *IEEE {
	return &IEEE{http: newHTTP(baseURL), apiKey: apiKey}
}

func (i *IEEE) Name() string { return NameIEEE }

type ieeeResponse struct {
	Articles []struct {
		Title           string `json:"title"`
		Abstract        string `json:"abstract"`
		HTMLURL         string `json:"html_url"`
		PDFURL          string `json:"pdf_url"`
		PublicationYear string `json:"publication_year"`
		CitingCount     int    `json:"citing_paper_count"`
		Authors         struct {
			Authors []struct {
				FullName string `json:"full_name"`
			} `json:"authors"`
		} `json:"authors"`
	} `json:"articles"`
}

func (i *IEEE) Search(ctx context.Context, query string, max int) ([]domain.SearchPaper, error) {
	if i.apiKey == "" {
		return nil, fmt.Errorf("IEEE: api key not set")
	}
	var out ieeeResponse
	r, err := i.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"querytext":   query,
			"max_records": strconv.Itoa(max),
			"apikey":      i.apiKey,
		}).
		SetResult(&out).
		Get("/search/articles")
	if err != nil {
		return nil, fmt.Errorf("IEEE request: %w", err)
	}
	if r.IsError() {
		return nil, statusError("IEEE", r)
	}
	papers := make([]domain.SearchPaper, 0, len(out.Articles))
	for _, a := range out.Articles {
		p := domain.SearchPaper{
			Title:          a.Title,
			Abstract:       a.Abstract,
			URL:            a.HTMLURL,
			PDFURL:         a.PDFURL,
			Source:         NameIEEE,
			RelevanceScore: a.CitingCount,
			Authors:        make([]string, 0, len(a.Authors.Authors)),
		}
		p.Year, _ = strconv.Atoi(a.PublicationYear)
		for _, au := range a.Authors.Authors {
			p.Authors = append(p.Authors, au.FullName)
		}
		papers = append(papers, p)
	}
	return papers, nil
}
