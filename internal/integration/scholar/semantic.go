package scholar

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/lvow2022/research-assistant/internal/domain"
)

const semanticFields = "title,authors,year,abstract,citationCount,url"

type SemanticScholar struct {
	http *resty.Client
}

func NewSemanticScholar(baseURL, apiKey string) *SemanticScholar {
	c := newHTTP(baseURL)
	if apiKey != "" {
		c.SetHeader("x-api-key", apiKey)
	}
	return &SemanticScholar{http: c}
}

func (s *SemanticScholar) Name() string { return NameSemanticScholar }

type semanticResponse struct {
	Data []struct {
		Title    string `json:"title"`
		Year     int    `json:"year"`
		Abstract string `json:"abstract"`
		URL      string `json:"url"`
		Citation int    `json:"citationCount"`
		Authors  []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

func (s *SemanticScholar) Search(ctx context.Context, query string, max int) ([]domain.SearchPaper, error) {
	var out semanticResponse
	r, err := s.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":  query,
			"limit":  strconv.Itoa(max),
			"fields": semanticFields,
		}).
		SetResult(&out).
		Get("/paper/search")
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar request: %w", err)
	}
	if r.IsError() {
		return nil, statusError("Semantic Scholar", r)
	}
	papers := make([]domain.SearchPaper, 0, len(out.Data))
	for _, d := range out.Data {
		p := domain.SearchPaper{
			Title:          d.Title,
			Year:           d.Year,
			Abstract:       d.Abstract,
			URL:            d.URL,
			Source:         NameSemanticScholar,
			RelevanceScore: d.Citation,
			Authors:        make([]string, 0, len(d.Authors)),
		}
		for _, a := range d.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		papers = append(papers, p)
	}
	return papers, nil
}
