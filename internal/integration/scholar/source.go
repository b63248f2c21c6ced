package scholar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lvow2022/research-assistant/internal/domain"
)

// Source names, also the keys of an aggregated result.
const (
	NameArxiv           = "arxiv"
	NameSemanticScholar = "semantic_scholar"
	NameIEEE            = "ieee"
)

const defaultTimeout = 30 * time.Second

// Source is one academic database.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]domain.SearchPaper, error)
}

func newHTTP(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", "research-assistant/1.0")
}

func statusError(source string, r *resty.Response) error {
	return fmt.Errorf("%s API error: %d", source, r.StatusCode())
}

// collapse folds runs of whitespace, as found in Atom titles, into one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
