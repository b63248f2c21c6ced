package scholar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/pkg/log"
)

const cacheTTL = 30 * time.Minute

// Aggregator fans a query out to every enabled source.
type Aggregator struct {
	sources []Source
	cache   *cache.Cache
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{
		sources: sources,
		cache:   cache.New(cacheTTL, time.Hour),
	}
}

// Sources returns the names of the enabled sources, in query order.
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.sources))
	for _, s := range a.sources {
		names = append(names, s.Name())
	}
	return names
}

// SearchAll queries all sources concurrently. A failing source is reported
// with status "error" and never fails the whole search.
func (a *Aggregator) SearchAll(ctx context.Context, query string, max int) map[string]domain.SourceResult {
	key := fmt.Sprintf("%s|%d", query, max)
	if v, ok := a.cache.Get(key); ok {
		return v.(map[string]domain.SourceResult)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]domain.SourceResult, len(a.sources))
	)
	for _, s := range a.sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			papers, err := s.Search(ctx, query, max)
			res := domain.SourceResult{Status: domain.SearchSuccess, Papers: papers}
			if err != nil {
				log.WithError(err).WithField("source", s.Name()).Error("academic search failed")
				res = domain.SourceResult{Status: domain.SearchError, Papers: []domain.SearchPaper{}, Error: err.Error()}
			}
			if res.Papers == nil {
				res.Papers = []domain.SearchPaper{}
			}
			mu.Lock()
			results[s.Name()] = res
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	if !hasError(results) {
		a.cache.SetDefault(key, results)
	}
	return results
}

// Flatten merges the successful source results in source order.
func (a *Aggregator) Flatten(results map[string]domain.SourceResult) []domain.SearchPaper {
	var out []domain.SearchPaper
	for _, name := range a.Sources() {
		if r, ok := results[name]; ok && r.Status == domain.SearchSuccess {
			out = append(out, r.Papers...)
		}
	}
	return out
}

func hasError(results map[string]domain.SourceResult) bool {
	for _, r := range results {
		if r.Status == domain.SearchError {
			return true
		}
	}
	return false
}
