package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/repository/dao"
)

var (
	ErrDuplicatePaper = dao.ErrDuplicatePaper
	ErrPaperNotFound  = dao.ErrRecordNotFound
)

// titlePrefixLen is how much of a title is compared when checking for
// papers already on file.
const titlePrefixLen = 30

type PaperRepository interface {
	Create(ctx context.Context, p domain.Paper) (domain.Paper, error)
	FindById(ctx context.Context, id int64) (domain.Paper, error)
	List(ctx context.Context, q dao.ListQuery) ([]domain.Paper, error)
	ListUpdatedSince(ctx context.Context, since time.Time) ([]domain.Paper, error)
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateNotion(ctx context.Context, id int64, pageID, url string) error
	Stats(ctx context.Context) (domain.PaperStats, error)
}

type paperRepository struct {
	dao dao.PaperDAO
}

func NewPaperRepository(dao dao.PaperDAO) PaperRepository {
	return &paperRepository{
		dao: dao,
	}
}

func (repo *paperRepository) Create(ctx context.Context, p domain.Paper) (domain.Paper, error) {
	entity := repo.toEntity(p)
	if err := repo.dao.Insert(ctx, &entity); err != nil {
		return domain.Paper{}, err
	}
	return repo.toDomain(entity), nil
}

func (repo *paperRepository) FindById(ctx context.Context, id int64) (domain.Paper, error) {
	p, err := repo.dao.FindById(ctx, id)
	if err != nil {
		return domain.Paper{}, err
	}
	return repo.toDomain(p), nil
}

func (repo *paperRepository) List(ctx context.Context, q dao.ListQuery) ([]domain.Paper, error) {
	ps, err := repo.dao.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return repo.toDomains(ps), nil
}

func (repo *paperRepository) ListUpdatedSince(ctx context.Context, since time.Time) ([]domain.Paper, error) {
	ps, err := repo.dao.ListUpdatedSince(ctx, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	return repo.toDomains(ps), nil
}

// ExistsByTitle matches on the leading characters of the title, case-insensitively.
func (repo *paperRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	prefix := strings.ToLower(strings.TrimSpace(title))
	if r := []rune(prefix); len(r) > titlePrefixLen {
		prefix = string(r[:titlePrefixLen])
	}
	if prefix == "" {
		return false, nil
	}
	n, err := repo.dao.CountByTitlePrefix(ctx, prefix)
	return n > 0, err
}

func (repo *paperRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return repo.dao.UpdateById(ctx, id, map[string]any{"status": status})
}

func (repo *paperRepository) UpdateNotion(ctx context.Context, id int64, pageID, url string) error {
	return repo.dao.UpdateById(ctx, id, map[string]any{
		"notion_page_id": pageID,
		"notion_url":     url,
	})
}

func (repo *paperRepository) Stats(ctx context.Context) (domain.PaperStats, error) {
	byTheme, byStatus, err := repo.dao.Stats(ctx)
	if err != nil {
		return domain.PaperStats{}, err
	}
	st := domain.PaperStats{
		ByTheme:  make(map[string]int64, len(byTheme)),
		ByStatus: make(map[string]int64, len(byStatus)),
	}
	for _, gc := range byTheme {
		st.ByTheme[gc.Key] = gc.Count
		st.Total += gc.Count
	}
	for _, gc := range byStatus {
		st.ByStatus[gc.Key] = gc.Count
	}
	return st, nil
}

// IsNotFound reports whether err means the paper does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPaperNotFound)
}

func (repo *paperRepository) toEntity(p domain.Paper) dao.Paper {
	return dao.Paper{
		Id:                p.Id,
		Title:             p.Title,
		Filename:          p.Filename,
		Theme:             p.Theme,
		SuggestedTheme:    p.SuggestedTheme,
		Status:            p.Status,
		Summary:           p.Summary,
		KeyConcepts:       strings.Join(p.KeyConcepts, "\n"),
		ResearchGaps:      p.ResearchGaps,
		Methodology:       p.Methodology,
		Notes:             p.Notes,
		Pages:             p.Pages,
		ExtractionSuccess: p.ExtractionSuccess,
		NotionPageID:      p.NotionPageID,
		NotionURL:         p.NotionURL,
		PDFLink:           p.PDFLink,
		Source:            p.Source,
	}
}

func (repo *paperRepository) toDomain(p dao.Paper) domain.Paper {
	var concepts []string
	if p.KeyConcepts != "" {
		concepts = strings.Split(p.KeyConcepts, "\n")
	}
	return domain.Paper{
		Id:                p.Id,
		Title:             p.Title,
		Filename:          p.Filename,
		Theme:             p.Theme,
		SuggestedTheme:    p.SuggestedTheme,
		Status:            p.Status,
		Summary:           p.Summary,
		KeyConcepts:       concepts,
		ResearchGaps:      p.ResearchGaps,
		Methodology:       p.Methodology,
		Notes:             p.Notes,
		Pages:             p.Pages,
		ExtractionSuccess: p.ExtractionSuccess,
		NotionPageID:      p.NotionPageID,
		NotionURL:         p.NotionURL,
		PDFLink:           p.PDFLink,
		Source:            p.Source,
		Ctime:             time.UnixMilli(p.Ctime).UTC(),
		Utime:             time.UnixMilli(p.Utime).UTC(),
	}
}

func (repo *paperRepository) toDomains(ps []dao.Paper) []domain.Paper {
	out := make([]domain.Paper, 0, len(ps))
	for _, p := range ps {
		out = append(out, repo.toDomain(p))
	}
	return out
}
