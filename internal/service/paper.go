package service

import (
	"context"
	"errors"
	"time"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/integration/notion"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/pkg/log"
)

var ErrInvalidStatus = errors.New("unknown paper status")

type PaperService interface {
	// UpdateStatus stores status locally and mirrors it to the paper's
	// Notion row when there is one. It reports whether Notion was updated.
	UpdateStatus(ctx context.Context, id int64, status string) (bool, error)
}

type paperService struct {
	repo   repository.PaperRepository
	notion notion.Tracker
	now    func() time.Time
}

func NewPaperService(repo repository.PaperRepository, tracker notion.Tracker) PaperService {
	return &paperService{repo: repo, notion: tracker, now: time.Now}
}

func (svc *paperService) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	if !domain.ValidStatus(status) {
		return false, ErrInvalidStatus
	}
	if err := svc.repo.UpdateStatus(ctx, id, status); err != nil {
		return false, err
	}
	p, err := svc.repo.FindById(ctx, id)
	if err != nil {
		return false, err
	}
	if p.NotionPageID == "" || svc.notion == nil || !svc.notion.Enabled() {
		return false, nil
	}
	if _, err := svc.notion.UpdatePage(ctx, p.NotionPageID, notion.StatusProperties(status, svc.now())); err != nil {
		log.WithError(err).WithField("paper", id).Warn("notion status sync failed")
		return false, nil
	}
	return true, nil
}
