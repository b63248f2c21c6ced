package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lvow2022/research-assistant/internal/domain"
	"github.com/lvow2022/research-assistant/internal/integration/discord"
	"github.com/lvow2022/research-assistant/internal/integration/notion"
	"github.com/lvow2022/research-assistant/internal/repository"
	"github.com/lvow2022/research-assistant/pkg/log"
)

// UpdateJobName identifies the periodic Discord digest.
const UpdateJobName = "discord_update"

var ErrInvalidFrequency = errors.New("frequency must be a positive number of hours")

type SchedulerService interface {
	Start() error
	UpdateFrequency(hours int) error
	Frequency() int
	NextRun() time.Time
	SendResearchUpdate(ctx context.Context) (domain.ResearchUpdate, error)
	Stop(ctx context.Context) error
}

type schedulerService struct {
	repo     repository.PaperRepository
	notion   notion.Tracker
	discord  discord.Notifier
	analyzer AnalyzerService

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	hours   int
	started bool
	timeout time.Duration
	now     func() time.Time
}

func NewSchedulerService(repo repository.PaperRepository, tracker notion.Tracker, notifier discord.Notifier,
	analyzer AnalyzerService, hours int) SchedulerService {
	return &schedulerService{
		repo:     repo,
		notion:   tracker,
		discord:  notifier,
		analyzer: analyzer,
		cron:     cron.New(),
		hours:    hours,
		timeout:  5 * time.Minute,
		now:      time.Now,
	}
}

func (svc *schedulerService) Start() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.started {
		return nil
	}
	if svc.entry == 0 {
		if err := svc.scheduleLocked(svc.hours); err != nil {
			return err
		}
	}
	svc.cron.Start()
	svc.started = true
	log.WithField("job", UpdateJobName).Infof("scheduler started with %dh update frequency", svc.hours)
	return nil
}

// UpdateFrequency replaces the digest job with one running every hours.
func (svc *schedulerService) UpdateFrequency(hours int) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if hours <= 0 {
		return ErrInvalidFrequency
	}
	if svc.entry != 0 {
		svc.cron.Remove(svc.entry)
		svc.entry = 0
	}
	if err := svc.scheduleLocked(hours); err != nil {
		return err
	}
	log.WithField("job", UpdateJobName).Infof("update frequency changed to %d hours", hours)
	return nil
}

func (svc *schedulerService) scheduleLocked(hours int) error {
	if hours <= 0 {
		return ErrInvalidFrequency
	}
	id, err := svc.cron.AddFunc(fmt.Sprintf("@every %dh", hours), svc.runJob)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", UpdateJobName, err)
	}
	svc.entry, svc.hours = id, hours
	return nil
}

func (svc *schedulerService) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), svc.timeout)
	defer cancel()
	if _, err := svc.SendResearchUpdate(ctx); err != nil {
		log.WithError(err).WithField("job", UpdateJobName).Error("failed to send research update")
	}
}

func (svc *schedulerService) Frequency() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.hours
}

// NextRun is zero until the scheduler has started.
func (svc *schedulerService) NextRun() time.Time {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.entry == 0 {
		return time.Time{}
	}
	return svc.cron.Entry(svc.entry).Next
}

// SendResearchUpdate gathers papers touched during the last window and posts
// the digest, with writing suggestions for the most recent one.
func (svc *schedulerService) SendResearchUpdate(ctx context.Context) (domain.ResearchUpdate, error) {
	since := svc.now().Add(-time.Duration(svc.Frequency()) * time.Hour)
	u := domain.ResearchUpdate{
		PapersUpdated:  []string{},
		NextMilestones: []string{},
	}

	titles, status, notes, err := svc.recentPapers(ctx, since)
	if err != nil {
		return u, err
	}
	u.PapersUpdated = titles
	if len(titles) > 0 {
		u.WritingSuggestions = svc.analyzer.GenerateWritingSuggestions(ctx, status, notes)
	}
	if svc.discord == nil || !svc.discord.Enabled() {
		return u, discord.ErrNotConfigured
	}
	if err := svc.discord.SendResearchUpdate(ctx, u); err != nil {
		return u, err
	}
	log.WithField("papers", len(titles)).Info("research update sent")
	return u, nil
}

// recentPapers returns the titles updated since t, newest first, and the
// status and notes of the newest.
func (svc *schedulerService) recentPapers(ctx context.Context, since time.Time) ([]string, string, string, error) {
	titles := []string{}
	if svc.notion != nil && svc.notion.Enabled() {
		pages, err := svc.notion.QueryUpdatedSince(ctx, since)
		if err != nil {
			return titles, "", "", err
		}
		for _, p := range pages {
			titles = append(titles, p.Prop("Title"))
		}
		if len(pages) == 0 {
			return titles, "", "", nil
		}
		return titles, pages[0].Prop("Status"), pages[0].Prop("Notes"), nil
	}

	papers, err := svc.repo.ListUpdatedSince(ctx, since)
	if err != nil {
		return titles, "", "", err
	}
	for _, p := range papers {
		titles = append(titles, p.Title)
	}
	if len(papers) == 0 {
		return titles, "", "", nil
	}
	return titles, papers[0].Status, papers[0].Notes, nil
}

func (svc *schedulerService) Stop(ctx context.Context) error {
	svc.mu.Lock()
	started := svc.started
	svc.started = false
	svc.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-svc.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
