package service

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/events"
	"expensetracker/internal/log"
	"expensetracker/internal/repository"
)

// RetentionService permanently removes expenses that stayed in the trash
// longer than the retention window. Every removed expense is announced with
// a purged event, like a manual permanent delete.
type RetentionService struct {
	repo     repository.ExpenseRepository
	notifier notifier
	logger   *log.Logger
	days     int
}

// NewRetentionService creates a retention service for a window of days.
func NewRetentionService(repo repository.ExpenseRepository, publisher events.Publisher, logger *log.Logger, days int) *RetentionService {
	return &RetentionService{
		repo:     repo,
		notifier: newNotifier(publisher, logger),
		logger:   logger.WithComponent(log.ComponentPurge),
		days:     days,
	}
}

// Cutoff is the instant before which a trashed expense is expired.
func (s *RetentionService) Cutoff(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -s.days)
}

// PurgeExpired deletes every trashed expense last updated before the cutoff
// and returns how many were removed.
func (s *RetentionService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if s.days < 1 {
		return 0, fmt.Errorf("retention window must be at least one day, got %d", s.days)
	}

	cutoff := s.Cutoff(now)
	purged, err := s.repo.PurgeTrashedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge trashed expenses: %w", err)
	}

	for _, expense := range purged {
		s.notifier.notify(ctx, events.TypePurged, expense.ID, expense.UserID, now.UTC())
	}

	s.logger.InfoContext(ctx, "purged expired trash",
		"cutoff", cutoff,
		"retention_days", s.days,
		"purged", len(purged))
	return int64(len(purged)), nil
}
