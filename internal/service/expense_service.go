package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/events"
	"expensetracker/internal/log"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

// ExpenseInput holds the editable fields of an expense. A nil Date means
// "now" on create and "unchanged" on update.
type ExpenseInput struct {
	Name        string
	Amount      decimal.Decimal
	Description string
	Category    string
	Date        *time.Time
}

func (in ExpenseInput) validate() error {
	var fields []apperrors.FieldError
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "is required"})
	}
	if in.Amount.IsNegative() {
		fields = append(fields, apperrors.FieldError{Field: "amount", Message: "must be at least 0"})
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields...)
	}
	return nil
}

// PageMeta describes one page of a listing.
type PageMeta struct {
	TotalItems    int64 `json:"totalItems"`
	TotalPages    int   `json:"totalPages"`
	CurrentPage   int   `json:"currentPage"`
	PageSize      int   `json:"pageSize"`
	RetentionDays int   `json:"retentionDays,omitempty"`
}

// ExpensePage is a page of expenses with its metadata.
type ExpensePage struct {
	Data []model.Expense `json:"data"`
	Meta PageMeta        `json:"meta"`
}

func newPageMeta(total int64, page, limit int) PageMeta {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return PageMeta{
		TotalItems:  total,
		TotalPages:  int(pages),
		CurrentPage: page,
		PageSize:    limit,
	}
}

// ExpenseService handles the expense query engine and the trash lifecycle.
// Every operation is scoped to the owner taken from the verified session.
type ExpenseService interface {
	Create(ctx context.Context, owner uuid.UUID, input ExpenseInput) (*model.Expense, error)
	Get(ctx context.Context, owner, id uuid.UUID) (*model.Expense, error)
	Update(ctx context.Context, owner, id uuid.UUID, input ExpenseInput) (*model.Expense, error)
	List(ctx context.Context, owner uuid.UUID, q repository.ExpenseQuery) (*ExpensePage, error)
	ListTrash(ctx context.Context, owner uuid.UUID, page, limit int) (*ExpensePage, error)
	Trash(ctx context.Context, owner, id uuid.UUID) error
	Restore(ctx context.Context, owner, id uuid.UUID) (*model.Expense, error)
	Purge(ctx context.Context, owner, id uuid.UUID) error
	Analytics(ctx context.Context, owner uuid.UUID, filter repository.ExpenseFilter) (*Analytics, error)
}

type expenseService struct {
	repo          repository.ExpenseRepository
	notifier      notifier
	logger        *log.Logger
	retentionDays int
	now           func() time.Time
}

// NewExpenseService creates a new expense service.
func NewExpenseService(
	repo repository.ExpenseRepository,
	publisher events.Publisher,
	logger *log.Logger,
	retentionDays int,
) ExpenseService {
	return &expenseService{
		repo:          repo,
		notifier:      newNotifier(publisher, logger),
		logger:        logger.WithComponent(log.ComponentExpense),
		retentionDays: retentionDays,
		now:           utcNow,
	}
}

// Create stores a new active expense for the owner.
func (s *expenseService) Create(ctx context.Context, owner uuid.UUID, input ExpenseInput) (*model.Expense, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	date := s.now()
	if input.Date != nil {
		date = input.Date.UTC()
	}

	expense := &model.Expense{
		ID:          uuid.New(),
		UserID:      owner,
		Name:        strings.TrimSpace(input.Name),
		Amount:      input.Amount,
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		Date:        date,
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.publish(ctx, events.TypeCreated, expense.ID, owner)
	return expense, nil
}

// Get returns an owned expense, active or trashed.
func (s *expenseService) Get(ctx context.Context, owner, id uuid.UUID) (*model.Expense, error) {
	expense, err := s.repo.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "find expense")
	}
	return expense, nil
}

// Update replaces the editable fields of an active owned expense.
func (s *expenseService) Update(ctx context.Context, owner, id uuid.UUID, input ExpenseInput) (*model.Expense, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	expense, err := s.repo.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "find expense")
	}
	if expense.State() != model.StateActive {
		return nil, apperrors.ErrExpenseNotFound
	}

	expense.Name = strings.TrimSpace(input.Name)
	expense.Amount = input.Amount
	expense.Description = input.Description
	expense.Category = strings.TrimSpace(input.Category)
	if input.Date != nil {
		expense.Date = input.Date.UTC()
	}
	expense.UpdatedAt = s.now()

	// trashed between the read and the write: UpdateActive matches nothing
	if err := s.repo.UpdateActive(ctx, expense); err != nil {
		return nil, notFound(err, "update expense")
	}

	s.publish(ctx, events.TypeUpdated, expense.ID, owner)
	return expense, nil
}

// List returns a page of the owner's active expenses.
func (s *expenseService) List(ctx context.Context, owner uuid.UUID, q repository.ExpenseQuery) (*ExpensePage, error) {
	if q.Page < 1 || q.Limit < 1 {
		return nil, apperrors.ErrInvalidPagination
	}
	expenses, total, err := s.repo.List(ctx, owner, q)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return &ExpensePage{Data: expenses, Meta: newPageMeta(total, q.Page, q.Limit)}, nil
}

// ListTrash returns a page of the owner's trashed expenses, most recently
// trashed first.
func (s *expenseService) ListTrash(ctx context.Context, owner uuid.UUID, page, limit int) (*ExpensePage, error) {
	if page < 1 || limit < 1 {
		return nil, apperrors.ErrInvalidPagination
	}
	expenses, total, err := s.repo.ListTrash(ctx, owner, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	meta := newPageMeta(total, page, limit)
	meta.RetentionDays = s.retentionDays
	return &ExpensePage{Data: expenses, Meta: meta}, nil
}

// Trash moves an active expense to the trash.
func (s *expenseService) Trash(ctx context.Context, owner, id uuid.UUID) error {
	return s.transition(ctx, owner, id, model.OpTrash, events.TypeTrashed)
}

// Restore moves a trashed expense back to the active list.
func (s *expenseService) Restore(ctx context.Context, owner, id uuid.UUID) (*model.Expense, error) {
	if err := s.transition(ctx, owner, id, model.OpRestore, events.TypeRestored); err != nil {
		return nil, err
	}
	return s.Get(ctx, owner, id)
}

// Purge permanently removes a trashed expense.
func (s *expenseService) Purge(ctx context.Context, owner, id uuid.UUID) error {
	return s.transition(ctx, owner, id, model.OpPurge, events.TypePurged)
}

// Analytics aggregates the owner's active expenses matching the filter.
func (s *expenseService) Analytics(ctx context.Context, owner uuid.UUID, filter repository.ExpenseFilter) (*Analytics, error) {
	expenses, err := s.repo.ListActive(ctx, owner, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses for analytics: %w", err)
	}
	return summarize(expenses, s.now()), nil
}

func (s *expenseService) transition(ctx context.Context, owner, id uuid.UUID, op model.Operation, eventType events.Type) error {
	if err := s.repo.Transition(ctx, owner, id, op, s.now()); err != nil {
		return notFound(err, string(op)+" expense")
	}
	s.logger.DebugContext(ctx, "expense transitioned", "op", op, "expense_id", id, "user_id", owner)
	s.publish(ctx, eventType, id, owner)
	return nil
}

func (s *expenseService) publish(ctx context.Context, eventType events.Type, expenseID, owner uuid.UUID) {
	s.notifier.notify(ctx, eventType, expenseID, owner, s.now())
}

// notFound maps a missing row to ErrExpenseNotFound and wraps anything else.
func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrExpenseNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
