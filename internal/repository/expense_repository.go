package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"expensetracker/internal/model"
)

// ExpenseRepository defines expense persistence operations. Every method
// except PurgeTrashedBefore is scoped by the owning user.
type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindOwned(ctx context.Context, owner, id uuid.UUID) (*model.Expense, error)
	UpdateActive(ctx context.Context, expense *model.Expense) error
	List(ctx context.Context, owner uuid.UUID, q ExpenseQuery) ([]model.Expense, int64, error)
	ListTrash(ctx context.Context, owner uuid.UUID, page, limit int) ([]model.Expense, int64, error)
	ListActive(ctx context.Context, owner uuid.UUID, filter ExpenseFilter) ([]model.Expense, error)
	Transition(ctx context.Context, owner, id uuid.UUID, op model.Operation, at time.Time) error
	PurgeTrashedBefore(ctx context.Context, cutoff time.Time) ([]model.Expense, error)
}

type expenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository creates a new expense repository.
func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

// Create creates a new expense.
func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

// FindOwned finds an expense of the owner in any stored state.
func (r *expenseRepository) FindOwned(ctx context.Context, owner, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, owner).
		First(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

// UpdateActive overwrites the editable fields of an active owned expense.
// It returns gorm.ErrRecordNotFound when no active owned row matched.
func (r *expenseRepository) UpdateActive(ctx context.Context, expense *model.Expense) error {
	res := r.db.WithContext(ctx).Model(&model.Expense{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", expense.ID, expense.UserID, false).
		Updates(map[string]interface{}{
			"name":        expense.Name,
			"amount":      expense.Amount,
			"description": expense.Description,
			"category":    expense.Category,
			"date":        expense.Date,
			"updated_at":  expense.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns one page of active expenses and the total matching count.
func (r *expenseRepository) List(ctx context.Context, owner uuid.UUID, q ExpenseQuery) ([]model.Expense, int64, error) {
	scoped := q.Filter.apply(r.scope(ctx, owner, model.StateActive)).Session(&gorm.Session{})

	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	expenses := []model.Expense{}
	offset := q.Offset()
	if int64(offset) >= total {
		return expenses, total, nil
	}
	if err := q.order(scoped).Offset(offset).Limit(q.Limit).Find(&expenses).Error; err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

// ListTrash returns one page of trashed expenses, most recently trashed first.
func (r *expenseRepository) ListTrash(ctx context.Context, owner uuid.UUID, page, limit int) ([]model.Expense, int64, error) {
	scoped := r.scope(ctx, owner, model.StateTrashed).Session(&gorm.Session{})

	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	expenses := []model.Expense{}
	offset := PageOffset(page, limit)
	if int64(offset) >= total {
		return expenses, total, nil
	}
	if err := scoped.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "updated_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Offset(offset).Limit(limit).
		Find(&expenses).Error; err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

// ListActive returns every active expense matching the filter, oldest first.
func (r *expenseRepository) ListActive(ctx context.Context, owner uuid.UUID, filter ExpenseFilter) ([]model.Expense, error) {
	expenses := []model.Expense{}
	if err := filter.apply(r.scope(ctx, owner, model.StateActive)).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

// Transition applies a lifecycle operation only if the row is currently in
// the operation's source state. Zero matched rows yield gorm.ErrRecordNotFound,
// so a concurrent transition that got there first is reported as not found.
func (r *expenseRepository) Transition(ctx context.Context, owner, id uuid.UUID, op model.Operation, at time.Time) error {
	edge, err := model.EdgeFor(op)
	if err != nil {
		return err
	}

	guarded := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, owner, edge.From.Deleted())

	var res *gorm.DB
	if edge.To == model.StatePurged {
		res = guarded.Delete(&model.Expense{})
	} else {
		res = guarded.Model(&model.Expense{}).Updates(map[string]interface{}{
			"is_deleted": edge.To.Deleted(),
			"updated_at": at,
		})
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PurgeTrashedBefore removes trashed expenses of every user whose last update
// is older than cutoff and returns the removed rows. Candidates are locked
// before the delete, so a concurrent restore either commits first or waits.
func (r *expenseRepository) PurgeTrashedBefore(ctx context.Context, cutoff time.Time) ([]model.Expense, error) {
	purged := []model.Expense{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where("is_deleted = ? AND updated_at < ?", true, cutoff).
			Find(&purged).Error; err != nil {
			return err
		}
		if len(purged) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(purged))
		for _, e := range purged {
			ids = append(ids, e.ID)
		}
		return tx.Where("id IN ? AND is_deleted = ?", ids, true).Delete(&model.Expense{}).Error
	})
	if err != nil {
		return nil, err
	}
	return purged, nil
}

func (r *expenseRepository) scope(ctx context.Context, owner uuid.UUID, state model.State) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Expense{}).
		Where("user_id = ? AND is_deleted = ?", owner, state.Deleted())
}
