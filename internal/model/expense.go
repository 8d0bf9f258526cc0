package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Clients read amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Expense is a spending record owned by exactly one user.
// IsDeleted marks the record as trashed; see State.
type Expense struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID       `json:"userId" gorm:"type:char(36);not null;index:idx_expenses_owner_state,priority:1"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Description string          `json:"description" gorm:"type:text"`
	Category    string          `json:"category" gorm:"size:100;index"`
	Date        time.Time       `json:"date" gorm:"not null;index"`
	IsDeleted   bool            `json:"isDeleted" gorm:"not null;default:false;index:idx_expenses_owner_state,priority:2"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// State reports the lifecycle state of a stored expense.
func (e *Expense) State() State {
	return StateOf(e.IsDeleted)
}
