package repository

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryAll is the category filter value meaning "no filter".
const CategoryAll = "all"

// SortField is a caller-selectable ordering key.
type SortField string

const (
	SortByDate      SortField = "date"
	SortByAmount    SortField = "amount"
	SortByName      SortField = "name"
	SortByCreatedAt SortField = "createdAt"
)

// sortColumns is the allow-list of orderable columns.
var sortColumns = map[SortField]string{
	SortByDate:      "date",
	SortByAmount:    "amount",
	SortByName:      "name",
	SortByCreatedAt: "created_at",
}

// ParseSortField returns the sort field for a query value; ok is false when
// the value is not allow-listed.
func ParseSortField(s string) (SortField, bool) {
	f := SortField(s)
	_, ok := sortColumns[f]
	return f, ok
}

// SortFields lists the accepted sortBy values.
func SortFields() []string {
	return []string{string(SortByDate), string(SortByAmount), string(SortByName), string(SortByCreatedAt)}
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder coerces anything other than "asc" to descending.
func ParseSortOrder(s string) SortOrder {
	if s == string(SortAsc) {
		return SortAsc
	}
	return SortDesc
}

// ExpenseFilter narrows a listing. Zero values mean "no constraint".
type ExpenseFilter struct {
	Search    string
	Category  string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	StartDate *time.Time
	EndDate   *time.Time
}

// ExpenseQuery is a validated, paginated listing request.
type ExpenseQuery struct {
	Filter    ExpenseFilter
	Page      int
	Limit     int
	SortBy    SortField
	SortOrder SortOrder
}

// Offset is the number of rows skipped before the requested page.
func (q ExpenseQuery) Offset() int {
	return PageOffset(q.Page, q.Limit)
}

// PageOffset returns (page-1)*limit for positive page and limit, saturating
// at math.MaxInt instead of wrapping.
func PageOffset(page, limit int) int {
	if page <= 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func (f ExpenseFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Category != "" && f.Category != CategoryAll {
		db = db.Where(clause.Eq{Column: clause.Column{Name: "category"}, Value: f.Category})
	}
	if f.MinAmount != nil {
		db = db.Where(clause.Gte{Column: clause.Column{Name: "amount"}, Value: *f.MinAmount})
	}
	if f.MaxAmount != nil {
		db = db.Where(clause.Lte{Column: clause.Column{Name: "amount"}, Value: *f.MaxAmount})
	}
	if f.StartDate != nil {
		db = db.Where(clause.Gte{Column: clause.Column{Name: "date"}, Value: *f.StartDate})
	}
	if f.EndDate != nil {
		db = db.Where(clause.Lte{Column: clause.Column{Name: "date"}, Value: *f.EndDate})
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		db = db.Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	return db
}

// order sorts by the requested column and breaks ties on id in the same direction.
func (q ExpenseQuery) order(db *gorm.DB) *gorm.DB {
	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[SortByDate]
	}
	desc := q.SortOrder != SortAsc
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
