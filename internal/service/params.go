package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/repository"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	dateLayout   = "2006-01-02"
)

// PageParams are the raw page and limit query values.
type PageParams struct {
	Page  string
	Limit string
}

// Parse applies defaults and rejects anything that is not a positive integer.
func (p PageParams) Parse() (page, limit int, err error) {
	page, ok := positiveInt(p.Page, defaultPage)
	if !ok {
		return 0, 0, apperrors.ErrInvalidPagination
	}
	limit, ok = positiveInt(p.Limit, defaultLimit)
	if !ok {
		return 0, 0, apperrors.ErrInvalidPagination
	}
	return page, limit, nil
}

// FilterParams are the raw filter query values.
type FilterParams struct {
	Search    string
	Category  string
	MinAmount string
	MaxAmount string
	StartDate string
	EndDate   string
}

// Filter parses the values, reporting every malformed one.
func (p FilterParams) Filter() (repository.ExpenseFilter, error) {
	filter := repository.ExpenseFilter{
		Search:   strings.TrimSpace(p.Search),
		Category: strings.TrimSpace(p.Category),
	}
	var fields []apperrors.FieldError

	var err error
	if filter.MinAmount, err = optionalDecimal(p.MinAmount); err != nil {
		fields = append(fields, apperrors.FieldError{Field: "minAmount", Message: "must be a number"})
	}
	if filter.MaxAmount, err = optionalDecimal(p.MaxAmount); err != nil {
		fields = append(fields, apperrors.FieldError{Field: "maxAmount", Message: "must be a number"})
	}
	if filter.StartDate, err = optionalDate(p.StartDate, false); err != nil {
		fields = append(fields, apperrors.FieldError{Field: "startDate", Message: dateMessage})
	}
	if filter.EndDate, err = optionalDate(p.EndDate, true); err != nil {
		fields = append(fields, apperrors.FieldError{Field: "endDate", Message: dateMessage})
	}

	if len(fields) > 0 {
		return repository.ExpenseFilter{}, apperrors.NewValidationError(fields...)
	}
	return filter, nil
}

// ListParams are the raw query values of an expense listing.
type ListParams struct {
	PageParams
	FilterParams
	SortBy    string
	SortOrder string
}

// Query validates the listing request. Pagination is checked first, then the
// sort field, then the filters.
func (p ListParams) Query() (repository.ExpenseQuery, error) {
	page, limit, err := p.PageParams.Parse()
	if err != nil {
		return repository.ExpenseQuery{}, err
	}

	sortBy := repository.SortByDate
	if p.SortBy != "" {
		var ok bool
		if sortBy, ok = repository.ParseSortField(p.SortBy); !ok {
			return repository.ExpenseQuery{}, invalidSortField()
		}
	}

	filter, err := p.FilterParams.Filter()
	if err != nil {
		return repository.ExpenseQuery{}, err
	}

	return repository.ExpenseQuery{
		Filter:    filter,
		Page:      page,
		Limit:     limit,
		SortBy:    sortBy,
		SortOrder: repository.ParseSortOrder(p.SortOrder),
	}, nil
}

// invalidSortField wraps ErrInvalidSortField with the accepted values.
func invalidSortField() error {
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidSortField, apperrors.NewValidationError(apperrors.FieldError{
		Field:   "sortBy",
		Message: "must be one of " + strings.Join(repository.SortFields(), ", "),
	}))
}

const dateMessage = "must be an RFC 3339 timestamp or a YYYY-MM-DD date"

// ParseDate accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date and
// returns it in UTC. With endOfDay set, a bare date stands for the last
// instant of that day.
func ParseDate(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(apperrors.FieldError{Field: "date", Message: dateMessage})
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}

func optionalDate(s string, endOfDay bool) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s, endOfDay)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalDecimal(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func positiveInt(s string, fallback int) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
