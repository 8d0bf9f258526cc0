package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"expensetracker/internal/service"
)

// ExpenseHandler handles expense endpoints. Every route runs behind the
// session middleware and is scoped to the session owner.
type ExpenseHandler struct {
	expenseService service.ExpenseService
}

// NewExpenseHandler creates a new expense handler.
func NewExpenseHandler(expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// ExpenseRequest is the body of create and update requests.
type ExpenseRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Amount      *decimal.Decimal `json:"amount" validate:"required" swaggertype:"number"`
	Description string           `json:"description"`
	Category    string           `json:"category" validate:"max=100"`
	// Date is RFC 3339 or YYYY-MM-DD.
	Date string `json:"date"`
}

func (r ExpenseRequest) input() (service.ExpenseInput, error) {
	in := service.ExpenseInput{
		Name:        r.Name,
		Amount:      *r.Amount,
		Description: r.Description,
		Category:    r.Category,
	}
	if strings.TrimSpace(r.Date) != "" {
		date, err := service.ParseDate(r.Date, false)
		if err != nil {
			return service.ExpenseInput{}, err
		}
		in.Date = &date
	}
	return in, nil
}

func bindExpense(c echo.Context) (service.ExpenseInput, error) {
	var req ExpenseRequest
	if err := bind(c, &req); err != nil {
		return service.ExpenseInput{}, err
	}
	in, err := req.input()
	if err != nil {
		return service.ExpenseInput{}, domainError(err)
	}
	return in, nil
}

func filterParams(c echo.Context) service.FilterParams {
	return service.FilterParams{
		Search:    c.QueryParam("search"),
		Category:  c.QueryParam("category"),
		MinAmount: c.QueryParam("minAmount"),
		MaxAmount: c.QueryParam("maxAmount"),
		StartDate: c.QueryParam("startDate"),
		EndDate:   c.QueryParam("endDate"),
	}
}

func pageParams(c echo.Context) service.PageParams {
	return service.PageParams{Page: c.QueryParam("page"), Limit: c.QueryParam("limit")}
}

// List godoc
// @Summary List active expenses
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Param sortBy query string false "date, amount, name or createdAt"
// @Param sortOrder query string false "asc or desc"
// @Param search query string false "Matches name or description"
// @Param category query string false "Exact category, 'all' for any"
// @Param minAmount query number false "Inclusive lower amount bound"
// @Param maxAmount query number false "Inclusive upper amount bound"
// @Param startDate query string false "Inclusive lower date bound"
// @Param endDate query string false "Inclusive upper date bound"
// @Success 200 {object} service.ExpensePage
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expanse [get]
func (h *ExpenseHandler) List(c echo.Context) error {
	owner, err := sessionOwner(c)
	if err != nil {
		return err
	}

	q, err := service.ListParams{
		PageParams:   pageParams(c),
		FilterParams: filterParams(c),
		SortBy:       c.QueryParam("sortBy"),
		SortOrder:    c.QueryParam("sortOrder"),
	}.Query()
	if err != nil {
		return domainError(err)
	}

	page, err := h.expenseService.List(c.Request().Context(), owner, q)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// ListTrash godoc
// @Summary List trashed expenses
// @Description Most recently trashed first. meta.retentionDays tells how long items stay in the trash.
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} service.ExpensePage
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expanse/trash [get]
func (h *ExpenseHandler) ListTrash(c echo.Context) error {
	owner, err := sessionOwner(c)
	if err != nil {
		return err
	}

	page, limit, err := pageParams(c).Parse()
	if err != nil {
		return domainError(err)
	}

	result, err := h.expenseService.ListTrash(c.Request().Context(), owner, page, limit)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// Analytics godoc
// @Summary Spending analytics
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param search query string false "Matches name or description"
// @Param category query string false "Exact category, 'all' for any"
// @Param minAmount query number false "Inclusive lower amount bound"
// @Param maxAmount query number false "Inclusive upper amount bound"
// @Param startDate query string false "Inclusive lower date bound"
// @Param endDate query string false "Inclusive upper date bound"
// @Success 200 {object} service.Analytics
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expanse/analytics [get]
func (h *ExpenseHandler) Analytics(c echo.Context) error {
	owner, err := sessionOwner(c)
	if err != nil {
		return err
	}

	filter, err := filterParams(c).Filter()
	if err != nil {
		return domainError(err)
	}

	summary, err := h.expenseService.Analytics(c.Request().Context(), owner, filter)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// Get godoc
// @Summary Get an expense
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expense ID"
// @Success 200 {object} model.Expense
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expanse/{id} [get]
func (h *ExpenseHandler) Get(c echo.Context) error {
	owner, err := sessionOwner(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	expense, err := h.expenseService.Get(c.Request().Context(), owner, id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, expense)
}

// Create godoc
// @Summary Create an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExpenseRequest true "Expense data"
// @Success 201 {object} model.Expense
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expanse [post]
func (h *ExpenseHandler) Create(c echo.Context) error {
	owner, err := sessionOwner(c)
	if err != nil {
		return err
	}
	in, err := bindExpense(c)
	if err != nil {
		return err
	}

	expense, err := h.expenseService.Create(c.Request().Context(), owner, in)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, expense)
}

// Update godoc
// @Summary Update an active expense
// @Description An omitted date keeps the stored date. Trashed expenses must be restored first.
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expense ID"
// @Param request body ExpenseRequest true "Expense data"
// @Success 200 {object} model.Expense
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expanse/{id} [put]
func (h *ExpenseHandler) Update(c echo.Context) error {
	owner, err := sessionOwner(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	in, err := bindExpense(c)
	if err != nil {
		return err
	}

	expense, err := h.expenseService.Update(c.Request().Context(), owner, id, in)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, expense)
}

// Delete godoc
// @Summary Move an expense to the trash
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expense ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expanse/{id} [delete]
func (h *ExpenseHandler) Delete(c echo.Context) error {
	owner, err := sessionOwner(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.expenseService.Trash(c.Request().Context(), owner, id); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Expense moved to trash"})
}

// Restore godoc
// @Summary Restore a trashed expense
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expense ID"
// @Success 200 {object} model.Expense
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expanse/trash/{id}/restore [put]
func (h *ExpenseHandler) Restore(c echo.Context) error {
	owner, err := sessionOwner(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	expense, err := h.expenseService.Restore(c.Request().Context(), owner, id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, expense)
}

// PermanentDelete godoc
// @Summary Permanently delete a trashed expense
// @Tags trash
// @Security BearerAuth
// @Param id path string true "Expense ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expanse/trash/{id}/permanent [delete]
func (h *ExpenseHandler) PermanentDelete(c echo.Context) error {
	owner, err := sessionOwner(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.expenseService.Purge(c.Request().Context(), owner, id); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
