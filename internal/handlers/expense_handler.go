package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/services"
)

type ExpenseHandler struct {
	expenseService *services.ExpenseService
}

func NewExpenseHandler(expenseService *services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func expenseQuery(c *gin.Context) (*repository.ExpenseQuery, error) {
	query := &repository.ExpenseQuery{ListQuery: listQuery(c), PaymentMethod: c.Query("payment_method")}
	var err error
	if query.StartDate, err = queryDate(c, "start_date"); err != nil {
		return nil, err
	}
	if query.EndDate, err = queryDate(c, "end_date"); err != nil {
		return nil, err
	}
	return query, nil
}

// @Summary List Expenses
// @Tags Expenses
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search query string false "Search by title or payer"
// @Param payment_method query string false "Filter by method"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /expenses [get]
func (h *ExpenseHandler) Index(c *gin.Context) {
	query, err := expenseQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	expenses, total, err := h.expenseService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	c.JSON(http.StatusOK, paginated("expenses", expenses, query.ListQuery, total))
}

// @Summary Export Expenses
// @Tags Expenses
// @Produce octet-stream
// @Param format query string false "csv, xlsx, pdf or print" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /expenses/export [get]
func (h *ExpenseHandler) Export(c *gin.Context) {
	query, err := expenseQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := h.expenseService.Export(c.Request.Context(), c.DefaultQuery("format", "csv"), query)
	if err != nil {
		respondError(c, err)
		return
	}
	sendExport(c, file)
}

// @Summary Get Expense
// @Tags Expenses
// @Produce json
// @Param expense_id path int true "Expense ID"
// @Success 200 {object} models.Expense
// @Failure 404 {object} errorBody
// @Security BearerAuth
// @Router /expenses/{expense_id} [get]
func (h *ExpenseHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "expense_id")
	if !ok {
		return
	}
	expense, err := h.expenseService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// @Summary Create Expense
// @Tags Expenses
// @Accept json
// @Produce json
// @Param request body services.ExpenseInput true "Expense"
// @Success 201 {object} models.Expense
// @Failure 422 {object} errorBody
// @Security BearerAuth
// @Router /expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	var in services.ExpenseInput
	if !bindBody(c, "expense", &in) {
		return
	}
	expense, err := h.expenseService.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"expense": expense, "messageKey": "expense.created"})
}

// @Summary Update Expense
// @Tags Expenses
// @Accept json
// @Produce json
// @Param expense_id path int true "Expense ID"
// @Param request body services.ExpenseInput true "Expense"
// @Success 200 {object} models.Expense
// @Security BearerAuth
// @Router /expenses/{expense_id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "expense_id")
	if !ok {
		return
	}
	var in services.ExpenseInput
	if !bindBody(c, "expense", &in) {
		return
	}
	expense, err := h.expenseService.Update(c.Request.Context(), actorFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expense": expense, "messageKey": "expense.updated"})
}

// @Summary Delete Expense
// @Tags Expenses
// @Produce json
// @Param expense_id path int true "Expense ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /expenses/{expense_id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "expense_id")
	if !ok {
		return
	}
	if err := h.expenseService.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "expense deleted", "messageKey": "expense.deleted"})
}
