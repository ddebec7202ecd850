package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/services"
)

type ChequeHandler struct {
	chequeService *services.ChequeService
}

func NewChequeHandler(chequeService *services.ChequeService) *ChequeHandler {
	return &ChequeHandler{chequeService: chequeService}
}

func chequeListQuery(c *gin.Context) (services.ChequeListQuery, error) {
	q := services.ChequeListQuery{
		Status:     c.Query("status"),
		CustomerID: queryUint(c, "customer_id"),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	q.Page, _ = strconv.Atoi(c.Query("page"))
	q.Limit, _ = strconv.Atoi(c.Query("limit"))

	var err error
	if q.StartDate, err = queryDate(c, "start_date"); err != nil {
		return q, err
	}
	if q.EndDate, err = queryDate(c, "end_date"); err != nil {
		return q, err
	}
	return q, nil
}

// @Summary List Cheques
// @Tags Cheques
// @Produce json
// @Param status query string false "pending, cleared, returned or cancelled"
// @Param start_date query string false "From cheque date (YYYY-MM-DD)"
// @Param end_date query string false "To cheque date (YYYY-MM-DD)"
// @Param customer_id query int false "Filter by customer"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page, at most 100" default(20)
// @Success 200 {object} services.ChequeList
// @Security BearerAuth
// @Router /cheques [get]
func (h *ChequeHandler) Index(c *gin.Context) {
	q, err := chequeListQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := h.chequeService.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Export Cheques
// @Description Exports the filtered cheque list
// @Tags Cheques
// @Produce octet-stream
// @Param format query string false "csv, xlsx, pdf or print" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /cheques/export [get]
func (h *ChequeHandler) Export(c *gin.Context) {
	q, err := chequeListQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := h.chequeService.Export(c.Request.Context(), c.DefaultQuery("format", "csv"), q)
	if err != nil {
		respondError(c, err)
		return
	}
	sendExport(c, file)
}

// @Summary Get Cheque
// @Tags Cheques
// @Produce json
// @Param cheque_id path int true "Cheque ID"
// @Success 200 {object} models.ChequeResponse
// @Security BearerAuth
// @Router /cheques/{cheque_id} [get]
func (h *ChequeHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "cheque_id")
	if !ok {
		return
	}
	cheque, err := h.chequeService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cheque": cheque.ToResponse()})
}

// @Summary Create Customer Cheque
// @Description Registers a cheque received from a customer with its scanned image
// @Tags Cheques
// @Accept multipart/form-data
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param cheque_number formData string true "Cheque number"
// @Param amount formData number true "Amount"
// @Param cheque_date formData string true "Cheque date (YYYY-MM-DD)"
// @Param bank_name formData string false "Bank"
// @Param notes formData string false "Notes"
// @Param policy_id formData int false "Policy"
// @Param image formData file true "Cheque scan (jpeg or png)"
// @Success 201 {object} models.ChequeResponse
// @Failure 422 {object} errorBody
// @Security BearerAuth
// @Router /cheques/customer/{customer_id} [post]
func (h *ChequeHandler) CreateForCustomer(c *gin.Context) {
	customerID, ok := paramID(c, "customer_id")
	if !ok {
		return
	}
	in, err := chequeForm(c)
	if err != nil {
		respondError(c, err)
		return
	}
	image, err := formFile(c, "image")
	if err != nil {
		respondError(c, err)
		return
	}

	cheque, err := h.chequeService.CreateCustomerCheque(c.Request.Context(), actorFrom(c), customerID, in, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"cheque": cheque.ToResponse(), "messageKey": "cheque.created"})
}

// @Summary Update Cheque Status
// @Description A returned status needs a reason. Leaving cleared, returned or cancelled needs an admin override.
// @Tags Cheques
// @Accept json
// @Produce json
// @Param cheque_id path int true "Cheque ID"
// @Param request body services.ChequeStatusInput true "Status"
// @Success 200 {object} models.ChequeResponse
// @Failure 409 {object} errorBody
// @Failure 422 {object} errorBody
// @Security BearerAuth
// @Router /cheques/{cheque_id}/status [patch]
func (h *ChequeHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "cheque_id")
	if !ok {
		return
	}
	var in services.ChequeStatusInput
	if !bindBody(c, "cheque", &in) {
		return
	}

	cheque, err := h.chequeService.UpdateStatus(c.Request.Context(), actorFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cheque": cheque.ToResponse(), "messageKey": "cheque.status_updated"})
}

// @Summary Delete Cheque
// @Description Deletes a cheque (admin). Linked payments keep their cheque details.
// @Tags Cheques
// @Produce json
// @Param cheque_id path int true "Cheque ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /cheques/{cheque_id} [delete]
func (h *ChequeHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "cheque_id")
	if !ok {
		return
	}
	if err := h.chequeService.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cheque deleted", "messageKey": "cheque.deleted"})
}

// @Summary Cheque Image
// @Tags Cheques
// @Produce image/jpeg,image/png
// @Param cheque_id path int true "Cheque ID"
// @Param thumbnail query bool false "Serve the thumbnail"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /cheques/{cheque_id}/image [get]
func (h *ChequeHandler) Image(c *gin.Context) {
	id, ok := paramID(c, "cheque_id")
	if !ok {
		return
	}
	thumbnail, _ := strconv.ParseBool(c.Query("thumbnail"))

	r, contentType, err := h.chequeService.GetImage(c.Request.Context(), id, thumbnail)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	streamFile(c, r, contentType, "")
}

func chequeForm(c *gin.Context) (services.ChequeInput, error) {
	in := services.ChequeInput{
		ChequeNumber: c.PostForm("cheque_number"),
		BankName:     c.PostForm("bank_name"),
		Notes:        c.PostForm("notes"),
	}

	if raw := strings.TrimSpace(c.PostForm("amount")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return in, &services.ValidationError{Field: "amount", MessageKey: "cheque.amount_invalid", Message: "amount must be greater than zero"}
		}
		in.Amount = amount
	}
	if raw := strings.TrimSpace(c.PostForm("policy_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return in, &services.ValidationError{Field: "policy_id", MessageKey: "cheque.policy_invalid", Message: "policy id is not valid"}
		}
		policyID := uint(id)
		in.PolicyID = &policyID
	}

	var err error
	in.ChequeDate, err = formDate(c, "cheque_date")
	return in, err
}
