package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	reportService  *services.ReportService
}

func NewPaymentHandler(paymentService *services.PaymentService, reportService *services.ReportService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, reportService: reportService}
}

// @Summary List Payments
// @Description Get a paginated list of payments
// @Tags Payments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param payment_method query string false "Filter by method"
// @Param policy_id query int false "Filter by policy"
// @Param customer_id query int false "Filter by customer"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) Index(c *gin.Context) {
	query := &repository.PaymentQuery{
		ListQuery:  listQuery(c),
		PolicyID:   queryUint(c, "policy_id"),
		CustomerID: queryUint(c, "customer_id"),
		Method:     c.Query("payment_method"),
		Status:     c.Query("status"),
	}
	var err error
	if query.StartDate, err = queryDate(c, "start_date"); err != nil {
		respondError(c, err)
		return
	}
	if query.EndDate, err = queryDate(c, "end_date"); err != nil {
		respondError(c, err)
		return
	}

	payments, total, err := h.paymentService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}
	c.JSON(http.StatusOK, paginated("payments", responses, query.ListQuery, total))
}

// @Summary Get Payment
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} models.PaymentResponse
// @Failure 404 {object} errorBody
// @Security BearerAuth
// @Router /payments/{payment_id} [get]
func (h *PaymentHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "payment_id")
	if !ok {
		return
	}
	payment, err := h.paymentService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse()})
}

// @Summary Payment Receipt
// @Description Renders the receipt of a payment as printable HTML or PDF
// @Tags Payments
// @Produce html,application/pdf
// @Param payment_id path int true "Payment ID"
// @Param format query string false "html or pdf" default(html)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /payments/{payment_id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	id, ok := paramID(c, "payment_id")
	if !ok {
		return
	}

	switch format := c.DefaultQuery("format", "html"); format {
	case "pdf":
		buf, err := h.reportService.ReceiptPDF(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"receipt_%d.pdf\"", id))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	case "html", "print":
		buf, err := h.reportService.ReceiptHTML(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	default:
		respondError(c, &services.ValidationError{Field: "format", MessageKey: "receipt.format_invalid", Message: "format must be html or pdf"})
	}
}

// @Summary Record Customer Payment
// @Description Records a payment from a customer that is not tied to a policy
// @Tags Payments
// @Accept json
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param request body services.PaymentInput true "Payment"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} errorBody
// @Security BearerAuth
// @Router /customers/{customer_id}/payments [post]
func (h *PaymentHandler) CreateForCustomer(c *gin.Context) {
	customerID, ok := paramID(c, "customer_id")
	if !ok {
		return
	}
	var in services.PaymentInput
	if !bindBody(c, "payment", &in) {
		return
	}

	pc := services.PaymentContext{CustomerID: customerID, PolicyID: queryUint(c, "policy_id")}
	result, err := h.paymentService.RecordPayment(c.Request.Context(), actorFrom(c), pc, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, paymentResponse(result))
}

// @Summary Payment Gateway Webhook
// @Description Signed notification from the hosted card page. Replays are acknowledged without changes.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body services.GatewayCallback true "Callback"
// @Success 200 {object} models.PaymentResponse
// @Failure 401 {object} errorBody
// @Router /webhooks/payment-gateway [post]
func (h *PaymentHandler) GatewayWebhook(c *gin.Context) {
	var cb services.GatewayCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		badRequest(c, err)
		return
	}

	payment, err := h.paymentService.ConfirmGatewayPayment(c.Request.Context(), cb)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse()})
}
