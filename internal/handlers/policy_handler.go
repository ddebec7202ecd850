package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/services"
)

type PolicyHandler struct {
	policyService *services.PolicyService
}

func NewPolicyHandler(policyService *services.PolicyService) *PolicyHandler {
	return &PolicyHandler{policyService: policyService}
}

// paymentResponse is the body returned after a payment is recorded
func paymentResponse(result *services.PaymentResult) gin.H {
	body := gin.H{
		"payment":    result.Payment.ToResponse(),
		"messageKey": "payment.created",
	}
	if result.Policy != nil {
		body["policy"] = result.Policy.ToResponse()
	}
	if result.RedirectURL != "" {
		body["redirect_url"] = result.RedirectURL
	}
	return body
}

// @Summary List Policies
// @Tags Policies
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "active, cancelled or expired"
// @Param customer_id query int false "Filter by customer"
// @Param agent_id query int false "Filter by agent"
// @Param vehicle_id query int false "Policy history of one vehicle, unpaginated"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /policies [get]
func (h *PolicyHandler) Index(c *gin.Context) {
	if vehicleID := queryUint(c, "vehicle_id"); vehicleID != 0 {
		policies, err := h.policyService.ListByVehicle(c.Request.Context(), vehicleID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"policies": toPolicyResponses(policies)})
		return
	}

	query := &repository.PolicyQuery{
		ListQuery:  listQuery(c),
		Status:     c.Query("status"),
		CustomerID: queryUint(c, "customer_id"),
		AgentID:    queryUint(c, "agent_id"),
	}

	policies, total, err := h.policyService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginated("policies", toPolicyResponses(policies), query.ListQuery, total))
}

func toPolicyResponses(policies []models.InsurancePolicy) []models.PolicyResponse {
	responses := make([]models.PolicyResponse, 0, len(policies))
	for i := range policies {
		responses = append(responses, policies[i].ToResponse())
	}
	return responses
}

// @Summary Get Policy
// @Tags Policies
// @Produce json
// @Param policy_id path int true "Policy ID"
// @Success 200 {object} models.PolicyResponse
// @Failure 404 {object} errorBody
// @Security BearerAuth
// @Router /policies/{policy_id} [get]
func (h *PolicyHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "policy_id")
	if !ok {
		return
	}
	policy, err := h.policyService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"policy": policy.ToResponse()})
}

// @Summary Create Policy
// @Description Adds an insurance policy to a customer's vehicle together with its initial payments
// @Tags Policies
// @Accept json
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param vehicle_id path int true "Vehicle ID"
// @Param request body services.CreatePolicyInput true "Policy"
// @Success 201 {object} models.PolicyResponse
// @Failure 422 {object} errorBody
// @Security BearerAuth
// @Router /customers/{customer_id}/vehicles/{vehicle_id}/policies [post]
func (h *PolicyHandler) Create(c *gin.Context) {
	customerID, ok := paramID(c, "customer_id")
	if !ok {
		return
	}
	vehicleID, ok := paramID(c, "vehicle_id")
	if !ok {
		return
	}
	var in services.CreatePolicyInput
	if !bindBody(c, "insurance", &in) {
		return
	}

	policy, err := h.policyService.CreatePolicy(c.Request.Context(), actorFrom(c), customerID, vehicleID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"policy": policy.ToResponse(), "messageKey": "policy.created"})
}

// @Summary Add Payment
// @Description Records a payment on an active policy. Card payments answer with the gateway redirect URL.
// @Tags Policies
// @Accept json
// @Produce json
// @Param policy_id path int true "Policy ID"
// @Param request body services.PaymentInput true "Payment"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} errorBody
// @Failure 422 {object} errorBody
// @Security BearerAuth
// @Router /policies/{policy_id}/payments [post]
func (h *PolicyHandler) AddPayment(c *gin.Context) {
	id, ok := paramID(c, "policy_id")
	if !ok {
		return
	}
	var in services.PaymentInput
	if !bindBody(c, "payment", &in) {
		return
	}

	result, err := h.policyService.AddPayment(c.Request.Context(), actorFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, paymentResponse(result))
}

// @Summary Cancel Policy
// @Description Cancels an active policy and records the refund (admin)
// @Tags Policies
// @Accept json
// @Produce json
// @Param policy_id path int true "Policy ID"
// @Param request body services.CancelPolicyInput true "Refund"
// @Success 200 {object} models.PolicyResponse
// @Failure 409 {object} errorBody
// @Security BearerAuth
// @Router /policies/{policy_id}/cancel [post]
func (h *PolicyHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "policy_id")
	if !ok {
		return
	}
	var in services.CancelPolicyInput
	if !bindBody(c, "cancellation", &in) {
		return
	}

	policy, err := h.policyService.CancelPolicy(c.Request.Context(), actorFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"policy": policy.ToResponse(), "messageKey": "policy.cancelled"})
}

// TransferRequest names the vehicle the policy is expected to be on
type TransferRequest struct {
	FromVehicleID uint `json:"from_vehicle_id"`
	services.TransferPolicyInput
}

// @Summary Transfer Policy
// @Description Moves a policy to another vehicle of the same customer with its fee entries
// @Tags Policies
// @Accept json
// @Produce json
// @Param policy_id path int true "Policy ID"
// @Param request body TransferRequest true "Transfer"
// @Success 200 {object} models.PolicyResponse
// @Failure 409 {object} errorBody
// @Failure 422 {object} errorBody
// @Security BearerAuth
// @Router /policies/{policy_id}/transfer [post]
func (h *PolicyHandler) Transfer(c *gin.Context) {
	id, ok := paramID(c, "policy_id")
	if !ok {
		return
	}
	var req TransferRequest
	if !bindBody(c, "transfer", &req) {
		return
	}

	policy, err := h.policyService.TransferPolicy(c.Request.Context(), actorFrom(c), id, req.FromVehicleID, req.TransferPolicyInput)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"policy": policy.ToResponse(), "messageKey": "policy.transferred"})
}
