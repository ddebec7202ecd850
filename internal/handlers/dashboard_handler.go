package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// @Summary Dashboard Statistics
// @Description Counters for customers, policies, cheques and this month's payments
// @Tags Dashboard
// @Produce json
// @Success 200 {object} models.DashboardStatistics
// @Security BearerAuth
// @Router /dashboard/statistics [get]
func (h *DashboardHandler) Statistics(c *gin.Context) {
	stats, err := h.dashboardService.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Financial Overview
// @Description Revenue against expenses for a period. Defaults to the last 12 months.
// @Tags Dashboard
// @Produce json
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} models.FinancialOverview
// @Failure 422 {object} errorBody
// @Security BearerAuth
// @Router /dashboard/financial-overview [get]
func (h *DashboardHandler) FinancialOverview(c *gin.Context) {
	start, err := queryDate(c, "start_date")
	if err != nil {
		respondError(c, err)
		return
	}
	end, err := queryDate(c, "end_date")
	if err != nil {
		respondError(c, err)
		return
	}

	overview, err := h.dashboardService.FinancialOverview(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
