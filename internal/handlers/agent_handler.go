package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/services"
)

type AgentHandler struct {
	agentService *services.AgentService
}

func NewAgentHandler(agentService *services.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

// @Summary List Agents
// @Tags Agents
// @Produce json
// @Param search query string false "Search by name"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /agents [get]
func (h *AgentHandler) Index(c *gin.Context) {
	query := listQuery(c)
	agents, total, err := h.agentService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	if agents == nil {
		agents = []models.Agent{}
	}
	c.JSON(http.StatusOK, paginated("agents", agents, query, total))
}

// @Summary Create Agent
// @Tags Agents
// @Accept json
// @Produce json
// @Param request body services.AgentInput true "Agent"
// @Success 201 {object} models.Agent
// @Failure 409 {object} errorBody
// @Security BearerAuth
// @Router /agents [post]
func (h *AgentHandler) Create(c *gin.Context) {
	var in services.AgentInput
	if !bindBody(c, "agent", &in) {
		return
	}
	agent, err := h.agentService.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"agent": agent, "messageKey": "agent.created"})
}

// @Summary Agent Statement
// @Description Payments, debts and transactions of an agent with the net balance
// @Tags Agents
// @Produce json
// @Param agent_name path string true "Agent name"
// @Success 200 {object} models.AgentStatement
// @Failure 404 {object} errorBody
// @Security BearerAuth
// @Router /agents/{agent_name}/statement [get]
func (h *AgentHandler) Statement(c *gin.Context) {
	statement, err := h.agentService.GetStatement(c.Request.Context(), c.Param("agent_name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}

// @Summary Export Agent Statement
// @Tags Agents
// @Produce octet-stream
// @Param agent_name path string true "Agent name"
// @Param format query string false "csv, xlsx, pdf or print" default(xlsx)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /agents/{agent_name}/statement/export [get]
func (h *AgentHandler) ExportStatement(c *gin.Context) {
	file, err := h.agentService.ExportStatement(c.Request.Context(), c.Param("agent_name"), c.DefaultQuery("format", "xlsx"))
	if err != nil {
		respondError(c, err)
		return
	}
	sendExport(c, file)
}
