package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loanserve/support-desk/internal/service"
)

type AgentHandler struct {
	agents *service.AgentService
	canned *service.CannedService
}

func NewAgentHandler(agents *service.AgentService, canned *service.CannedService) *AgentHandler {
	return &AgentHandler{agents: agents, canned: canned}
}

type loginRequest struct {
	Name string `json:"name" binding:"required"`
}

// Login resolves (find-or-create) an agent by name. No authentication.
func (h *AgentHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent name is required"})
		return
	}
	agent, err := h.agents.Resolve(c.Request.Context(), req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to login agent"})
		return
	}
	c.JSON(http.StatusOK, agent)
}

// OngoingCount returns how many ONGOING tickets the agent currently holds.
func (h *AgentHandler) OngoingCount(c *gin.Context) {
	name := c.Query("agentName")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent name is required"})
		return
	}
	n, err := h.agents.OngoingCount(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ongoing count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ongoing_count": n})
}

// Stats returns the agent's closed-ticket count.
func (h *AgentHandler) Stats(c *gin.Context) {
	name := c.Query("agentName")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent name is required"})
		return
	}
	n, err := h.agents.CompletedCount(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch agent stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed_count": n})
}

// CannedResponses lists the reply templates, title ascending.
func (h *AgentHandler) CannedResponses(c *gin.Context) {
	responses, err := h.canned.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch canned responses"})
		return
	}
	c.JSON(http.StatusOK, responses)
}
