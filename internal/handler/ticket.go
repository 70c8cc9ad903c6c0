package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loanserve/support-desk/internal/errs"
	"github.com/loanserve/support-desk/internal/model"
	"github.com/loanserve/support-desk/internal/service"
)

type TicketHandler struct {
	svc *service.TicketService
}

func NewTicketHandler(svc *service.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

// List serves the agent queue: ?status=OPEN|ONGOING|CLOSED|ALL with optional
// search, agentName and limit.
func (h *TicketHandler) List(c *gin.Context) {
	tab := service.Tab(strings.ToUpper(c.DefaultQuery("status", "OPEN")))
	limit := 10
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	views, err := h.svc.List(c.Request.Context(), service.ListQuery{
		Tab:       tab,
		Search:    c.Query("search"),
		AgentName: c.Query("agentName"),
		Limit:     limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tickets"})
		return
	}
	c.JSON(http.StatusOK, views)
}

type assignRequest struct {
	AgentName string `json:"agent_name" binding:"required"`
}

// Assign claims an OPEN ticket for the named agent.
func (h *TicketHandler) Assign(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent name is required"})
		return
	}
	t, err := h.svc.Claim(c.Request.Context(), id, req.AgentName)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		case errors.Is(err, errs.ErrTicketNotOpen):
			c.JSON(http.StatusConflict, gin.H{"error": "ticket already assigned or closed"})
		case errors.Is(err, errs.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "agent name is required"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign ticket"})
		}
		return
	}
	c.JSON(http.StatusOK, t)
}

// Get returns one ticket with its message history.
func (h *TicketHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	detail, err := h.svc.Detail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ticket"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

type postMessageRequest struct {
	SenderType string `json:"sender_type" binding:"required"`
	SenderName string `json:"sender_name" binding:"required"`
	Text       string `json:"text" binding:"required"`
}

// PostMessage appends a message to a ticket.
func (h *TicketHandler) PostMessage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sender type, name, and text are required"})
		return
	}
	msg, err := h.svc.PostMessage(c.Request.Context(), id, model.SenderType(req.SenderType), req.SenderName, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		case errors.Is(err, errs.ErrTicketClosed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot send message to a closed ticket"})
		case errors.Is(err, errs.ErrInvalidSender), errors.Is(err, errs.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}
	c.JSON(http.StatusCreated, msg)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus overwrites a ticket's status.
func (h *TicketHandler) SetStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	t, err := h.svc.SetStatus(c.Request.Context(), id, model.TicketStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		case errors.Is(err, errs.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update ticket status"})
		}
		return
	}
	c.JSON(http.StatusOK, t)
}

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// CreateFromContact opens a new ticket from an inbound customer message.
func (h *TicketHandler) CreateFromContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, phone, and message are required"})
		return
	}
	result, err := h.svc.CreateFromContact(c.Request.Context(), req.Name, req.Phone, req.Message)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name, phone, and message are required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create ticket"})
		return
	}
	c.JSON(http.StatusCreated, result)
}
