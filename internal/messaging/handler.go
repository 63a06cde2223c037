package messaging

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketguard/internal/logger"
	"marketguard/pkg/errors"
)

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.logger.DebugwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, errors.ToErrorResponse(err))
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/messages", h.SendMessage)
		v1.GET("/conversations/:id/messages", h.ListConversation)
		v1.GET("/moderation/messages", h.ListFlagged)
		v1.POST("/notifications", h.Notify)
	}
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}

// SendMessage godoc
// @Summary      Send a chat message
// @Description  Masks contact details, stores the message and pushes the masked text to both participants
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        message  body      SendMessageRequest  true  "Message"
// @Success      201      {object}  PublicMessage
// @Failure      400      {object}  map[string]interface{}
// @Failure      500      {object}  map[string]interface{}
// @Router       /api/v1/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	msg, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg.Public())
}

// ListConversation godoc
// @Summary      List conversation messages
// @Description  Latest messages of a conversation, oldest first, with contact details masked
// @Tags         messages
// @Produce      json
// @Param        id     path      string  true   "Conversation ID"
// @Param        limit  query     int     false  "Maximum number of messages"
// @Success      200    {array}   PublicMessage
// @Failure      400    {object}  map[string]interface{}
// @Failure      500    {object}  map[string]interface{}
// @Router       /api/v1/conversations/{id}/messages [get]
func (h *Handler) ListConversation(c *gin.Context) {
	messages, err := h.service.Conversation(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// ListFlagged godoc
// @Summary      List messages awaiting review
// @Description  Messages flagged by the review policy, newest first, including the original text
// @Tags         moderation
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of messages"
// @Success      200    {array}   Message
// @Failure      500    {object}  map[string]interface{}
// @Router       /api/v1/moderation/messages [get]
func (h *Handler) ListFlagged(c *gin.Context) {
	messages, err := h.service.FlaggedForReview(c.Request.Context(), queryLimit(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Notify godoc
// @Summary      Push a notification
// @Description  Delivers a notification event to every live session of the recipient
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        notification  body      NotificationRequest  true  "Notification"
// @Success      202           {object}  NotificationResult
// @Failure      400           {object}  map[string]interface{}
// @Router       /api/v1/notifications [post]
func (h *Handler) Notify(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	result, err := h.service.Notify(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}
