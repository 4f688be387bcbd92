package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"concierge_backend/platform/httpkit"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/validator"
)

// Handler exposes the widget's message endpoint.
type Handler struct {
	orchestrator *Orchestrator
	validate     *validator.Validator
	log          *logger.Logger
}

func NewHandler(orchestrator *Orchestrator, validate *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, validate: validate, log: log}
}

// HandleMessage accepts one inbound chat message and returns the reply.
// A missing session_id or message_text is the only client error; every
// downstream failure degrades into the reply body instead.
func (h *Handler) HandleMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "session_id and message_text are required", nil)
		return
	}

	resp, err := h.orchestrator.HandleMessage(c.Request.Context(), req)
	if err != nil {
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, "something went wrong", nil)
		return
	}

	httpkit.JSON(c, http.StatusOK, resp)
}
