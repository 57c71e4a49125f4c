package httpHandler

import (
	"fmt"
	"net/http"

	"projector-server/entities"
	"projector-server/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CommandsHandler struct {
	uc  *usecases.CommandsUseCase
	log *zap.Logger
}

func NewCommandsHandler(uc *usecases.CommandsUseCase, log *zap.Logger) *CommandsHandler {
	return &CommandsHandler{uc: uc, log: log}
}

// GET /projectors/commands?modelName=&action=
func (h *CommandsHandler) List(c *gin.Context) {
	cmds, err := h.uc.List(c.Request.Context(), c.Query("modelName"), c.Query("action"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cmds)
}

type createCommandRequest struct {
	ModelName string `json:"modelName" binding:"required"`
	Action    string `json:"action" binding:"required"`
	Command   string `json:"command" binding:"required"`
}

// POST /projectors/commands
func (h *CommandsHandler) Create(c *gin.Context) {
	var req createCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body: %v", err)
		return
	}
	cmd := &entities.Command{ModelName: req.ModelName, Action: req.Action, Instruction: req.Command}
	if err := h.uc.Create(c.Request.Context(), cmd); err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, cmd)
}

// DELETE /projectors/commands?modelName=&action=
func (h *CommandsHandler) Delete(c *gin.Context) {
	model, action := c.Query("modelName"), c.Query("action")
	if err := h.uc.Delete(c.Request.Context(), model, action); err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, success(fmt.Sprintf("Command %s of model %s deleted.", action, model)))
}

// GET /projectors/actions
func (h *CommandsHandler) Actions(c *gin.Context) {
	actions, err := h.uc.Actions(c.Request.Context())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, actions)
}

// GET /projectors/projector-models
func (h *CommandsHandler) Models(c *gin.Context) {
	models, err := h.uc.Models(c.Request.Context())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models)
}
