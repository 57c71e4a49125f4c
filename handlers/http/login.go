package httpHandler

import (
	"net/http"

	"projector-server/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginHandler struct {
	auth *usecases.AuthUseCase
	log  *zap.Logger
}

func NewLoginHandler(auth *usecases.AuthUseCase, log *zap.Logger) *LoginHandler {
	return &LoginHandler{auth: auth, log: log}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an operator and returns a bearer token.
func (h *LoginHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body: %v", err)
		return
	}
	tok, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}
