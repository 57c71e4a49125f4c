package httpHandler

import (
	"fmt"
	"net/http"

	"projector-server/entities"
	"projector-server/repositories"
	"projector-server/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProjectorsHandler struct {
	uc  *usecases.ProjectorsUseCase
	log *zap.Logger
}

func NewProjectorsHandler(uc *usecases.ProjectorsUseCase, log *zap.Logger) *ProjectorsHandler {
	return &ProjectorsHandler{uc: uc, log: log}
}

// GET /projectors/projectors?classroom=&floor=&model=
func (h *ProjectorsHandler) List(c *gin.Context) {
	projectors, err := h.uc.List(c.Request.Context(), repositories.ProjectorFilter{
		Classroom: c.Query("classroom"),
		Floor:     c.Query("floor"),
		Model:     c.Query("model"),
	})
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, projectors)
}

type createProjectorRequest struct {
	Classroom string                   `json:"classroom"`
	Floor     string                   `json:"floor"`
	Model     string                   `json:"model"`
	Status    entities.ProjectorStatus `json:"status"`
}

// POST /projectors/projectors
func (h *ProjectorsHandler) Create(c *gin.Context) {
	var req createProjectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body: %v", err)
		return
	}
	p := &entities.Projector{Classroom: req.Classroom, Floor: req.Floor, Model: req.Model, Status: req.Status}
	if err := h.uc.Create(c.Request.Context(), p); err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// DELETE /projectors/projectors?classroom=
func (h *ProjectorsHandler) Delete(c *gin.Context) {
	classroom := c.Query("classroom")
	removed, err := h.uc.Delete(c.Request.Context(), classroom)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, success(fmt.Sprintf("Projector in classroom %s removed along with %d events.", classroom, removed)))
}

// DELETE /projectors/projectors-all
func (h *ProjectorsHandler) DeleteAll(c *gin.Context) {
	n, err := h.uc.DeleteAll(c.Request.Context())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, success(fmt.Sprintf("Successfully removed %d projectors.", n)))
}

// GET /projectors/floors
func (h *ProjectorsHandler) Floors(c *gin.Context) {
	floors, err := h.uc.Floors(c.Request.Context())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, floors)
}

// GET /projectors/classrooms?floor=
func (h *ProjectorsHandler) Classrooms(c *gin.Context) {
	rooms, err := h.uc.Classrooms(c.Request.Context(), c.Query("floor"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	if len(rooms) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// GET /projectors/general-overview
func (h *ProjectorsHandler) Overview(c *gin.Context) {
	o, err := h.uc.Overview(c.Request.Context())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
