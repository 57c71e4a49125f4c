package httpHandler

import (
	"fmt"
	"net/http"
	"strconv"

	"projector-server/entities"
	"projector-server/repositories"
	"projector-server/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventsHandler struct {
	uc  *usecases.EventsUseCase
	log *zap.Logger
}

func NewEventsHandler(uc *usecases.EventsUseCase, log *zap.Logger) *EventsHandler {
	return &EventsHandler{uc: uc, log: log}
}

// PUT /projectors/server-events?eventId=&rarc=&classroom=
// Agents report the response code the projector gave to a served event.
func (h *EventsHandler) UpdateStatus(c *gin.Context) {
	id, err := usecases.ParseEventID(c.Query("eventId"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	out, err := h.uc.ReportOutcome(c.Request.Context(), id, c.Query("rarc"), c.Query("classroom"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, success(fmt.Sprintf("Event with ID %d successfully updated from %s to %s", out.EventID, out.From, out.To)))
}

// GET /projectors/server-events?projectorClassroom=&projectorStatus=
// Agents poll with their lamp status code and receive at most one event.
func (h *EventsHandler) Poll(c *gin.Context) {
	served, err := h.uc.DispatchNext(c.Request.Context(), c.Query("projectorClassroom"), c.Query("projectorStatus"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	if served == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, served)
}

type projectorRef struct {
	Model     string `json:"model"`
	Classroom string `json:"classroom"`
}

type batchRequest struct {
	Action        string         `json:"action"`
	ProjectorList []projectorRef `json:"projectorList"`
}

// POST /projectors/server-events-batch
func (h *EventsHandler) CreateBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body: %v", err)
		return
	}
	targets := make([]usecases.EventTarget, 0, len(req.ProjectorList))
	for _, p := range req.ProjectorList {
		targets = append(targets, usecases.EventTarget{Classroom: p.Classroom, Model: p.Model})
	}
	events, err := h.uc.CreateBatch(c.Request.Context(), usecases.BatchRequest{
		Action:     req.Action,
		Projectors: targets,
		User:       UserFrom(c),
	})
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, success(fmt.Sprintf("%d events successfully created.", len(events))))
}

// GET /projectors/config-params?projectorClassroom=
func (h *EventsHandler) ConfigParams(c *gin.Context) {
	cmd, err := h.uc.ConfigParams(c.Request.Context(), c.Query("projectorClassroom"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cmd)
}

type eventFilter struct {
	Classroom    string               `json:"classroom"`
	Floor        string               `json:"floor"`
	Model        string               `json:"model"`
	ActionStatus entities.EventStatus `json:"actionStatus"`
	Action       string               `json:"action"`
	User         string               `json:"user"`
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// POST /projectors/server-events?page=&size=
// The body is an optional filter; an empty body lists everything.
func (h *EventsHandler) Search(c *gin.Context) {
	var f eventFilter
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&f); err != nil {
			badRequest(c, h.log, "invalid filter: %v", err)
			return
		}
	}
	page, err := queryInt(c, "page", 0)
	if err != nil {
		badRequest(c, h.log, "page must be a number")
		return
	}
	size, err := queryInt(c, "size", 0)
	if err != nil {
		badRequest(c, h.log, "size must be a number")
		return
	}

	result, err := h.uc.Search(c.Request.Context(), repositories.EventFilter{
		Classroom: f.Classroom,
		Floor:     f.Floor,
		Model:     f.Model,
		Action:    f.Action,
		User:      f.User,
		Status:    f.ActionStatus,
	}, repositories.Page{Number: page, Size: size})
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /projectors/event-states
func (h *EventsHandler) EventStates(c *gin.Context) {
	c.JSON(http.StatusOK, h.uc.EventStates())
}

// GET /projectors/events-overview
func (h *EventsHandler) Overview(c *gin.Context) {
	o, err := h.uc.Overview(c.Request.Context())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
