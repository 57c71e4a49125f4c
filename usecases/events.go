package usecases

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"projector-server/cache"
	"projector-server/entities"
	"projector-server/repositories"

	"go.uber.org/zap"
)

// Notifier is told, after a batch commits, how many new PENDING events each
// classroom received.
type Notifier interface {
	NotifyPending(classroom string, count int)
}

type EventsUseCase struct {
	store   repositories.Store
	catalog *cache.CommandCatalog
	policy  LifecyclePolicy
	notify  Notifier
	log     *zap.Logger
	now     func() time.Time
}

type EventsOption func(*EventsUseCase)

func WithClock(now func() time.Time) EventsOption {
	return func(uc *EventsUseCase) { uc.now = now }
}

func WithNotifier(n Notifier) EventsOption {
	return func(uc *EventsUseCase) { uc.notify = n }
}

func NewEventsUseCase(store repositories.Store, catalog *cache.CommandCatalog, policy LifecyclePolicy, log *zap.Logger, opts ...EventsOption) *EventsUseCase {
	uc := &EventsUseCase{
		store:   store,
		catalog: catalog,
		policy:  policy,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// EventTarget names one projector of a batch. Model is optional; when set it
// must match the registered model of the classroom.
type EventTarget struct {
	Classroom string
	Model     string
}

type BatchRequest struct {
	Action     string
	Projectors []EventTarget
	User       string
}

// CreateEvent creates a single event for the projector in classroom.
func (uc *EventsUseCase) CreateEvent(ctx context.Context, classroom, action, user string) (*entities.ServerEvent, error) {
	events, err := uc.CreateBatch(ctx, BatchRequest{
		Action:     action,
		Projectors: []EventTarget{{Classroom: classroom}},
		User:       user,
	})
	if err != nil {
		return nil, err
	}
	return &events[0], nil
}

// CreateBatch creates one event per listed projector in a single transaction.
// Status inference runs in list order, so a projector listed twice sees the
// state left by its first event.
func (uc *EventsUseCase) CreateBatch(ctx context.Context, req BatchRequest) ([]entities.ServerEvent, error) {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, invalidArgument("action must not be blank")
	}
	if len(req.Projectors) == 0 {
		return nil, invalidArgument("projector list must not be empty")
	}
	for i, t := range req.Projectors {
		if strings.TrimSpace(t.Classroom) == "" {
			return nil, invalidArgument("projector #%d has a blank classroom", i+1)
		}
	}

	var events []entities.ServerEvent
	err := uc.store.Transaction(ctx, func(tx repositories.Store) error {
		// Lock in a stable order so concurrent batches cannot deadlock.
		classrooms := make([]string, 0, len(req.Projectors))
		locked := make(map[string]*entities.Projector, len(req.Projectors))
		for _, t := range req.Projectors {
			c := strings.TrimSpace(t.Classroom)
			if _, ok := locked[c]; !ok {
				locked[c] = nil
				classrooms = append(classrooms, c)
			}
		}
		sort.Strings(classrooms)
		for _, c := range classrooms {
			p, err := tx.Projectors().GetForUpdate(ctx, c)
			if err != nil {
				return lookup(err, "projector in classroom %q does not exist", c)
			}
			locked[c] = p
		}

		changed := make(map[string]bool)
		events = make([]entities.ServerEvent, 0, len(req.Projectors))
		createdAt := uc.now()
		for _, t := range req.Projectors {
			p := locked[strings.TrimSpace(t.Classroom)]
			if model := strings.TrimSpace(t.Model); model != "" && model != p.Model {
				return invalidArgument("classroom %q holds model %q, not %q", p.Classroom, p.Model, model)
			}
			cmd, err := uc.catalog.Get(ctx, tx.Commands(), p.Model, action)
			if err != nil {
				return lookup(err, "model %q has no command for action %q", p.Model, action)
			}

			status, next := uc.policy.Admit(p.Status, cmd.Action)
			if next != p.Status {
				uc.log.Info("projector status changed",
					zap.String("classroom", p.Classroom),
					zap.String("from", string(p.Status)),
					zap.String("to", string(next)),
					zap.String("action", cmd.Action))
				p.Status = next
				changed[p.Classroom] = true
			}
			events = append(events, entities.ServerEvent{
				ModelName:   p.Model,
				Action:      cmd.Action,
				Instruction: cmd.Instruction,
				Classroom:   p.Classroom,
				Floor:       p.Floor,
				User:        req.User,
				Status:      status,
				CreatedAt:   createdAt,
			})
		}

		for _, c := range classrooms {
			if changed[c] {
				if err := tx.Projectors().Update(ctx, locked[c]); err != nil {
					return err
				}
			}
		}
		return tx.Events().Create(ctx, events)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("server events created",
		zap.String("action", action),
		zap.String("user", req.User),
		zap.Int("count", len(events)))
	uc.announce(events)
	return events, nil
}

func (uc *EventsUseCase) announce(events []entities.ServerEvent) {
	if uc.notify == nil {
		return
	}
	pending := make(map[string]int)
	var order []string
	for _, e := range events {
		if e.Status != entities.EventPending {
			continue
		}
		if pending[e.Classroom] == 0 {
			order = append(order, e.Classroom)
		}
		pending[e.Classroom]++
	}
	for _, c := range order {
		uc.notify.NotifyPending(c, pending[c])
	}
}

// DispatchNext records the lamp state reported by the agent of classroom and
// serves the most recent pending event, cancelling the others. It returns
// nil without error when nothing is pending.
func (uc *EventsUseCase) DispatchNext(ctx context.Context, classroom, reportedCode string) (*entities.SimplifiedServerEvent, error) {
	classroom = strings.TrimSpace(classroom)
	if classroom == "" {
		return nil, invalidArgument("projector classroom must not be blank")
	}

	var served *entities.SimplifiedServerEvent
	err := uc.store.Transaction(ctx, func(tx repositories.Store) error {
		p, err := tx.Projectors().GetForUpdate(ctx, classroom)
		if err != nil {
			return lookup(err, "projector in classroom %q does not exist", classroom)
		}
		cmd, err := uc.catalog.ByInstruction(ctx, tx.Commands(), p.Model, reportedCode)
		if err != nil {
			return unknownCode(err, p.Model, reportedCode)
		}
		lamp, ok := uc.policy.LampStatus(cmd.Action)
		if !ok {
			return invalidState("status code %q maps to action %q, which is not a lamp report", reportedCode, cmd.Action)
		}

		if p.Status != lamp {
			uc.log.Info("projector status reported",
				zap.String("classroom", classroom),
				zap.String("from", string(p.Status)),
				zap.String("to", string(lamp)))
		}
		p.Status = lamp
		if err := tx.Projectors().Update(ctx, p); err != nil {
			return err
		}

		pending, err := tx.Events().PendingByClassroom(ctx, classroom)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			uc.log.Debug("no pending events", zap.String("classroom", classroom))
			return nil
		}
		pending[0].Status = entities.EventServed
		for i := 1; i < len(pending); i++ {
			pending[i].Status = entities.EventCanceled
		}
		if err := tx.Events().SaveAll(ctx, pending); err != nil {
			return err
		}
		s := pending[0].Simplified()
		served = &s
		uc.log.Info("server event served",
			zap.String("classroom", classroom),
			zap.Uint("event_id", s.EventID),
			zap.Int("canceled", len(pending)-1))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return served, nil
}

// Outcome describes the status change applied by ReportOutcome.
type Outcome struct {
	EventID uint
	From    entities.EventStatus
	To      entities.EventStatus
}

// ParseEventID validates an event id received as text.
func ParseEventID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, invalidArgument("event id %q is not a positive integer", raw)
	}
	return uint(id), nil
}

// ReportOutcome applies the agent's response code for a served event.
func (uc *EventsUseCase) ReportOutcome(ctx context.Context, eventID uint, responseCode, classroom string) (*Outcome, error) {
	classroom = strings.TrimSpace(classroom)
	if classroom == "" {
		return nil, invalidArgument("classroom must not be blank")
	}

	var out *Outcome
	err := uc.store.Transaction(ctx, func(tx repositories.Store) error {
		p, err := tx.Projectors().GetForUpdate(ctx, classroom)
		if err != nil {
			return lookup(err, "projector in classroom %q does not exist", classroom)
		}
		cmd, err := uc.catalog.ByInstruction(ctx, tx.Commands(), p.Model, responseCode)
		if err != nil {
			return unknownCode(err, p.Model, responseCode)
		}
		status := uc.policy.Outcome(cmd.Action)
		if !status.Valid() {
			return invalidState("the selected status for the event does not exist")
		}

		ev, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return lookup(err, "event with id %d does not exist", eventID)
		}
		if ev.Classroom != classroom {
			return notFound("event with id %d does not exist in classroom %q", eventID, classroom)
		}

		out = &Outcome{EventID: ev.ID, From: ev.Status, To: status}
		ev.Status = status
		if err := tx.Events().SaveAll(ctx, []entities.ServerEvent{*ev}); err != nil {
			return err
		}
		uc.log.Info("server event outcome",
			zap.Uint("event_id", ev.ID),
			zap.String("classroom", classroom),
			zap.String("from", string(out.From)),
			zap.String("to", string(out.To)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConfigParams returns the status inquiry command for the model installed in
// classroom.
func (uc *EventsUseCase) ConfigParams(ctx context.Context, classroom string) (*entities.Command, error) {
	classroom = strings.TrimSpace(classroom)
	if classroom == "" {
		return nil, invalidArgument("projector classroom must not be blank")
	}
	p, err := uc.store.Projectors().GetByClassroom(ctx, classroom)
	if err != nil {
		return nil, lookup(err, "projector in classroom %q does not exist", classroom)
	}
	action := uc.policy.Config().StatusInquiry
	cmd, err := uc.catalog.Get(ctx, uc.store.Commands(), p.Model, action)
	if err != nil {
		return nil, lookup(err, "model %q has no command for action %q", p.Model, action)
	}
	return cmd, nil
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type EventPage struct {
	Content       []entities.ServerEvent `json:"content"`
	Page          int                    `json:"page"`
	Size          int                    `json:"size"`
	TotalElements int64                  `json:"totalElements"`
	TotalPages    int                    `json:"totalPages"`
}

// Search pages through the full event history, newest first.
func (uc *EventsUseCase) Search(ctx context.Context, filter repositories.EventFilter, page repositories.Page) (*EventPage, error) {
	if page.Number < 0 {
		return nil, invalidArgument("page must not be negative")
	}
	if page.Size <= 0 {
		page.Size = defaultPageSize
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalidArgument("unknown event status %q", filter.Status)
	}

	events, total, err := uc.store.Events().Search(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []entities.ServerEvent{}
	}
	return &EventPage{
		Content:       events,
		Page:          page.Number,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    int((total + int64(page.Size) - 1) / int64(page.Size)),
	}, nil
}

func (uc *EventsUseCase) EventStates() []entities.EventStatus {
	out := make([]entities.EventStatus, len(entities.EventStatuses))
	copy(out, entities.EventStatuses)
	return out
}

type EventsOverview struct {
	Pending  int64 `json:"pendingEvents"`
	Served   int64 `json:"deliveredEvents"`
	Executed int64 `json:"completedEvents"`
	Canceled int64 `json:"canceledEvents"`
	Error    int64 `json:"errorEvents"`
}

func (uc *EventsUseCase) Overview(ctx context.Context) (*EventsOverview, error) {
	counts, err := uc.store.Events().CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &EventsOverview{
		Pending:  counts[entities.EventPending],
		Served:   counts[entities.EventServed],
		Executed: counts[entities.EventExecuted],
		Canceled: counts[entities.EventCanceled],
		Error:    counts[entities.EventError],
	}, nil
}

func unknownCode(err error, model, code string) error {
	e := lookup(err, "response code %q is unknown for model %q", code, model)
	if de, ok := AsError(e); ok {
		de.Code = CodeUnknownResponseCode
	}
	return e
}
