package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"projector-server/cache"
	"projector-server/entities"
	"projector-server/repositories"

	"go.uber.org/zap"
)

const (
	testModel     = "EPSON EB-X41"
	testClassroom = "0.12"

	codeLampOn  = "%1POWR=1"
	codeLampOff = "%1POWR=0"
	codeAck     = "%1POWR=OK"
	codeErr     = "%1POWR=ERR3"
)

var testCommands = []entities.Command{
	{ModelName: testModel, Action: "TURN_ON", Instruction: "%1POWR 1"},
	{ModelName: testModel, Action: "TURN_OFF", Instruction: "%1POWR 0"},
	{ModelName: testModel, Action: "FREEZE", Instruction: "%1FREZ 1"},
	{ModelName: testModel, Action: "LAMP_ON", Instruction: codeLampOn},
	{ModelName: testModel, Action: "LAMP_OFF", Instruction: codeLampOff},
	{ModelName: testModel, Action: "ACK", Instruction: codeAck},
	{ModelName: testModel, Action: "ERR", Instruction: codeErr},
	{ModelName: testModel, Action: "STATUS_INQUIRY", Instruction: "%1POWR ?"},
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call so events created in sequence get
// distinct timestamps.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[string]int
}

var _ Notifier = (*recordingNotifier)(nil)

func (n *recordingNotifier) NotifyPending(classroom string, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.calls == nil {
		n.calls = make(map[string]int)
	}
	n.calls[classroom] += count
}

type fixture struct {
	store    *repositories.MemoryStore
	catalog  *cache.CommandCatalog
	events   *EventsUseCase
	commands *CommandsUseCase
	projs    *ProjectorsUseCase
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	for _, c := range testCommands {
		c := c
		if err := store.Commands().Create(ctx, &c); err != nil {
			t.Fatalf("seed command: %v", err)
		}
	}
	for _, p := range []entities.Projector{
		{Classroom: testClassroom, Floor: "0", Model: testModel, Status: entities.ProjectorOff},
		{Classroom: "1.05", Floor: "1", Model: testModel, Status: entities.ProjectorOn},
	} {
		p := p
		if err := store.Projectors().Create(ctx, &p); err != nil {
			t.Fatalf("seed projector: %v", err)
		}
	}

	log := zap.NewNop()
	catalog := cache.NewCommandCatalog(time.Minute)
	policy := NewLifecyclePolicy(DefaultLifecycleConfig())
	clock := &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}

	return &fixture{
		store:    store,
		catalog:  catalog,
		events:   NewEventsUseCase(store, catalog, policy, log, WithClock(clock.Now), WithNotifier(notifier)),
		commands: NewCommandsUseCase(store, catalog, policy, log),
		projs:    NewProjectorsUseCase(store, log),
		notifier: notifier,
	}
}

func (f *fixture) setStatus(t *testing.T, classroom string, status entities.ProjectorStatus) {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.Projectors().GetByClassroom(ctx, classroom)
	if err != nil {
		t.Fatal(err)
	}
	p.Status = status
	if err := f.store.Projectors().Update(ctx, p); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) projectorStatus(t *testing.T, classroom string) entities.ProjectorStatus {
	t.Helper()
	p, err := f.store.Projectors().GetByClassroom(context.Background(), classroom)
	if err != nil {
		t.Fatal(err)
	}
	return p.Status
}

func (f *fixture) eventStatus(t *testing.T, id uint) entities.EventStatus {
	t.Helper()
	e, err := f.store.Events().GetForUpdate(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return e.Status
}

func assertKind(t *testing.T, err error, kind Kind, code int) {
	t.Helper()
	e, ok := AsError(err)
	if !ok {
		t.Fatalf("error %v is not a domain error", err)
	}
	if e.Kind != kind || e.Code != code {
		t.Fatalf("error = %s/%d (%s), want %s/%d", e.Kind, e.Code, e.Message, kind, code)
	}
}
