package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"projector-server/entities"

	"gorm.io/gorm"
)

type commandKey struct {
	model  string
	action string
}

type memState struct {
	projectors  map[string]entities.Projector
	commands    map[commandKey]entities.Command
	events      map[uint]entities.ServerEvent
	users       map[string]entities.User
	nextEventID uint
	nextUserID  uint
}

func newMemState() *memState {
	return &memState{
		projectors: make(map[string]entities.Projector),
		commands:   make(map[commandKey]entities.Command),
		events:     make(map[uint]entities.ServerEvent),
		users:      make(map[string]entities.User),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		projectors:  make(map[string]entities.Projector, len(s.projectors)),
		commands:    make(map[commandKey]entities.Command, len(s.commands)),
		events:      make(map[uint]entities.ServerEvent, len(s.events)),
		users:       make(map[string]entities.User, len(s.users)),
		nextEventID: s.nextEventID,
		nextUserID:  s.nextUserID,
	}
	for k, v := range s.projectors {
		c.projectors[k] = v
	}
	for k, v := range s.commands {
		c.commands[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

type memHolder struct {
	st *memState
}

// MemoryStore is a Store kept entirely in process memory. Transactions are
// serialised under one mutex and applied copy-on-write, so a failing unit of
// work leaves no trace.
type MemoryStore struct {
	mu     *sync.Mutex
	holder *memHolder
	inTx   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:     &sync.Mutex{},
		holder: &memHolder{st: newMemState()},
	}
}

func (s *MemoryStore) Projectors() ProjectorRepository { return &memProjectors{s: s} }
func (s *MemoryStore) Commands() CommandRepository     { return &memCommands{s: s} }
func (s *MemoryStore) Events() EventRepository         { return &memEvents{s: s} }
func (s *MemoryStore) Users() UserRepository           { return &memUsers{s: s} }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := &memHolder{st: s.holder.st.clone()}
	tx := &MemoryStore{mu: s.mu, holder: working, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.holder.st = working.st
	return nil
}

func (s *MemoryStore) with(fn func(st *memState) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.holder.st)
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// ---------------------------------------------------------------- projectors

type memProjectors struct {
	s *MemoryStore
}

func (r *memProjectors) Create(_ context.Context, projector *entities.Projector) error {
	return r.s.with(func(st *memState) error {
		if _, ok := st.projectors[projector.Classroom]; ok {
			return ErrDuplicate
		}
		if projector.Status == "" {
			projector.Status = entities.ProjectorOff
		}
		stamp(&projector.CreatedAt, &projector.UpdatedAt)
		st.projectors[projector.Classroom] = *projector
		return nil
	})
}

func (r *memProjectors) GetByClassroom(_ context.Context, classroom string) (*entities.Projector, error) {
	var out *entities.Projector
	err := r.s.with(func(st *memState) error {
		p, ok := st.projectors[classroom]
		if !ok {
			return ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *memProjectors) GetForUpdate(ctx context.Context, classroom string) (*entities.Projector, error) {
	return r.GetByClassroom(ctx, classroom)
}

func (r *memProjectors) List(_ context.Context, filter ProjectorFilter) ([]entities.Projector, error) {
	var out []entities.Projector
	err := r.s.with(func(st *memState) error {
		for _, p := range st.projectors {
			if filter.Classroom != "" && p.Classroom != filter.Classroom {
				continue
			}
			if filter.Floor != "" && p.Floor != filter.Floor {
				continue
			}
			if filter.Model != "" && p.Model != filter.Model {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		if out[i].Floor != out[j].Floor {
			return out[i].Floor < out[j].Floor
		}
		return out[i].Classroom < out[j].Classroom
	})
	return out, err
}

func (r *memProjectors) Update(_ context.Context, projector *entities.Projector) error {
	return r.s.with(func(st *memState) error {
		stamp(&projector.CreatedAt, &projector.UpdatedAt)
		st.projectors[projector.Classroom] = *projector
		return nil
	})
}

func (r *memProjectors) Delete(_ context.Context, classroom string) error {
	return r.s.with(func(st *memState) error {
		if _, ok := st.projectors[classroom]; !ok {
			return ErrNotFound
		}
		delete(st.projectors, classroom)
		return nil
	})
}

func (r *memProjectors) Floors(_ context.Context) ([]string, error) {
	var floors []string
	err := r.s.with(func(st *memState) error {
		seen := make(map[string]bool)
		for _, p := range st.projectors {
			if !seen[p.Floor] {
				seen[p.Floor] = true
				floors = append(floors, p.Floor)
			}
		}
		return nil
	})
	sort.Strings(floors)
	return floors, err
}

func (r *memProjectors) Count(_ context.Context) (int64, error) {
	var n int64
	err := r.s.with(func(st *memState) error {
		n = int64(len(st.projectors))
		return nil
	})
	return n, err
}

// ------------------------------------------------------------------ commands

type memCommands struct {
	s *MemoryStore
}

func (r *memCommands) Create(_ context.Context, cmd *entities.Command) error {
	return r.s.with(func(st *memState) error {
		key := commandKey{cmd.ModelName, cmd.Action}
		if _, ok := st.commands[key]; ok {
			return ErrDuplicate
		}
		stamp(&cmd.CreatedAt, &cmd.UpdatedAt)
		st.commands[key] = *cmd
		return nil
	})
}

func (r *memCommands) Get(_ context.Context, modelName, action string) (*entities.Command, error) {
	var out *entities.Command
	err := r.s.with(func(st *memState) error {
		c, ok := st.commands[commandKey{modelName, action}]
		if !ok {
			return ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *memCommands) FindByInstruction(ctx context.Context, modelName, instruction string) (*entities.Command, error) {
	cmds, err := r.List(ctx, modelName, "")
	if err != nil {
		return nil, err
	}
	for _, c := range cmds {
		if c.Instruction == instruction {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memCommands) ListByModel(ctx context.Context, modelName string) ([]entities.Command, error) {
	return r.List(ctx, modelName, "")
}

func (r *memCommands) List(_ context.Context, modelName, action string) ([]entities.Command, error) {
	var out []entities.Command
	err := r.s.with(func(st *memState) error {
		for _, c := range st.commands {
			if modelName != "" && c.ModelName != modelName {
				continue
			}
			if action != "" && c.Action != action {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModelName != out[j].ModelName {
			return out[i].ModelName < out[j].ModelName
		}
		return out[i].Action < out[j].Action
	})
	return out, err
}

func (r *memCommands) Delete(_ context.Context, modelName, action string) error {
	return r.s.with(func(st *memState) error {
		key := commandKey{modelName, action}
		if _, ok := st.commands[key]; !ok {
			return ErrNotFound
		}
		delete(st.commands, key)
		return nil
	})
}

func (r *memCommands) distinct(pick func(entities.Command) string) ([]string, error) {
	var out []string
	err := r.s.with(func(st *memState) error {
		seen := make(map[string]bool)
		for _, c := range st.commands {
			v := pick(c)
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

func (r *memCommands) Models(_ context.Context) ([]string, error) {
	return r.distinct(func(c entities.Command) string { return c.ModelName })
}

func (r *memCommands) Actions(_ context.Context) ([]string, error) {
	return r.distinct(func(c entities.Command) string { return c.Action })
}

func (r *memCommands) Count(_ context.Context) (int64, error) {
	var n int64
	err := r.s.with(func(st *memState) error {
		n = int64(len(st.commands))
		return nil
	})
	return n, err
}

// -------------------------------------------------------------------- events

type memEvents struct {
	s *MemoryStore
}

func (r *memEvents) Create(_ context.Context, events []entities.ServerEvent) error {
	return r.s.with(func(st *memState) error {
		for i := range events {
			st.nextEventID++
			events[i].ID = st.nextEventID
			stamp(&events[i].CreatedAt, &events[i].UpdatedAt)
			st.events[events[i].ID] = events[i]
		}
		return nil
	})
}

func (r *memEvents) GetForUpdate(_ context.Context, id uint) (*entities.ServerEvent, error) {
	var out *entities.ServerEvent
	err := r.s.with(func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return ErrNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func sortNewestFirst(events []entities.ServerEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.After(events[j].CreatedAt)
		}
		return events[i].ID > events[j].ID
	})
}

func (r *memEvents) PendingByClassroom(_ context.Context, classroom string) ([]entities.ServerEvent, error) {
	var out []entities.ServerEvent
	err := r.s.with(func(st *memState) error {
		for _, e := range st.events {
			if e.DeletedAt.Valid || e.Classroom != classroom || e.Status != entities.EventPending {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	sortNewestFirst(out)
	return out, err
}

func (r *memEvents) SaveAll(_ context.Context, events []entities.ServerEvent) error {
	return r.s.with(func(st *memState) error {
		for i := range events {
			if _, ok := st.events[events[i].ID]; !ok {
				return ErrNotFound
			}
			stamp(&events[i].CreatedAt, &events[i].UpdatedAt)
			st.events[events[i].ID] = events[i]
		}
		return nil
	})
}

func (r *memEvents) SoftDeleteByClassroom(_ context.Context, classroom string) (int64, error) {
	var n int64
	err := r.s.with(func(st *memState) error {
		now := time.Now()
		for id, e := range st.events {
			if e.DeletedAt.Valid || e.Classroom != classroom {
				continue
			}
			e.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
			st.events[id] = e
			n++
		}
		return nil
	})
	return n, err
}

func (r *memEvents) CountByCommand(_ context.Context, modelName, action string) (int64, error) {
	var n int64
	err := r.s.with(func(st *memState) error {
		for _, e := range st.events {
			if e.ModelName == modelName && e.Action == action {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *memEvents) Search(_ context.Context, filter EventFilter, page Page) ([]entities.ServerEvent, int64, error) {
	var matched []entities.ServerEvent
	err := r.s.with(func(st *memState) error {
		for _, e := range st.events {
			if filter.Classroom != "" && e.Classroom != filter.Classroom {
				continue
			}
			if filter.Floor != "" && e.Floor != filter.Floor {
				continue
			}
			if filter.Model != "" && e.ModelName != filter.Model {
				continue
			}
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if filter.User != "" && e.User != filter.User {
				continue
			}
			if filter.Status != "" && e.Status != filter.Status {
				continue
			}
			matched = append(matched, e)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sortNewestFirst(matched)

	total := int64(len(matched))
	start := page.Offset()
	if start >= len(matched) {
		return []entities.ServerEvent{}, total, nil
	}
	end := len(matched)
	if page.Size > 0 && start+page.Size < end {
		end = start + page.Size
	}
	return matched[start:end], total, nil
}

func (r *memEvents) CountByStatus(_ context.Context) (map[entities.EventStatus]int64, error) {
	counts := make(map[entities.EventStatus]int64, len(entities.EventStatuses))
	for _, st := range entities.EventStatuses {
		counts[st] = 0
	}
	err := r.s.with(func(st *memState) error {
		for _, e := range st.events {
			counts[e.Status]++
		}
		return nil
	})
	return counts, err
}

// --------------------------------------------------------------------- users

type memUsers struct {
	s *MemoryStore
}

func (r *memUsers) Create(_ context.Context, user *entities.User) error {
	return r.s.with(func(st *memState) error {
		if _, ok := st.users[user.Email]; ok {
			return ErrDuplicate
		}
		st.nextUserID++
		user.ID = st.nextUserID
		stamp(&user.CreatedAt, &user.UpdatedAt)
		st.users[user.Email] = *user
		return nil
	})
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	var out *entities.User
	err := r.s.with(func(st *memState) error {
		u, ok := st.users[email]
		if !ok {
			return ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}
