package repositories

import (
	"context"

	"projector-server/entities"

	"gorm.io/gorm"
)

// Sentinel errors shared by every Store implementation. They alias gorm's
// translated errors so callers only ever check one value.
var (
	ErrNotFound  = gorm.ErrRecordNotFound
	ErrDuplicate = gorm.ErrDuplicatedKey
)

type ProjectorFilter struct {
	Classroom string
	Floor     string
	Model     string
}

type EventFilter struct {
	Classroom string
	Floor     string
	Model     string
	Action    string
	User      string
	Status    entities.EventStatus
}

// Page is a zero-based page request.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int { return p.Number * p.Size }

type ProjectorRepository interface {
	Create(ctx context.Context, projector *entities.Projector) error
	GetByClassroom(ctx context.Context, classroom string) (*entities.Projector, error)
	// GetForUpdate loads the projector and locks its row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, classroom string) (*entities.Projector, error)
	List(ctx context.Context, filter ProjectorFilter) ([]entities.Projector, error)
	Update(ctx context.Context, projector *entities.Projector) error
	Delete(ctx context.Context, classroom string) error
	Floors(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

type CommandRepository interface {
	Create(ctx context.Context, cmd *entities.Command) error
	Get(ctx context.Context, modelName, action string) (*entities.Command, error)
	// FindByInstruction resolves a device response code to its command.
	// Ties between actions sharing one instruction go to the lowest action name.
	FindByInstruction(ctx context.Context, modelName, instruction string) (*entities.Command, error)
	ListByModel(ctx context.Context, modelName string) ([]entities.Command, error)
	List(ctx context.Context, modelName, action string) ([]entities.Command, error)
	Delete(ctx context.Context, modelName, action string) error
	Models(ctx context.Context) ([]string, error)
	Actions(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

type EventRepository interface {
	Create(ctx context.Context, events []entities.ServerEvent) error
	// GetForUpdate loads a live or soft deleted event and locks its row.
	GetForUpdate(ctx context.Context, id uint) (*entities.ServerEvent, error)
	// PendingByClassroom returns live PENDING events, newest first, ties
	// broken by id descending.
	PendingByClassroom(ctx context.Context, classroom string) ([]entities.ServerEvent, error)
	SaveAll(ctx context.Context, events []entities.ServerEvent) error
	SoftDeleteByClassroom(ctx context.Context, classroom string) (int64, error)
	CountByCommand(ctx context.Context, modelName, action string) (int64, error)
	// Search walks the full history, soft deleted rows included, newest first.
	Search(ctx context.Context, filter EventFilter, page Page) ([]entities.ServerEvent, int64, error)
	CountByStatus(ctx context.Context) (map[entities.EventStatus]int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

// Store groups the repositories and runs units of work against them.
type Store interface {
	Projectors() ProjectorRepository
	Commands() CommandRepository
	Events() EventRepository
	Users() UserRepository
	// Transaction runs fn against a Store bound to one transaction. Returning
	// an error from fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
