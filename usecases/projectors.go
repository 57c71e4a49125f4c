package usecases

import (
	"context"
	"strings"

	"projector-server/entities"
	"projector-server/repositories"

	"go.uber.org/zap"
)

type ProjectorsUseCase struct {
	store repositories.Store
	log   *zap.Logger
}

func NewProjectorsUseCase(store repositories.Store, log *zap.Logger) *ProjectorsUseCase {
	return &ProjectorsUseCase{store: store, log: log}
}

func (uc *ProjectorsUseCase) List(ctx context.Context, filter repositories.ProjectorFilter) ([]entities.Projector, error) {
	projectors, err := uc.store.Projectors().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if projectors == nil {
		projectors = []entities.Projector{}
	}
	return projectors, nil
}

func (uc *ProjectorsUseCase) Get(ctx context.Context, classroom string) (*entities.Projector, error) {
	classroom = strings.TrimSpace(classroom)
	if classroom == "" {
		return nil, invalidArgument("classroom must not be blank")
	}
	p, err := uc.store.Projectors().GetByClassroom(ctx, classroom)
	if err != nil {
		return nil, lookup(err, "projector in classroom %q does not exist", classroom)
	}
	return p, nil
}

// Create registers a projector. Its model must already have commands in the
// catalog; a missing status defaults to OFF.
func (uc *ProjectorsUseCase) Create(ctx context.Context, p *entities.Projector) error {
	p.Classroom = strings.TrimSpace(p.Classroom)
	p.Model = strings.TrimSpace(p.Model)
	p.Floor = strings.TrimSpace(p.Floor)
	if p.Classroom == "" {
		return invalidArgument("classroom must not be blank")
	}
	if p.Model == "" {
		return invalidArgument("model must not be blank")
	}
	if p.Status == "" {
		p.Status = entities.ProjectorOff
	}
	if !p.Status.Valid() {
		return invalidArgument("unknown projector status %q", p.Status)
	}

	err := uc.store.Transaction(ctx, func(tx repositories.Store) error {
		cmds, err := tx.Commands().ListByModel(ctx, p.Model)
		if err != nil {
			return err
		}
		if len(cmds) == 0 {
			return notFound("projector model %q has no commands in the catalog", p.Model)
		}
		return tx.Projectors().Create(ctx, p)
	})
	if err != nil {
		return stored(err, "a projector is already registered in classroom %q", p.Classroom)
	}
	uc.log.Info("projector registered",
		zap.String("classroom", p.Classroom),
		zap.String("model", p.Model),
		zap.String("floor", p.Floor))
	return nil
}

// Delete removes the projector of classroom and soft deletes its events. It
// returns the number of events taken out of the live queue.
func (uc *ProjectorsUseCase) Delete(ctx context.Context, classroom string) (int64, error) {
	classroom = strings.TrimSpace(classroom)
	if classroom == "" {
		return 0, invalidArgument("classroom must not be blank")
	}
	var removed int64
	err := uc.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Projectors().GetForUpdate(ctx, classroom); err != nil {
			return lookup(err, "projector in classroom %q does not exist", classroom)
		}
		n, err := removeProjector(ctx, tx, classroom)
		removed = n
		return err
	})
	if err != nil {
		return 0, err
	}
	uc.log.Info("projector removed", zap.String("classroom", classroom), zap.Int64("events", removed))
	return removed, nil
}

// DeleteAll removes every projector and returns how many were removed.
func (uc *ProjectorsUseCase) DeleteAll(ctx context.Context) (int, error) {
	var count int
	err := uc.store.Transaction(ctx, func(tx repositories.Store) error {
		all, err := tx.Projectors().List(ctx, repositories.ProjectorFilter{})
		if err != nil {
			return err
		}
		for _, p := range all {
			if _, err := removeProjector(ctx, tx, p.Classroom); err != nil {
				return err
			}
		}
		count = len(all)
		return nil
	})
	if err != nil {
		return 0, err
	}
	uc.log.Info("all projectors removed", zap.Int("count", count))
	return count, nil
}

func removeProjector(ctx context.Context, tx repositories.Store, classroom string) (int64, error) {
	n, err := tx.Events().SoftDeleteByClassroom(ctx, classroom)
	if err != nil {
		return 0, err
	}
	if err := tx.Projectors().Delete(ctx, classroom); err != nil {
		return 0, lookup(err, "projector in classroom %q does not exist", classroom)
	}
	return n, nil
}

func (uc *ProjectorsUseCase) Floors(ctx context.Context) ([]string, error) {
	floors, err := uc.store.Projectors().Floors(ctx)
	if err != nil {
		return nil, err
	}
	if floors == nil {
		floors = []string{}
	}
	return floors, nil
}

// Classroom is a classroom with a registered projector.
type Classroom struct {
	Classroom string `json:"classroom"`
	Floor     string `json:"floor"`
}

func (uc *ProjectorsUseCase) Classrooms(ctx context.Context, floor string) ([]Classroom, error) {
	projectors, err := uc.store.Projectors().List(ctx, repositories.ProjectorFilter{Floor: strings.TrimSpace(floor)})
	if err != nil {
		return nil, err
	}
	out := make([]Classroom, 0, len(projectors))
	for _, p := range projectors {
		out = append(out, Classroom{Classroom: p.Classroom, Floor: p.Floor})
	}
	return out, nil
}

type GeneralOverview struct {
	Models     int64 `json:"numberOfModels"`
	Actions    int64 `json:"numberOfActions"`
	Commands   int64 `json:"numberOfCommands"`
	Projectors int64 `json:"numberOfProjectors"`
	Floors     int64 `json:"numberOfFloors"`
	Classrooms int64 `json:"numberOfClassrooms"`
}

func (uc *ProjectorsUseCase) Overview(ctx context.Context) (*GeneralOverview, error) {
	var o GeneralOverview
	models, err := uc.store.Commands().Models(ctx)
	if err != nil {
		return nil, err
	}
	actions, err := uc.store.Commands().Actions(ctx)
	if err != nil {
		return nil, err
	}
	if o.Commands, err = uc.store.Commands().Count(ctx); err != nil {
		return nil, err
	}
	if o.Projectors, err = uc.store.Projectors().Count(ctx); err != nil {
		return nil, err
	}
	floors, err := uc.store.Projectors().Floors(ctx)
	if err != nil {
		return nil, err
	}
	o.Models = int64(len(models))
	o.Actions = int64(len(actions))
	o.Floors = int64(len(floors))
	// Every projector occupies its own classroom.
	o.Classrooms = o.Projectors
	return &o, nil
}
