package repositories

import (
	"context"

	"projector-server/db"
	"projector-server/entities"

	"gorm.io/gorm/clause"
)

type eventPgRepository struct {
	db db.Database
}

func NewEventPgRepository(database db.Database) EventRepository {
	return &eventPgRepository{db: database}
}

func (r *eventPgRepository) Create(ctx context.Context, events []entities.ServerEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.GetDB().WithContext(ctx).Create(&events).Error
}

func (r *eventPgRepository) GetForUpdate(ctx context.Context, id uint) (*entities.ServerEvent, error) {
	var event entities.ServerEvent
	err := r.db.GetDB().WithContext(ctx).Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventPgRepository) PendingByClassroom(ctx context.Context, classroom string) ([]entities.ServerEvent, error) {
	var events []entities.ServerEvent
	err := r.db.GetDB().WithContext(ctx).
		Where("classroom = ? AND status = ?", classroom, entities.EventPending).
		Order("created_at DESC, id DESC").
		Find(&events).Error
	return events, err
}

func (r *eventPgRepository) SaveAll(ctx context.Context, events []entities.ServerEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.GetDB().WithContext(ctx).Unscoped().Save(&events).Error
}

func (r *eventPgRepository) SoftDeleteByClassroom(ctx context.Context, classroom string) (int64, error) {
	res := r.db.GetDB().WithContext(ctx).Where("classroom = ?", classroom).Delete(&entities.ServerEvent{})
	return res.RowsAffected, res.Error
}

func (r *eventPgRepository) CountByCommand(ctx context.Context, modelName, action string) (int64, error) {
	var n int64
	err := r.db.GetDB().WithContext(ctx).Unscoped().Model(&entities.ServerEvent{}).
		Where("model_name = ? AND action = ?", modelName, action).
		Count(&n).Error
	return n, err
}

func (r *eventPgRepository) Search(ctx context.Context, filter EventFilter, page Page) ([]entities.ServerEvent, int64, error) {
	q := r.db.GetDB().WithContext(ctx).Unscoped().Model(&entities.ServerEvent{})
	if filter.Classroom != "" {
		q = q.Where("classroom = ?", filter.Classroom)
	}
	if filter.Floor != "" {
		q = q.Where("floor = ?", filter.Floor)
	}
	if filter.Model != "" {
		q = q.Where("model_name = ?", filter.Model)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.User != "" {
		q = q.Where("requested_by = ?", filter.User)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []entities.ServerEvent
	err := q.Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&events).Error
	return events, total, err
}

func (r *eventPgRepository) CountByStatus(ctx context.Context) (map[entities.EventStatus]int64, error) {
	var rows []struct {
		Status entities.EventStatus
		N      int64
	}
	err := r.db.GetDB().WithContext(ctx).Unscoped().Model(&entities.ServerEvent{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[entities.EventStatus]int64, len(entities.EventStatuses))
	for _, st := range entities.EventStatuses {
		counts[st] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}
