package repositories

import (
	"context"

	"projector-server/db"
	"projector-server/entities"

	"gorm.io/gorm/clause"
)

type projectorPgRepository struct {
	db db.Database
}

func NewProjectorPgRepository(database db.Database) ProjectorRepository {
	return &projectorPgRepository{db: database}
}

func (r *projectorPgRepository) Create(ctx context.Context, projector *entities.Projector) error {
	return r.db.GetDB().WithContext(ctx).Create(projector).Error
}

func (r *projectorPgRepository) GetByClassroom(ctx context.Context, classroom string) (*entities.Projector, error) {
	var projector entities.Projector
	err := r.db.GetDB().WithContext(ctx).Where("classroom = ?", classroom).First(&projector).Error
	if err != nil {
		return nil, err
	}
	return &projector, nil
}

func (r *projectorPgRepository) GetForUpdate(ctx context.Context, classroom string) (*entities.Projector, error) {
	var projector entities.Projector
	err := r.db.GetDB().WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("classroom = ?", classroom).
		First(&projector).Error
	if err != nil {
		return nil, err
	}
	return &projector, nil
}

func (r *projectorPgRepository) List(ctx context.Context, filter ProjectorFilter) ([]entities.Projector, error) {
	q := r.db.GetDB().WithContext(ctx).Model(&entities.Projector{})
	if filter.Classroom != "" {
		q = q.Where("classroom = ?", filter.Classroom)
	}
	if filter.Floor != "" {
		q = q.Where("floor = ?", filter.Floor)
	}
	if filter.Model != "" {
		q = q.Where("model = ?", filter.Model)
	}
	var projectors []entities.Projector
	err := q.Order("model, floor, classroom").Find(&projectors).Error
	return projectors, err
}

func (r *projectorPgRepository) Update(ctx context.Context, projector *entities.Projector) error {
	return r.db.GetDB().WithContext(ctx).Save(projector).Error
}

func (r *projectorPgRepository) Delete(ctx context.Context, classroom string) error {
	res := r.db.GetDB().WithContext(ctx).Where("classroom = ?", classroom).Delete(&entities.Projector{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *projectorPgRepository) Floors(ctx context.Context) ([]string, error) {
	var floors []string
	err := r.db.GetDB().WithContext(ctx).Model(&entities.Projector{}).
		Distinct("floor").Order("floor").Pluck("floor", &floors).Error
	return floors, err
}

func (r *projectorPgRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetDB().WithContext(ctx).Model(&entities.Projector{}).Count(&n).Error
	return n, err
}
