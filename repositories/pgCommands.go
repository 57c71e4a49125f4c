package repositories

import (
	"context"

	"projector-server/db"
	"projector-server/entities"
)

type commandPgRepository struct {
	db db.Database
}

func NewCommandPgRepository(database db.Database) CommandRepository {
	return &commandPgRepository{db: database}
}

func (r *commandPgRepository) Create(ctx context.Context, cmd *entities.Command) error {
	return r.db.GetDB().WithContext(ctx).Create(cmd).Error
}

func (r *commandPgRepository) Get(ctx context.Context, modelName, action string) (*entities.Command, error) {
	var cmd entities.Command
	err := r.db.GetDB().WithContext(ctx).
		Where("model_name = ? AND action = ?", modelName, action).
		First(&cmd).Error
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (r *commandPgRepository) FindByInstruction(ctx context.Context, modelName, instruction string) (*entities.Command, error) {
	var cmd entities.Command
	err := r.db.GetDB().WithContext(ctx).
		Where("model_name = ? AND instruction = ?", modelName, instruction).
		Order("action ASC").
		First(&cmd).Error
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (r *commandPgRepository) ListByModel(ctx context.Context, modelName string) ([]entities.Command, error) {
	return r.List(ctx, modelName, "")
}

func (r *commandPgRepository) List(ctx context.Context, modelName, action string) ([]entities.Command, error) {
	q := r.db.GetDB().WithContext(ctx).Model(&entities.Command{})
	if modelName != "" {
		q = q.Where("model_name = ?", modelName)
	}
	if action != "" {
		q = q.Where("action = ?", action)
	}
	var cmds []entities.Command
	err := q.Order("model_name, action").Find(&cmds).Error
	return cmds, err
}

func (r *commandPgRepository) Delete(ctx context.Context, modelName, action string) error {
	res := r.db.GetDB().WithContext(ctx).
		Where("model_name = ? AND action = ?", modelName, action).
		Delete(&entities.Command{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *commandPgRepository) Models(ctx context.Context) ([]string, error) {
	var models []string
	err := r.db.GetDB().WithContext(ctx).Model(&entities.Command{}).
		Distinct("model_name").Order("model_name").Pluck("model_name", &models).Error
	return models, err
}

func (r *commandPgRepository) Actions(ctx context.Context) ([]string, error) {
	var actions []string
	err := r.db.GetDB().WithContext(ctx).Model(&entities.Command{}).
		Distinct("action").Order("action").Pluck("action", &actions).Error
	return actions, err
}

func (r *commandPgRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetDB().WithContext(ctx).Model(&entities.Command{}).Count(&n).Error
	return n, err
}
