package usecases

import (
	"context"
	"strings"

	"projector-server/cache"
	"projector-server/entities"
	"projector-server/repositories"

	"go.uber.org/zap"
)

// CommandsUseCase administers the command catalog.
type CommandsUseCase struct {
	store   repositories.Store
	catalog *cache.CommandCatalog
	policy  LifecyclePolicy
	log     *zap.Logger
}

func NewCommandsUseCase(store repositories.Store, catalog *cache.CommandCatalog, policy LifecyclePolicy, log *zap.Logger) *CommandsUseCase {
	return &CommandsUseCase{store: store, catalog: catalog, policy: policy, log: log}
}

func (uc *CommandsUseCase) List(ctx context.Context, modelName, action string) ([]entities.Command, error) {
	cmds, err := uc.store.Commands().List(ctx, strings.TrimSpace(modelName), strings.TrimSpace(action))
	if err != nil {
		return nil, err
	}
	if cmds == nil {
		cmds = []entities.Command{}
	}
	return cmds, nil
}

func (uc *CommandsUseCase) Create(ctx context.Context, cmd *entities.Command) error {
	cmd.ModelName = strings.TrimSpace(cmd.ModelName)
	cmd.Action = strings.TrimSpace(cmd.Action)
	if cmd.ModelName == "" || cmd.Action == "" {
		return invalidArgument("model name and action are required")
	}
	if cmd.Instruction == "" {
		return invalidArgument("command instruction is required")
	}
	err := uc.store.Transaction(ctx, func(tx repositories.Store) error {
		return tx.Commands().Create(ctx, cmd)
	})
	if err != nil {
		return stored(err, "a command for model %q and action %q already exists", cmd.ModelName, cmd.Action)
	}
	uc.catalog.Invalidate(cmd.ModelName)
	uc.log.Info("command created", zap.String("model", cmd.ModelName), zap.String("action", cmd.Action))
	return nil
}

// Delete removes a command. A command referenced by any event, soft deleted
// ones included, cannot be removed.
func (uc *CommandsUseCase) Delete(ctx context.Context, modelName, action string) error {
	modelName = strings.TrimSpace(modelName)
	action = strings.TrimSpace(action)
	if modelName == "" || action == "" {
		return invalidArgument("model name and action are required")
	}
	err := uc.store.Transaction(ctx, func(tx repositories.Store) error {
		n, err := tx.Events().CountByCommand(ctx, modelName, action)
		if err != nil {
			return err
		}
		if n > 0 {
			return conflict(nil, "command %q of model %q is referenced by %d events", action, modelName, n)
		}
		if err := tx.Commands().Delete(ctx, modelName, action); err != nil {
			return lookup(err, "no command for model %q and action %q", modelName, action)
		}
		return nil
	})
	if err != nil {
		return err
	}
	uc.catalog.Invalidate(modelName)
	uc.log.Info("command deleted", zap.String("model", modelName), zap.String("action", action))
	return nil
}

// Actions lists the catalog actions an operator may request.
func (uc *CommandsUseCase) Actions(ctx context.Context) ([]string, error) {
	all, err := uc.store.Commands().Actions(ctx)
	if err != nil {
		return nil, err
	}
	cfg := uc.policy.Config()
	out := make([]string, 0, len(all))
	for _, a := range all {
		if !cfg.IsProtocolAction(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (uc *CommandsUseCase) Models(ctx context.Context) ([]string, error) {
	models, err := uc.store.Commands().Models(ctx)
	if err != nil {
		return nil, err
	}
	if models == nil {
		models = []string{}
	}
	return models, nil
}

func (uc *CommandsUseCase) CatalogStats() cache.Stats {
	return uc.catalog.Stats()
}

func (uc *CommandsUseCase) FlushCatalog() {
	uc.catalog.Flush()
	uc.log.Info("command catalog cache flushed")
}
