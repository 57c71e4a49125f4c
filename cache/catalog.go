package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"projector-server/entities"
	"projector-server/repositories"
)

// CommandSource loads the catalog of one projector model.
type CommandSource interface {
	ListByModel(ctx context.Context, modelName string) ([]entities.Command, error)
}

type modelEntry struct {
	commands []entities.Command // sorted by action
	loadedAt time.Time
}

// CommandCatalog keeps the per-model command lists read on every lifecycle
// operation. Entries expire after the ttl; writes to the catalog must call
// Invalidate. A ttl <= 0 disables caching.
type CommandCatalog struct {
	mu     sync.RWMutex
	ttl    time.Duration
	models map[string]modelEntry
	now    func() time.Time

	hits          uint64
	misses        uint64
	invalidations uint64
}

func NewCommandCatalog(ttl time.Duration) *CommandCatalog {
	return &CommandCatalog{
		ttl:    ttl,
		models: make(map[string]modelEntry),
		now:    time.Now,
	}
}

// Stats is a snapshot of the catalog cache.
type Stats struct {
	Models        int     `json:"models"`
	Commands      int     `json:"commands"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Invalidations uint64  `json:"invalidations"`
	TTLSeconds    float64 `json:"ttl_seconds"`
}

func (c *CommandCatalog) commandsFor(ctx context.Context, src CommandSource, modelName string) ([]entities.Command, error) {
	if c.ttl > 0 {
		c.mu.Lock()
		entry, ok := c.models[modelName]
		if ok && c.now().Sub(entry.loadedAt) < c.ttl {
			c.hits++
			c.mu.Unlock()
			return entry.commands, nil
		}
		c.misses++
		c.mu.Unlock()
	}

	cmds, err := src.ListByModel(ctx, modelName)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		c.mu.Lock()
		c.models[modelName] = modelEntry{commands: cmds, loadedAt: c.now()}
		c.mu.Unlock()
	}
	return cmds, nil
}

// Get returns the command for (model, action). An exact action match wins
// over a case-insensitive one.
func (c *CommandCatalog) Get(ctx context.Context, src CommandSource, modelName, action string) (*entities.Command, error) {
	cmds, err := c.commandsFor(ctx, src, modelName)
	if err != nil {
		return nil, err
	}
	var folded *entities.Command
	for i := range cmds {
		if cmds[i].Action == action {
			cmd := cmds[i]
			return &cmd, nil
		}
		if folded == nil && strings.EqualFold(cmds[i].Action, action) {
			cmd := cmds[i]
			folded = &cmd
		}
	}
	if folded != nil {
		return folded, nil
	}
	return nil, repositories.ErrNotFound
}

// ByInstruction resolves an instruction reported by a device. When several
// actions share the instruction the lowest action name wins.
func (c *CommandCatalog) ByInstruction(ctx context.Context, src CommandSource, modelName, instruction string) (*entities.Command, error) {
	cmds, err := c.commandsFor(ctx, src, modelName)
	if err != nil {
		return nil, err
	}
	var best *entities.Command
	for i := range cmds {
		if cmds[i].Instruction != instruction {
			continue
		}
		if best == nil || cmds[i].Action < best.Action {
			cmd := cmds[i]
			best = &cmd
		}
	}
	if best == nil {
		return nil, repositories.ErrNotFound
	}
	return best, nil
}

// Invalidate drops the cached catalog of one model.
func (c *CommandCatalog) Invalidate(modelName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.models, modelName)
	c.invalidations++
}

// Flush drops every cached model.
func (c *CommandCatalog) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = make(map[string]modelEntry)
	c.invalidations++
}

func (c *CommandCatalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, e := range c.models {
		total += len(e.commands)
	}
	return Stats{
		Models:        len(c.models),
		Commands:      total,
		Hits:          c.hits,
		Misses:        c.misses,
		Invalidations: c.invalidations,
		TTLSeconds:    c.ttl.Seconds(),
	}
}
