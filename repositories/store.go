package repositories

import (
	"context"

	"projector-server/db"

	"gorm.io/gorm"
)

type pgStore struct {
	db db.Database
}

// NewPgStore builds a Store over the gorm connection.
func NewPgStore(database db.Database) Store {
	return &pgStore{db: database}
}

func (s *pgStore) Projectors() ProjectorRepository { return NewProjectorPgRepository(s.db) }
func (s *pgStore) Commands() CommandRepository     { return NewCommandPgRepository(s.db) }
func (s *pgStore) Events() EventRepository         { return NewEventPgRepository(s.db) }
func (s *pgStore) Users() UserRepository           { return NewUserPgRepository(s.db) }

func (s *pgStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: &db.GormDatabase{DB: tx}})
	})
}
