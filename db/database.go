package db

import "gorm.io/gorm"

// Database hands repositories the gorm handle they run on, either the pool
// or a transaction.
type Database interface {
	GetDB() *gorm.DB
}

type GormDatabase struct {
	DB *gorm.DB
}

func (g *GormDatabase) GetDB() *gorm.DB { return g.DB }
