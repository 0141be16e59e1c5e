// Package store persists trade transactions and analysis results.
package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tradementor/tradementor/internal/model"
	dbopts "github.com/tradementor/tradementor/pkg/options/db"
)

// Factory exposes the analysis stores.
type Factory interface {
	Transactions() TransactionStore
	Results() ResultStore
	Close() error
}

type datastore struct {
	db *gorm.DB
}

// New wraps an existing gorm handle as a Factory.
func New(db *gorm.DB) Factory {
	return &datastore{db: db}
}

// Open opens the sqlite database and migrates the schema.
func Open(opts *dbopts.Options) (Factory, error) {
	logLevel := gormlogger.Silent
	if opts.LogSQL {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(sqlite.Open(opts.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", opts.Path, err)
	}

	if err := db.AutoMigrate(&model.Transaction{}, &model.AnalysisResult{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &datastore{db: db}, nil
}

func (ds *datastore) Transactions() TransactionStore {
	return newTransactions(ds.db)
}

func (ds *datastore) Results() ResultStore {
	return newResults(ds.db)
}

func (ds *datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
