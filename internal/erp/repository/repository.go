package repository

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories ERP仓库集合
type Repositories struct {
	db *gorm.DB

	Master     *MasterRepository
	Sales      *SalesRepository
	BOM        *BOMRepository
	Purchase   *PurchaseRepository
	Production *ProductionRepository
}

// NewRepositories 创建ERP仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:         db,
		Master:     NewMasterRepository(db),
		Sales:      NewSalesRepository(db),
		BOM:        NewBOMRepository(db),
		Purchase:   NewPurchaseRepository(db),
		Production: NewProductionRepository(db),
	}
}

// Transaction runs fn with a repository set bound to a single database transaction.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// ReadSnapshot runs fn inside a read-only transaction. On postgres the
// transaction is REPEATABLE READ so every query sees the same snapshot.
func (r *Repositories) ReadSnapshot(ctx context.Context, fn func(tx *Repositories) error) error {
	var opts *sql.TxOptions
	if r.db.Dialector.Name() == "postgres" {
		opts = &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	}, opts)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
