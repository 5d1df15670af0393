package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormTxManager runs a function with every repository bound to one database
// transaction. The function returning an error rolls everything back.
type GormTxManager struct {
	db *gorm.DB
}

func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) WithinTx(ctx context.Context, fn func(r *Repos) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepos(tx))
	})
}

// NewGormRepos builds the repository set over one gorm handle, which may be a
// transaction or the root connection.
func NewGormRepos(db *gorm.DB) *Repos {
	return &Repos{
		Payments:    NewGormPaymentRepository(db),
		Claims:      NewGormClaimRepository(db),
		Adjustments: NewGormAdjustmentRepository(db),
	}
}
