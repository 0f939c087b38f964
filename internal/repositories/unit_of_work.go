package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repositories is the set of repositories bound to one transaction.
type Repositories interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
}

// UnitOfWork runs fn inside a single database transaction. Returning an error from fn
// rolls back everything fn did through repos.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

// GORMUnitOfWork is the gorm implementation of UnitOfWork.
type GORMUnitOfWork struct {
	db *gorm.DB
}

// NewGORMUnitOfWork creates a new instance of GORMUnitOfWork.
func NewGORMUnitOfWork(db *gorm.DB) *GORMUnitOfWork {
	return &GORMUnitOfWork{db: db}
}

func (u *GORMUnitOfWork) Do(ctx context.Context, fn func(repos Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepositories{tx: tx})
	})
}

type txRepositories struct {
	tx *gorm.DB
}

func (r txRepositories) Products() ProductRepository { return NewGORMProductRepository(r.tx) }
func (r txRepositories) Carts() CartRepository       { return NewGORMCartRepository(r.tx) }
func (r txRepositories) Orders() OrderRepository     { return NewGORMOrderRepository(r.tx) }
