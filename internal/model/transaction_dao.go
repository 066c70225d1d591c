package model

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// TransactionsDao defines the interface for database operations on the transactions table.
type TransactionsDao interface {
	Insert(ctx context.Context, data *Transactions) error
	Update(ctx context.Context, data *Transactions) error
	FindOneById(ctx context.Context, id string) (*Transactions, error)
	FindAllByAddress(ctx context.Context, address string) ([]*Transactions, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]*Transactions, error)
}

type transactionsDao struct {
	db *gorm.DB
}

// NewTransactionsDao creates a new instance of TransactionsDao.
func NewTransactionsDao(db *gorm.DB) TransactionsDao {
	return &transactionsDao{
		db: db,
	}
}

// Insert adds a new record to the transactions table.
func (d *transactionsDao) Insert(ctx context.Context, data *Transactions) error {
	return d.db.WithContext(ctx).Create(data).Error
}

// Update persists the full record. Terminal rows (completed/failed) are
// written once and never mutated again.
func (d *transactionsDao) Update(ctx context.Context, data *Transactions) error {
	return d.db.WithContext(ctx).Save(data).Error
}

// FindOneById retrieves a single transaction record by its id.
func (d *transactionsDao) FindOneById(ctx context.Context, id string) (*Transactions, error) {
	var resp Transactions
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&resp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &resp, nil
}

// FindAllByAddress retrieves the history involving an address, newest first.
func (d *transactionsDao) FindAllByAddress(ctx context.Context, address string) ([]*Transactions, error) {
	var txs []*Transactions
	err := d.db.WithContext(ctx).
		Where("lower(from_address) = lower(?) OR lower(to_address) = lower(?)", address, address).
		Order("timestamp desc").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// FindPendingBefore retrieves pending transactions submitted before cutoff,
// the reconciler's work queue.
func (d *transactionsDao) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]*Transactions, error) {
	var txs []*Transactions
	err := d.db.WithContext(ctx).
		Where("status = ? AND timestamp < ?", "pending", cutoff).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}
