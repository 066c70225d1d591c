package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// WalletsDao defines the interface for database operations on the wallets table.
type WalletsDao interface {
	Insert(ctx context.Context, data *Wallets) error
	FindOneById(ctx context.Context, id string) (*Wallets, error)
	FindOneByAddress(ctx context.Context, address string) (*Wallets, error)
	FindAllByAccountId(ctx context.Context, accountId string) ([]*Wallets, error)
	UpdateBalance(ctx context.Context, id string, balanceWei string) error
	IncrementBalance(ctx context.Context, id string, deltaWei string) error
}

type walletsDao struct {
	db *gorm.DB
}

// NewWalletsDao creates a new instance of WalletsDao.
func NewWalletsDao(db *gorm.DB) WalletsDao {
	return &walletsDao{
		db: db,
	}
}

// Insert adds a new record to the wallets table.
func (d *walletsDao) Insert(ctx context.Context, data *Wallets) error {
	return d.db.WithContext(ctx).Create(data).Error
}

// FindOneById retrieves a single wallet record by its id.
func (d *walletsDao) FindOneById(ctx context.Context, id string) (*Wallets, error) {
	var resp Wallets
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&resp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &resp, nil
}

// FindOneByAddress retrieves a single wallet record by its address.
// Address comparison is case-insensitive, hex casing is display only.
func (d *walletsDao) FindOneByAddress(ctx context.Context, address string) (*Wallets, error) {
	var resp Wallets
	err := d.db.WithContext(ctx).Where("lower(address) = lower(?)", address).First(&resp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &resp, nil
}

// FindAllByAccountId retrieves all wallets belonging to an account.
func (d *walletsDao) FindAllByAccountId(ctx context.Context, accountId string) ([]*Wallets, error) {
	var wallets []*Wallets
	err := d.db.WithContext(ctx).Where("account_id = ?", accountId).Find(&wallets).Error
	if err != nil {
		return nil, err
	}
	return wallets, nil
}

// UpdateBalance persists a new locally tracked balance for the wallet.
// Callers must hold the wallet's lock: this is a full overwrite.
func (d *walletsDao) UpdateBalance(ctx context.Context, id string, balanceWei string) error {
	return d.db.WithContext(ctx).Model(&Wallets{}).Where("id = ?", id).
		Update("balance_wei", balanceWei).Error
}

// IncrementBalance adds deltaWei to the wallet's balance atomically on the
// database side. Credits to a recipient wallet go through here so they cannot
// overwrite a settlement running concurrently under that wallet's own lock.
func (d *walletsDao) IncrementBalance(ctx context.Context, id string, deltaWei string) error {
	return d.db.WithContext(ctx).Model(&Wallets{}).Where("id = ?", id).
		Update("balance_wei", gorm.Expr("(balance_wei::numeric + ?::numeric)::text", deltaWei)).Error
}
