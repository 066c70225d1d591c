package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = gorm.ErrRecordNotFound

// AccountsDao defines the interface for database operations on the accounts table.
type AccountsDao interface {
	Insert(ctx context.Context, data *Accounts) error
	FindOneById(ctx context.Context, id string) (*Accounts, error)
	FindOneByAddress(ctx context.Context, address string) (*Accounts, error)
	FindAllByUserId(ctx context.Context, userId string) ([]*Accounts, error)
	UpdateNextIndex(ctx context.Context, id string, nextIndex int64) error
}

type accountsDao struct {
	db *gorm.DB
}

// NewAccountsDao creates a new instance of AccountsDao.
func NewAccountsDao(db *gorm.DB) AccountsDao {
	return &accountsDao{
		db: db,
	}
}

// Insert adds a new record to the accounts table.
func (d *accountsDao) Insert(ctx context.Context, data *Accounts) error {
	return d.db.WithContext(ctx).Create(data).Error
}

// FindOneById retrieves a single account record by its id.
func (d *accountsDao) FindOneById(ctx context.Context, id string) (*Accounts, error) {
	var resp Accounts
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&resp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &resp, nil
}

// FindOneByAddress retrieves a single account record by its derived address.
// Used for duplicate detection on mnemonic import.
func (d *accountsDao) FindOneByAddress(ctx context.Context, address string) (*Accounts, error) {
	var resp Accounts
	err := d.db.WithContext(ctx).Where("lower(address) = lower(?)", address).First(&resp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &resp, nil
}

// FindAllByUserId retrieves all account records owned by a user.
func (d *accountsDao) FindAllByUserId(ctx context.Context, userId string) ([]*Accounts, error) {
	var accounts []*Accounts
	err := d.db.WithContext(ctx).Where("user_id = ?", userId).Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateNextIndex advances the account's wallet derivation cursor.
func (d *accountsDao) UpdateNextIndex(ctx context.Context, id string, nextIndex int64) error {
	return d.db.WithContext(ctx).Model(&Accounts{}).Where("id = ?", id).
		Update("next_index", nextIndex).Error
}
