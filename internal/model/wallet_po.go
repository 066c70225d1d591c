package model

import (
	"database/sql"
	"time"
)

// Wallets corresponds to the wallets table. BalanceWei is the locally
// tracked balance in base units, stored as a decimal string; it is the
// dashboard's source of truth until an explicit refresh or a send settles.
type Wallets struct {
	Id                  string         `db:"id"`
	AccountId           string         `db:"account_id"`
	Name                string         `db:"name"`
	Network             string         `db:"network"`
	Address             string         `db:"address"`
	EncryptedPrivateKey string         `db:"encrypted_private_key"`
	DerivationPath      sql.NullString `db:"derivation_path"`
	BalanceWei          string         `db:"balance_wei"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}
