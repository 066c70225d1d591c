package model

import (
	"database/sql"
	"time"
)

// Transactions corresponds to the transactions table. Amounts and gas values
// are wei decimal strings. ReservedWei is only set while a send sits in
// pending after a confirmation timeout: it records how much was optimistically
// held against the sender so the reconciler can settle the difference once
// the real receipt shows up.
type Transactions struct {
	Id           string         `db:"id"`
	FromWalletId string         `db:"from_wallet_id"`
	FromAddress  string         `db:"from_address"`
	ToAddress    string         `db:"to_address"`
	Network      string         `db:"network"`
	AmountWei    string         `db:"amount_wei"`
	GasLimit     uint64         `db:"gas_limit"`
	GasPriceWei  string         `db:"gas_price_wei"`
	ReservedWei  sql.NullString `db:"reserved_wei"`
	Status       string         `db:"status"`
	Hash         sql.NullString `db:"hash"`
	GasUsed      uint64         `db:"gas_used"`
	BlockNumber  uint64         `db:"block_number"`
	Timestamp    time.Time      `db:"timestamp"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}
