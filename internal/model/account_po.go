package model

import "time"

// Accounts corresponds to the accounts table. An account owns the mnemonic
// its wallets derive from; NextIndex is the next BIP-44 leaf index to hand
// out for a new wallet.
type Accounts struct {
	Id                  string    `db:"id"`
	UserId              string    `db:"user_id"`
	Name                string    `db:"name"`
	Address             string    `db:"address"`
	EncryptedPrivateKey string    `db:"encrypted_private_key"`
	Mnemonic            string    `db:"mnemonic"`
	NextIndex           int64     `db:"next_index"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}
