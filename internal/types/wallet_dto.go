package types

// WalletCreateReq defines the request body for deriving a new wallet under
// an account's mnemonic on the given network.
type WalletCreateReq struct {
	AccountId string `json:"account_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Network   string `json:"network" validate:"required"` // e.g., "sepolia"
}

// WalletImportReq defines the request body for importing a wallet from a raw
// private key.
type WalletImportReq struct {
	AccountId  string `json:"account_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Network    string `json:"network" validate:"required"`
	PrivateKey string `json:"private_key" validate:"required"`
}

// WalletListReq selects the wallets of one account.
type WalletListReq struct {
	AccountId string `form:"account_id"`
}

// WalletResp is the public view of a wallet. Balance is in display units
// (ether-style, 18 decimals); the private key never leaves the server.
type WalletResp struct {
	Id             string `json:"id"`
	AccountId      string `json:"account_id"`
	Name           string `json:"name"`
	Network        string `json:"network"`
	Address        string `json:"address"`
	DerivationPath string `json:"derivation_path,omitempty"`
	Balance        string `json:"balance"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// WalletListResp wraps the wallets of an account.
type WalletListResp struct {
	Wallets []WalletResp `json:"wallets"`
}

// WalletBalanceReq asks for a balance refresh from the chain.
type WalletBalanceReq struct {
	Address string `json:"address" validate:"required"`
	Network string `json:"network" validate:"required"`
}

// WalletBalanceResp carries the refreshed balance. Stale is set when the
// network was unreachable and the cached ledger value is returned instead.
type WalletBalanceResp struct {
	Balance string `json:"balance"`
	Stale   bool   `json:"stale,omitempty"`
}
