package types

// AccountCreateReq defines the request body for creating an account. A fresh
// mnemonic is generated server side; it is returned exactly once.
type AccountCreateReq struct {
	Name string `json:"name" validate:"required"`
}

// AccountImportReq defines the request body for importing an account from an
// existing mnemonic phrase.
type AccountImportReq struct {
	Mnemonic string `json:"mnemonic" validate:"required"`
}

// AccountResp is the public view of an account. The mnemonic is only
// populated on initial creation so the user can back it up.
type AccountResp struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

// AccountListResp wraps the accounts of the authenticated user.
type AccountListResp struct {
	Accounts []AccountResp `json:"accounts"`
}
