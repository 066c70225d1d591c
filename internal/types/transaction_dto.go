package types

// SendReq defines the request body for a value transfer. Amount is a display
// decimal string such as "1.5".
type SendReq struct {
	AccountId    string `json:"account_id" validate:"required"`
	FromWalletId string `json:"from_wallet_id" validate:"required"`
	ToAddress    string `json:"to_address" validate:"required"`
	Amount       string `json:"amount" validate:"required"`
}

// SendResp is returned for both completed and pending sends; Status tells
// them apart. A pending send is not a success claim, its receipt has not
// been observed yet.
type SendResp struct {
	Transaction TransactionResp `json:"transaction"`
	Balance     string          `json:"balance"`
	Message     string          `json:"message"`
}

// EstimateReq defines the request body for a standalone gas estimate.
type EstimateReq struct {
	FromAddress string `json:"from_address" validate:"required"`
	ToAddress   string `json:"to_address" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Network     string `json:"network" validate:"required"`
}

// EstimateResp carries gas parameters. GasEstimate is the total cost in
// display units; Fallback marks conservative defaults after an RPC failure.
type EstimateResp struct {
	GasEstimate string `json:"gas_estimate"`
	GasLimit    string `json:"gas_limit"`
	GasPrice    string `json:"gas_price"`
	Fallback    bool   `json:"fallback,omitempty"`
	Message     string `json:"message"`
}

// TransactionListReq selects the history involving one address.
type TransactionListReq struct {
	Address string `form:"address"`
}

// TransactionGetReq selects one transaction by id.
type TransactionGetReq struct {
	Id string `form:"id"`
}

// TransactionResp is the public view of a transaction record.
type TransactionResp struct {
	Id          string `json:"id"`
	Hash        string `json:"hash,omitempty"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Amount      string `json:"amount"`
	Network     string `json:"network"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	ExplorerUrl string `json:"explorer_url,omitempty"`
}

// TransactionListResp wraps an address's history.
type TransactionListResp struct {
	Transactions []TransactionResp `json:"transactions"`
}
