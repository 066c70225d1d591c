package constant

import "time"

// Gas defaults used when the RPC node cannot estimate. These are fallback
// values, callers must surface a warning when they end up in a transaction.
const (
	NativeTransferGasLimit  uint64 = 21000
	FallbackGasPriceGwei    int64  = 50
	GasLimitBufferPercent   uint64 = 110
)

// Timeouts and polling intervals for chain access.
const (
	ProbeTimeoutTestnet = 8 * time.Second
	ProbeTimeoutMainnet = 12 * time.Second

	ReceiptPollInterval = 3 * time.Second
	ConfirmTimeout      = 60 * time.Second
)

// Transaction statuses as persisted and rendered by the dashboard.
// Pending is not a failure: the transaction may still land on chain.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// EtherDecimals is the display scaling of the native currency.
const EtherDecimals = 18
