package reconcile

import (
	"context"
	"database/sql"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"custody/internal/chain"
	"custody/internal/config"
	"custody/internal/constant"
	"custody/internal/locker"
	"custody/internal/model"
	"custody/internal/money"
	"custody/internal/svc"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	senderWalletId = "w-sender"
	senderAddr     = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	recipientAddr  = "0x6Fac4D18c912343BF86fa7049364Dd4E424Ab9C0"
)

func ether(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := money.ParseEther(s)
	require.NoError(t, err)
	return v
}

// stubNode serves the probe and a scripted receipt.
type stubNode struct {
	receiptFn func() (*evmTypes.Receipt, error)
}

func (n *stubNode) ChainID(ctx context.Context) (*big.Int, error)   { return big.NewInt(17000), nil }
func (n *stubNode) BlockNumber(ctx context.Context) (uint64, error) { return 1, nil }
func (n *stubNode) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return money.GweiToWei(1), nil
}
func (n *stubNode) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (n *stubNode) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}
func (n *stubNode) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return constant.NativeTransferGasLimit, nil
}
func (n *stubNode) SendTransaction(ctx context.Context, tx *evmTypes.Transaction) error { return nil }
func (n *stubNode) TransactionReceipt(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error) {
	if n.receiptFn != nil {
		return n.receiptFn()
	}
	return nil, ethereum.NotFound
}
func (n *stubNode) Close() {}

type memWalletsDao struct {
	mu      sync.Mutex
	wallets map[string]*model.Wallets
}

func (d *memWalletsDao) Insert(ctx context.Context, data *model.Wallets) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *data
	d.wallets[data.Id] = &cp
	return nil
}

func (d *memWalletsDao) FindOneById(ctx context.Context, id string) (*model.Wallets, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.wallets[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (d *memWalletsDao) FindOneByAddress(ctx context.Context, address string) (*model.Wallets, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.wallets {
		if strings.EqualFold(w.Address, address) {
			cp := *w
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (d *memWalletsDao) FindAllByAccountId(ctx context.Context, accountId string) ([]*model.Wallets, error) {
	return nil, nil
}

func (d *memWalletsDao) UpdateBalance(ctx context.Context, id string, balanceWei string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wallets[id].BalanceWei = balanceWei
	return nil
}

func (d *memWalletsDao) IncrementBalance(ctx context.Context, id string, deltaWei string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	current, _ := new(big.Int).SetString(d.wallets[id].BalanceWei, 10)
	delta, _ := new(big.Int).SetString(deltaWei, 10)
	d.wallets[id].BalanceWei = new(big.Int).Add(current, delta).String()
	return nil
}

func (d *memWalletsDao) balanceOf(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wallets[id].BalanceWei
}

type memTransactionsDao struct {
	mu   sync.Mutex
	rows map[string]*model.Transactions
}

func (d *memTransactionsDao) Insert(ctx context.Context, data *model.Transactions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *data
	d.rows[data.Id] = &cp
	return nil
}

func (d *memTransactionsDao) Update(ctx context.Context, data *model.Transactions) error {
	return d.Insert(ctx, data)
}

func (d *memTransactionsDao) FindOneById(ctx context.Context, id string) (*model.Transactions, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	row, ok := d.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (d *memTransactionsDao) FindAllByAddress(ctx context.Context, address string) ([]*model.Transactions, error) {
	return nil, nil
}

func (d *memTransactionsDao) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]*model.Transactions, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*model.Transactions
	for _, row := range d.rows {
		if row.Status == constant.TxStatusPending && row.Timestamp.Before(cutoff) {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (d *memTransactionsDao) mustRow(t *testing.T, id string) *model.Transactions {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	row, ok := d.rows[id]
	require.True(t, ok, "transaction row %s not found", id)
	cp := *row
	return &cp
}

func newFixture(node chain.Backend) (*ReconcileLogic, *memWalletsDao, *memTransactionsDao) {
	networks := map[string]config.NetworkConf{
		"holesky": {Name: "Holesky", RpcUrl: "http://127.0.0.1:8545", ChainId: 17000, Symbol: "ETH", Testnet: true},
	}
	var c config.Config
	c.Networks = networks

	wd := &memWalletsDao{wallets: make(map[string]*model.Wallets)}
	td := &memTransactionsDao{rows: make(map[string]*model.Transactions)}
	svcCtx := &svc.ServiceContext{
		Config:          c,
		WalletsDao:      wd,
		TransactionsDao: td,
		Chains: chain.NewRegistryWithDialer(networks, func(ctx context.Context, rawurl string) (chain.Backend, error) {
			return node, nil
		}),
		WalletLocks: locker.New(),
	}
	return NewReconcileLogic(svcCtx), wd, td
}

func seedSender(t *testing.T, wd *memWalletsDao, balance string) {
	t.Helper()
	require.NoError(t, wd.Insert(context.Background(), &model.Wallets{
		Id:         senderWalletId,
		AccountId:  "acct-1",
		Network:    "holesky",
		Address:    senderAddr,
		BalanceWei: ether(t, balance).String(),
	}))
}

// pendingRow builds a stale pending row submitted well before the cutoff.
func pendingRow(t *testing.T, amount string, reserved string) *model.Transactions {
	t.Helper()
	row := &model.Transactions{
		Id:           "tx-1",
		FromWalletId: senderWalletId,
		FromAddress:  senderAddr,
		ToAddress:    recipientAddr,
		Network:      "holesky",
		AmountWei:    ether(t, amount).String(),
		GasLimit:     23100,
		GasPriceWei:  money.GweiToWei(1).String(),
		Status:       constant.TxStatusPending,
		Hash:         sql.NullString{String: "0xabc123", Valid: true},
		Timestamp:    time.Now().UTC().Add(-5 * time.Minute),
	}
	if reserved != "" {
		row.ReservedWei = sql.NullString{String: ether(t, reserved).String(), Valid: true}
	}
	return row
}

// receipt with GasUsed*EffectiveGasPrice = 0.01 ether.
func receiptWithStatus(status uint64) *evmTypes.Receipt {
	return &evmTypes.Receipt{
		Status:            status,
		GasUsed:           20000,
		EffectiveGasPrice: money.GweiToWei(500),
		BlockNumber:       big.NewInt(7),
	}
}

func TestRunOnceReservedCompletedRefundsDifference(t *testing.T) {
	node := &stubNode{receiptFn: func() (*evmTypes.Receipt, error) {
		return receiptWithStatus(evmTypes.ReceiptStatusSuccessful), nil
	}}
	l, wd, td := newFixture(node)

	// coordinator already held amount+estimatedGas: 2.0 - 1.52 = 0.48
	seedSender(t, wd, "0.48")
	require.NoError(t, wd.Insert(context.Background(), &model.Wallets{
		Id:         "w-recipient",
		AccountId:  "acct-2",
		Network:    "holesky",
		Address:    recipientAddr,
		BalanceWei: "0",
	}))
	require.NoError(t, td.Insert(context.Background(), pendingRow(t, "1.5", "1.52")))

	l.runOnce(context.Background())

	// actual gas 0.01: refund 1.52 - 1.5 - 0.01 = 0.01, balance 0.49
	assert.Equal(t, ether(t, "0.49").String(), wd.balanceOf(senderWalletId))
	assert.Equal(t, ether(t, "1.5").String(), wd.balanceOf("w-recipient"))

	row := td.mustRow(t, "tx-1")
	assert.Equal(t, constant.TxStatusCompleted, row.Status)
	assert.False(t, row.ReservedWei.Valid, "reservation must be cleared once settled")
	assert.Equal(t, uint64(20000), row.GasUsed)
	assert.Equal(t, uint64(7), row.BlockNumber)
}

func TestRunOnceUnsettledRowAppliesFullSettlement(t *testing.T) {
	node := &stubNode{receiptFn: func() (*evmTypes.Receipt, error) {
		return receiptWithStatus(evmTypes.ReceiptStatusSuccessful), nil
	}}
	l, wd, td := newFixture(node)

	// the coordinator never settled this row: balance is still undebited
	seedSender(t, wd, "2.0")
	require.NoError(t, wd.Insert(context.Background(), &model.Wallets{
		Id:         "w-recipient",
		AccountId:  "acct-2",
		Network:    "holesky",
		Address:    recipientAddr,
		BalanceWei: "0",
	}))
	require.NoError(t, td.Insert(context.Background(), pendingRow(t, "1.5", "")))

	l.runOnce(context.Background())

	// 2.0 - 1.5 - 0.01 = 0.49
	assert.Equal(t, ether(t, "0.49").String(), wd.balanceOf(senderWalletId))
	assert.Equal(t, ether(t, "1.5").String(), wd.balanceOf("w-recipient"))
	assert.Equal(t, constant.TxStatusCompleted, td.mustRow(t, "tx-1").Status)
}

func TestRunOnceUnsettledRevertedChargesGasOnly(t *testing.T) {
	node := &stubNode{receiptFn: func() (*evmTypes.Receipt, error) {
		return receiptWithStatus(evmTypes.ReceiptStatusFailed), nil
	}}
	l, wd, td := newFixture(node)
	seedSender(t, wd, "2.0")
	require.NoError(t, td.Insert(context.Background(), pendingRow(t, "1.5", "")))

	l.runOnce(context.Background())

	assert.Equal(t, ether(t, "1.99").String(), wd.balanceOf(senderWalletId))
	assert.Equal(t, constant.TxStatusFailed, td.mustRow(t, "tx-1").Status)
}

func TestRunOnceUnknownReceiptStaysPending(t *testing.T) {
	node := &stubNode{} // receipt still unknown
	l, wd, td := newFixture(node)
	seedSender(t, wd, "0.48")
	require.NoError(t, td.Insert(context.Background(), pendingRow(t, "1.5", "1.52")))

	l.runOnce(context.Background())

	assert.Equal(t, ether(t, "0.48").String(), wd.balanceOf(senderWalletId))
	row := td.mustRow(t, "tx-1")
	assert.Equal(t, constant.TxStatusPending, row.Status)
	assert.True(t, row.ReservedWei.Valid, "reservation stays until an authoritative receipt")
}

func TestResolveSkipsRowsWithoutHash(t *testing.T) {
	node := &stubNode{receiptFn: func() (*evmTypes.Receipt, error) {
		t.Fatal("must not query the chain for a row that was never broadcast")
		return nil, nil
	}}
	l, wd, td := newFixture(node)
	seedSender(t, wd, "2.0")

	row := pendingRow(t, "1.5", "")
	row.Hash = sql.NullString{}
	require.NoError(t, td.Insert(context.Background(), row))

	l.runOnce(context.Background())

	assert.Equal(t, ether(t, "2.0").String(), wd.balanceOf(senderWalletId))
	assert.Equal(t, constant.TxStatusPending, td.mustRow(t, "tx-1").Status)
}
