package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"custody/internal/config"
	"custody/internal/constant"
	"custody/internal/errs"
	"custody/internal/money"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a scriptable node substitute. Unset hooks return zero values.
type fakeBackend struct {
	chainIdFn     func(ctx context.Context) (*big.Int, error)
	blockNumberFn func(ctx context.Context) (uint64, error)
	balanceFn     func(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	gasPriceFn    func(ctx context.Context) (*big.Int, error)
	nonceFn       func(ctx context.Context, account common.Address) (uint64, error)
	estimateFn    func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	sendFn        func(ctx context.Context, tx *evmTypes.Transaction) error
	receiptFn     func(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error)
	closed        bool
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	if f.chainIdFn != nil {
		return f.chainIdFn(ctx)
	}
	return big.NewInt(17000), nil
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	if f.blockNumberFn != nil {
		return f.blockNumberFn(ctx)
	}
	return 1, nil
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if f.balanceFn != nil {
		return f.balanceFn(ctx, account, blockNumber)
	}
	return big.NewInt(0), nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if f.gasPriceFn != nil {
		return f.gasPriceFn(ctx)
	}
	return money.GweiToWei(2), nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if f.nonceFn != nil {
		return f.nonceFn(ctx, account)
	}
	return 0, nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if f.estimateFn != nil {
		return f.estimateFn(ctx, msg)
	}
	return constant.NativeTransferGasLimit, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *evmTypes.Transaction) error {
	if f.sendFn != nil {
		return f.sendFn(ctx, tx)
	}
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error) {
	if f.receiptFn != nil {
		return f.receiptFn(ctx, txHash)
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) Close() { f.closed = true }

func newTestProvider(backend Backend) *Provider {
	return &Provider{
		NetworkId: "holesky",
		Conf: config.NetworkConf{
			Name:    "Holesky",
			RpcUrl:  "http://127.0.0.1:8545",
			ChainId: 17000,
			Symbol:  "ETH",
			Testnet: true,
		},
		backend:      backend,
		pollInterval: 2 * time.Millisecond,
	}
}

var (
	testFrom = common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
	testTo   = common.HexToAddress("0x6Fac4D18c912343BF86fa7049364Dd4E424Ab9C0")
)

func TestEstimateGasFromNode(t *testing.T) {
	p := newTestProvider(&fakeBackend{
		gasPriceFn: func(ctx context.Context) (*big.Int, error) {
			return money.GweiToWei(3), nil
		},
		estimateFn: func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
			return 21000, nil
		},
	})

	est, err := p.EstimateGas(context.Background(), testFrom, testTo, big.NewInt(1))
	require.NoError(t, err)

	assert.False(t, est.Fallback)
	assert.Equal(t, uint64(23100), est.GasLimit, "buffer applied on top of the node estimate")
	assert.Equal(t, money.GweiToWei(3), est.GasPrice)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(23100), money.GweiToWei(3)), est.Cost())
}

func TestEstimateGasFallback(t *testing.T) {
	p := newTestProvider(&fakeBackend{
		gasPriceFn: func(ctx context.Context) (*big.Int, error) {
			return nil, errors.New("node down")
		},
		estimateFn: func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
			return 0, errors.New("node down")
		},
	})

	est, err := p.EstimateGas(context.Background(), testFrom, testTo, big.NewInt(1))
	require.NoError(t, err, "estimation failure must not abort the send")

	assert.True(t, est.Fallback, "defaults in use must be flagged")
	assert.Equal(t, uint64(constant.NativeTransferGasLimit*constant.GasLimitBufferPercent/100), est.GasLimit)
	assert.Equal(t, money.GweiToWei(constant.FallbackGasPriceGwei), est.GasPrice)
}

func TestEstimateGasFloorsAtNativeTransfer(t *testing.T) {
	p := newTestProvider(&fakeBackend{
		estimateFn: func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
			return 100, nil // nonsense below the intrinsic cost
		},
	})

	est, err := p.EstimateGas(context.Background(), testFrom, testTo, big.NewInt(1))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, est.GasLimit, uint64(constant.NativeTransferGasLimit))
}

func TestWaitForReceiptEventuallyFound(t *testing.T) {
	receipt := &evmTypes.Receipt{
		Status:      evmTypes.ReceiptStatusSuccessful,
		GasUsed:     21000,
		BlockNumber: big.NewInt(42),
	}

	polls := 0
	p := newTestProvider(&fakeBackend{
		receiptFn: func(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error) {
			polls++
			if polls < 3 {
				return nil, ethereum.NotFound
			}
			return receipt, nil
		},
	})

	got, err := p.WaitForReceipt(context.Background(), common.Hash{0x01}, time.Second)
	require.NoError(t, err)
	assert.Same(t, receipt, got)
	assert.Equal(t, 3, polls, "NotFound must be retried, not surfaced")
}

func TestWaitForReceiptTimeout(t *testing.T) {
	p := newTestProvider(&fakeBackend{}) // receipt never appears

	_, err := p.WaitForReceipt(context.Background(), common.Hash{0x01}, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfirmationTimeout),
		"timeout is an unknown outcome, not a failure: %v", err)
}

func TestWaitForReceiptNodeFailure(t *testing.T) {
	p := newTestProvider(&fakeBackend{
		receiptFn: func(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error) {
			return nil, errors.New("connection refused")
		},
	})

	_, err := p.WaitForReceipt(context.Background(), common.Hash{0x01}, time.Second)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNetworkUnavailable))
}

func TestTransactionReceiptNotFoundIsNil(t *testing.T) {
	p := newTestProvider(&fakeBackend{})

	receipt, err := p.TransactionReceipt(context.Background(), common.Hash{0x01})
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestBalanceAtMapsNodeFailure(t *testing.T) {
	p := newTestProvider(&fakeBackend{
		balanceFn: func(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
			return nil, errors.New("connection refused")
		},
	})

	_, err := p.BalanceAt(context.Background(), testFrom)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNetworkUnavailable))
}

func TestSendTransactionMapsRejection(t *testing.T) {
	p := newTestProvider(&fakeBackend{
		sendFn: func(ctx context.Context, tx *evmTypes.Transaction) error {
			return errors.New("nonce too low")
		},
	})

	err := p.SendTransaction(context.Background(), evmTypes.NewTx(&evmTypes.LegacyTx{}))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSubmissionRejected))
}
