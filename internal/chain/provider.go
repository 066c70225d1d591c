package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"custody/internal/config"
	"custody/internal/constant"
	"custody/internal/errs"
	"custody/internal/money"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/zeromicro/go-zero/core/logx"
)

// Backend is the subset of ethclient.Client the provider relies on, kept as
// an interface so tests can substitute a fake node.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *evmTypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error)
	Close()
}

// GasEstimate carries the parameters a send will be built with. Fallback is
// true when the node could not estimate and conservative defaults were used;
// callers surface that as a warning instead of masking it.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *big.Int
	Fallback bool
}

// Cost returns the worst-case gas cost in wei.
func (g *GasEstimate) Cost() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(g.GasLimit), g.GasPrice)
}

// Provider is one probed handle to a network endpoint. Handles are long-lived
// and cached by the Registry, never recreated per call.
type Provider struct {
	NetworkId string
	Conf      config.NetworkConf

	backend      Backend
	pollInterval time.Duration
}

// ChainID returns the configured chain id for transaction signing.
func (p *Provider) ChainID() *big.Int {
	return big.NewInt(p.Conf.ChainId)
}

// BalanceAt fetches the current balance in wei.
func (p *Provider) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := p.backend.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetworkUnavailable, "fetch balance", err)
	}
	return balance, nil
}

// PendingNonceAt fetches the next usable nonce for an address.
func (p *Provider) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	nonce, err := p.backend.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, errs.Wrap(errs.KindNetworkUnavailable, "fetch nonce", err)
	}
	return nonce, nil
}

// EstimateGas queries the node for transfer gas parameters. Estimation
// failure does not abort: the native transfer floor and a flat gas price are
// used instead, with the result marked as a fallback.
func (p *Provider) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int) (*GasEstimate, error) {
	est := &GasEstimate{}

	gasPrice, err := p.backend.SuggestGasPrice(ctx)
	if err != nil {
		logx.WithContext(ctx).Infof("[%s] 获取 gas price 失败，使用默认值 %d gwei: %v",
			p.NetworkId, constant.FallbackGasPriceGwei, err)
		gasPrice = money.GweiToWei(constant.FallbackGasPriceGwei)
		est.Fallback = true
	}
	est.GasPrice = gasPrice

	gasLimit, err := p.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
	})
	if err != nil {
		logx.WithContext(ctx).Infof("[%s] Gas 估算失败，使用默认值: %v", p.NetworkId, err)
		gasLimit = constant.NativeTransferGasLimit
		est.Fallback = true
	}
	if gasLimit < constant.NativeTransferGasLimit {
		gasLimit = constant.NativeTransferGasLimit
	}
	est.GasLimit = gasLimit * constant.GasLimitBufferPercent / 100

	return est, nil
}

// SendTransaction submits a signed transaction. It does not wait for
// inclusion; node-level rejection maps to SubmissionRejected.
func (p *Provider) SendTransaction(ctx context.Context, signedTx *evmTypes.Transaction) error {
	if err := p.backend.SendTransaction(ctx, signedTx); err != nil {
		return errs.Wrap(errs.KindSubmissionRejected, "node rejected transaction", err)
	}
	return nil
}

// WaitForReceipt polls for the transaction receipt until the timeout fires.
// Timeout means the outcome is unknown, not that the transaction failed; the
// returned error carries KindConfirmationTimeout so callers keep the
// transaction pending.
func (p *Provider) WaitForReceipt(ctx context.Context, txHash common.Hash, timeout time.Duration) (*evmTypes.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// First poll is immediate, a fast chain should not cost a full tick.
	for {
		receipt, err := p.backend.TransactionReceipt(waitCtx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			// A slow poll losing the race against the timer must not be
			// reported as a node failure.
			if waitCtx.Err() != nil {
				return nil, errs.Wrap(errs.KindConfirmationTimeout, "confirmation wait timed out", waitCtx.Err())
			}
			return nil, errs.Wrap(errs.KindNetworkUnavailable, "fetch receipt", err)
		}

		select {
		case <-waitCtx.Done():
			return nil, errs.Wrap(errs.KindConfirmationTimeout, "confirmation wait timed out", waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// TransactionReceipt fetches a receipt without waiting. A nil receipt with
// nil error means the transaction is still unknown to the node.
func (p *Provider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error) {
	receipt, err := p.backend.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindNetworkUnavailable, "fetch receipt", err)
	}
	return receipt, nil
}

// Close releases the underlying RPC connection.
func (p *Provider) Close() {
	p.backend.Close()
}
