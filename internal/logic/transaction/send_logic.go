package transaction

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"custody/internal/constant"
	"custody/internal/errs"
	"custody/internal/model"
	"custody/internal/money"
	"custody/internal/types"

	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// Send 处理一次原生币转账：校验 → 估算 → 签名提交 → 等待确认 → 结算本地账本。
// 整个流程持有发送钱包的互斥锁，同一钱包的并发请求串行执行
func (l *TransactionLogic) Send(req *types.SendReq) (resp *types.SendResp, err error) {
	l.Infof("--- 开始处理 /transaction/send 请求 for wallet %s ---", req.FromWalletId)

	// 1. Validating：校验失败直接终止，不产生任何副作用
	if !common.IsHexAddress(req.ToAddress) {
		return nil, errs.New(errs.KindInvalidInput, "invalid recipient address")
	}
	amount, err := money.ParseEther(req.Amount)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, errs.New(errs.KindInvalidInput, "amount must be positive")
	}

	// 余额读改写是临界区，锁从校验一直持有到终态落库
	unlock := l.svcCtx.WalletLocks.Lock(req.FromWalletId)
	defer unlock()

	wallet, err := l.svcCtx.WalletsDao.FindOneById(l.ctx, req.FromWalletId)
	if err != nil {
		return nil, errs.New(errs.KindNotFound, "sender wallet not found")
	}
	if wallet.AccountId != req.AccountId {
		return nil, errs.New(errs.KindNotFound, "sender wallet not found")
	}

	// 本地账本余额是校验的 source of truth
	balance, err := money.ParseWei(wallet.BalanceWei)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		l.Infof("余额不足: balance=%s wei, amount=%s wei", balance, amount)
		return nil, errs.New(errs.KindInsufficientBalance, "insufficient balance")
	}

	provider, err := l.svcCtx.Chains.Get(l.ctx, wallet.Network)
	if err != nil {
		return nil, err
	}

	// 2. Estimating：估算失败不中断发送，回退参数会被标记为 fallback
	fromAddr := common.HexToAddress(wallet.Address)
	toAddr := common.HexToAddress(req.ToAddress)
	est, err := provider.EstimateGas(l.ctx, fromAddr, toAddr, amount)
	if err != nil {
		return nil, err
	}
	if est.Fallback {
		l.Infof("⚠️ Gas 估算使用了回退参数: gasLimit=%d, gasPrice=%s", est.GasLimit, est.GasPrice)
	}

	// 3. Submitting：私钥只在本进程内使用，拒绝即终止且不动余额
	privateKey, err := l.walletPrivateKey(wallet)
	if err != nil {
		return nil, err
	}
	nonce, err := provider.PendingNonceAt(l.ctx, fromAddr)
	if err != nil {
		return nil, err
	}

	tx := evmTypes.NewTx(&evmTypes.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    amount,
		Gas:      est.GasLimit,
		GasPrice: est.GasPrice,
		Data:     nil,
	})
	signedTx, err := evmTypes.SignTx(tx, evmTypes.NewEIP155Signer(provider.ChainID()), privateKey)
	if err != nil {
		l.Errorf("交易签名失败: %v", err)
		return nil, errs.Wrap(errs.KindDerivation, "failed to sign transaction", err)
	}

	if err := provider.SendTransaction(l.ctx, signedTx); err != nil {
		l.Errorf("交易提交被拒绝: %v", err)
		return nil, err
	}
	txHash := signedTx.Hash()
	l.Infof("交易已提交, TxHash: %s", txHash.Hex())

	// 广播之后不可撤销，落库、确认等待和结算全部脱离请求 context：
	// 客户端断开只影响响应投递，服务端照常把结局持久化
	dctx := context.WithoutCancel(l.ctx)

	// 先落库为 pending：客户端断开也不能丢掉这笔在途交易
	txRow := &model.Transactions{
		Id:           uuid.NewString(),
		FromWalletId: wallet.Id,
		FromAddress:  wallet.Address,
		ToAddress:    req.ToAddress,
		Network:      wallet.Network,
		AmountWei:    amount.String(),
		GasLimit:     est.GasLimit,
		GasPriceWei:  est.GasPrice.String(),
		Status:       constant.TxStatusPending,
		Hash:         sql.NullString{String: txHash.Hex(), Valid: true},
		Timestamp:    time.Now().UTC(),
	}
	if err := l.svcCtx.TransactionsDao.Insert(dctx, txRow); err != nil {
		l.Errorf("交易记录入库失败: %v", err)
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	// 4. AwaitingConfirmation：等待与定时器赛跑
	receipt, waitErr := provider.WaitForReceipt(dctx, txHash, l.confirmWait())

	switch {
	case waitErr == nil && receipt.Status == evmTypes.ReceiptStatusSuccessful:
		return l.settleCompleted(dctx, wallet, txRow, balance, amount, est.GasPrice, receipt)

	case waitErr == nil:
		return nil, l.settleReverted(dctx, wallet, txRow, balance, est.GasPrice, receipt)

	default:
		// 超时或等待期间网络异常：结局未知不等于失败，交易保持 pending
		if !errs.Is(waitErr, errs.KindConfirmationTimeout) {
			l.Errorf("确认等待异常，按结局未知处理: %v", waitErr)
		}
		return l.settlePendingTimeout(dctx, wallet, txRow, balance, amount, est.Cost())
	}
}

// confirmWait 确认等待窗口，可配置，默认 60s
func (l *TransactionLogic) confirmWait() time.Duration {
	if s := l.svcCtx.Config.Confirm.TimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return constant.ConfirmTimeout
}

// settleCompleted 扣除 amount+gasCost，本地有收款钱包则入账
func (l *TransactionLogic) settleCompleted(ctx context.Context, wallet *model.Wallets, txRow *model.Transactions,
	balance, amount, gasPrice *big.Int, receipt *evmTypes.Receipt) (*types.SendResp, error) {

	gasCost := receiptGasCost(receipt, gasPrice)
	newBalance := SettleCompleted(balance, amount, gasCost)
	if err := l.svcCtx.WalletsDao.UpdateBalance(ctx, wallet.Id, newBalance.String()); err != nil {
		return nil, fmt.Errorf("failed to persist sender balance: %w", err)
	}
	l.creditLocalRecipient(ctx, txRow.ToAddress, amount)

	txRow.Status = constant.TxStatusCompleted
	txRow.GasUsed = receipt.GasUsed
	txRow.BlockNumber = receipt.BlockNumber.Uint64()
	if err := l.svcCtx.TransactionsDao.Update(ctx, txRow); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	l.Infof("--- /transaction/send 完成: Completed, gasCost=%s wei, balance=%s wei ---", gasCost, newBalance)
	return &types.SendResp{
		Transaction: *l.toTransactionResp(txRow),
		Balance:     money.FormatEther(newBalance),
		Message:     "✅ 转账已确认上链",
	}, nil
}

// settleReverted 交易回滚：转账没有发生，但 gas 已经消耗
func (l *TransactionLogic) settleReverted(ctx context.Context, wallet *model.Wallets, txRow *model.Transactions,
	balance, gasPrice *big.Int, receipt *evmTypes.Receipt) error {

	gasCost := receiptGasCost(receipt, gasPrice)
	newBalance := SettleReverted(balance, gasCost)
	if err := l.svcCtx.WalletsDao.UpdateBalance(ctx, wallet.Id, newBalance.String()); err != nil {
		return fmt.Errorf("failed to persist sender balance: %w", err)
	}

	txRow.Status = constant.TxStatusFailed
	txRow.GasUsed = receipt.GasUsed
	txRow.BlockNumber = receipt.BlockNumber.Uint64()
	if err := l.svcCtx.TransactionsDao.Update(ctx, txRow); err != nil {
		return fmt.Errorf("failed to persist transaction: %w", err)
	}

	l.Infof("--- /transaction/send 完成: Reverted, gasCost=%s wei ---", gasCost)
	return errs.Newf(errs.KindReverted, "transaction %s reverted on chain", txRow.Hash.String)
}

// settlePendingTimeout 超时未见回执：按 amount+estimatedGas 预留，防止双花；
// 后台对账轮询拿到权威回执后再结算差额
func (l *TransactionLogic) settlePendingTimeout(ctx context.Context, wallet *model.Wallets, txRow *model.Transactions,
	balance, amount, estimatedGas *big.Int) (*types.SendResp, error) {

	reserved := PendingReservation(amount, estimatedGas)
	newBalance := SettlePending(balance, amount, estimatedGas)
	if err := l.svcCtx.WalletsDao.UpdateBalance(ctx, wallet.Id, newBalance.String()); err != nil {
		return nil, fmt.Errorf("failed to persist sender balance: %w", err)
	}

	txRow.ReservedWei = sql.NullString{String: reserved.String(), Valid: true}
	if err := l.svcCtx.TransactionsDao.Update(ctx, txRow); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	l.Infof("--- /transaction/send 完成: Pending, reserved=%s wei ---", reserved)
	return &types.SendResp{
		Transaction: *l.toTransactionResp(txRow),
		Balance:     money.FormatEther(newBalance),
		Message:     "⏳ 交易已提交但尚未确认，请稍后通过交易历史查询最终状态",
	}, nil
}

// creditLocalRecipient 收款方也在本地账本时给它入账。入账走数据库侧
// 原子自增而不是读改写：收款钱包可能正持有自己的锁在结算一笔发送，
// 覆盖式写入会丢掉那次扣款
func (l *TransactionLogic) creditLocalRecipient(ctx context.Context, toAddress string, amount *big.Int) {
	recipient, err := l.svcCtx.WalletsDao.FindOneByAddress(ctx, toAddress)
	if err != nil {
		return
	}
	if err := l.svcCtx.WalletsDao.IncrementBalance(ctx, recipient.Id, amount.String()); err != nil {
		l.Errorf("收款钱包入账失败: %v", err)
	}
}

// receiptGasCost 优先使用回执内的实际成交 gas 价格
func receiptGasCost(receipt *evmTypes.Receipt, gasPrice *big.Int) *big.Int {
	price := gasPrice
	if receipt.EffectiveGasPrice != nil {
		price = receipt.EffectiveGasPrice
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), price)
}
