package reconcile

import (
	"context"
	"database/sql"
	"math/big"
	"time"

	"custody/internal/constant"
	"custody/internal/logic/transaction"
	"custody/internal/model"
	"custody/internal/money"
	"custody/internal/svc"

	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/zeromicro/go-zero/core/logx"
)

// ReconcileLogic resolves transactions left pending after the coordinator
// lost sight of them. Two shapes exist: rows with ReservedWei, where the
// coordinator held amount+estimatedGas at timeout and only the difference to
// the actual outcome is settled; and rows without a reservation, where the
// coordinator never settled at all (crash or interruption mid-wait) and the
// full completed/reverted settlement is applied. Rows whose receipt is still
// unknown stay pending.
type ReconcileLogic struct {
	svcCtx      *svc.ServiceContext
	interval    time.Duration
	confirmWait time.Duration
	logx.Logger
}

func NewReconcileLogic(svcCtx *svc.ServiceContext) *ReconcileLogic {
	interval := time.Duration(svcCtx.Config.Reconcile.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	confirmWait := time.Duration(svcCtx.Config.Confirm.TimeoutSeconds) * time.Second
	if confirmWait <= 0 {
		confirmWait = constant.ConfirmTimeout
	}
	return &ReconcileLogic{
		svcCtx:      svcCtx,
		interval:    interval,
		confirmWait: confirmWait,
		Logger:      logx.WithContext(context.Background()),
	}
}

// Start runs the polling loop until ctx is cancelled.
func (l *ReconcileLogic) Start(ctx context.Context) {
	l.Infof("对账轮询已启动, 周期 %s", l.interval)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Infof("对账轮询已停止")
			return
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}

func (l *ReconcileLogic) runOnce(ctx context.Context) {
	// 只处理早于确认窗口的行，避免碰到协调器仍在等待的在途交易
	cutoff := time.Now().UTC().Add(-l.confirmWait)
	pending, err := l.svcCtx.TransactionsDao.FindPendingBefore(ctx, cutoff)
	if err != nil {
		l.Errorf("查询 pending 交易失败: %v", err)
		return
	}

	for _, tx := range pending {
		if err := l.resolve(ctx, tx); err != nil {
			l.Errorf("交易 %s 对账失败: %v", tx.Id, err)
		}
	}
}

// resolve fetches the receipt for one pending row and settles it.
func (l *ReconcileLogic) resolve(ctx context.Context, tx *model.Transactions) error {
	// 没有哈希的行从未广播成功，不是链上能回答的问题
	if !tx.Hash.Valid {
		return nil
	}

	provider, err := l.svcCtx.Chains.Get(ctx, tx.Network)
	if err != nil {
		return err
	}
	receipt, err := provider.TransactionReceipt(ctx, common.HexToHash(tx.Hash.String))
	if err != nil {
		return err
	}
	if receipt == nil {
		// 结局仍然未知，保持 pending
		return nil
	}

	unlock := l.svcCtx.WalletLocks.Lock(tx.FromWalletId)
	defer unlock()

	wallet, err := l.svcCtx.WalletsDao.FindOneById(ctx, tx.FromWalletId)
	if err != nil {
		return err
	}
	balance, err := money.ParseWei(wallet.BalanceWei)
	if err != nil {
		return err
	}
	amount, err := money.ParseWei(tx.AmountWei)
	if err != nil {
		return err
	}
	gasCost, err := l.actualGasCost(tx, receipt)
	if err != nil {
		return err
	}

	completed := receipt.Status == evmTypes.ReceiptStatusSuccessful

	var newBalance *big.Int
	if tx.ReservedWei.Valid {
		// 超时预留过 amount+estimatedGas，只结算与实际结局的差额
		reserved, err := money.ParseWei(tx.ReservedWei.String)
		if err != nil {
			return err
		}
		var refund *big.Int
		if completed {
			refund = transaction.ReconcileCompleted(reserved, amount, gasCost)
		} else {
			refund = transaction.ReconcileReverted(reserved, gasCost)
		}
		newBalance = new(big.Int).Add(balance, refund)
	} else {
		// 协调器从未结算过这行（等待途中被中断），按终态全额结算
		if completed {
			newBalance = transaction.SettleCompleted(balance, amount, gasCost)
		} else {
			newBalance = transaction.SettleReverted(balance, gasCost)
		}
	}

	if completed {
		tx.Status = constant.TxStatusCompleted
		l.creditLocalRecipient(ctx, tx.ToAddress, amount)
	} else {
		tx.Status = constant.TxStatusFailed
	}

	if err := l.svcCtx.WalletsDao.UpdateBalance(ctx, wallet.Id, newBalance.String()); err != nil {
		return err
	}

	tx.ReservedWei = sql.NullString{}
	tx.GasUsed = receipt.GasUsed
	tx.BlockNumber = receipt.BlockNumber.Uint64()
	if err := l.svcCtx.TransactionsDao.Update(ctx, tx); err != nil {
		return err
	}

	l.Infof("交易 %s 对账完成: %s, balance=%s wei", tx.Id, tx.Status, newBalance)
	return nil
}

// actualGasCost 以回执内的实际成交价为准，缺失时退回提交时的 gas price
func (l *ReconcileLogic) actualGasCost(tx *model.Transactions, receipt *evmTypes.Receipt) (*big.Int, error) {
	price := receipt.EffectiveGasPrice
	if price == nil {
		var err error
		price, err = money.ParseWei(tx.GasPriceWei)
		if err != nil {
			return nil, err
		}
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), price), nil
}

// creditLocalRecipient 入账走数据库侧原子自增，不抢收款钱包的锁
func (l *ReconcileLogic) creditLocalRecipient(ctx context.Context, toAddress string, amount *big.Int) {
	recipient, err := l.svcCtx.WalletsDao.FindOneByAddress(ctx, toAddress)
	if err != nil {
		return
	}
	if err := l.svcCtx.WalletsDao.IncrementBalance(ctx, recipient.Id, amount.String()); err != nil {
		l.Errorf("收款钱包入账失败: %v", err)
	}
}
