package transaction

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"custody/internal/errs"
	"custody/internal/model"
	"custody/internal/money"
	"custody/internal/svc"
	"custody/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeromicro/go-zero/core/logx"
)

type TransactionLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewTransactionLogic(ctx context.Context, svcCtx *svc.ServiceContext) *TransactionLogic {
	return &TransactionLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// walletPrivateKey 解析钱包存储的私钥
func (l *TransactionLogic) walletPrivateKey(w *model.Wallets) (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(w.EncryptedPrivateKey, "0x"))
	if err != nil {
		l.Errorf("私钥解析失败 for wallet %s: %v", w.Id, err)
		return nil, errs.New(errs.KindDerivation, "invalid wallet key material")
	}
	return privateKey, nil
}

// BuildExplorerUrl 根据网络配置构建区块浏览器链接
func (l *TransactionLogic) BuildExplorerUrl(network, txHash string) string {
	conf, ok := l.svcCtx.Config.Networks[network]
	if !ok || conf.Explorer == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", strings.TrimSuffix(conf.Explorer, "/"), txHash)
}

// Estimate 独立的 gas 估算操作，供发送前的界面预览使用
func (l *TransactionLogic) Estimate(req *types.EstimateReq) (resp *types.EstimateResp, err error) {
	l.Infof("--- 开始处理 /transaction/estimate 请求, network: %s ---", req.Network)

	if !common.IsHexAddress(req.FromAddress) || !common.IsHexAddress(req.ToAddress) {
		return nil, errs.New(errs.KindInvalidInput, "invalid address")
	}
	amount, err := money.ParseEther(req.Amount)
	if err != nil {
		return nil, err
	}

	provider, err := l.svcCtx.Chains.Get(l.ctx, req.Network)
	if err != nil {
		return nil, err
	}

	est, err := provider.EstimateGas(l.ctx,
		common.HexToAddress(req.FromAddress), common.HexToAddress(req.ToAddress), amount)
	if err != nil {
		return nil, err
	}

	message := "Gas estimated successfully"
	if est.Fallback {
		message = "Gas estimation unavailable, conservative defaults applied"
	}

	l.Infof("Gas 估算结果: gasLimit=%d, gasPrice=%s, fallback=%v", est.GasLimit, est.GasPrice, est.Fallback)
	return &types.EstimateResp{
		GasEstimate: money.FormatEther(est.Cost()),
		GasLimit:    fmt.Sprintf("%d", est.GasLimit),
		GasPrice:    est.GasPrice.String(),
		Fallback:    est.Fallback,
		Message:     message,
	}, nil
}

// Get 查询单笔交易的当前状态，pending 交易的查询入口
func (l *TransactionLogic) Get(req *types.TransactionGetReq) (resp *types.TransactionResp, err error) {
	if req.Id == "" {
		return nil, errs.New(errs.KindInvalidInput, "id is required")
	}

	tx, err := l.svcCtx.TransactionsDao.FindOneById(l.ctx, req.Id)
	if err != nil {
		return nil, errs.New(errs.KindNotFound, "transaction not found")
	}
	return l.toTransactionResp(tx), nil
}

// List 返回地址相关的交易历史
func (l *TransactionLogic) List(req *types.TransactionListReq) (resp *types.TransactionListResp, err error) {
	if !common.IsHexAddress(req.Address) {
		return nil, errs.New(errs.KindInvalidInput, "invalid address")
	}

	txs, err := l.svcCtx.TransactionsDao.FindAllByAddress(l.ctx, req.Address)
	if err != nil {
		l.Errorf("查询交易历史失败: %v", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	resp = &types.TransactionListResp{Transactions: make([]types.TransactionResp, 0, len(txs))}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, *l.toTransactionResp(tx))
	}
	return resp, nil
}

func (l *TransactionLogic) toTransactionResp(tx *model.Transactions) *types.TransactionResp {
	amount, err := money.ParseWei(tx.AmountWei)
	display := "0"
	if err == nil {
		display = money.FormatEther(amount)
	}
	resp := &types.TransactionResp{
		Id:          tx.Id,
		Hash:        tx.Hash.String,
		FromAddress: tx.FromAddress,
		ToAddress:   tx.ToAddress,
		Amount:      display,
		Network:     tx.Network,
		Status:      tx.Status,
		Timestamp:   tx.Timestamp.Format(time.RFC3339),
		GasUsed:     tx.GasUsed,
		BlockNumber: tx.BlockNumber,
	}
	if tx.Hash.Valid {
		resp.ExplorerUrl = l.BuildExplorerUrl(tx.Network, tx.Hash.String)
	}
	return resp
}
