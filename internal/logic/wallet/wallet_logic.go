package wallet

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"custody/internal/errs"
	"custody/internal/hdwallet"
	"custody/internal/middleware"
	"custody/internal/model"
	"custody/internal/money"
	"custody/internal/svc"
	"custody/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
)

type WalletLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewWalletLogic(ctx context.Context, svcCtx *svc.ServiceContext) *WalletLogic {
	return &WalletLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// Create 在账户助记词下派生下一个索引的钱包
func (l *WalletLogic) Create(req *types.WalletCreateReq) (resp *types.WalletResp, err error) {
	l.Infof("--- 开始处理 /wallet/create 请求, account: %s, network: %s ---", req.AccountId, req.Network)

	if _, ok := l.svcCtx.Config.Networks[req.Network]; !ok {
		return nil, errs.Newf(errs.KindInvalidInput, "network %s not supported", req.Network)
	}

	account, err := l.svcCtx.AccountsDao.FindOneById(l.ctx, req.AccountId)
	if err != nil {
		l.Errorf("查询账户失败: %v", err)
		return nil, errs.New(errs.KindNotFound, "account not found")
	}
	if account.UserId != middleware.UserIdFromCtx(l.ctx) {
		return nil, errs.New(errs.KindNotFound, "account not found")
	}

	kp, err := hdwallet.AccountFromMnemonic(account.Mnemonic, uint32(account.NextIndex))
	if err != nil {
		l.Errorf("钱包密钥派生失败: %v", err)
		return nil, err
	}

	newWallet := &model.Wallets{
		Id:                  uuid.NewString(),
		AccountId:           account.Id,
		Name:                req.Name,
		Network:             req.Network,
		Address:             kp.Address.Hex(),
		EncryptedPrivateKey: kp.PrivateKeyHex(),
		DerivationPath:      sql.NullString{String: kp.Path, Valid: true},
		BalanceWei:          "0",
	}
	if err := l.svcCtx.WalletsDao.Insert(l.ctx, newWallet); err != nil {
		l.Errorf("钱包入库失败: %v", err)
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	// kp.Index 可能因无效子键被跳过而大于请求值，游标按实际使用值推进
	if err := l.svcCtx.AccountsDao.UpdateNextIndex(l.ctx, account.Id, int64(kp.Index)+1); err != nil {
		l.Errorf("派生游标更新失败: %v", err)
		return nil, fmt.Errorf("failed to advance derivation index: %w", err)
	}

	l.Infof("--- /wallet/create 请求处理完成, address: %s, path: %s ---", newWallet.Address, kp.Path)
	return toWalletResp(newWallet), nil
}

// Import 通过裸私钥导入钱包
func (l *WalletLogic) Import(req *types.WalletImportReq) (resp *types.WalletResp, err error) {
	l.Infof("--- 开始处理 /wallet/import 请求, account: %s ---", req.AccountId)

	if _, ok := l.svcCtx.Config.Networks[req.Network]; !ok {
		return nil, errs.Newf(errs.KindInvalidInput, "network %s not supported", req.Network)
	}
	account, err := l.svcCtx.AccountsDao.FindOneById(l.ctx, req.AccountId)
	if err != nil {
		return nil, errs.New(errs.KindNotFound, "account not found")
	}
	if account.UserId != middleware.UserIdFromCtx(l.ctx) {
		return nil, errs.New(errs.KindNotFound, "account not found")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(req.PrivateKey, "0x"))
	if err != nil {
		l.Errorf("私钥解析失败: %v", err)
		return nil, errs.New(errs.KindInvalidInput, "invalid private key")
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey).Hex()

	if existing, findErr := l.svcCtx.WalletsDao.FindOneByAddress(l.ctx, address); findErr == nil && existing != nil {
		l.Infof("地址 %s 已存在，拒绝重复导入", address)
		return nil, errs.Newf(errs.KindDuplicate, "wallet %s already imported", address)
	}

	newWallet := &model.Wallets{
		Id:                  uuid.NewString(),
		AccountId:           req.AccountId,
		Name:                req.Name,
		Network:             req.Network,
		Address:             address,
		EncryptedPrivateKey: hex.EncodeToString(crypto.FromECDSA(privateKey)),
		BalanceWei:          "0",
	}
	if err := l.svcCtx.WalletsDao.Insert(l.ctx, newWallet); err != nil {
		l.Errorf("钱包入库失败: %v", err)
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	l.Infof("--- /wallet/import 请求处理完成, address: %s ---", address)
	return toWalletResp(newWallet), nil
}

// List 返回账户下的全部钱包
func (l *WalletLogic) List(req *types.WalletListReq) (resp *types.WalletListResp, err error) {
	if req.AccountId == "" {
		return nil, errs.New(errs.KindInvalidInput, "account_id is required")
	}

	wallets, err := l.svcCtx.WalletsDao.FindAllByAccountId(l.ctx, req.AccountId)
	if err != nil {
		l.Errorf("查询钱包列表失败: %v", err)
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	resp = &types.WalletListResp{Wallets: make([]types.WalletResp, 0, len(wallets))}
	for _, w := range wallets {
		resp.Wallets = append(resp.Wallets, *toWalletResp(w))
	}
	return resp, nil
}

// RefreshBalance 从链上拉取权威余额并回写本地账本；
// 网络不可用时回退到缓存值并标记 stale，而不是报错
func (l *WalletLogic) RefreshBalance(req *types.WalletBalanceReq) (resp *types.WalletBalanceResp, err error) {
	l.Infof("--- 开始处理 /wallet/balance 请求, address: %s, network: %s ---", req.Address, req.Network)

	wallet, err := l.svcCtx.WalletsDao.FindOneByAddress(l.ctx, req.Address)
	if err != nil {
		return nil, errs.New(errs.KindNotFound, "wallet not found")
	}
	// 跨链刷新会把错误链的余额写进账本
	if wallet.Network != req.Network {
		return nil, errs.Newf(errs.KindInvalidInput, "wallet is tracked on network %s, not %s", wallet.Network, req.Network)
	}

	cached, err := money.ParseWei(wallet.BalanceWei)
	if err != nil {
		return nil, err
	}

	provider, err := l.svcCtx.Chains.Get(l.ctx, req.Network)
	if err != nil {
		if errs.Is(err, errs.KindInvalidInput) {
			return nil, err
		}
		l.Infof("网络 %s 不可用，返回缓存余额: %v", req.Network, err)
		return &types.WalletBalanceResp{Balance: money.FormatEther(cached), Stale: true}, nil
	}

	balance, err := provider.BalanceAt(l.ctx, common.HexToAddress(req.Address))
	if err != nil {
		l.Errorf("余额查询失败，驱逐连接并返回缓存余额: %v", err)
		l.svcCtx.Chains.Evict(req.Network)
		return &types.WalletBalanceResp{Balance: money.FormatEther(cached), Stale: true}, nil
	}

	if err := l.svcCtx.WalletsDao.UpdateBalance(l.ctx, wallet.Id, balance.String()); err != nil {
		l.Errorf("余额回写失败: %v", err)
		return nil, fmt.Errorf("failed to persist balance: %w", err)
	}

	l.Infof("--- /wallet/balance 请求处理完成, balance: %s wei ---", balance.String())
	return &types.WalletBalanceResp{Balance: money.FormatEther(balance)}, nil
}

func toWalletResp(w *model.Wallets) *types.WalletResp {
	balance, err := money.ParseWei(w.BalanceWei)
	display := "0"
	if err == nil {
		display = money.FormatEther(balance)
	}
	return &types.WalletResp{
		Id:             w.Id,
		AccountId:      w.AccountId,
		Name:           w.Name,
		Network:        w.Network,
		Address:        w.Address,
		DerivationPath: w.DerivationPath.String,
		Balance:        display,
		CreatedAt:      w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      w.UpdatedAt.Format(time.RFC3339),
	}
}
