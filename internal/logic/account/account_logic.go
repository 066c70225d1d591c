package account

import (
	"context"
	"fmt"

	"custody/internal/errs"
	"custody/internal/hdwallet"
	"custody/internal/middleware"
	"custody/internal/model"
	"custody/internal/svc"
	"custody/internal/types"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
)

type AccountLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewAccountLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AccountLogic {
	return &AccountLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// Create 生成新助记词并派生 index 0 的账户密钥
func (l *AccountLogic) Create(req *types.AccountCreateReq) (resp *types.AccountResp, err error) {
	l.Infof("--- 开始处理 /account/create 请求, name: %s ---", req.Name)

	userId := middleware.UserIdFromCtx(l.ctx)
	if userId == "" {
		return nil, errs.New(errs.KindUnauthorized, "not authenticated")
	}

	mnemonic, err := hdwallet.GenerateMnemonic()
	if err != nil {
		l.Errorf("助记词生成失败: %v", err)
		return nil, err
	}

	kp, err := hdwallet.AccountFromMnemonic(mnemonic, 0)
	if err != nil {
		l.Errorf("账户密钥派生失败: %v", err)
		return nil, err
	}

	// !!! 警告: 在生产环境中，助记词和私钥在存入数据库前必须经过强加密 !!!
	newAccount := &model.Accounts{
		Id:                  uuid.NewString(),
		UserId:              userId,
		Name:                req.Name,
		Address:             kp.Address.Hex(),
		EncryptedPrivateKey: kp.PrivateKeyHex(),
		Mnemonic:            mnemonic,
		NextIndex:           1,
	}
	if err := l.svcCtx.AccountsDao.Insert(l.ctx, newAccount); err != nil {
		l.Errorf("账户入库失败: %v", err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	l.Infof("--- /account/create 请求处理完成, address: %s ---", newAccount.Address)
	// 助记词只在创建时返回一次，供用户备份
	return &types.AccountResp{
		Id:       newAccount.Id,
		Name:     newAccount.Name,
		Address:  newAccount.Address,
		Mnemonic: mnemonic,
	}, nil
}

// Import 从已有助记词恢复账户。派生是确定性的：同一短语必然得到同一地址，
// 因此重复导入按地址去重并拒绝
func (l *AccountLogic) Import(req *types.AccountImportReq) (resp *types.AccountResp, err error) {
	l.Infof("--- 开始处理 /account/import 请求 ---")

	userId := middleware.UserIdFromCtx(l.ctx)
	if userId == "" {
		return nil, errs.New(errs.KindUnauthorized, "not authenticated")
	}

	kp, err := hdwallet.AccountFromMnemonic(req.Mnemonic, 0)
	if err != nil {
		l.Errorf("助记词校验失败: %v", err)
		return nil, err
	}

	address := kp.Address.Hex()
	if existing, findErr := l.svcCtx.AccountsDao.FindOneByAddress(l.ctx, address); findErr == nil && existing != nil {
		l.Infof("地址 %s 已存在，拒绝重复导入", address)
		return nil, errs.Newf(errs.KindDuplicate, "account %s already imported", address)
	}

	newAccount := &model.Accounts{
		Id:                  uuid.NewString(),
		UserId:              userId,
		Name:                fmt.Sprintf("Account %s...%s", address[:6], address[len(address)-4:]),
		Address:             address,
		EncryptedPrivateKey: kp.PrivateKeyHex(),
		Mnemonic:            req.Mnemonic,
		NextIndex:           1,
	}
	if err := l.svcCtx.AccountsDao.Insert(l.ctx, newAccount); err != nil {
		l.Errorf("账户入库失败: %v", err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	l.Infof("--- /account/import 请求处理完成, address: %s ---", address)
	return &types.AccountResp{
		Id:      newAccount.Id,
		Name:    newAccount.Name,
		Address: newAccount.Address,
	}, nil
}

// List 返回当前用户的全部账户。助记词和私钥永远不出现在列表里
func (l *AccountLogic) List() (resp *types.AccountListResp, err error) {
	userId := middleware.UserIdFromCtx(l.ctx)
	if userId == "" {
		return nil, errs.New(errs.KindUnauthorized, "not authenticated")
	}

	accounts, err := l.svcCtx.AccountsDao.FindAllByUserId(l.ctx, userId)
	if err != nil {
		l.Errorf("查询账户列表失败: %v", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	resp = &types.AccountListResp{Accounts: make([]types.AccountResp, 0, len(accounts))}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, types.AccountResp{
			Id:      a.Id,
			Name:    a.Name,
			Address: a.Address,
		})
	}
	return resp, nil
}
