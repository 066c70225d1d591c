package handler

import (
	"net/http"
	"time"

	"custody/internal/middleware"
	"custody/internal/svc"

	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	authMiddleware := middleware.NewAuthMiddleware(serverCtx.Config.Auth.Secret)

	server.AddRoutes(
		rest.WithMiddlewares(
			[]rest.Middleware{authMiddleware.Handle},
			[]rest.Route{
				// --- Account Routes ---
				{
					Method:  http.MethodPost,
					Path:    "/account/create",
					Handler: AccountCreateHandler(serverCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/account/import",
					Handler: AccountImportHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/account/list",
					Handler: AccountListHandler(serverCtx),
				},
				// --- Wallet Routes ---
				{
					Method:  http.MethodPost,
					Path:    "/wallet/create",
					Handler: WalletCreateHandler(serverCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/wallet/import",
					Handler: WalletImportHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/wallet/list",
					Handler: WalletListHandler(serverCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/wallet/balance",
					Handler: WalletBalanceHandler(serverCtx),
				},
				// --- Transaction Routes ---
				{
					Method:  http.MethodPost,
					Path:    "/transaction/send",
					Handler: TransactionSendHandler(serverCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/transaction/estimate",
					Handler: TransactionEstimateHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/transaction/get",
					Handler: TransactionGetHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/transaction/list",
					Handler: TransactionListHandler(serverCtx),
				},
			}...,
		),
		rest.WithPrefix("/api"),
		// 发送路径包含 60s 的确认等待，超时必须盖过它
		rest.WithTimeout(90000*time.Millisecond),
	)
}
