package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"custody/internal/config"
	"custody/internal/errs"
	"custody/internal/handler"
	"custody/internal/logic/reconcile"
	"custody/internal/svc"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"
)

var configFile = flag.String("f", "etc/custody.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	// 错误分类统一映射为 HTTP 状态码
	httpx.SetErrorHandlerCtx(func(ctx context.Context, err error) (int, any) {
		return errs.HTTPStatus(err), map[string]string{"error": err.Error()}
	})

	server := rest.MustNewServer(c.RestConf)
	defer server.Stop()

	ctx := svc.NewServiceContext(c)
	handler.RegisterHandlers(server, ctx)

	// 后台对账轮询：把超时遗留的 pending 交易结算到权威链上状态
	reconcileCtx, stopReconcile := context.WithCancel(context.Background())
	go reconcile.NewReconcileLogic(ctx).Start(reconcileCtx)

	// 设置优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Starting server at %s:%d...\n", c.Host, c.Port)

	// 在独立的goroutine中启动服务器
	go func() {
		server.Start()
	}()

	// 等待退出信号
	<-quit
	fmt.Println("\n🛑 收到退出信号，正在优雅关闭服务...")

	stopReconcile()
	ctx.Stop()

	fmt.Println("✅ 服务已安全退出")
}
