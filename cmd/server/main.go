// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Corphon/ScribeNest/internal/app"
	"github.com/Corphon/ScribeNest/internal/config"
	"github.com/Corphon/ScribeNest/internal/utils"
)

func main() {
	log.Println("🚀 启动 ScribeNest 服务器...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 配置加载完成，端口: %s", cfg.Port)

	// 2. 创建必要的目录
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("%v", err)
	}

	// 3. 日志写入文件
	if err := utils.InitLogger(cfg.LogFile(time.Now())); err != nil {
		log.Printf("⚠️ 日志文件初始化失败，仅输出到控制台: %v", err)
	}
	logger := utils.GetLogger()
	if cfg.DebugMode {
		logger.SetLogLevel(utils.DEBUG)
	}
	defer logger.Close()

	// 4. 初始化服务与路由
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("❌ 初始化应用失败: %v", err)
	}
	defer application.Close()

	// 5. 启动服务器，收到中断信号后优雅关闭
	log.Printf("🔗 访问地址: http://localhost:%s", cfg.Port)
	if err := application.Run(ctx); err != nil {
		log.Printf("❌ %v", err)
	}
	log.Println("✅ 服务器已退出")
}
