package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Corphon/ScribeNest/internal/app"
	"github.com/Corphon/ScribeNest/internal/config"
	"github.com/Corphon/ScribeNest/internal/utils"
)

var (
	dataDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "scribectl",
	Short:         "ScribeNest 管理工具",
	Long:          "scribectl 直接操作本地数据：导入推荐提示词、调整会员与字数额度、在终端中选择提示词和关联章节。",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "数据目录，默认读取 SCRIBE_DATA_DIR")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出详细日志")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(chaptersCmd)
}

// openApp 按配置初始化应用，调用方负责 Close
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
		cfg.DatabasePath = filepath.Join(dataDir, "scribenest.db")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	logger := utils.NewLogger(os.Stderr)
	if !verbose {
		logger.SetLogLevel(utils.WARNING)
	}
	return app.New(ctx, cfg, logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
