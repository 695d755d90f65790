package main

import (
	"fmt"
	"os"

	"tactician/internal/app"
	"tactician/internal/config"
	"tactician/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "tactician",
		Short:        "台股 AI 战术官：扫描、审核、换股与盘后覆盘",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "配置文件路径（默认 configs/config.yaml，可用 TACTICIAN_CONFIG 覆盖）")

	root.AddCommand(newRunCmd(&cfgPath))
	root.AddCommand(newRebalanceCmd(&cfgPath))
	root.AddCommand(newReviewCmd(&cfgPath))
	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newLedgerCmd(&cfgPath))
	return root
}

// setupApp 读取 .env 与配置文件，完成日志初始化并构建应用。
func setupApp(cfgPath string) (*app.App, *config.Config, func(), error) {
	_ = godotenv.Load()

	if cfgPath == "" {
		cfgPath = os.Getenv("TACTICIAN_CONFIG")
	}
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("读取配置失败: %w", err)
	}

	logFile, err := logger.TeeToFile(cfg.App.LogPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("初始化日志文件失败: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s）", cfg.App.Env)

	a, err := app.NewApp(cfg)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, nil, nil, fmt.Errorf("初始化应用失败: %w", err)
	}
	cleanup := func() {
		a.Close()
		if logFile != nil {
			logFile.Close()
		}
	}
	return a, cfg, cleanup, nil
}
