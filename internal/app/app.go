package app

import (
	"context"
	"fmt"

	"tactician/internal/config"
	"tactician/internal/ledger"
	"tactician/internal/logger"
	"tactician/internal/review"
	"tactician/internal/store/decisionlog"
	"tactician/internal/tactics"
	tacticianhttp "tactician/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→对外暴露战术/换股/覆盘入口。
type App struct {
	cfg        *config.Config
	ledger     *ledger.Ledger
	pipeline   *tactics.Pipeline
	rebalancer *tactics.Rebalancer
	reviewer   *review.Reviewer
	logs       *decisionlog.Store
	httpSrv    *tacticianhttp.Server
	Summary    *StartupSummary

	closers []func() error
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务并阻塞直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	if a.Summary != nil {
		a.Summary.Print()
	}

	if a.httpSrv == nil {
		return fmt.Errorf("http server not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close 释放行情缓存与日志文件等资源。
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("关闭资源失败: %v", err)
		}
	}
	a.closers = nil
}

// Tactics 暴露每日战术流水线（CLI 子命令使用）。
func (a *App) Tactics() *tactics.Pipeline {
	if a == nil {
		return nil
	}
	return a.pipeline
}

// Rebalancer 暴露换股对决评估器。
func (a *App) Rebalancer() *tactics.Rebalancer {
	if a == nil {
		return nil
	}
	return a.rebalancer
}

// Reviewer 暴露盘后覆盘器。
func (a *App) Reviewer() *review.Reviewer {
	if a == nil {
		return nil
	}
	return a.reviewer
}

// Ledger 暴露帐本（ledger 子命令使用）。
func (a *App) Ledger() *ledger.Ledger {
	if a == nil {
		return nil
	}
	return a.ledger
}

// DecisionLogs 暴露决策留痕存储。
func (a *App) DecisionLogs() *decisionlog.Store {
	if a == nil {
		return nil
	}
	return a.logs
}
