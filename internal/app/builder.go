package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tactician/internal/config"
	"tactician/internal/forecast"
	"tactician/internal/ledger"
	"tactician/internal/logger"
	"tactician/internal/oracle"
	"tactician/internal/review"
	"tactician/internal/scanner"
	"tactician/internal/store/decisionlog"
	"tactician/internal/tactics"
	tacticianhttp "tactician/internal/transport/http"
)

type AppBuilder struct {
	cfg *config.Config

	marketStackFn func(*config.Config) (*MarketStack, []func() error, error)
	forecasterFn  func(config.ForecastConfig) forecast.Forecaster
	advisorFn     func(config.OracleConfig) oracle.Advisor
	decisionLogFn func(string) (*decisionlog.Store, error)
	httpServerFn  func(config.ServerConfig, *tacticianhttp.Router) (*tacticianhttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		marketStackFn: buildMarketStack,
		forecasterFn:  buildForecaster,
		advisorFn:     buildAdvisor,
		decisionLogFn: decisionlog.Open,
		httpServerFn:  buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	var closers []func() error

	if path := strings.TrimSpace(cfg.App.OracleLog); path != "" {
		f, err := openAppendFile(path)
		if err != nil {
			return nil, fmt.Errorf("打开先知审计日志失败: %w", err)
		}
		logger.SetOracleWriter(f)
		closers = append(closers, f.Close)
	}
	logger.EnableOraclePayloadDump(cfg.App.OracleDump)

	book, err := buildLedger(cfg.Ledger)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ 帐本已就绪: %s", cfg.Ledger.Path)

	stack, stackClosers, err := b.marketStackFn(cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, stackClosers...)
	logger.Infof("✓ 行情缓存: %s（起算日 %s）", cfg.Market.CachePath, cfg.Market.StartDate)

	forecaster := b.forecasterFn(cfg.Forecast)
	advisor := b.advisorFn(cfg.Oracle)

	veto, err := oracle.NewVetoRegistry(cfg.Oracle.VetoPhrasesPath)
	if err != nil {
		return nil, fmt.Errorf("加载否决词库失败: %w", err)
	}

	scan := scanner.New(stack.Loader, forecaster, cfg.Scanner.Watchlist,
		cfg.Scanner.MaxParallel, time.Second)
	scan.SetROILimits(cfg.Scanner.MinROIPct, cfg.Scanner.MaxROIPct)
	logger.Infof("✓ 已加载 %d 檔观察清单", len(cfg.Scanner.Watchlist))

	logs, err := b.decisionLogFn(cfg.Tactics.DecisionLogPath)
	if err != nil {
		return nil, fmt.Errorf("初始化决策留痕失败: %w", err)
	}
	if logs != nil {
		closers = append(closers, logs.Close)
	}

	pipeline := tactics.NewPipeline(scan, stack.Macro, book, advisor, veto, logs, tactics.Options{
		SearchDepth: cfg.Tactics.SearchDepth,
		MinROIPct:   cfg.Tactics.MinROIPct,
		Pace:        time.Duration(cfg.Tactics.PaceSeconds) * time.Second,
	})

	rebalancer := tactics.NewRebalancer(stack.Loader, forecaster, stack.Macro, book,
		advisor, cfg.Tactics.SwitchCostPct)

	reviewer := review.NewReviewer(stack.Loader, forecaster, advisor, logs,
		cfg.Scanner.Watchlist, review.Options{
			MoveThresholdPct: cfg.Review.MoveThresholdPct,
			TopMovers:        cfg.Review.TopMovers,
			Pace:             time.Duration(cfg.Tactics.PaceSeconds) * time.Second,
			ChartDir:         cfg.Review.ReportsDir,
		})

	router := tacticianhttp.NewRouter(book, pipeline, logs)
	httpSrv, err := b.httpServerFn(cfg.Server, router)
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	return &App{
		cfg:        cfg,
		ledger:     book,
		pipeline:   pipeline,
		rebalancer: rebalancer,
		reviewer:   reviewer,
		logs:       logs,
		httpSrv:    httpSrv,
		closers:    closers,
		Summary:    buildStartupSummary(cfg),
	}, nil
}

func buildLedger(cfg config.LedgerConfig) (*ledger.Ledger, error) {
	store, err := ledger.NewFileStore(cfg.Path, cfg.OpeningCash)
	if err != nil {
		return nil, fmt.Errorf("初始化帐本存储失败: %w", err)
	}
	return ledger.New(store, feeScheduleFromConfig(cfg)), nil
}

func feeScheduleFromConfig(cfg config.LedgerConfig) ledger.FeeSchedule {
	fees := ledger.DefaultFeeSchedule()
	if cfg.FeeRate > 0 {
		fees.FeeRate = cfg.FeeRate
	}
	if cfg.MinFee > 0 {
		fees.MinFee = cfg.MinFee
	}
	if cfg.EquityDiscount > 0 {
		fees.EquityDiscount = cfg.EquityDiscount
	}
	if cfg.WarrantDiscount > 0 {
		fees.WarrantDiscount = cfg.WarrantDiscount
	}
	if cfg.EquityTaxRate > 0 {
		fees.EquityTaxRate = cfg.EquityTaxRate
	}
	if cfg.WarrantTaxRate > 0 {
		fees.WarrantTaxRate = cfg.WarrantTaxRate
	}
	return fees
}

func buildHTTPServer(cfg config.ServerConfig, router *tacticianhttp.Router) (*tacticianhttp.Server, error) {
	return tacticianhttp.NewServer(cfg.Addr, router)
}

func openAppendFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func WithMarketStack(fn func(*config.Config) (*MarketStack, []func() error, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.marketStackFn = fn
		}
	}
}

func WithForecaster(fn func(config.ForecastConfig) forecast.Forecaster) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.forecasterFn = fn
		}
	}
}

func WithAdvisor(fn func(config.OracleConfig) oracle.Advisor) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.advisorFn = fn
		}
	}
}

func WithDecisionLog(fn func(string) (*decisionlog.Store, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.decisionLogFn = fn
		}
	}
}

func WithHTTPServer(fn func(config.ServerConfig, *tacticianhttp.Router) (*tacticianhttp.Server, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.httpServerFn = fn
		}
	}
}
