package app

import (
	"fmt"
	"time"

	"tactician/internal/config"
	"tactician/internal/forecast"
	"tactician/internal/logger"
	"tactician/internal/market"
)

// MarketStack 打包行情侧依赖：SQLite 缓存、FinMind 加载器与国际市场服务。
type MarketStack struct {
	Cache  *market.CandleCache
	Loader *market.Loader
	Macro  *market.MacroService
}

func buildMarketStack(cfg *config.Config) (*MarketStack, []func() error, error) {
	cache, err := market.OpenCandleCache(cfg.Market.CachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("打开行情缓存失败: %w", err)
	}
	startDate, err := time.Parse("2006-01-02", cfg.Market.StartDate)
	if err != nil {
		cache.Close()
		return nil, nil, fmt.Errorf("market.start_date 格式错误: %w", err)
	}
	loader := market.NewLoader(cfg.Market.DataURL, cfg.Market.APIToken, cache, startDate)
	return &MarketStack{
		Cache:  cache,
		Loader: loader,
		Macro:  market.NewMacroService(),
	}, []func() error{cache.Close}, nil
}

// buildForecaster 默认本地指标估计器；配置了推论服务端点时远端优先、本地兜底。
func buildForecaster(cfg config.ForecastConfig) forecast.Forecaster {
	local := forecast.NewLocalEstimator()
	if cfg.Endpoint == "" {
		return local
	}
	logger.Infof("✓ 远端推论服务: %s（本地估计兜底）", cfg.Endpoint)
	return forecast.NewRemoteForecaster(cfg.Endpoint, local)
}
