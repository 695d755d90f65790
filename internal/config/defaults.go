package config

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppLogPath      = "data/logs/tactician.log"
	defaultAppOracleLog    = "data/logs/tactician-oracle.log"
	defaultLedgerPath      = "data/portfolio.json"
	defaultOpeningCash     = 117000.0
	defaultFeeRate         = 0.001425
	defaultMinFee          = 20
	defaultEquityDiscount  = 0.6
	defaultWarrantDiscount = 1.0
	defaultEquityTax       = 0.003
	defaultWarrantTax      = 0.001
	defaultOracleBaseURL   = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultOracleModel     = "gemini-2.5-pro"
	defaultOracleTimeout   = 60
	defaultOracleRetries   = 3
	defaultVetoPhrasesPath = "configs/veto_phrases.yaml"
	defaultForecastTimeout = 30
	defaultForecastWindow  = 120
	defaultForecastHorizon = 10
	defaultMarketDataURL   = "https://api.finmindtrade.com/api/v4/data"
	defaultMarketCache     = "data/market_cache.db"
	defaultMarketStartDate = "2020-01-01"
	defaultScanParallel    = 4
	defaultScanMinROI      = 1.0
	defaultScanMaxROI      = 50.0
	defaultSearchDepth     = 15
	defaultTacticsMinROI   = 1.5
	defaultPaceSeconds     = 1
	defaultSwitchCost      = 0.6
	defaultDecisionLog     = "data/decisions.db"
	defaultMoveThreshold   = 3.0
	defaultTopMovers       = 3
	defaultReportsDir      = "data/reports"
	defaultServerAddr      = ":9991"
)

// defaultWatchlist 为原始观察清单：台股电子/金融/传产/权值股。
var defaultWatchlist = []string{
	"2330", "2454", "2303", "3711", "3034", "2379", "3443", "3035", "3661",
	"2317", "2382", "2357", "3231", "2356", "2301", "2376", "2377", "2324", "6669", "3529", "3017",
	"2881", "2882", "2891", "2886", "2884", "2892", "5880", "2885", "2880", "2883", "2887", "5876", "2890",
	"2603", "2609", "2615", "2618", "2610",
	"1101", "1102", "1216", "1301", "1303", "1326", "1402", "2002", "2105", "2207", "2912", "9910",
	"2308", "3008", "3045", "4904", "4938", "2412", "3037", "2345",
	"1513", "1519", "1504", "1605", "0050",
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Ledger.applyDefaults(keys)
	c.Oracle.applyDefaults(keys)
	c.Forecast.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Scanner.applyDefaults(keys)
	c.Tactics.applyDefaults(keys)
	c.Review.applyDefaults(keys)
	c.Server.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.oracle_log_path", &a.OracleLog, defaultAppOracleLog),
	)
}

func (l *LedgerConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ledger.path", &l.Path, defaultLedgerPath),
		floatFieldDefault("ledger.opening_cash", &l.OpeningCash, defaultOpeningCash),
		floatFieldDefault("ledger.fee_rate", &l.FeeRate, defaultFeeRate),
		int64FieldDefault("ledger.min_fee", &l.MinFee, defaultMinFee),
		floatFieldDefault("ledger.equity_discount", &l.EquityDiscount, defaultEquityDiscount),
		floatFieldDefault("ledger.warrant_discount", &l.WarrantDiscount, defaultWarrantDiscount),
		floatFieldDefault("ledger.equity_tax_rate", &l.EquityTaxRate, defaultEquityTax),
		floatFieldDefault("ledger.warrant_tax_rate", &l.WarrantTaxRate, defaultWarrantTax),
	)
}

func (o *OracleConfig) applyDefaults(keys keySet) {
	if o == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("oracle.base_url", &o.BaseURL, defaultOracleBaseURL),
		stringFieldDefault("oracle.model", &o.Model, defaultOracleModel),
		intFieldDefault("oracle.timeout_seconds", &o.TimeoutSeconds, defaultOracleTimeout),
		intFieldDefault("oracle.max_retries", &o.MaxRetries, defaultOracleRetries),
		stringFieldDefault("oracle.veto_phrases_path", &o.VetoPhrasesPath, defaultVetoPhrasesPath),
	)
}

func (f *ForecastConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("forecast.timeout_seconds", &f.TimeoutSeconds, defaultForecastTimeout),
		intFieldDefault("forecast.window_size", &f.WindowSize, defaultForecastWindow),
		intFieldDefault("forecast.prediction_days", &f.PredictionDays, defaultForecastHorizon),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.data_url", &m.DataURL, defaultMarketDataURL),
		stringFieldDefault("market.cache_path", &m.CachePath, defaultMarketCache),
		stringFieldDefault("market.start_date", &m.StartDate, defaultMarketStartDate),
	)
}

func (s *ScannerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	if !keys.isSet("scanner.watchlist") && len(s.Watchlist) == 0 {
		s.Watchlist = append([]string(nil), defaultWatchlist...)
	}
	applyFieldDefaults(keys,
		intFieldDefault("scanner.max_parallel", &s.MaxParallel, defaultScanParallel),
		floatFieldDefault("scanner.min_roi_pct", &s.MinROIPct, defaultScanMinROI),
		floatFieldDefault("scanner.max_roi_pct", &s.MaxROIPct, defaultScanMaxROI),
	)
}

func (t *TacticsConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("tactics.search_depth", &t.SearchDepth, defaultSearchDepth),
		floatFieldDefault("tactics.min_roi_pct", &t.MinROIPct, defaultTacticsMinROI),
		intFieldDefault("tactics.pace_seconds", &t.PaceSeconds, defaultPaceSeconds),
		floatFieldDefault("tactics.switch_cost_pct", &t.SwitchCostPct, defaultSwitchCost),
		stringFieldDefault("tactics.decision_log_path", &t.DecisionLogPath, defaultDecisionLog),
	)
}

func (r *ReviewConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("review.move_threshold_pct", &r.MoveThresholdPct, defaultMoveThreshold),
		intFieldDefault("review.top_movers", &r.TopMovers, defaultTopMovers),
		stringFieldDefault("review.reports_dir", &r.ReportsDir, defaultReportsDir),
	)
}

func (s *ServerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("server.addr", &s.Addr, defaultServerAddr),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && *target == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func int64FieldDefault(key string, target *int64, def int64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
