package config

import "strings"

// Config 是 Tactician 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Oracle   OracleConfig   `toml:"oracle"`
	Forecast ForecastConfig `toml:"forecast"`
	Market   MarketConfig   `toml:"market"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Tactics  TacticsConfig  `toml:"tactics"`
	Review   ReviewConfig   `toml:"review"`
	Server   ServerConfig   `toml:"server"`
}

type AppConfig struct {
	Env        string `toml:"env"`
	LogLevel   string `toml:"log_level"`
	LogPath    string `toml:"log_path"`
	OracleLog  string `toml:"oracle_log_path"`
	OracleDump bool   `toml:"oracle_dump_payload"`
}

// LedgerConfig 描述台股费税结构与帐本文件位置。
type LedgerConfig struct {
	Path            string  `toml:"path"`
	OpeningCash     float64 `toml:"opening_cash"`
	FeeRate         float64 `toml:"fee_rate"`
	MinFee          int64   `toml:"min_fee"`
	EquityDiscount  float64 `toml:"equity_discount"`
	WarrantDiscount float64 `toml:"warrant_discount"`
	EquityTaxRate   float64 `toml:"equity_tax_rate"`
	WarrantTaxRate  float64 `toml:"warrant_tax_rate"`
}

type OracleConfig struct {
	BaseURL         string `toml:"base_url"`
	APIKey          string `toml:"api_key"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxRetries      int    `toml:"max_retries"`
	VetoPhrasesPath string `toml:"veto_phrases_path"`
	// OfflineStub 显式启用本地保守顾问；缺 Key 时默认回报「不可用」。
	OfflineStub bool `toml:"offline_stub"`
}

type ForecastConfig struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	WindowSize     int    `toml:"window_size"`
	PredictionDays int    `toml:"prediction_days"`
}

type MarketConfig struct {
	DataURL   string `toml:"data_url"`
	APIToken  string `toml:"api_token"`
	CachePath string `toml:"cache_path"`
	StartDate string `toml:"start_date"`
}

type ScannerConfig struct {
	Watchlist   []string `toml:"watchlist"`
	MaxParallel int      `toml:"max_parallel"`
	MinROIPct   float64  `toml:"min_roi_pct"`
	MaxROIPct   float64  `toml:"max_roi_pct"`
}

// TacticsConfig 控制战术管线的搜索深度与顾问调用节奏。
type TacticsConfig struct {
	SearchDepth     int     `toml:"search_depth"`
	MinROIPct       float64 `toml:"min_roi_pct"`
	PaceSeconds     int     `toml:"pace_seconds"`
	SwitchCostPct   float64 `toml:"switch_cost_pct"`
	DecisionLogPath string  `toml:"decision_log_path"`
}

type ReviewConfig struct {
	MoveThresholdPct float64 `toml:"move_threshold_pct"`
	TopMovers        int     `toml:"top_movers"`
	ReportsDir       string  `toml:"reports_dir"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
