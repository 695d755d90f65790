package app

import (
	"context"
	"path/filepath"
	"testing"

	"tactician/internal/config"
	"tactician/internal/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{
			Env:      "test",
			LogLevel: "warn",
		},
		Ledger: config.LedgerConfig{
			Path:        filepath.Join(dir, "portfolio.json"),
			OpeningCash: 117000,
		},
		Oracle: config.OracleConfig{
			BaseURL:         "https://example.invalid/v1",
			Model:           "gemini-2.5-pro",
			TimeoutSeconds:  5,
			VetoPhrasesPath: filepath.Join(dir, "veto.yaml"),
		},
		Market: config.MarketConfig{
			DataURL:   "https://example.invalid/api/v4/data",
			CachePath: filepath.Join(dir, "cache.db"),
			StartDate: "2020-01-01",
		},
		Scanner: config.ScannerConfig{
			Watchlist:   []string{"2330", "2609"},
			MaxParallel: 2,
			MinROIPct:   1.0,
			MaxROIPct:   50.0,
		},
		Tactics: config.TacticsConfig{
			SearchDepth:     15,
			MinROIPct:       1.5,
			PaceSeconds:     1,
			SwitchCostPct:   0.6,
			DecisionLogPath: filepath.Join(dir, "decisions.db"),
		},
		Review: config.ReviewConfig{
			MoveThresholdPct: 3.0,
			TopMovers:        3,
			ReportsDir:       filepath.Join(dir, "reports"),
		},
		Server: config.ServerConfig{Addr: "127.0.0.1:0"},
	}
}

func TestBuildAssemblesApp(t *testing.T) {
	app, err := NewAppBuilder(testConfig(t)).Build(context.Background())
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Tactics())
	assert.NotNil(t, app.Rebalancer())
	assert.NotNil(t, app.Reviewer())
	assert.NotNil(t, app.Ledger())
	assert.NotNil(t, app.DecisionLogs())

	require.NotNil(t, app.Summary)
	assert.Equal(t, 15, app.Summary.Tactics.SearchDepth)
	assert.False(t, app.Summary.Oracle.KeyPresent)
	assert.Len(t, app.Summary.Watchlist, 2)

	// 新帐本应以开盘现金起步
	snap, err := app.Ledger().Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 117000.0, snap.Cash)
}

func TestBuildRejectsBadStartDate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Market.StartDate = "2020/01/01"
	_, err := NewAppBuilder(cfg).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start_date")
}

func TestBuildAdvisorStubNeedsExplicitFlag(t *testing.T) {
	// 缺 Key 但没开 offline_stub：仍是线上顾问，调用时回报不可用
	adv := buildAdvisor(config.OracleConfig{Model: "gemini-2.5-pro"})
	_, ok := adv.(*oracle.ChatAdvisor)
	assert.True(t, ok)
	_, err := adv.Consult(context.Background(), oracle.ConsultInput{Symbol: "2330"})
	assert.ErrorIs(t, err, oracle.ErrUnavailable)

	// 显式开启才换成本地保守顾问
	adv = buildAdvisor(config.OracleConfig{Model: "gemini-2.5-pro", OfflineStub: true})
	_, ok = adv.(*oracle.StubAdvisor)
	assert.True(t, ok)

	// 有 Key 时 offline_stub 不生效
	adv = buildAdvisor(config.OracleConfig{APIKey: "sk-test", Model: "gemini-2.5-pro", OfflineStub: true})
	_, ok = adv.(*oracle.ChatAdvisor)
	assert.True(t, ok)
}

func TestFeeScheduleFromConfigOverrides(t *testing.T) {
	fees := feeScheduleFromConfig(config.LedgerConfig{})
	assert.Equal(t, 0.001425, fees.FeeRate)
	assert.Equal(t, int64(20), fees.MinFee)

	fees = feeScheduleFromConfig(config.LedgerConfig{FeeRate: 0.001, MinFee: 1})
	assert.Equal(t, 0.001, fees.FeeRate)
	assert.Equal(t, int64(1), fees.MinFee)
	assert.Equal(t, 0.6, fees.EquityDiscount)
}
