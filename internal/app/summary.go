package app

import (
	"fmt"
	"strings"

	"tactician/internal/config"
)

// StartupSummary 汇总启动时的关键配置，便于一眼核对环境。
type StartupSummary struct {
	Watchlist   []string
	Oracle      OracleSummary
	Fees        FeeSummary
	Tactics     TacticsSummary
	LedgerPath  string
	CachePath   string
	ReportsDir  string
	ServerAddr  string
	DecisionLog string
}

type OracleSummary struct {
	Model       string
	BaseURL     string
	KeyPresent  bool
	OfflineStub bool
}

type FeeSummary struct {
	FeeRate        float64
	MinFee         int64
	EquityDiscount float64
	EquityTax      float64
	WarrantTax     float64
}

type TacticsSummary struct {
	SearchDepth   int
	MinROIPct     float64
	SwitchCostPct float64
}

func buildStartupSummary(cfg *config.Config) *StartupSummary {
	return &StartupSummary{
		Watchlist: cfg.Scanner.Watchlist,
		Oracle: OracleSummary{
			Model:       cfg.Oracle.Model,
			BaseURL:     cfg.Oracle.BaseURL,
			KeyPresent:  strings.TrimSpace(cfg.Oracle.APIKey) != "",
			OfflineStub: cfg.Oracle.OfflineStub,
		},
		Fees: FeeSummary{
			FeeRate:        cfg.Ledger.FeeRate,
			MinFee:         cfg.Ledger.MinFee,
			EquityDiscount: cfg.Ledger.EquityDiscount,
			EquityTax:      cfg.Ledger.EquityTaxRate,
			WarrantTax:     cfg.Ledger.WarrantTaxRate,
		},
		Tactics: TacticsSummary{
			SearchDepth:   cfg.Tactics.SearchDepth,
			MinROIPct:     cfg.Tactics.MinROIPct,
			SwitchCostPct: cfg.Tactics.SwitchCostPct,
		},
		LedgerPath:  cfg.Ledger.Path,
		CachePath:   cfg.Market.CachePath,
		ReportsDir:  cfg.Review.ReportsDir,
		ServerAddr:  cfg.Server.Addr,
		DecisionLog: cfg.Tactics.DecisionLogPath,
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[观察清单 (WATCHLIST)]")
	fmt.Printf("  监控标的: %d 檔\n", len(s.Watchlist))
	fmt.Printf("  - %s\n", formatList(s.Watchlist))
	fmt.Println()

	fmt.Println("[投资长 (ORACLE)]")
	fmt.Printf("  模型: %s\n", s.Oracle.Model)
	fmt.Printf("  端点: %s\n", s.Oracle.BaseURL)
	switch {
	case s.Oracle.KeyPresent:
		fmt.Println("  凭证: 已配置")
	case s.Oracle.OfflineStub:
		fmt.Println("  凭证: 未配置（离线演练：本地保守顾问）")
	default:
		fmt.Println("  凭证: 未配置（顾问调用将回报不可用）")
	}
	fmt.Println()

	fmt.Println("[费税结构 (FEES & TAXES)]")
	fmt.Printf("  手续费率: %.4f%%（最低 %d 元，现股 %.0f 折）\n",
		s.Fees.FeeRate*100, s.Fees.MinFee, s.Fees.EquityDiscount*10)
	fmt.Printf("  交易税: 现股 %.1f%% / 权证 %.1f%%（仅卖出）\n",
		s.Fees.EquityTax*100, s.Fees.WarrantTax*100)
	fmt.Println()

	fmt.Println("[战术参数 (TACTICS)]")
	fmt.Printf("  审核深度: %d 檔\n", s.Tactics.SearchDepth)
	fmt.Printf("  ROI 门槛: %.2f%%\n", s.Tactics.MinROIPct)
	fmt.Printf("  换股成本: %.2f%%\n", s.Tactics.SwitchCostPct)
	fmt.Println()

	fmt.Println("[存储与服务 (STORAGE & SERVER)]")
	fmt.Printf("  帐本: %s\n", s.LedgerPath)
	fmt.Printf("  行情缓存: %s\n", s.CachePath)
	fmt.Printf("  决策留痕: %s\n", s.DecisionLog)
	fmt.Printf("  覆盘报告: %s\n", s.ReportsDir)
	fmt.Printf("  HTTP 监听: %s\n", s.ServerAddr)
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
