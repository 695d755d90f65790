package tactics

import (
	"context"
	"fmt"

	"tactician/internal/forecast"
	"tactician/internal/logger"
	"tactician/internal/oracle"
	"tactician/internal/scanner"
)

// defaultSwitchCostPct 换股的摩擦成本（卖出税+两边手续费约 0.6%）。
const defaultSwitchCostPct = 0.6

// Rebalancer 换股评估：新发现的标的 vs 手中持股的对决。
// 任何数据缺失都以诊断文字收场（宁可不换，不丢错误）。
type Rebalancer struct {
	fetcher       scanner.HistoryFetcher
	forecaster    forecast.Forecaster
	macro         MacroAnalyzer
	portfolio     PortfolioReader
	advisor       oracle.Advisor
	switchCostPct float64
}

func NewRebalancer(fetcher scanner.HistoryFetcher, forecaster forecast.Forecaster,
	macro MacroAnalyzer, portfolio PortfolioReader, advisor oracle.Advisor, switchCostPct float64) *Rebalancer {
	if switchCostPct <= 0 {
		switchCostPct = defaultSwitchCostPct
	}
	return &Rebalancer{
		fetcher:       fetcher,
		forecaster:    forecaster,
		macro:         macro,
		portfolio:     portfolio,
		advisor:       advisor,
		switchCostPct: switchCostPct,
	}
}

// EvaluateSymbols 对操作者指定的挑战者/持股组合发起对决：
// 先为挑战者强制刷新行情并预测，组装成 ACTION 报告再走 Evaluate。
func (r *Rebalancer) EvaluateSymbols(ctx context.Context, challengerSymbol, incumbentSymbol string) string {
	series, err := r.fetcher.Fetch(ctx, challengerSymbol, true)
	if err != nil {
		return "無法獲取挑戰者數據"
	}
	last, ok := series.Last()
	if !ok || last.Close <= 0 {
		return "無法獲取挑戰者數據"
	}
	price := last.Close

	f := r.forecaster.Analyze(ctx, series)
	if f.Target <= 0 {
		return fmt.Sprintf("挑戰者無有效預測 (%s)", f.Message)
	}
	report := &Report{
		Status:  StatusAction,
		Symbol:  challengerSymbol,
		Price:   price,
		ROIPct:  (f.Target - price) / price * 100,
		Target:  f.Target,
		Support: f.Support,
	}
	return r.Evaluate(ctx, report, incumbentSymbol)
}

// Evaluate 比较新报告中的挑战者与既有持股，返回投资长的对决结论。
func (r *Rebalancer) Evaluate(ctx context.Context, report *Report, incumbentSymbol string) string {
	if report == nil || report.Status != StatusAction {
		return "無新標的可供對決"
	}
	logger.Infof("[换股] 啟動換股評估: %s vs %s...", report.Symbol, incumbentSymbol)

	// 旧股必须重新强制刷新并预测，拿到“剩余”涨幅
	series, err := r.fetcher.Fetch(ctx, incumbentSymbol, true)
	if err != nil {
		return "無法獲取持股數據"
	}
	last, ok := series.Last()
	if !ok || last.Close <= 0 {
		return "無法獲取持股數據"
	}
	curr := last.Close

	f := r.forecaster.Analyze(ctx, series)
	remainingROI := 0.0
	if f.Target > 0 {
		remainingROI = (f.Target - curr) / curr * 100
	}

	snap, err := r.portfolio.Snapshot()
	if err != nil {
		return "無法讀取投資組合"
	}
	holding := snap.FindPositionBySymbol(incumbentSymbol)
	if holding == nil {
		return "持倉中找不到此股票"
	}
	cost := holding.AvgCost
	if cost <= 0 {
		cost = curr
	}
	profitPct := (curr - cost) / cost * 100

	sig := r.macro.Analyze(ctx)

	decision, err := r.advisor.Compare(ctx, oracle.CompareInput{
		Challenger: oracle.Contender{
			ID:      report.Symbol,
			Price:   report.Price,
			ROIPct:  report.ROIPct,
			Support: report.Support,
		},
		Incumbent: oracle.Contender{
			ID:        incumbentSymbol,
			Cost:      cost,
			Price:     curr,
			ROIPct:    remainingROI,
			Support:   f.Support,
			ProfitPct: profitPct,
		},
		Macro:         oracle.MacroData{Score: sig.Score, Message: sig.Message},
		SwitchCostPct: r.switchCostPct,
	})
	if err != nil {
		logger.Warnf("[换股] 投資長連線異常: %v", err)
		return fmt.Sprintf("投資長連線異常，維持現狀續抱 %s", incumbentSymbol)
	}
	return decision
}
