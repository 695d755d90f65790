// Package review 实现盘后深度覆盘：找出观察清单中的异动标的，
// 重新预测并请投资长做定性归因，产出 Markdown 报告。
package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"tactician/internal/forecast"
	"tactician/internal/logger"
	"tactician/internal/market"
	"tactician/internal/oracle"
	"tactician/internal/scanner"
	"tactician/internal/store/decisionlog"
)

// Options 覆盘参数。
type Options struct {
	// MoveThresholdPct 涨跌幅绝对值超过此值才算异动，默认 3.0
	MoveThresholdPct float64
	// TopMovers 深度检讨的异动档数上限，默认 3
	TopMovers int
	// Pace 相邻两次咨询之间的最小间隔，默认 1s
	Pace time.Duration
	// ChartDir 非空时为每档异动渲染走势图
	ChartDir string
}

func (o Options) withDefaults() Options {
	if o.MoveThresholdPct <= 0 {
		o.MoveThresholdPct = 3.0
	}
	if o.TopMovers <= 0 {
		o.TopMovers = 3
	}
	if o.Pace <= 0 {
		o.Pace = time.Second
	}
	return o
}

// Reviewer 盘后覆盘器。
type Reviewer struct {
	fetcher    scanner.HistoryFetcher
	forecaster forecast.Forecaster
	advisor    oracle.Advisor
	log        *decisionlog.Store
	watchlist  []string
	opts       Options

	sleep func(context.Context, time.Duration)
	now   func() time.Time
}

// NewReviewer 构造覆盘器。log 可为 nil（报告中战术栏显示「無」）。
func NewReviewer(fetcher scanner.HistoryFetcher, forecaster forecast.Forecaster,
	advisor oracle.Advisor, log *decisionlog.Store, watchlist []string, opts Options) *Reviewer {
	return &Reviewer{
		fetcher:    fetcher,
		forecaster: forecaster,
		advisor:    advisor,
		log:        log,
		watchlist:  watchlist,
		opts:       opts.withDefaults(),
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-time.After(d):
			case <-ctx.Done():
			}
		},
		now: time.Now,
	}
}

type dailyStat struct {
	symbol    string
	close     float64
	changePct float64
	series    *market.Series
}

// PerformDailyReview 执行盘后覆盘，返回 Markdown 报告。
// 全清单抓取失败时返回诊断文字而非错误。
func (r *Reviewer) PerformDailyReview(ctx context.Context) (string, error) {
	logger.Infof("[复盘] 啟動深度盤後覆盤 (Deep Post-Mortem)...")
	logger.Infof("[复盘] 重新掃描 %d 檔標的之收盤數據...", len(r.watchlist))

	var stats []dailyStat
	for _, symbol := range r.watchlist {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		series, err := r.fetcher.Fetch(ctx, symbol, true)
		if err != nil || series.Len() < 2 {
			continue
		}
		n := series.Len()
		closePrice := series.Candles[n-1].Close
		prevClose := series.Candles[n-2].Close
		if prevClose <= 0 {
			continue
		}
		stats = append(stats, dailyStat{
			symbol:    symbol,
			close:     closePrice,
			changePct: (closePrice - prevClose) / prevClose * 100,
			series:    series,
		})
	}
	if len(stats) == 0 {
		return "❌ 無法獲取行情數據。", nil
	}

	movers := make([]dailyStat, 0, len(stats))
	for _, s := range stats {
		if math.Abs(s.changePct) > r.opts.MoveThresholdPct {
			movers = append(movers, s)
		}
	}
	sort.Slice(movers, func(i, j int) bool { return movers[i].changePct > movers[j].changePct })
	if len(movers) > r.opts.TopMovers {
		movers = movers[:r.opts.TopMovers]
	}

	recSymbol := r.lastTacticSymbol(ctx)

	var report []string
	report = append(report, "## 📝 每日盤後深度覆盤 (Deep Review)")
	report = append(report, fmt.Sprintf("**時間:** %s\n", r.now().Format("2006-01-02 15:04")))
	report = append(report, fmt.Sprintf("### 🎯 今日系統戰術: %s", recSymbol))

	if recSymbol != "無" {
		for _, s := range stats {
			if s.symbol != recSymbol {
				continue
			}
			result := "獲利"
			if s.changePct <= 0 {
				result = "虧損"
			}
			report = append(report, fmt.Sprintf("- **收盤表現:** %.2f%% (%s)", s.changePct, result))
			break
		}
	}

	report = append(report, "\n### 🔍 市場異動與 AI 深度反思")

	if len(movers) == 0 {
		report = append(report, "今日市場波動平緩，無顯著異動標的需檢討。")
		return strings.Join(report, "\n"), nil
	}

	consulted := false
	for _, m := range movers {
		// 盘后视角重新预测
		f := r.forecaster.Analyze(ctx, m.series)
		newROI := 0.0
		if f.Current > 0 {
			newROI = (f.Target - f.Current) / f.Current * 100
		}

		status := "🛡️ 避開"
		switch {
		case m.symbol == recSymbol:
			status = "🟢 命中"
		case m.changePct > 0:
			status = "🔴 錯失"
		}

		report = append(report, fmt.Sprintf("#### %s: %s (%.2f%%)", status, m.symbol, m.changePct))
		report = append(report, fmt.Sprintf("- **收盤後 AI 視角:** 現價 %g | 目標 %.1f (預期仍有 +%.2f%%) | 支撐 %.1f",
			f.Current, f.Target, newROI, f.Support))

		if consulted {
			r.sleep(ctx, r.opts.Pace)
		}
		consulted = true

		reflection, err := r.advisor.PostMortem(ctx, oracle.PostMortemInput{
			Symbol:       m.symbol,
			ChangePct:    m.changePct,
			NewROIPct:    newROI,
			Support:      f.Support,
			CurrentPrice: m.close,
		})
		if err != nil {
			if errors.Is(err, oracle.ErrUnavailable) {
				logger.Warnf("[复盘] 投資長連線異常，跳過 %s", m.symbol)
				report = append(report, "（投資長連線異常，無法取得定性分析）")
				report = append(report, "---")
				continue
			}
			return "", err
		}
		report = append(report, reflection)
		report = append(report, "---")

		if r.opts.ChartDir != "" {
			if path, cerr := RenderMoverChart(r.opts.ChartDir, m.symbol, m.series, f); cerr != nil {
				logger.Warnf("[复盘] 圖表渲染失敗 %s: %v", m.symbol, cerr)
			} else {
				logger.Infof("[复盘] 已輸出走勢圖: %s", path)
			}
		}
	}

	return strings.Join(report, "\n"), nil
}

func (r *Reviewer) lastTacticSymbol(ctx context.Context) string {
	if r.log == nil {
		return "無"
	}
	run, _, err := r.log.LatestRun(ctx)
	if err != nil || run == nil {
		return "無"
	}
	if run.Symbol == "" || run.Symbol == "N/A" {
		return "無"
	}
	return run.Symbol
}
