// Package scanner 扫描观察清单，产出按预期报酬率排序的候选标的。
package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"tactician/internal/forecast"
	"tactician/internal/logger"
	"tactician/internal/market"

	"golang.org/x/sync/errgroup"
)

// anomalyROI 预期涨幅超过 50% 视为分拆或数据错误，直接剔除。
const anomalyROI = 0.5

// keepROI 预期涨幅需大于 1% 才进入候选池。
const keepROI = 0.01

// Candidate 扫描产出的候选标的。
type Candidate struct {
	Symbol  string  `json:"stock_id"`
	Price   float64 `json:"price"`
	Target  float64 `json:"ai_target"`
	ROIPct  float64 `json:"ai_roi_pct"`
	Support float64 `json:"ai_support"`
	Score   float64 `json:"score"`
	Message string  `json:"msg"`
}

// HistoryFetcher 抓取单一标的的日线历史。
type HistoryFetcher interface {
	Fetch(ctx context.Context, symbol string, forceRefresh bool) (*market.Series, error)
}

// Scanner 观察清单扫描器。
type Scanner struct {
	fetcher    HistoryFetcher
	forecaster forecast.Forecaster
	watchlist  []string
	// 并发抓取上限；<=0 时退回 4
	concurrency int
	// 每档之间的礼貌延迟，避免被行情源限流
	politeDelay time.Duration
	// 候选门槛与异常上限（小数），默认 keepROI / anomalyROI
	minROI float64
	maxROI float64
}

func New(fetcher HistoryFetcher, forecaster forecast.Forecaster, watchlist []string, concurrency int, politeDelay time.Duration) *Scanner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Scanner{
		fetcher:     fetcher,
		forecaster:  forecaster,
		watchlist:   watchlist,
		concurrency: concurrency,
		politeDelay: politeDelay,
		minROI:      keepROI,
		maxROI:      anomalyROI,
	}
}

// SetROILimits 以百分比覆写候选门槛与异常上限；<=0 的参数保持默认。
func (s *Scanner) SetROILimits(minPct, maxPct float64) {
	if minPct > 0 {
		s.minROI = minPct / 100
	}
	if maxPct > 0 {
		s.maxROI = maxPct / 100
	}
}

// Scan 强制刷新行情并预测整份观察清单，返回按 ROI% 降序的候选。
// 单档失败只记警告不终止扫描。
func (s *Scanner) Scan(ctx context.Context) ([]Candidate, error) {
	logger.Infof("[扫描] 啟動掃描 (目標: %d 檔)...", len(s.watchlist))

	var mu sync.Mutex
	var out []Candidate

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, symbol := range s.watchlist {
		symbol := symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, ok := s.scanOne(gctx, symbol)
			if ok {
				mu.Lock()
				out = append(out, c)
				mu.Unlock()
			}
			if s.politeDelay > 0 {
				select {
				case <-time.After(s.politeDelay):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ROIPct > out[j].ROIPct })
	logger.Infof("[扫描] 完成，候選 %d 檔", len(out))
	return out, nil
}

func (s *Scanner) scanOne(ctx context.Context, symbol string) (Candidate, bool) {
	series, err := s.fetcher.Fetch(ctx, symbol, true)
	if err != nil {
		logger.Warnf("[扫描] %s: 數據抓取失敗: %v", symbol, err)
		return Candidate{}, false
	}

	last, ok := series.Last()
	if !ok || last.Close <= 0 {
		logger.Warnf("[扫描] %s: 無有效收盤價", symbol)
		return Candidate{}, false
	}
	price := last.Close

	f := s.forecaster.Analyze(ctx, series)
	if f.Target <= 0 {
		logger.Debugf("[扫描] %s: %s", symbol, f.Message)
		return Candidate{}, false
	}

	roi := (f.Target - price) / price
	if roi > s.maxROI {
		logger.Warnf("[扫描] %s: 異常漲幅 (%.0f%%)，疑似分拆/數據錯誤，略過", symbol, roi*100)
		return Candidate{}, false
	}
	if roi <= s.minROI {
		logger.Debugf("[扫描] %s: 預期平淡 (%.2f%%)", symbol, roi*100)
		return Candidate{}, false
	}

	logger.Infof("[扫描] %s: 發現潛力股! 預期漲幅 %.2f%%", symbol, roi*100)
	return Candidate{
		Symbol:  symbol,
		Price:   price,
		Target:  f.Target,
		ROIPct:  roi * 100,
		Support: f.Support,
		Score:   f.Score,
		Message: f.Message,
	}, true
}
