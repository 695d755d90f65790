package market

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tactician/internal/logger"

	"github.com/go-resty/resty/v2"
)

// minCacheBars 缓存不足这个根数时视为残缺，改走远端补抓。
const minCacheBars = 60

// Loader 日线加载器：缓存优先，缺口再打远端行情 API。
type Loader struct {
	client    *resty.Client
	cache     *CandleCache
	apiToken  string
	startDate time.Time
	now       func() time.Time
}

// finmindResponse 对应 FinMind v4 data 接口的返回格式。
type finmindResponse struct {
	Msg    string `json:"msg"`
	Status int    `json:"status"`
	Data   []struct {
		Date          string  `json:"date"`
		StockID       string  `json:"stock_id"`
		TradingVolume int64   `json:"Trading_Volume"`
		Close         float64 `json:"close"`
	} `json:"data"`
}

// NewLoader 构造日线加载器。cache 可为 nil（纯远端模式）。
func NewLoader(baseURL, apiToken string, cache *CandleCache, startDate time.Time) *Loader {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)
	return &Loader{
		client:    client,
		cache:     cache,
		apiToken:  apiToken,
		startDate: startDate,
		now:       time.Now,
	}
}

// Fetch 返回 startDate 以来的日线。
// forceRefresh 为 true 时跳过缓存直接远端抓取，抓到后回写缓存。
func (l *Loader) Fetch(ctx context.Context, symbol string, forceRefresh bool) (*Series, error) {
	if !forceRefresh && l.cache != nil {
		cached, err := l.cache.Load(ctx, symbol, l.startDate)
		if err != nil {
			logger.Warnf("[行情] 读取缓存失败 %s: %v", symbol, err)
		} else if cached.Len() >= minCacheBars && l.isFresh(cached) {
			return cached, nil
		}
	}

	remote, err := l.fetchRemote(ctx, symbol)
	if err != nil {
		// 远端失败时退回缓存里现有的数据
		if l.cache != nil {
			if cached, cerr := l.cache.Load(ctx, symbol, l.startDate); cerr == nil && cached.Len() > 0 {
				logger.Warnf("[行情] 远端失败，使用缓存 %s (%d 根): %v", symbol, cached.Len(), err)
				return cached, nil
			}
		}
		return nil, err
	}
	if l.cache != nil {
		if err := l.cache.Save(ctx, remote); err != nil {
			logger.Warnf("[行情] 回写缓存失败 %s: %v", symbol, err)
		}
	}
	return remote, nil
}

// isFresh 判断缓存最后一根是否覆盖到最近一个交易日（周末宽限）。
func (l *Loader) isFresh(s *Series) bool {
	last, ok := s.Last()
	if !ok {
		return false
	}
	age := l.now().Sub(last.Date)
	return age < 4*24*time.Hour
}

func (l *Loader) fetchRemote(ctx context.Context, symbol string) (*Series, error) {
	var out finmindResponse
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"dataset":    "TaiwanStockPrice",
			"data_id":    symbol,
			"start_date": l.startDate.Format("2006-01-02"),
			"token":      l.apiToken,
		}).
		SetResult(&out).
		Get("/data")
	if err != nil {
		return nil, fmt.Errorf("fetch candles failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch candles failed: status=%d", resp.StatusCode())
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("no candles for %s", symbol)
	}

	s := &Series{Symbol: symbol}
	for _, row := range out.Data {
		if row.Close <= 0 {
			continue
		}
		d, perr := time.Parse("2006-01-02", row.Date)
		if perr != nil {
			continue
		}
		s.Candles = append(s.Candles, Candle{
			Date:   d,
			Close:  row.Close,
			Volume: row.TradingVolume,
		})
	}
	sort.Slice(s.Candles, func(i, j int) bool { return s.Candles[i].Date.Before(s.Candles[j].Date) })
	if len(s.Candles) == 0 {
		return nil, fmt.Errorf("no usable candles for %s", symbol)
	}
	return s, nil
}
