// Package market 负责行情数据：日线、本地缓存与宏观信号。
package market

import "time"

// Candle 单日行情（台股日线）。
type Candle struct {
	Date           time.Time
	Close          float64
	Volume         int64
	ForeignBuySell float64
	TrustBuySell   float64
}

// Series 按日期升序排列的日线序列。
type Series struct {
	Symbol  string
	Candles []Candle
}

// Last 返回最近一根日线。
func (s *Series) Last() (Candle, bool) {
	if s == nil || len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Closes 收盘价序列，供指标计算使用。
func (s *Series) Closes() []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Len 日线根数。
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candles)
}
