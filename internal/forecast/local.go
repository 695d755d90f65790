package forecast

import (
	"context"
	"fmt"

	"tactician/internal/market"

	"github.com/markcheno/go-talib"
)

// LocalEstimator 本地技术指标估计器：用均线、RSI、MACD 与布林带
// 合成目标价/支撑价带，作为远端推论服务缺席时的替代。
type LocalEstimator struct{}

func NewLocalEstimator() *LocalEstimator { return &LocalEstimator{} }

func (e *LocalEstimator) Analyze(_ context.Context, series *market.Series) Forecast {
	if series.Len() < minWindow {
		return Forecast{Score: 0, Message: fmt.Sprintf("數據不足 (%d)", series.Len())}
	}
	closes := series.Closes()
	curr := closes[len(closes)-1]
	if curr <= 0 {
		return Forecast{Score: 0, Message: "收盤價異常"}
	}

	ema20 := talib.Ema(closes, 20)
	rsi := talib.Rsi(closes, 6)
	_, _, macdHist := talib.Macd(closes, 12, 26, 9)
	bbUpper, bbMiddle, bbLower := talib.BBands(closes, 20, 2, 2, talib.SMA)

	last := len(closes) - 1
	bull := 0
	if curr > ema20[last] {
		bull++
	}
	if macdHist[last] > 0 {
		bull++
	}
	switch {
	case rsi[last] >= 75:
		// 超买降温
		bull--
	case rsi[last] > 50:
		bull++
	}

	// 目标价取布林带位置：多头讯号越多越靠上轨
	var target float64
	switch {
	case bull >= 2:
		target = bbUpper[last]
	case bull == 1:
		target = (bbUpper[last] + bbMiddle[last]) / 2
	default:
		target = bbMiddle[last]
	}
	support := bbLower[last]

	roi := (target - curr) / curr
	return Forecast{
		Score:   scoreLadder(roi),
		Message: fmt.Sprintf("目標 %.1f (%.2f%%)", target, roi*100),
		Current: curr,
		Target:  target,
		Support: support,
	}
}
