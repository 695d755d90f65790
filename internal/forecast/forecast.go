// Package forecast 提供价格预测能力：远端推论服务与本地技术指标估计器。
// Analyze 永不返回错误：模型缺席或数据不足时给 0 分与诊断讯息，
// 由上游的报酬率过滤自然剔除该标的。
package forecast

import (
	"context"

	"tactician/internal/market"
)

// minWindow 推论所需的最少日线根数。
const minWindow = 120

// Forecast 单一标的的预测结果。
type Forecast struct {
	Score   float64
	Message string
	Current float64
	Target  float64
	Support float64
}

// ROIPct 现价到目标价的预期涨幅（百分比）。
func (f Forecast) ROIPct() float64 {
	if f.Current <= 0 {
		return 0
	}
	return (f.Target - f.Current) / f.Current * 100
}

type Forecaster interface {
	Analyze(ctx context.Context, series *market.Series) Forecast
}

// scoreLadder 按预期报酬率给分。
func scoreLadder(roi float64) float64 {
	switch {
	case roi > 0.04:
		return 1.5
	case roi > 0.015:
		return 1
	case roi < -0.015:
		return -1
	default:
		return -1.5
	}
}
