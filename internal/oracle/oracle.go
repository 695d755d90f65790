// Package oracle 封装外部自然语言顾问（AI 投资长）。
// 顾问输出是自由文本，管线只做固定否决词比对，不做结构化解析。
package oracle

import (
	"context"
	"errors"
)

// ErrUnavailable 表示顾问暂时不可用（额度、网络、未配置密钥）。
// 调用方应当跳过本次咨询，既不算核准也不算否决。
var ErrUnavailable = errors.New("oracle: advisor unavailable")

// TechData 是预测模型给出的 (现价, 目标价, 支撑价) 三元组。
type TechData struct {
	Price   float64
	Target  float64
	Support float64
}

// ROIPct 现价到目标价的预期涨幅（百分比）。
func (t TechData) ROIPct() float64 {
	if t.Price <= 0 {
		return 0
	}
	return (t.Target - t.Price) / t.Price * 100
}

// MacroData 宏观信号，score ∈ [-3, +3]。
type MacroData struct {
	Score   float64
	Message string
}

// PositionContext 提供给顾问的单笔持仓摘要。
type PositionContext struct {
	Symbol  string
	Type    string
	AvgCost float64
	Qty     int64
}

// PortfolioContext 帐户资金概要。
type PortfolioContext struct {
	Cash      float64
	Positions []PositionContext
}

// StrategyContext 描述本次进场的策略与停损设定。
type StrategyContext struct {
	Strategy        string
	StopLossTrigger string
}

type ConsultInput struct {
	Symbol    string
	Tech      TechData
	Strategy  StrategyContext
	Macro     MacroData
	Portfolio PortfolioContext
}

// Contender 换股对决中的一方。
type Contender struct {
	ID        string
	Cost      float64
	Price     float64
	ROIPct    float64
	Support   float64
	ProfitPct float64
}

type CompareInput struct {
	Challenger    Contender
	Incumbent     Contender
	Macro         MacroData
	SwitchCostPct float64
}

type ReviewInput struct {
	Symbol  string
	Type    string
	AvgCost float64
	Qty     int64
	Tech    TechData
	Macro   MacroData
}

// PostMortemInput 盘后覆盘：对当日异动标的做定性归因。
type PostMortemInput struct {
	Symbol       string
	ChangePct    float64
	NewROIPct    float64
	Support      float64
	CurrentPrice float64
}

// Advisor 是可插拔的顾问能力：一个联网实现、一个确定性桩实现。
type Advisor interface {
	Consult(ctx context.Context, in ConsultInput) (string, error)
	Compare(ctx context.Context, in CompareInput) (string, error)
	ReviewHolding(ctx context.Context, in ReviewInput) (string, error)
	PostMortem(ctx context.Context, in PostMortemInput) (string, error)
}
