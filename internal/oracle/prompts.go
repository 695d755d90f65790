package oracle

import (
	"fmt"
	"strings"
)

// 提示词沿用“激进型基金经理 + 台股输出格式”的设定；
// 输出标签固定为繁体中文，供否决词表比对。

const liquidityLockWarning = `
[CRITICAL WARNING: LIQUIDITY LOCK-IN]
* The user intends to trade WARRANTS.
* CONSTRAINT: Warrants CANNOT be day-traded (Sold on T+0).
* RISK: If you buy now, you MUST hold until tomorrow. You CANNOT execute a stop-loss today even if the price crashes.
* IMPACT: This drastically increases risk. Do NOT recommend 'Aggressive' sizing if VIX is high.
`

func renderConsultPrompt(in ConsultInput) string {
	cash := in.Portfolio.Cash
	posValue := 0.0
	for _, p := range in.Portfolio.Positions {
		posValue += p.AvgCost * float64(p.Qty)
	}
	total := cash + posValue
	cashRatio := 100.0
	if total > 0 {
		cashRatio = cash / total * 100
	}

	warning := ""
	if strings.Contains(in.Strategy.Strategy, "權證") || strings.Contains(in.Strategy.Strategy, "Call") {
		warning = liquidityLockWarning
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Role: Aggressive Hedge Fund Manager (Capital Recovery).\n")
	fmt.Fprintf(&b, "Style: Opportunistic but Survival-First.\n\n")
	fmt.Fprintf(&b, "[Target] %s\n", in.Symbol)
	fmt.Fprintf(&b, "Price: %g -> Target: %.1f (ROI: %.2f%%)\n", in.Tech.Price, in.Tech.Target, in.Tech.ROIPct())
	fmt.Fprintf(&b, "Support: %.1f\n", in.Tech.Support)
	fmt.Fprintf(&b, "Macro: %g (%s)\n\n", in.Macro.Score, in.Macro.Message)
	fmt.Fprintf(&b, "[Portfolio] Cash: $%.0f (%.1f%%)\n", cash, cashRatio)
	if in.Strategy.StopLossTrigger != "" {
		fmt.Fprintf(&b, "[Plan] Strategy: %s | Stop-loss: %s\n", in.Strategy.Strategy, in.Strategy.StopLossTrigger)
	}
	b.WriteString(warning)
	b.WriteString(`
[Task]
Evaluate trade.
1. If 'LIQUIDITY LOCK-IN' warning exists AND Macro is unstable (VIX high), be EXTREMELY CAUTIOUS.
2. If conviction is absolute (Home Run setup), allow entry but REDUCE SIZE.

[Output]
**決策：** [強力買進/小額試單/觀望]
**風險分析：** ...
**指令：** [資金%與停損]
Reply in Traditional Chinese.
`)
	return b.String()
}

func renderComparePrompt(in CompareInput) string {
	cost := in.SwitchCostPct
	if cost <= 0 {
		cost = 0.6
	}
	var b strings.Builder
	b.WriteString("Role: Portfolio Manager. Duel: New vs Old.\n\n")
	fmt.Fprintf(&b, "[Challenger (New)] %s | ROI: +%.2f%%\n", in.Challenger.ID, in.Challenger.ROIPct)
	fmt.Fprintf(&b, "[Incumbent (Old)] %s | Remaining ROI: +%.2f%% | Profit: %.2f%%\n\n",
		in.Incumbent.ID, in.Incumbent.ROIPct, in.Incumbent.ProfitPct)
	fmt.Fprintf(&b, "Macro: %g (%s)\n\n", in.Macro.Score, in.Macro.Message)
	fmt.Fprintf(&b, "Constraint: Switching cost ~%.1f%%.\n\n", cost)
	b.WriteString(`Task: Decide SWAP or HOLD.
Only swap if Challenger ROI >> Incumbent ROI + Cost.

[Output]
**決策：** [換股/續抱]
**分析：** ...
`)
	return b.String()
}

func renderReviewPrompt(in ReviewInput) string {
	roiPct := 0.0
	if in.AvgCost > 0 {
		roiPct = (in.Tech.Price - in.AvgCost) / in.AvgCost * 100
	}

	conflict := ""
	if roiPct > 5 && (in.Tech.Price < in.Tech.Support || in.Macro.Score < -1) {
		conflict = `
[CONFLICT DETECTED]
* The position is PROFITABLE (>5%), BUT Technical/Macro signals are turning bearish.
* STRATEGY: Consider 'Partial Profit Taking' (Selling Half) to lock in gains.
`
	}

	var b strings.Builder
	b.WriteString("Role: Senior Risk Manager (Focus: Profit Protection & Dynamic Adjustment).\n")
	b.WriteString("Task: Review an existing position and provide tactical advice.\n\n")
	fmt.Fprintf(&b, "[Position Status]\nTarget: %s (%s)\n", in.Symbol, in.Type)
	fmt.Fprintf(&b, "Avg Cost: %.2f\nCurrent Price: %.2f\nUnrealized P/L: %.2f%%\n\n", in.AvgCost, in.Tech.Price, roiPct)
	fmt.Fprintf(&b, "[Latest Intelligence]\nAI Tech Prediction: Target %.1f | Support %.1f\n", in.Tech.Target, in.Tech.Support)
	fmt.Fprintf(&b, "Macro Environment: Score %g (%s)\n", in.Macro.Score, in.Macro.Message)
	b.WriteString(conflict)
	b.WriteString(`
[Instructions]
1. **Evaluate Hold vs Sell:** Is the trend still intact?
2. **Conflict Resolution:** If P/L is positive but risks are rising, suggest trimming.
3. **Trailing Stop:** Suggest a new stop-loss price based on current price.

[Output Format]
**診斷結果：** [續抱 / 減碼獲利 (Sell Half) / 清倉離場 / 加碼]
**戰況分析：** [解釋多空矛盾與應對策略]
**戰術指令：** [明確的行動，包含移動停損點位]
Reply in Traditional Chinese.
`)
	return b.String()
}

func renderPostMortemPrompt(in PostMortemInput) string {
	downside := (in.CurrentPrice - in.Support) / in.CurrentPrice
	if downside < 0 {
		downside = -downside
	}
	riskReward := in.NewROIPct / (downside*100 + 0.1)

	var b strings.Builder
	b.WriteString("Role: Senior Portfolio Manager conducting a Post-Mortem Analysis (Deep Dive).\n\n")
	fmt.Fprintf(&b, "[Scenario]\nStock: %s\nToday's Move: %.2f%% (This is what happened)\n\n", in.Symbol, in.ChangePct)
	fmt.Fprintf(&b, "[Post-Market Re-Evaluation]\nAI updated Projection (After close): +%.2f%% Upside remaining.\n", in.NewROIPct)
	fmt.Fprintf(&b, "New Support Level: %.1f\nImplied Risk/Reward Ratio: %.2f\n", in.Support, riskReward)
	b.WriteString(`
[Analysis Task]
1. **Classify this move:**
   - Was this a "Good Miss" (High risk gambling, we were right to avoid)?
   - Or a "Bad Miss" (Solid fundamentals/techs, our system failed to catch it)?
2. **Future Outlook:**
   - Is it too late to enter tomorrow? (Chasing highs?)
   - Or is this just the beginning of a trend?

[Output Format]
**覆盤定性：** [系統盲點 / 風控正確 / 隨機波動]
**原因解析：** [為什麼會漲/跌？是籌碼？還是消息？]
**後市評估：** [明日操作建議：追價/拉回買/觀望]
Reply in Traditional Chinese. Keep it sharp and professional.
`)
	return b.String()
}
