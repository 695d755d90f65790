package oracle

import (
	"context"
	"fmt"
)

// StubAdvisor 是离线用的确定性顾问：按固定阈值给出核准/观望。
// 主要用于测试与未配置 API Key 时的演练模式。
type StubAdvisor struct {
	// MinROIPct 低于此预期涨幅一律观望，默认 2.0
	MinROIPct float64
}

func (s *StubAdvisor) minROI() float64 {
	if s == nil || s.MinROIPct <= 0 {
		return 2.0
	}
	return s.MinROIPct
}

func (s *StubAdvisor) Consult(_ context.Context, in ConsultInput) (string, error) {
	if in.Macro.Score < -1 || in.Tech.ROIPct() < s.minROI() {
		return fmt.Sprintf("**決策：** 觀望\n**風險分析：** %s 預期報酬 %.2f%% 不足或宏觀轉弱。\n**指令：** 暫不進場。",
			in.Symbol, in.Tech.ROIPct()), nil
	}
	return fmt.Sprintf("**決策：** 小額試單\n**風險分析：** %s 預期報酬 %.2f%%，支撐 %.1f。\n**指令：** 投入 10%% 資金，跌破 %.1f 停損。",
		in.Symbol, in.Tech.ROIPct(), in.Tech.Support, in.Tech.Support), nil
}

func (s *StubAdvisor) Compare(_ context.Context, in CompareInput) (string, error) {
	cost := in.SwitchCostPct
	if cost <= 0 {
		cost = 0.6
	}
	if in.Challenger.ROIPct > in.Incumbent.ROIPct+cost*2 {
		return fmt.Sprintf("**決策：** 換股\n**分析：** 挑戰者 %s (+%.2f%%) 明顯優於現任 %s (+%.2f%%)，扣除成本仍划算。",
			in.Challenger.ID, in.Challenger.ROIPct, in.Incumbent.ID, in.Incumbent.ROIPct), nil
	}
	return fmt.Sprintf("**決策：** 續抱\n**分析：** 優勢不足以覆蓋 %.1f%% 摩擦成本。", cost), nil
}

func (s *StubAdvisor) ReviewHolding(_ context.Context, in ReviewInput) (string, error) {
	roiPct := 0.0
	if in.AvgCost > 0 {
		roiPct = (in.Tech.Price - in.AvgCost) / in.AvgCost * 100
	}
	if in.Tech.Price < in.Tech.Support {
		return fmt.Sprintf("**診斷結果：** 清倉離場\n**戰況分析：** %s 已跌破支撐 %.1f。\n**戰術指令：** 明日開盤出清。",
			in.Symbol, in.Tech.Support), nil
	}
	return fmt.Sprintf("**診斷結果：** 續抱\n**戰況分析：** %s 未實現損益 %.2f%%，趨勢未破壞。\n**戰術指令：** 停損上移至 %.1f。",
		in.Symbol, roiPct, in.Tech.Support), nil
}

func (s *StubAdvisor) PostMortem(_ context.Context, in PostMortemInput) (string, error) {
	verdict := "隨機波動"
	if in.ChangePct > 3 && in.NewROIPct > s.minROI() {
		verdict = "系統盲點"
	} else if in.ChangePct < -3 {
		verdict = "風控正確"
	}
	return fmt.Sprintf("**覆盤定性：** %s\n**原因解析：** %s 當日變動 %.2f%%。\n**後市評估：** 觀望。",
		verdict, in.Symbol, in.ChangePct), nil
}
