// Package tactics 实现每日战术流水线：扫描、逐档咨询、否决比对与换股对决。
package tactics

import (
	"fmt"
	"strings"
)

// Status 战术报告的终局状态。
type Status string

const (
	StatusAction Status = "ACTION"
	StatusWait   Status = "WAIT"
)

// Report 一次战术生成的完整结论。
type Report struct {
	Status     Status  `json:"status"`
	Symbol     string  `json:"stock_id"`
	Price      float64 `json:"price,omitempty"`
	ROIPct     float64 `json:"roi,omitempty"`
	Target     float64 `json:"ai_target,omitempty"`
	Support    float64 `json:"support,omitempty"`
	MacroScore float64 `json:"macro_score"`
	MacroMsg   string  `json:"macro_msg"`
	Cash       float64 `json:"cash"`
	Reason     string  `json:"reason,omitempty"`
	Analysis   string  `json:"gemini_analysis"`
	RunID      string  `json:"run_id,omitempty"`
}

// waitReport 组装观望报告，分析字段用固定的观望文案。
func waitReport(macroScore float64, macroMsg string, cash float64, reason string) *Report {
	return &Report{
		Status:     StatusWait,
		Symbol:     "N/A",
		MacroScore: macroScore,
		MacroMsg:   macroMsg,
		Cash:       cash,
		Reason:     reason,
		Analysis:   fmt.Sprintf("**決策：** 觀望\n**分析：** %s\n**指令：** 保持 100%% 現金部位，靜待機會。", reason),
	}
}

// Markdown 渲染人读版战术报告。
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# 今日戰術指令\n\n")
	fmt.Fprintf(&b, "- 狀態: **%s**\n", r.Status)
	if r.Status == StatusAction {
		fmt.Fprintf(&b, "- 標的: **%s** @ %.2f\n", r.Symbol, r.Price)
		fmt.Fprintf(&b, "- 預期漲幅: %.2f%% (目標 %.1f / 支撐 %.1f)\n", r.ROIPct, r.Target, r.Support)
	}
	fmt.Fprintf(&b, "- 宏觀: %g (%s)\n", r.MacroScore, r.MacroMsg)
	fmt.Fprintf(&b, "- 現金: $%.0f\n", r.Cash)
	if r.Reason != "" {
		fmt.Fprintf(&b, "- 原因: %s\n", r.Reason)
	}
	b.WriteString("\n## 投資長分析\n\n")
	b.WriteString(r.Analysis)
	b.WriteString("\n")
	return b.String()
}
