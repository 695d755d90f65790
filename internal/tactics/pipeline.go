package tactics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tactician/internal/ledger"
	"tactician/internal/logger"
	"tactician/internal/market"
	"tactician/internal/oracle"
	"tactician/internal/pkg/text"
	"tactician/internal/scanner"
	"tactician/internal/store/decisionlog"
)

// CandidateSource 提供候选标的。
type CandidateSource interface {
	Scan(ctx context.Context) ([]scanner.Candidate, error)
}

// MacroAnalyzer 提供宏观信号。
type MacroAnalyzer interface {
	Analyze(ctx context.Context) market.MacroSignal
}

// PortfolioReader 提供帐本快照。
type PortfolioReader interface {
	Snapshot() (*ledger.Snapshot, error)
}

// Options 流水线参数。
type Options struct {
	// SearchDepth 深度审核的候选上限，默认 15
	SearchDepth int
	// MinROIPct 低于此预期涨幅的候选直接刷掉，默认 1.5
	MinROIPct float64
	// Pace 相邻两次咨询之间的最小间隔，默认 1s
	Pace time.Duration
}

func (o Options) withDefaults() Options {
	if o.SearchDepth <= 0 {
		o.SearchDepth = 15
	}
	if o.MinROIPct <= 0 {
		o.MinROIPct = 1.5
	}
	if o.Pace <= 0 {
		o.Pace = time.Second
	}
	return o
}

// Pipeline 每日战术流水线。
type Pipeline struct {
	source    CandidateSource
	macro     MacroAnalyzer
	portfolio PortfolioReader
	advisor   oracle.Advisor
	veto      *oracle.VetoRegistry
	log       *decisionlog.Store
	opts      Options

	// sleep 可注入测试替身
	sleep func(context.Context, time.Duration)
}

// NewPipeline 构造流水线。log 可为 nil（不落盘）。
func NewPipeline(source CandidateSource, macro MacroAnalyzer, portfolio PortfolioReader,
	advisor oracle.Advisor, veto *oracle.VetoRegistry, log *decisionlog.Store, opts Options) *Pipeline {
	return &Pipeline{
		source:    source,
		macro:     macro,
		portfolio: portfolio,
		advisor:   advisor,
		veto:      veto,
		log:       log,
		opts:      opts.withDefaults(),
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// GenerateDailyTactics 生成今日战术指令。
// 按 ROI 降序逐档送交投资长审核，首个未被否决的候选即为 ACTION；
// 候选耗尽则返回 WAIT。先知断线只跳过该档，不视为否决。
func (p *Pipeline) GenerateDailyTactics(ctx context.Context) (*Report, error) {
	logger.Infof("[战术] 正在召集所有 Agent 進行戰略會議...")

	sig := p.macro.Analyze(ctx)

	snap, err := p.portfolio.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("read portfolio failed: %w", err)
	}
	cash := snap.Cash

	candidates, err := p.source.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan candidates failed: %w", err)
	}

	var trail []decisionlog.ConsultationModel

	if len(candidates) == 0 {
		report := waitReport(sig.Score, sig.Message, cash, "全市場掃描完成，無符合 AI 標準之標的。")
		p.persist(ctx, report, trail)
		return report, nil
	}

	if len(candidates) > p.opts.SearchDepth {
		candidates = candidates[:p.opts.SearchDepth]
	}
	logger.Infof("[战术] 啟動投資長深度審核 (檢查 Top %d)...", p.opts.SearchDepth)

	portfolioCtx := portfolioContext(snap)
	consulted := false

	for i, c := range candidates {
		rank := i + 1
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if c.ROIPct < p.opts.MinROIPct {
			logger.Infof("[战术] [#%d] %s (ROI %.2f%%) 被戰術官直接刷掉 (利潤太少)", rank, c.Symbol, c.ROIPct)
			trail = append(trail, consultation(rank, c, decisionlog.OutcomeFiltered, "", ""))
			continue
		}

		// 咨询之间保持最小间隔，保护 API 配额
		if consulted {
			p.sleep(ctx, p.opts.Pace)
		}
		consulted = true

		logger.Infof("[战术] [#%d/%d] 正在讓投資長審核: %s (ROI %.2f%%) ...", rank, p.opts.SearchDepth, c.Symbol, c.ROIPct)

		analysis, cerr := p.advisor.Consult(ctx, oracle.ConsultInput{
			Symbol: c.Symbol,
			Tech:   oracle.TechData{Price: c.Price, Target: c.Target, Support: c.Support},
			Strategy: oracle.StrategyContext{
				Strategy:        "認購權證 (Call Warrant)",
				StopLossTrigger: fmt.Sprintf("跌破 %.1f", c.Support),
			},
			Macro:     oracle.MacroData{Score: sig.Score, Message: sig.Message},
			Portfolio: portfolioCtx,
		})
		if cerr != nil {
			if errors.Is(cerr, oracle.ErrUnavailable) {
				logger.Warnf("[战术] 投資長連線異常，跳過 %s", c.Symbol)
				trail = append(trail, consultation(rank, c, decisionlog.OutcomeSkipped, "", ""))
				continue
			}
			return nil, cerr
		}

		if phrase, vetoed := p.veto.IsVetoed(analysis); vetoed {
			logger.Infof("[战术] 投資長否決 %s (命中: %s)，繼續尋找...", c.Symbol, phrase)
			trail = append(trail, consultation(rank, c, decisionlog.OutcomeVetoed, phrase, analysis))
			continue
		}

		logger.Infof("[战术] 投資長核准！鎖定標的: %s", c.Symbol)
		trail = append(trail, consultation(rank, c, decisionlog.OutcomeApproved, "", analysis))
		report := &Report{
			Status:     StatusAction,
			Symbol:     c.Symbol,
			Price:      c.Price,
			ROIPct:     c.ROIPct,
			Target:     c.Target,
			Support:    c.Support,
			MacroScore: sig.Score,
			MacroMsg:   sig.Message,
			Cash:       cash,
			Analysis:   analysis,
		}
		p.persist(ctx, report, trail)
		return report, nil
	}

	report := waitReport(sig.Score, sig.Message, cash, fmt.Sprintf(
		"已深度審核今日最佳的 %d 檔標的，但全數因風險過高或總經因素被投資長否決。今日強烈建議空手。",
		p.opts.SearchDepth))
	p.persist(ctx, report, trail)
	return report, nil
}

func consultation(rank int, c scanner.Candidate, outcome decisionlog.ConsultOutcome, phrase, analysis string) decisionlog.ConsultationModel {
	const excerptLimit = 500
	return decisionlog.ConsultationModel{
		Rank:          rank,
		Symbol:        c.Symbol,
		ROIPct:        c.ROIPct,
		Outcome:       string(outcome),
		MatchedPhrase: phrase,
		Excerpt:       text.Truncate(analysis, excerptLimit),
	}
}

func portfolioContext(snap *ledger.Snapshot) oracle.PortfolioContext {
	out := oracle.PortfolioContext{Cash: snap.Cash}
	for _, p := range snap.Positions {
		out.Positions = append(out.Positions, oracle.PositionContext{
			Symbol:  p.Symbol,
			Type:    string(p.Type),
			AvgCost: p.AvgCost,
			Qty:     p.Qty,
		})
	}
	return out
}

// persist 落盘本次生成；失败只记警告，不影响报告返回。
func (p *Pipeline) persist(ctx context.Context, report *Report, trail []decisionlog.ConsultationModel) {
	if p.log == nil {
		return
	}
	run := decisionlog.TacticRunModel{
		ID:           decisionlog.NewRunID(),
		Status:       string(report.Status),
		Symbol:       report.Symbol,
		ROIPct:       report.ROIPct,
		MacroScore:   report.MacroScore,
		MacroMessage: report.MacroMsg,
		Cash:         report.Cash,
		Rationale:    report.Analysis,
	}
	if err := p.log.SaveRun(ctx, run, trail); err != nil {
		logger.Warnf("[战术] 决策日志写入失败: %v", err)
		return
	}
	report.RunID = run.ID
}
