package tactics

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"tactician/internal/ledger"
	"tactician/internal/market"
	"tactician/internal/oracle"
	"tactician/internal/scanner"
	"tactician/internal/store/decisionlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	candidates []scanner.Candidate
	err        error
}

func (f *fakeSource) Scan(context.Context) ([]scanner.Candidate, error) {
	return f.candidates, f.err
}

type fakeMacro struct{ sig market.MacroSignal }

func (f *fakeMacro) Analyze(context.Context) market.MacroSignal { return f.sig }

type fakePortfolio struct {
	snap *ledger.Snapshot
	err  error
}

func (f *fakePortfolio) Snapshot() (*ledger.Snapshot, error) { return f.snap, f.err }

// scriptedAdvisor 按 symbol 返回预设回覆；未列出的 symbol 视为断线。
type scriptedAdvisor struct {
	replies  map[string]string
	consults []string
}

func (a *scriptedAdvisor) Consult(_ context.Context, in oracle.ConsultInput) (string, error) {
	a.consults = append(a.consults, in.Symbol)
	reply, ok := a.replies[in.Symbol]
	if !ok {
		return "", oracle.ErrUnavailable
	}
	return reply, nil
}

func (a *scriptedAdvisor) Compare(context.Context, oracle.CompareInput) (string, error) {
	return "", oracle.ErrUnavailable
}

func (a *scriptedAdvisor) ReviewHolding(context.Context, oracle.ReviewInput) (string, error) {
	return "", oracle.ErrUnavailable
}

func (a *scriptedAdvisor) PostMortem(context.Context, oracle.PostMortemInput) (string, error) {
	return "", oracle.ErrUnavailable
}

func candidate(symbol string, roiPct float64) scanner.Candidate {
	return scanner.Candidate{
		Symbol: symbol, Price: 100, Target: 100 * (1 + roiPct/100),
		ROIPct: roiPct, Support: 95, Score: 1,
	}
}

func newTestPipeline(t *testing.T, source *fakeSource, advisor oracle.Advisor, log *decisionlog.Store, opts Options) (*Pipeline, *int) {
	t.Helper()
	veto, err := oracle.NewVetoRegistry("")
	require.NoError(t, err)
	p := NewPipeline(source, &fakeMacro{sig: market.MacroSignal{Score: 0.5, Message: "ADR 1.00%"}},
		&fakePortfolio{snap: &ledger.Snapshot{Cash: 117000}}, advisor, veto, log, opts)
	sleeps := 0
	p.sleep = func(context.Context, time.Duration) { sleeps++ }
	return p, &sleeps
}

func TestPipelineFirstApprovedWins(t *testing.T) {
	advisor := &scriptedAdvisor{replies: map[string]string{
		"2609": "**決策：** 觀望\n風險過高。",
		"2330": "**決策：** 小額試單\n**指令：** 投入 10% 資金。",
		"2454": "**決策：** 強力買進",
	}}
	source := &fakeSource{candidates: []scanner.Candidate{
		candidate("2609", 12), candidate("2330", 5), candidate("2454", 3),
	}}
	p, sleeps := newTestPipeline(t, source, advisor, nil, Options{})

	report, err := p.GenerateDailyTactics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusAction, report.Status)
	assert.Equal(t, "2330", report.Symbol)
	assert.InDelta(t, 5.0, report.ROIPct, 1e-9)
	assert.Equal(t, 117000.0, report.Cash)
	assert.Contains(t, report.Analysis, "小額試單")
	// 首个核准即收手，第三档不再咨询
	assert.Equal(t, []string{"2609", "2330"}, advisor.consults)
	// 两次咨询之间恰好一次节流等待
	assert.Equal(t, 1, *sleeps)
}

func TestPipelineLowROIFilteredWithoutConsult(t *testing.T) {
	advisor := &scriptedAdvisor{replies: map[string]string{
		"2330": "**決策：** 小額試單",
	}}
	source := &fakeSource{candidates: []scanner.Candidate{
		candidate("2609", 1.2), // 低于门槛，不送审
		candidate("2330", 5),
	}}
	p, _ := newTestPipeline(t, source, advisor, nil, Options{})

	report, err := p.GenerateDailyTactics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusAction, report.Status)
	assert.Equal(t, []string{"2330"}, advisor.consults)
}

func TestPipelineUnavailableOracleSkipsNotVetoes(t *testing.T) {
	advisor := &scriptedAdvisor{replies: map[string]string{
		"2454": "**決策：** 強力買進",
	}}
	source := &fakeSource{candidates: []scanner.Candidate{
		candidate("2609", 12), // 断线 → 跳过
		candidate("2454", 5),
	}}
	p, _ := newTestPipeline(t, source, advisor, nil, Options{})

	report, err := p.GenerateDailyTactics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusAction, report.Status)
	assert.Equal(t, "2454", report.Symbol)
}

func TestPipelineAllVetoedExhaustsToWait(t *testing.T) {
	advisor := &scriptedAdvisor{replies: map[string]string{}}
	var cands []scanner.Candidate
	for i := 0; i < 20; i++ {
		sym := fmt.Sprintf("28%02d", i)
		advisor.replies[sym] = "**決策：** 觀望"
		cands = append(cands, candidate(sym, 10-float64(i)*0.1))
	}
	source := &fakeSource{candidates: cands}
	p, sleeps := newTestPipeline(t, source, advisor, nil, Options{})

	report, err := p.GenerateDailyTactics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusWait, report.Status)
	assert.Equal(t, "N/A", report.Symbol)
	// 搜索深度封顶 15 档
	assert.Len(t, advisor.consults, 15)
	assert.Equal(t, 14, *sleeps)
	assert.Contains(t, report.Reason, "15 檔")
	assert.Contains(t, report.Analysis, "**決策：** 觀望")
}

func TestPipelineEmptyScanWaits(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeSource{}, &scriptedAdvisor{}, nil, Options{})
	report, err := p.GenerateDailyTactics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusWait, report.Status)
	assert.Contains(t, report.Reason, "無符合 AI 標準之標的")
}

func TestPipelinePersistsRunAndTrail(t *testing.T) {
	log, err := decisionlog.Open(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	defer log.Close()

	advisor := &scriptedAdvisor{replies: map[string]string{
		"2609": "**決策：** 觀望",
		"2330": "**決策：** 小額試單",
	}}
	source := &fakeSource{candidates: []scanner.Candidate{
		candidate("2609", 12), candidate("1101", 1.0), candidate("2330", 5),
	}}
	p, _ := newTestPipeline(t, source, advisor, log, Options{})

	report, err := p.GenerateDailyTactics(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)

	run, trail, err := log.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, report.RunID, run.ID)
	assert.Equal(t, string(decisionlog.RunStatusAction), run.Status)
	assert.Equal(t, "2330", run.Symbol)
	require.Len(t, trail, 3)
	assert.Equal(t, string(decisionlog.OutcomeVetoed), trail[0].Outcome)
	assert.Equal(t, "決策：觀望", trail[0].MatchedPhrase)
	assert.Equal(t, string(decisionlog.OutcomeFiltered), trail[1].Outcome)
	assert.Equal(t, string(decisionlog.OutcomeApproved), trail[2].Outcome)
}

func TestReportMarkdown(t *testing.T) {
	r := &Report{
		Status: StatusAction, Symbol: "2330", Price: 1000, ROIPct: 5,
		Target: 1050, Support: 950, MacroScore: 1.5, MacroMsg: "費半大漲",
		Cash: 117000, Analysis: "**決策：** 小額試單",
	}
	md := r.Markdown()
	assert.Contains(t, md, "2330")
	assert.Contains(t, md, "ACTION")
	assert.Contains(t, md, "投資長分析")
}
