package decisionlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLatestRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := TacticRunModel{
		ID: NewRunID(), Status: string(RunStatusWait),
		Rationale: "已諮詢 3 檔", CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, s.SaveRun(ctx, old, nil))

	latest := TacticRunModel{
		ID: NewRunID(), Status: string(RunStatusAction),
		Symbol: "2330", ROIPct: 5.2, MacroScore: 1.5, MacroMessage: "費半大漲",
		Cash: 117000, Rationale: "覈准進場",
	}
	consults := []ConsultationModel{
		{Rank: 1, Symbol: "2609", ROIPct: 12.0, Outcome: string(OutcomeVetoed), MatchedPhrase: "決策：觀望"},
		{Rank: 2, Symbol: "2330", ROIPct: 5.2, Outcome: string(OutcomeApproved), Excerpt: "**決策：** 小額試單"},
	}
	require.NoError(t, s.SaveRun(ctx, latest, consults))

	run, got, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, latest.ID, run.ID)
	assert.Equal(t, string(RunStatusAction), run.Status)
	assert.Equal(t, "2330", run.Symbol)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, string(OutcomeVetoed), got[0].Outcome)
	assert.Equal(t, latest.ID, got[0].RunID)
}

func TestLatestRunEmpty(t *testing.T) {
	s := openTestStore(t)
	run, consults, err := s.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.Nil(t, consults)
}

func TestRunsSince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveRun(ctx, TacticRunModel{ID: NewRunID(), Status: string(RunStatusWait), CreatedAt: now.Add(-48 * time.Hour)}, nil))
	require.NoError(t, s.SaveRun(ctx, TacticRunModel{ID: NewRunID(), Status: string(RunStatusAction), Symbol: "2603", CreatedAt: now.Add(-time.Hour)}, nil))

	runs, err := s.RunsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "2603", runs[0].Symbol)
}

func TestSaveRunFillsDefaults(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveRun(context.Background(), TacticRunModel{Status: string(RunStatusWait)}, nil))
	run, _, err := s.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())
}
