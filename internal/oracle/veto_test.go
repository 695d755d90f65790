package oracle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVetoMatchesAcrossWhitespaceAndMarkdown(t *testing.T) {
	r, err := NewVetoRegistry("")
	require.NoError(t, err)

	reply := "**決策 ： 觀望**\n市場動能不足，等待回測支撐。"
	phrase, vetoed := r.IsVetoed(reply)
	assert.True(t, vetoed)
	assert.Equal(t, "決策：觀望", phrase)

	phrase, vetoed = r.IsVetoed("分析：\n建 議 空 手，等待宏觀訊號翻多。")
	assert.True(t, vetoed)
	assert.Equal(t, "建議空手", phrase)
}

func TestVetoApprovalPassesThrough(t *testing.T) {
	r, err := NewVetoRegistry("")
	require.NoError(t, err)

	_, vetoed := r.IsVetoed("**決策：** 強力買進\n**指令：** 投入 30% 資金。")
	assert.False(t, vetoed)
}

func TestVetoHalfWidthColonVariant(t *testing.T) {
	r, err := NewVetoRegistry("")
	require.NoError(t, err)

	_, vetoed := r.IsVetoed("決策: 賣出，趨勢已轉空。")
	assert.True(t, vetoed)
}

func TestVetoRegistryWritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veto_phrases.yaml")
	r, err := NewVetoRegistry(path)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "決策：觀望")

	snap := r.Snapshot()
	assert.Len(t, snap.Phrases, len(builtinVetoPhrases))
}

func TestVetoRegistryLoadsCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veto_phrases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 2\nphrases:\n  - 切勿追高\n"), 0o644))

	r, err := NewVetoRegistry(path)
	require.NoError(t, err)

	phrase, vetoed := r.IsVetoed("提醒：切 勿 追 高。")
	assert.True(t, vetoed)
	assert.Equal(t, "切勿追高", phrase)

	// 内建词表被自订内容取代
	_, vetoed = r.IsVetoed("決策：觀望")
	assert.False(t, vetoed)
}
