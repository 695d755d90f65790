package logger

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeToFileWritesLogFile(t *testing.T) {
	defer func() {
		SetOutput(os.Stdout)
		log.SetOutput(os.Stderr)
	}()

	path := filepath.Join(t.TempDir(), "logs", "tactician.log")
	closer, err := TeeToFile(path)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	Infof("[扫描] 候选 %s 通过初筛", "2330")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2330")
}

func TestTeeToFileEmptyPathIsNoop(t *testing.T) {
	closer, err := TeeToFile("  ")
	require.NoError(t, err)
	assert.Nil(t, closer)
}

func TestOracleAuditSeparatesSections(t *testing.T) {
	var buf bytes.Buffer
	SetOracleWriter(&buf)
	EnableOraclePayloadDump(false)
	defer SetOracleWriter(nil)

	LogOracleRequest("consult", "你是投資長", "報告內容", `{"model":"m"}`)

	out := buf.String()
	assert.Contains(t, out, "[ORACLE][request][consult]")
	assert.Contains(t, out, "--- SYSTEM ---")
	assert.Contains(t, out, "--- USER ---")
	// 未开启 dump 时请求 JSON 不落盘
	assert.NotContains(t, out, "--- PAYLOAD ---")
}
