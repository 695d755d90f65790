package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"tactician/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatResponse(content string) []byte {
	raw, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return raw
}

func TestChatClientCallsCompletionsEndpoint(t *testing.T) {
	var gotPath string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gemini-2.5-pro", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		w.Write(chatResponse("**決策：** 小額試單"))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL, APIKey: "test-key", Model: "gemini-2.5-pro"}
	out, err := c.CallWithMessages(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "**決策：** 小額試單", out)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestChatClientNormalizesBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write(chatResponse("ok"))
	}))
	defer srv.Close()

	// 配置里已经带上 /chat/completions 也不会重复拼接
	c := &ChatClient{BaseURL: srv.URL + "/v1beta/openai/chat/completions/", APIKey: "k", Model: "m"}
	_, err := c.CallWithMessages(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "/v1beta/openai/chat/completions", gotPath)
}

func TestChatClientRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		w.Write(chatResponse("second try"))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL, APIKey: "k", Model: "m", MaxRetries: 2}
	out, err := c.CallWithMessages(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "second try", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatClientStopsOnNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL, APIKey: "k", Model: "m", MaxRetries: 3}
	_, err := c.CallWithMessages(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatClientWritesAuditLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatResponse("ok"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger.SetOracleWriter(&buf)
	logger.EnableOraclePayloadDump(true)
	defer func() {
		logger.SetOracleWriter(nil)
		logger.EnableOraclePayloadDump(false)
	}()

	c := &ChatClient{BaseURL: srv.URL, APIKey: "k", Model: "gemini-2.5-pro"}
	_, err := c.CallWithMessages(context.Background(), "系統提示", "使用者提示")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[ORACLE][request][chat]")
	assert.Contains(t, out, "系統提示")
	// 开启 payload dump 后请求 JSON 也要落盘
	assert.Contains(t, out, `"gemini-2.5-pro"`)
	assert.Contains(t, out, "[ORACLE][response][chat]")
}

func TestChatClientWithoutKeyIsUnavailable(t *testing.T) {
	c := &ChatClient{BaseURL: "http://127.0.0.1:1", Model: "m"}
	_, err := c.CallWithMessages(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChatAdvisorWrapsFailuresAsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewChatAdvisor(&ChatClient{BaseURL: srv.URL, APIKey: "k", Model: "m", MaxRetries: 1})
	_, err := a.Consult(context.Background(), ConsultInput{Symbol: "2330"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestConsultPromptCarriesLiquidityWarningForWarrants(t *testing.T) {
	in := ConsultInput{
		Symbol: "031234",
		Tech:   TechData{Price: 1.2, Target: 1.5, Support: 1.1},
		Strategy: StrategyContext{
			Strategy:        "認購權證短打",
			StopLossTrigger: "跌破 1.1 出場",
		},
		Portfolio: PortfolioContext{Cash: 50000},
	}
	prompt := renderConsultPrompt(in)
	assert.Contains(t, prompt, "[CRITICAL WARNING: LIQUIDITY LOCK-IN]")
	assert.Contains(t, prompt, "Warrants CANNOT be day-traded")
	assert.Contains(t, prompt, "031234")
	assert.Contains(t, prompt, "決策：")

	// 非权证策略不应带警示区块；[Task] 里的静态规则文字不算
	plain := renderConsultPrompt(ConsultInput{
		Symbol:   "2330",
		Tech:     TechData{Price: 1000, Target: 1100, Support: 950},
		Strategy: StrategyContext{Strategy: "現股波段"},
	})
	assert.NotContains(t, plain, "[CRITICAL WARNING: LIQUIDITY LOCK-IN]")
	assert.NotContains(t, plain, "Warrants CANNOT be day-traded")
}

func TestReviewPromptFlagsProfitRiskConflict(t *testing.T) {
	prompt := renderReviewPrompt(ReviewInput{
		Symbol:  "2603",
		Type:    "Equity",
		AvgCost: 100,
		Qty:     1000,
		Tech:    TechData{Price: 110, Target: 115, Support: 112},
		Macro:   MacroData{Score: 0, Message: "中性"},
	})
	assert.Contains(t, prompt, "CONFLICT DETECTED")

	calm := renderReviewPrompt(ReviewInput{
		Symbol:  "2603",
		AvgCost: 100,
		Tech:    TechData{Price: 110, Target: 120, Support: 105},
		Macro:   MacroData{Score: 1, Message: "偏多"},
	})
	assert.NotContains(t, calm, "CONFLICT DETECTED")
}
