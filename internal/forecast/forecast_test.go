package forecast

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tactician/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesOf(symbol string, closes []float64) *market.Series {
	s := &market.Series{Symbol: symbol}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s.Candles = append(s.Candles, market.Candle{Date: base.AddDate(0, 0, i), Close: c, Volume: 1000})
	}
	return s
}

// 稳定上升的走势，带轻微波动避免指标退化
func trendingUp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)*0.5 + 2*math.Sin(float64(i)/3)
	}
	return out
}

func TestScoreLadder(t *testing.T) {
	assert.Equal(t, 1.5, scoreLadder(0.05))
	assert.Equal(t, 1.0, scoreLadder(0.02))
	assert.Equal(t, -1.5, scoreLadder(0.01))
	assert.Equal(t, -1.5, scoreLadder(0.0))
	assert.Equal(t, -1.0, scoreLadder(-0.02))
}

func TestLocalEstimatorInsufficientData(t *testing.T) {
	f := NewLocalEstimator().Analyze(context.Background(), seriesOf("2330", trendingUp(30)))
	assert.Zero(t, f.Score)
	assert.Contains(t, f.Message, "數據不足")
	assert.Zero(t, f.Target)
}

func TestLocalEstimatorProducesBands(t *testing.T) {
	f := NewLocalEstimator().Analyze(context.Background(), seriesOf("2330", trendingUp(200)))
	assert.Greater(t, f.Current, 0.0)
	assert.Greater(t, f.Target, 0.0)
	assert.Greater(t, f.Support, 0.0)
	assert.Less(t, f.Support, f.Current)
	assert.Contains(t, f.Message, "目標")
	// 分数必须落在阶梯值上
	assert.Contains(t, []float64{1.5, 1, -1, -1.5}, f.Score)
}

func TestRemoteForecaster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2330", req.StockID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(predictResponse{Target: 1050, Support: 980})
	}))
	defer srv.Close()

	closes := trendingUp(150)
	closes[len(closes)-1] = 1000
	f := NewRemoteForecaster(srv.URL, nil).Analyze(context.Background(), seriesOf("2330", closes))
	assert.Equal(t, 1000.0, f.Current)
	assert.Equal(t, 1050.0, f.Target)
	assert.Equal(t, 980.0, f.Support)
	assert.Equal(t, 1.5, f.Score) // +5% 走阶梯
	assert.InDelta(t, 5.0, f.ROIPct(), 1e-9)
}

func TestRemoteForecasterFallsBackToLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewRemoteForecaster(srv.URL, NewLocalEstimator()).
		Analyze(context.Background(), seriesOf("2330", trendingUp(200)))
	assert.Contains(t, f.Message, "目標")
	assert.Greater(t, f.Current, 0.0)
}

func TestRemoteForecasterNoFallbackDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewRemoteForecaster(srv.URL, nil).Analyze(context.Background(), seriesOf("2330", trendingUp(150)))
	assert.Zero(t, f.Score)
	assert.Contains(t, f.Message, "推論錯誤")
}
