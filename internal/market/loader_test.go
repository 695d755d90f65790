package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candleServer(t *testing.T, calls *atomic.Int32, rows []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/data", r.URL.Path)
		assert.Equal(t, "TaiwanStockPrice", r.URL.Query().Get("dataset"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"msg": "success", "status": 200, "data": rows,
		})
	}))
}

func TestLoaderFetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	today := time.Now().Format("2006-01-02")
	rows := make([]map[string]any, 0, minCacheBars+1)
	base := time.Now().AddDate(0, 0, -minCacheBars)
	for i := 0; i < minCacheBars; i++ {
		rows = append(rows, map[string]any{
			"date": base.AddDate(0, 0, i).Format("2006-01-02"), "stock_id": "2330",
			"Trading_Volume": 1000, "close": 900.0 + float64(i),
		})
	}
	rows = append(rows, map[string]any{
		"date": today, "stock_id": "2330", "Trading_Volume": 2000, "close": 1000.0,
	})
	srv := candleServer(t, &calls, rows)
	defer srv.Close()

	cache, err := OpenCandleCache(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	defer cache.Close()

	l := NewLoader(srv.URL, "tok", cache, time.Now().AddDate(-1, 0, 0))
	s, err := l.Fetch(context.Background(), "2330", false)
	require.NoError(t, err)
	require.Equal(t, minCacheBars+1, s.Len())
	last, _ := s.Last()
	assert.Equal(t, 1000.0, last.Close)

	// 第二次命中缓存，不再打远端
	s2, err := l.Fetch(context.Background(), "2330", false)
	require.NoError(t, err)
	assert.Equal(t, s.Len(), s2.Len())
	assert.Equal(t, int32(1), calls.Load())

	// 强制刷新绕过缓存
	_, err = l.Fetch(context.Background(), "2330", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoaderFallsBackToCacheOnRemoteFailure(t *testing.T) {
	cache, err := OpenCandleCache(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	defer cache.Close()

	seed := &Series{Symbol: "2603"}
	base := time.Now().AddDate(0, 0, -10)
	for i := 0; i < 5; i++ {
		seed.Candles = append(seed.Candles, Candle{Date: base.AddDate(0, 0, i), Close: 100 + float64(i), Volume: 10})
	}
	require.NoError(t, cache.Save(context.Background(), seed))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := NewLoader(srv.URL, "", cache, time.Now().AddDate(-1, 0, 0))
	l.client.SetRetryCount(0)
	s, err := l.Fetch(context.Background(), "2603", false)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
}

func TestLoaderDropsZeroCloses(t *testing.T) {
	var calls atomic.Int32
	srv := candleServer(t, &calls, []map[string]any{
		{"date": "2026-08-27", "stock_id": "2330", "Trading_Volume": 100, "close": 0.0},
		{"date": "2026-08-28", "stock_id": "2330", "Trading_Volume": 100, "close": 995.0},
	})
	defer srv.Close()

	l := NewLoader(srv.URL, "", nil, time.Now().AddDate(-1, 0, 0))
	s, err := l.Fetch(context.Background(), "2330", false)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, 995.0, s.Candles[0].Close)
}

func TestCandleCacheRoundTrip(t *testing.T) {
	cache, err := OpenCandleCache(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	defer cache.Close()

	in := &Series{Symbol: "2330", Candles: []Candle{
		{Date: time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), Close: 990, Volume: 12345, ForeignBuySell: 100},
		{Date: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), Close: 1000, Volume: 23456},
	}}
	require.NoError(t, cache.Save(context.Background(), in))

	// 覆盖重复日期
	in.Candles[1].Close = 1010
	require.NoError(t, cache.Save(context.Background(), in))

	out, err := cache.Load(context.Background(), "2330", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, 1010.0, out.Candles[1].Close)
	assert.Equal(t, 100.0, out.Candles[0].ForeignBuySell)
}
