package forecast

import (
	"context"
	"fmt"
	"time"

	"tactician/internal/logger"
	"tactician/internal/market"

	"github.com/go-resty/resty/v2"
)

// RemoteForecaster 调用外部模型推论服务（POST /predict）。
// 失败时不报错，退回 fallback（若有）或 0 分诊断。
type RemoteForecaster struct {
	client   *resty.Client
	fallback Forecaster
}

type predictRequest struct {
	StockID string    `json:"stock_id"`
	Closes  []float64 `json:"closes"`
}

type predictResponse struct {
	Score   float64 `json:"score"`
	Message string  `json:"message"`
	Target  float64 `json:"target"`
	Support float64 `json:"support"`
}

// NewRemoteForecaster 构造远端推论客户端。fallback 可为 nil。
func NewRemoteForecaster(baseURL string, fallback Forecaster) *RemoteForecaster {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(1)
	return &RemoteForecaster{client: client, fallback: fallback}
}

func (r *RemoteForecaster) Analyze(ctx context.Context, series *market.Series) Forecast {
	if series.Len() < minWindow {
		return Forecast{Score: 0, Message: fmt.Sprintf("數據不足 (%d)", series.Len())}
	}
	closes := series.Closes()
	curr := closes[len(closes)-1]

	var out predictResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(predictRequest{StockID: series.Symbol, Closes: closes}).
		SetResult(&out).
		Post("/predict")
	if err != nil || resp.IsError() {
		if err == nil {
			err = fmt.Errorf("status=%d", resp.StatusCode())
		}
		if r.fallback != nil {
			logger.Warnf("[预测] 推論服務離線，改用本地估计 %s: %v", series.Symbol, err)
			return r.fallback.Analyze(ctx, series)
		}
		return Forecast{Score: 0, Message: fmt.Sprintf("推論錯誤: %v", err)}
	}

	target := out.Target
	roi := 0.0
	if curr > 0 {
		roi = (target - curr) / curr
	}
	score := out.Score
	if score == 0 {
		score = scoreLadder(roi)
	}
	msg := out.Message
	if msg == "" {
		msg = fmt.Sprintf("目標 %.1f (%.2f%%)", target, roi*100)
	}
	return Forecast{
		Score:   score,
		Message: msg,
		Current: curr,
		Target:  target,
		Support: out.Support,
	}
}
