package review

import (
	"fmt"
	"os"
	"path/filepath"

	"tactician/internal/forecast"
	"tactician/internal/market"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// chartTailBars 图表只画最近这段走势，太长看不清重点。
const chartTailBars = 90

// RenderMoverChart 把异动标的的收盘走势与盘后预测带渲染成 HTML 文件，
// 返回写出的路径。
func RenderMoverChart(dir, symbol string, series *market.Series, f forecast.Forecast) (string, error) {
	if series.Len() == 0 {
		return "", fmt.Errorf("no candles for %s", symbol)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir failed: %w", err)
	}

	candles := series.Candles
	if len(candles) > chartTailBars {
		candles = candles[len(candles)-chartTailBars:]
	}

	xAxis := make([]string, len(candles))
	closeData := make([]opts.LineData, len(candles))
	targetData := make([]opts.LineData, len(candles))
	supportData := make([]opts.LineData, len(candles))
	for i, c := range candles {
		xAxis[i] = c.Date.Format("01-02")
		closeData[i] = opts.LineData{Value: c.Close}
		targetData[i] = opts.LineData{Value: f.Target}
		supportData[i] = opts.LineData{Value: f.Support}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s 盤後覆盤", symbol),
			Subtitle: f.Message,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("收盤", closeData)
	if f.Target > 0 {
		line.AddSeries("AI 目標", targetData,
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
	}
	if f.Support > 0 {
		line.AddSeries("AI 支撐", supportData,
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
	}

	path := filepath.Join(dir, fmt.Sprintf("review_%s.html", symbol))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file failed: %w", err)
	}
	defer out.Close()
	if err := line.Render(out); err != nil {
		return "", fmt.Errorf("render chart failed: %w", err)
	}
	return path, nil
}
