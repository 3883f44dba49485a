package notifier

import (
	"fmt"
	"strings"

	"CryptoForecast/internal/calculator"
	"CryptoForecast/internal/model"
	"CryptoForecast/internal/recorder"
)

func pct(p *float64, scale float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *p*scale)
}

// FormatRunSummary formats a finished run into a Telegram message.
func FormatRunSummary(res *model.RunResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s/%s 月度预测</b> | %s\n\n", res.Symbol, res.Market, res.FinishedAt.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("模型: %s\n", res.Model))
	b.WriteString(fmt.Sprintf("样本: %d 行 (训练 %d / 测试 %d, 丢弃 %d)\n", res.Dataset.Len(), res.TrainSize, res.TestSize, res.Dropped))
	if line := maLine(res.Dataset); line != "" {
		b.WriteString(line)
	}
	b.WriteString("\n")

	b.WriteString("📈 <b>回测误差:</b>\n")
	b.WriteString(fmt.Sprintf("  MAE: %.2f | RMSE: %.2f\n", res.Metrics.MAE, res.Metrics.RMSE))
	b.WriteString(fmt.Sprintf("  MAPE: %s | 方向准确率: %s\n", pct(res.Metrics.MAPE, 1), pct(res.Metrics.DirectionalAccuracy, 100)))
	for _, note := range res.Metrics.Notes {
		b.WriteString(fmt.Sprintf("  ⚠️ %s\n", note))
	}

	if n := len(res.Forecast.Points); n > 0 {
		last := res.Forecast.Points[n-1]
		change := 0.0
		if res.Forecast.Base != 0 {
			change = (last.Close - res.Forecast.Base) / res.Forecast.Base * 100
		}
		b.WriteString(fmt.Sprintf("\n🔮 <b>未来 %d 个月:</b>\n", n))
		b.WriteString(fmt.Sprintf("  基准预测: %.2f\n", res.Forecast.Base))
		b.WriteString(fmt.Sprintf("  %s: %.2f (%+.1f%%)\n", last.Time.Format("2006-01"), last.Close, change))
	}
	return b.String()
}

// maLine renders the latest close against each moving-average tip.
func maLine(ds model.Dataset) string {
	if ds.Len() == 0 {
		return ""
	}
	closes := make([]float64, ds.Len())
	for i, r := range ds.Rows {
		closes[i] = r.Close
	}
	last := closes[len(closes)-1]
	parts := []string{fmt.Sprintf("最新收盘: %.2f", last)}
	for _, w := range ds.Windows {
		ma, err := calculator.SMA(closes, w)
		if err != nil || ma == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("MA%d: %.2f (%+.1f%%)", w, ma, (last-ma)/ma*100))
	}
	return strings.Join(parts, " | ") + "\n"
}

// FormatLastRun formats a stored run summary for the /metrics command.
func FormatLastRun(s *recorder.RunSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>最近一次运行</b> | %s\n\n", s.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("标的: %s/%s | 模型: %s\n", s.Symbol, s.Market, s.Model))
	b.WriteString(fmt.Sprintf("样本: %d 行 | 回测点: %d | 预测点: %d\n", s.DatasetRows, s.BacktestPoints, s.ForecastPoints))
	b.WriteString(fmt.Sprintf("MAE: %.2f | RMSE: %.2f\n", s.MAE, s.RMSE))
	b.WriteString(fmt.Sprintf("MAPE: %s | 方向准确率: %s\n", pct(s.MAPE, 1), pct(s.DirectionalAccuracy, 100)))
	b.WriteString(fmt.Sprintf("预测终点 %s: %.2f\n", s.ForecastEnd.Format("2006-01"), s.ForecastFinal))
	return b.String()
}

// FormatError formats a failed run.
func FormatError(symbol string, err error) string {
	return fmt.Sprintf("❌ <b>%s 预测失败</b>\n\n%s", symbol, err)
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "可用命令:\n/forecast - 立即运行预测\n/metrics - 查看最近一次回测指标\n/help - 帮助"
}
