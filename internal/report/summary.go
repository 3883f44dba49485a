package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"CryptoForecast/internal/model"
)

func optFmt(p *float64, format string) string {
	if p == nil {
		return "undefined"
	}
	return fmt.Sprintf(format, *p)
}

// WriteSummary prints a human-readable overview of a run.
func WriteSummary(w io.Writer, res *model.RunResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", res.ID)
	fmt.Fprintf(tw, "asset\t%s/%s\n", res.Symbol, res.Market)
	fmt.Fprintf(tw, "model\t%s\n", res.Model)
	fmt.Fprintf(tw, "rows\t%d (train %d, test %d, dropped %d)\n", res.Dataset.Len(), res.TrainSize, res.TestSize, res.Dropped)
	fmt.Fprintf(tw, "mae\t%.4f\n", res.Metrics.MAE)
	fmt.Fprintf(tw, "rmse\t%.4f\n", res.Metrics.RMSE)
	fmt.Fprintf(tw, "mape\t%s\n", optFmt(res.Metrics.MAPE, "%.2f%%"))
	fmt.Fprintf(tw, "directional accuracy\t%s\n", optFmt(res.Metrics.DirectionalAccuracy, "%.3f"))
	for _, n := range res.Metrics.Notes {
		fmt.Fprintf(tw, "note\t%s\n", n)
	}
	fmt.Fprintf(tw, "forecast base\t%.2f\n", res.Forecast.Base)
	for _, p := range res.Forecast.Points {
		fmt.Fprintf(tw, "  %s\t%.2f\n", p.Time.Format(dateLayout), p.Close)
	}
	return tw.Flush()
}
