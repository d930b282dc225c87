package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/threshold.report/internal/simulate"
)

// WriteHTML renders an interactive chart of the level track to w. Reversals
// are marked points; the threshold, unless NaN, is a mark line.
func WriteHTML(w io.Writer, title string, trials []simulate.Trial, threshold float64) error {
	if len(trials) == 0 {
		return ErrNoTrials
	}

	x := make([]string, len(trials))
	y := make([]opts.LineData, len(trials))
	for i, t := range trials {
		x[i] = strconv.Itoa(t.Index + 1)
		y[i] = opts.LineData{Value: t.X}
	}

	subtitle := fmt.Sprintf("trials=%d reversals=%d", len(trials), trials[len(trials)-1].Reversals)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Trial", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Level (dB)", NameLocation: "middle", NameGap: 40}),
	)

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
	}
	for _, i := range reversalIndices(trials) {
		seriesOpts = append(seriesOpts, charts.WithMarkPointNameCoordItemOpts(opts.MarkPointNameCoordItem{
			Name:       "reversal",
			Coordinate: []interface{}{x[i], trials[i].X},
			Symbol:     "pin",
			SymbolSize: 20,
		}))
	}
	if !math.IsNaN(threshold) {
		seriesOpts = append(seriesOpts, charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
			Name:  "threshold",
			YAxis: threshold,
		}))
	}
	line.SetXAxis(x).AddSeries("level", y, seriesOpts...)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// SaveHTML writes WriteHTML's output to path.
func (r *Reporter) SaveHTML(path, title string, trials []simulate.Trial, threshold float64) error {
	f, err := r.FS.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteHTML(f, title, trials, threshold); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
