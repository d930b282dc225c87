// Package report renders a run's level track as a PNG (gonum/plot) or an
// interactive HTML page (go-echarts).
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/threshold.report/internal/fsutil"
	"github.com/banshee-data/threshold.report/internal/simulate"
)

// ErrNoTrials is returned when asked to draw an empty run.
var ErrNoTrials = errors.New("no trials to plot")

var (
	levelColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	reversalColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	thresholdColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Reporter writes reports through FS.
type Reporter struct {
	FS fsutil.FileSystem
}

// New returns a Reporter over the OS filesystem.
func New() *Reporter {
	return &Reporter{FS: fsutil.OS{}}
}

// SavePNG writes the level track of trials to path using the OS filesystem.
func SavePNG(path, title string, trials []simulate.Trial, threshold float64) error {
	return New().SavePNG(path, title, trials, threshold)
}

// reversalIndices returns the trials at which the reversal count grew.
func reversalIndices(trials []simulate.Trial) []int {
	var idx []int
	prev := 0
	for i, t := range trials {
		if t.Reversals > prev {
			idx = append(idx, i)
		}
		prev = t.Reversals
	}
	return idx
}

// SavePNG draws level against trial number with reversals marked and, when
// threshold is not NaN, a horizontal threshold line.
func (r *Reporter) SavePNG(path, title string, trials []simulate.Trial, threshold float64) error {
	if len(trials) == 0 {
		return ErrNoTrials
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Trial"
	p.Y.Label.Text = "Level (dB)"

	levels := make(plotter.XYs, len(trials))
	for i, t := range trials {
		levels[i] = plotter.XY{X: float64(t.Index + 1), Y: t.X}
	}
	line, points, err := plotter.NewLinePoints(levels)
	if err != nil {
		return fmt.Errorf("level line: %w", err)
	}
	line.Color = levelColor
	line.Width = vg.Points(1)
	points.Color = levelColor
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points)
	p.Legend.Add("level", line, points)

	if idx := reversalIndices(trials); len(idx) > 0 {
		revs := make(plotter.XYs, len(idx))
		for i, j := range idx {
			revs[i] = levels[j]
		}
		scatter, err := plotter.NewScatter(revs)
		if err != nil {
			return fmt.Errorf("reversal scatter: %w", err)
		}
		scatter.Color = reversalColor
		scatter.Shape = draw.RingGlyph{}
		scatter.Radius = vg.Points(5)
		p.Add(scatter)
		p.Legend.Add("reversal", scatter)
	}

	if !math.IsNaN(threshold) {
		fn := plotter.NewFunction(func(float64) float64 { return threshold })
		fn.Color = thresholdColor
		fn.Width = vg.Points(1)
		fn.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(fn)
		p.Legend.Add(fmt.Sprintf("threshold %.2f", threshold), fn)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return r.write(path, wt)
}

func (r *Reporter) write(path string, wt io.WriterTo) error {
	f, err := r.FS.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
