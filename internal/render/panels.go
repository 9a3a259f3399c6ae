package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"Go2NetProfile/internal/model"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
}

func colorFor(i int) drawing.Color {
	return palette[i%len(palette)]
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
	}
}

// line is one named curve of a line panel.
type line struct {
	name string
	xs   []float64
	ys   []float64
}

// linePanel describes a panel with one curve per activity.
type linePanel struct {
	title  string
	xLabel string
	yLabel string
	xMax   float64
	lines  []line
}

// barPanel describes a panel with one bar per activity.
type barPanel struct {
	title  string
	yLabel string
	labels []string
	values []float64
}

func (p linePanel) render(width, height int) (image.Image, error) {
	var (
		series []chart.Series
		xMax   = p.xMax
		yMax   float64
	)
	for i, l := range p.lines {
		if len(l.xs) == 0 {
			continue
		}
		for j := range l.xs {
			if l.xs[j] > xMax {
				xMax = l.xs[j]
			}
			if l.ys[j] > yMax {
				yMax = l.ys[j]
			}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    l.name,
			XValues: l.xs,
			YValues: l.ys,
			Style:   lineStyle(colorFor(i)),
		})
	}
	if xMax <= 0 {
		xMax = 1
	}
	if yMax <= 0 {
		yMax = 1
	}
	if len(series) == 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "no data",
			XValues: []float64{0, xMax},
			YValues: []float64{0, 0},
			Style:   lineStyle(chart.ColorAlternateGray),
		})
	}

	ch := chart.Chart{
		Title:      p.title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  p.xLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:  p.yLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: yMax * 1.05},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return encode(p.title, ch.Render)
}

func (p barPanel) render(width, height int) (image.Image, error) {
	bars := make([]chart.Value, 0, len(p.values))
	yMax := 1.0
	for i, v := range p.values {
		col := colorFor(i)
		bars = append(bars, chart.Value{
			Label: p.labels[i],
			Value: v,
			Style: chart.Style{FillColor: col, StrokeColor: col},
		})
		if v > yMax {
			yMax = v
		}
	}
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Label: "no data", Value: 0})
	}

	barWidth := (width - 120) / (2 * len(bars))
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 4 {
		barWidth = 4
	}
	bc := chart.BarChart{
		Title:      p.title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  p.yLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: yMax * 1.05},
		},
		Bars: bars,
	}
	return encode(p.title, bc.Render)
}

func encode(title string, render func(chart.RendererProvider, io.Writer) error) (image.Image, error) {
	var buf bytes.Buffer
	if err := render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render panel '%s': %w", title, err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode panel '%s': %w", title, err)
	}
	return img, nil
}

// timeLines turns the bucketed series of every bundle into per-second rates.
func timeLines(bundles []*model.ActivityBundle, pick func(*model.ActivityBundle) []model.SeriesPoint) ([]line, float64) {
	lines := make([]line, len(bundles))
	var xMax float64
	for i, b := range bundles {
		points := pick(b)
		width := b.BucketWidth.Seconds()
		if width <= 0 {
			width = 1
		}
		l := line{name: b.Activity, xs: make([]float64, len(points)), ys: make([]float64, len(points))}
		for j, p := range points {
			l.xs[j] = float64(p.Bucket) * width
			l.ys[j] = float64(p.Value) / width
		}
		if d := b.Duration.Seconds(); d > xMax {
			xMax = d
		}
		lines[i] = l
	}
	return lines, xMax
}

// histogramLines bins one value set per bundle over [0, hi]. Bundles without
// values in range get no curve.
func histogramLines(bundles []*model.ActivityBundle, hi float64, bins int, values func(*model.ActivityBundle) []float64) []line {
	centers := binCenters(0, hi, bins)
	lines := make([]line, len(bundles))
	for i, b := range bundles {
		counts := Histogram(values(b), 0, hi, bins)
		lines[i] = line{name: b.Activity}
		var total float64
		for _, c := range counts {
			total += c
		}
		if total == 0 {
			continue
		}
		lines[i].xs, lines[i].ys = centers, counts
	}
	return lines
}
