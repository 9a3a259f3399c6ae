package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/model"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	columns      = 2
	captionSpace = 28
)

type panel interface {
	render(width, height int) (image.Image, error)
}

// Figure renders the comparative multi-panel PNG. It implements model.Renderer.
type Figure struct {
	cfg    config.RenderConfig
	logger *zap.Logger
}

// NewFigure creates a figure renderer.
func NewFigure(cfg config.RenderConfig, logger *zap.Logger) *Figure {
	return &Figure{cfg: cfg, logger: logger}
}

// Render draws every panel for bundles and writes the composite to the
// configured output, replacing any previous file.
func (f *Figure) Render(run model.Run, bundles []*model.ActivityBundle) error {
	img, err := f.Compose(run, bundles)
	if err != nil {
		return err
	}

	file, err := os.Create(f.cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to create figure file: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode figure: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write figure: %w", err)
	}

	f.logger.Info("Figure written", zap.String("path", f.cfg.Output), zap.Int("activities", len(bundles)))
	return nil
}

// Compose builds the figure image without writing it.
func (f *Figure) Compose(run model.Run, bundles []*model.ActivityBundle) (image.Image, error) {
	panels := f.panels(bundles)
	rows := (len(panels) + columns - 1) / columns
	w, h := f.cfg.PanelWidth, f.cfg.PanelHeight

	canvas := image.NewRGBA(image.Rect(0, 0, columns*w, captionSpace+rows*h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	for i, p := range panels {
		img, err := p.render(w, h)
		if err != nil {
			return nil, err
		}
		x, y := (i%columns)*w, captionSpace+(i/columns)*h
		draw.Draw(canvas, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Src)
	}

	caption := fmt.Sprintf("Network activity profile  run %s  %s", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"))
	drawCaption(canvas, caption)
	return canvas, nil
}

func (f *Figure) panels(bundles []*model.ActivityBundle) []panel {
	throughput, duration := timeLines(bundles, func(b *model.ActivityBundle) []model.SeriesPoint { return b.Throughput })
	rate, _ := timeLines(bundles, func(b *model.ActivityBundle) []model.SeriesPoint { return b.PacketRate })

	iat := histogramLines(bundles, f.cfg.InterArrivalClip, f.cfg.HistogramBins, func(b *model.ActivityBundle) []float64 {
		values := make([]float64, len(b.InterArrival))
		for i, d := range b.InterArrival {
			values[i] = d.Seconds()
		}
		return values
	})
	sizes := histogramLines(bundles, float64(f.cfg.SizeMax), f.cfg.HistogramBins, func(b *model.ActivityBundle) []float64 {
		values := make([]float64, len(b.PacketSizes))
		for i, s := range b.PacketSizes {
			values[i] = float64(s)
		}
		return values
	})

	labels := make([]string, len(bundles))
	flows := make([]float64, len(bundles))
	packets := make([]float64, len(bundles))
	byteCounts := make([]float64, len(bundles))
	for i, b := range bundles {
		labels[i] = b.Activity
		flows[i] = float64(b.Summary.UniqueFlows)
		packets[i] = float64(b.Summary.TotalPackets)
		byteCounts[i] = float64(b.Summary.TotalBytes)
	}

	return []panel{
		linePanel{title: "Throughput", xLabel: "Time (s)", yLabel: "Bytes/s", xMax: duration, lines: throughput},
		linePanel{title: "Packet Rate", xLabel: "Time (s)", yLabel: "Packets/s", xMax: duration, lines: rate},
		linePanel{title: "Inter-Arrival Time", xLabel: "Seconds", yLabel: "Count", xMax: f.cfg.InterArrivalClip, lines: iat},
		linePanel{title: "Packet Size", xLabel: "Bytes", yLabel: "Count", xMax: float64(f.cfg.SizeMax), lines: sizes},
		barPanel{title: "Unique Flows", yLabel: "Flows", labels: labels, values: flows},
		barPanel{title: "Total Packets", yLabel: "Packets", labels: labels, values: packets},
		barPanel{title: "Total Bytes", yLabel: "Bytes", labels: labels, values: byteCounts},
	}
}

func drawCaption(dst draw.Image, text string) {
	face := basicfont.Face7x13
	banner := image.Rect(0, 0, dst.Bounds().Dx(), captionSpace)
	draw.Draw(dst, banner, image.NewUniform(color.RGBA{R: 40, G: 40, B: 48, A: 255}), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	y := (captionSpace + face.Metrics().Ascent.Ceil()) / 2
	d.Dot = fixed.Point26_6{X: fixed.I(10), Y: fixed.I(y)}
	d.DrawString(text)
}
