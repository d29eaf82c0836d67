// Package chart rasterises statistics into pie chart images.
package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	gochart "github.com/wcharczuk/go-chart/v2"

	"fintrack/internal/log"
	"fintrack/internal/report"
)

// ErrNothingToDraw is returned for charts without a positive amount.
var ErrNothingToDraw = errors.New("chart has no positive amounts")

// Image is an encoded picture ready to send.
type Image struct {
	Data     []byte
	MIME     string
	Filename string
}

// Renderer turns a statistics chart into an image.
type Renderer interface {
	Render(ctx context.Context, c report.Chart) (Image, error)
}

// PieRenderer draws PNG pie charts.
type PieRenderer struct {
	Width  int
	Height int
	logger *log.Logger
}

var _ Renderer = (*PieRenderer)(nil)

func NewPieRenderer(logger *log.Logger) *PieRenderer {
	if logger == nil {
		logger = log.Default(log.ComponentChart)
	}
	return &PieRenderer{Width: 640, Height: 640, logger: logger.WithComponent(log.ComponentChart)}
}

// Render draws one slice per positive amount, labelled with its share.
func (p *PieRenderer) Render(ctx context.Context, c report.Chart) (Image, error) {
	values := pieValues(c)
	if len(values) == 0 {
		return Image{}, ErrNothingToDraw
	}

	pie := gochart.PieChart{
		Title:  c.Title,
		Width:  p.Width,
		Height: p.Height,
		Values: values,
	}
	var buf bytes.Buffer
	if err := pie.Render(gochart.PNG, &buf); err != nil {
		p.logger.ErrorContext(ctx, "Failed to render chart", log.FieldOperation, log.OpRender, log.FieldError, err.Error())
		return Image{}, fmt.Errorf("render pie chart: %w", err)
	}
	return Image{Data: buf.Bytes(), MIME: "image/png", Filename: "statistics.png"}, nil
}

// pieValues keeps positive amounts and labels them "Name 12.5%".
func pieValues(c report.Chart) []gochart.Value {
	var total float64
	for _, a := range c.Amounts {
		if a > 0 {
			total += float64(a)
		}
	}
	if total == 0 {
		return nil
	}
	out := make([]gochart.Value, 0, len(c.Amounts))
	for i, a := range c.Amounts {
		if a <= 0 || i >= len(c.Labels) {
			continue
		}
		share := float64(a) * 100 / total
		out = append(out, gochart.Value{
			Value: float64(a),
			Label: fmt.Sprintf("%s %.1f%%", c.Labels[i], share),
		})
	}
	return out
}
