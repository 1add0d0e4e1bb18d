package plot

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 96.0
	tickMarkLength = 5
	legendBoxSize  = 10
	legendSpacing  = 20
)

type annotatorConfig struct {
	FontSize float64
	Borders  BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, s scale, c *Chart) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawValueScale(img, area, s); err != nil {
		return fmt.Errorf("drawing value scale: %w", err)
	}
	if err := a.drawTimeScale(img, area, s); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawLegend(img, c); err != nil {
		return fmt.Errorf("drawing legend: %w", err)
	}
	if err := a.drawInfoBar(img, s, c); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawString(label string, pt image.Point, src image.Image) error {
	a.context.SetSrc(src)
	_, err := a.context.DrawString(label, freetype.Pt(pt.X, pt.Y))
	return err
}

func (a *annotator) drawValueScale(img *image.RGBA, area image.Rectangle, s scale) error {
	step := niceStep(s.maxV-s.minV, max(area.Dy()/pixelsPerYLabel, 1))
	descent := a.fontFace.Metrics().Descent.Round()

	for _, v := range ticks(s.minV, s.maxV, step) {
		y := s.y(v)

		// Grid line and tick mark
		for x := area.Min.X; x < area.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, axisColor)
		}

		// Right aligned label, centered on the tick
		label := formatValue(v)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := image.Pt(area.Min.X-tickMarkLength-3-width, y+a.fontHeight()/2-descent)
		if err := a.drawString(label, pt, image.Black); err != nil {
			return fmt.Errorf("drawing value label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, area image.Rectangle, s scale) error {
	step := niceStep(s.maxT-s.minT, max(area.Dx()/pixelsPerXLabel, 1))
	textY := area.Max.Y + tickMarkLength + a.fontHeight()

	for _, t := range ticks(s.minT, s.maxT, step) {
		x := s.x(t)

		for y := area.Min.Y; y < area.Max.Y; y++ {
			img.Set(x, y, gridColor)
		}
		for y := area.Max.Y; y < area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, axisColor)
		}

		label := formatValue(t) + " s"
		width := font.MeasureString(a.fontFace, label).Round()
		if err := a.drawString(label, image.Pt(x-width/2, textY), image.Black); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawLegend(img *image.RGBA, c *Chart) error {
	textY := (a.config.Borders.Top + a.fontHeight()) / 2
	x := a.config.Borders.Left

	if c.Title != "" {
		if err := a.drawString(c.Title, image.Pt(x, textY), image.Black); err != nil {
			return fmt.Errorf("drawing title: %w", err)
		}
		x += font.MeasureString(a.fontFace, c.Title).Round() + legendSpacing*2
	}

	for i, series := range c.Series {
		col := seriesColor(i)

		boxTop := textY - legendBoxSize
		for by := boxTop; by < boxTop+legendBoxSize; by++ {
			for bx := x; bx < x+legendBoxSize; bx++ {
				img.Set(bx, by, col)
			}
		}
		x += legendBoxSize + 5

		if err := a.drawString(series.Name, image.Pt(x, textY), image.NewUniform(col)); err != nil {
			return fmt.Errorf("drawing series name: %w", err)
		}
		x += font.MeasureString(a.fontFace, series.Name).Round() + legendSpacing
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, s scale, c *Chart) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Samples: %s", humanize.Comma(int64(c.Samples()))))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Duration: %s s", formatValue(c.Duration())))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Values: %s to %s", formatValue(s.minV), formatValue(s.maxV)))

	if c.Samples() > 1 && c.Duration() > 0 {
		rate := float64(c.Samples()-1) / c.Duration()
		sb.WriteString("; ")
		sb.WriteString(fmt.Sprintf("Rate: %s Hz", formatValue(rate)))
	}

	// Bottom line of the image, below the time scale
	textY := img.Bounds().Max.Y - a.fontFace.Metrics().Descent.Round() - 5

	if err := a.drawString(sb.String(), image.Pt(a.config.Borders.Left, textY), image.Black); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// formatValue renders a scale value, switching to SI prefixes for large values
func formatValue(v float64) string {
	if v == 0 {
		v = 0 // no negative zero labels
	}
	if math.Abs(v) >= 1e4 {
		return humanize.SIWithDigits(v, 1, "")
	}
	return humanize.FtoaWithDigits(v, 2)
}
