package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

const (
	defaultWidth    = 1200
	defaultHeight   = 600
	defaultFontSize = 10.0

	// Default border sizes in pixels
	defaultTopBorder    = 50
	defaultLeftBorder   = 90
	defaultBottomBorder = 70
	defaultRightBorder  = 40

	pixelsPerXLabel = 120
	pixelsPerYLabel = 60
)

var (
	backgroundColor = color.White
	axisColor       = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}
	gridColor       = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}

	// series colors, reused in order when a chart has more series
	palette = []color.RGBA{
		{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
		{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
		{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
		{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
		{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
		{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	}
)

// BorderConfig defines the sizes of white space around the plot area
type BorderConfig struct {
	Top    int // Space for title and legend
	Left   int // Space for value scale
	Bottom int // Space for time scale and information bar
	Right  int // Right padding
}

// Config holds the chart layout options
type Config struct {
	Width    int     // Plot area width in pixels
	Height   int     // Plot area height in pixels
	FontSize float64 // Font size in points

	BorderConfig BorderConfig
}

// Renderer draws charts into images
type Renderer struct {
	config Config
}

// NewRenderer creates a renderer, using defaults for zero config values
func NewRenderer(config Config) *Renderer {
	if config.Width <= 0 {
		config.Width = defaultWidth
	}
	if config.Height <= 0 {
		config.Height = defaultHeight
	}
	if config.FontSize == 0 {
		config.FontSize = defaultFontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &Renderer{config: config}
}

// Render creates an image of the chart with scales, legend and an info bar
func (r *Renderer) Render(c *Chart) (*image.RGBA, error) {
	if c.Samples() == 0 || len(c.Series) == 0 {
		return nil, ErrEmptyChart
	}
	for _, s := range c.Series {
		if len(s.Values) != len(c.Times) {
			return nil, fmt.Errorf("series %s has %d values for %d samples", s.Name, len(s.Values), len(c.Times))
		}
	}

	borders := r.config.BorderConfig
	fullWidth := r.config.Width + borders.Left + borders.Right
	fullHeight := r.config.Height + borders.Top + borders.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	area := image.Rect(
		borders.Left,
		borders.Top,
		borders.Left+r.config.Width,
		borders.Top+r.config.Height,
	)
	s := newScale(c, area)

	ann, err := newAnnotator(annotatorConfig{
		FontSize: r.config.FontSize,
		Borders:  borders,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	// Grid and labels first, series are drawn over them
	if err = ann.annotate(img, area, s, c); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	for i, series := range c.Series {
		r.renderSeries(img, area, s, c.Times, series.Values, seriesColor(i))
	}

	drawRect(img, area, axisColor)
	return img, nil
}

func (r *Renderer) renderSeries(img *image.RGBA, area image.Rectangle, s scale, times, values []float64, c color.Color) {
	var prev image.Point
	havePrev := false

	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			havePrev = false
			continue
		}

		pt := image.Pt(s.x(times[i]), s.y(v))
		if havePrev {
			drawLine(img, area, prev, pt, c)
		} else {
			setIn(img, area, pt, c)
		}
		prev, havePrev = pt, true
	}
}

func seriesColor(i int) color.RGBA {
	return palette[i%len(palette)]
}

// scale maps chart coordinates to pixels of the plot area
type scale struct {
	area                   image.Rectangle
	minT, maxT, minV, maxV float64
}

func newScale(c *Chart, area image.Rectangle) scale {
	minT, maxT, minV, maxV := c.bounds()
	return scale{area: area, minT: minT, maxT: maxT, minV: minV, maxV: maxV}
}

func (s scale) x(t float64) int {
	ratio := (t - s.minT) / (s.maxT - s.minT)
	return s.area.Min.X + int(math.Round(ratio*float64(s.area.Dx()-1)))
}

func (s scale) y(v float64) int {
	ratio := (v - s.minV) / (s.maxV - s.minV)
	return s.area.Max.Y - 1 - int(math.Round(ratio*float64(s.area.Dy()-1)))
}

// niceStep returns a 1, 2 or 5 times power of ten step dividing span into
// about ticks parts
func niceStep(span float64, ticks int) float64 {
	if span <= 0 || ticks <= 0 {
		return 1
	}

	rough := span / float64(ticks)
	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))
	for _, m := range []float64{1, 2, 5} {
		if step := m * magnitude; step >= rough {
			return step
		}
	}
	return 10 * magnitude
}

// maxTicks bounds the number of ticks on an axis
const maxTicks = 100

// ticks returns the multiples of step within [min, max], at most maxTicks of
// them. It stops early once adding step no longer changes the value.
func ticks(min, max, step float64) []float64 {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil
	}

	var out []float64
	for v := math.Ceil(min/step) * step; v <= max+step*1e-9 && len(out) < maxTicks; v += step {
		if math.IsInf(v, 0) {
			break
		}
		out = append(out, v)
		if v+step == v {
			break
		}
	}
	return out
}

func setIn(img *image.RGBA, clip image.Rectangle, pt image.Point, c color.Color) {
	if pt.In(clip) {
		img.Set(pt.X, pt.Y, c)
	}
}

// drawLine draws a Bresenham line, skipping pixels outside clip
func drawLine(img *image.RGBA, clip image.Rectangle, from, to image.Point, c color.Color) {
	x0, y0 := from.X, from.Y
	dx := absInt(to.X - x0)
	dy := -absInt(to.Y - y0)
	sx, sy := 1, 1
	if x0 > to.X {
		sx = -1
	}
	if y0 > to.Y {
		sy = -1
	}

	e := dx + dy
	for {
		setIn(img, clip, image.Pt(x0, y0), c)
		if x0 == to.X && y0 == to.Y {
			return
		}

		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X - 1; x <= r.Max.X; x++ {
		img.Set(x, r.Min.Y-1, c)
		img.Set(x, r.Max.Y, c)
	}
	for y := r.Min.Y - 1; y <= r.Max.Y; y++ {
		img.Set(r.Min.X-1, y, c)
		img.Set(r.Max.X, y, c)
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
