package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

var (
	textColor = color.RGBA{0x33, 0x33, 0x33, 0xff}
	gridColor = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	axisColor = color.RGBA{0x88, 0x88, 0x88, 0xff}

	// pastel fills for bars and areas
	barPalette = []color.RGBA{
		{0x8d, 0xd3, 0xc7, 0xff}, {0xff, 0xff, 0xb3, 0xff}, {0xbe, 0xba, 0xda, 0xff},
		{0xfb, 0x80, 0x72, 0xff}, {0x80, 0xb1, 0xd3, 0xff}, {0xfd, 0xb4, 0x62, 0xff},
		{0xb3, 0xde, 0x69, 0xff}, {0xfc, 0xcd, 0xe5, 0xff}, {0xd9, 0xd9, 0xd9, 0xff},
		{0xbc, 0x80, 0xbd, 0xff}, {0xcc, 0xeb, 0xc5, 0xff}, {0xff, 0xed, 0x6f, 0xff},
	}

	// saturated strokes for lines
	linePalette = []color.RGBA{
		{0x1f, 0x77, 0xb4, 0xff}, {0xff, 0x7f, 0x0e, 0xff}, {0x2c, 0xa0, 0x2c, 0xff},
		{0xd6, 0x27, 0x28, 0xff}, {0x94, 0x67, 0xbd, 0xff}, {0x8c, 0x56, 0x4b, 0xff},
		{0xe3, 0x77, 0xc2, 0xff}, {0x7f, 0x7f, 0x7f, 0xff}, {0xbc, 0xbd, 0x22, 0xff},
		{0x17, 0xbe, 0xcf, 0xff},
	}

	// yellow-orange-red ramp for heatmaps
	heatStops = []color.RGBA{
		{0xff, 0xff, 0xcc, 0xff}, {0xfe, 0xd9, 0x76, 0xff}, {0xfd, 0x8d, 0x3c, 0xff},
		{0xe3, 0x1a, 0x1c, 0xff}, {0x80, 0x00, 0x26, 0xff},
	}
)

func barColor(i int) color.Color  { return barPalette[i%len(barPalette)] }
func lineColor(i int) color.Color { return linePalette[i%len(linePalette)] }

// heatColor maps t in [0, 1] onto the heat ramp
func heatColor(t float64) color.Color {
	if math.IsNaN(t) || t <= 0 {
		return heatStops[0]
	}
	if t >= 1 {
		return heatStops[len(heatStops)-1]
	}
	pos := t * float64(len(heatStops)-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := heatStops[i], heatStops[i+1]
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*f) }
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 0xff}
}

// canvas is a gg context with a title and a rectangular plot area
type canvas struct {
	dc    *gg.Context
	fonts *fontSet

	left, top, right, bottom float64
}

func newCanvas(width, height int, fonts *fontSet, title string) *canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetFontFace(fonts.title)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(width)/2, 32, 0.5, 0.5)
	dc.SetFontFace(fonts.label)

	return &canvas{
		dc:     dc,
		fonts:  fonts,
		left:   90,
		top:    70,
		right:  float64(width) - 40,
		bottom: float64(height) - 150,
	}
}

func (c *canvas) plotWidth() float64  { return c.right - c.left }
func (c *canvas) plotHeight() float64 { return c.bottom - c.top }

// y maps a data value onto the vertical pixel axis for a scale topping out at ceil
func (c *canvas) y(v, ceil float64) float64 {
	return c.bottom - v/ceil*c.plotHeight()
}

// yAxis draws horizontal grid lines with tick labels and returns the axis maximum
func (c *canvas) yAxis(dataMax float64, label string, format func(float64) string) float64 {
	ceil := niceCeil(dataMax)
	const ticks = 5

	c.dc.SetLineWidth(1)
	for i := 0; i <= ticks; i++ {
		v := ceil * float64(i) / ticks
		py := c.y(v, ceil)
		c.dc.SetColor(gridColor)
		c.dc.DrawLine(c.left, py, c.right, py)
		c.dc.Stroke()
		c.dc.SetColor(textColor)
		c.dc.DrawStringAnchored(format(v), c.left-8, py, 1, 0.5)
	}

	c.dc.SetColor(axisColor)
	c.dc.DrawLine(c.left, c.top, c.left, c.bottom)
	c.dc.DrawLine(c.left, c.bottom, c.right, c.bottom)
	c.dc.Stroke()

	if label != "" {
		c.dc.Push()
		c.dc.SetColor(textColor)
		c.dc.RotateAbout(gg.Radians(-90), 22, (c.top+c.bottom)/2)
		c.dc.DrawStringAnchored(label, 22, (c.top+c.bottom)/2, 0.5, 0.5)
		c.dc.Pop()
	}
	return ceil
}

// xLabels draws labels under the plot at the given x centers, rotated 45 degrees.
// Labels are thinned so they do not overlap.
func (c *canvas) xLabels(labels []string, centers []float64) {
	step := 1
	if maxLabels := int(c.plotWidth() / 28); maxLabels > 0 && len(labels) > maxLabels {
		step = (len(labels) + maxLabels - 1) / maxLabels
	}

	c.dc.SetColor(textColor)
	for i := 0; i < len(labels); i += step {
		x, y := centers[i], c.bottom+10
		c.dc.Push()
		c.dc.RotateAbout(gg.Radians(-45), x, y)
		c.dc.DrawStringAnchored(labels[i], x, y, 1, 0.5)
		c.dc.Pop()
	}
}

// legend draws colored swatches with names in the top right corner of the plot
func (c *canvas) legend(names []string, colors []color.Color) {
	x := c.right - 10
	y := c.top + 12
	for i, name := range names {
		w, _ := c.dc.MeasureString(name)
		c.dc.SetColor(colors[i])
		c.dc.DrawRectangle(x-w-22, y-6, 14, 12)
		c.dc.Fill()
		c.dc.SetColor(textColor)
		c.dc.DrawStringAnchored(name, x, y, 1, 0.5)
		y += 18
	}
}

func (c *canvas) save(path string) error {
	if err := c.dc.SavePNG(path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten
func niceCeil(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}
