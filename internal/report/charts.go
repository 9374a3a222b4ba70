package report

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
)

type barChart struct {
	Title  string
	YLabel string
	Labels []string
	Values []float64
	// Annotations are drawn above the bars when present
	Annotations []string
}

type lineSeries struct {
	Name   string
	Values []float64 // NaN leaves a gap
	Width  float64
	Faint  bool
}

type lineChart struct {
	Title   string
	YLabel  string
	XLabels []string
	Series  []lineSeries
	// Peak marks the maximum of the first series with this caption when set
	Peak func(i int, v float64) string
}

type areaChart struct {
	Title   string
	YLabel  string
	XLabels []string
	Names   []string
	Values  [][]float64 // Values[series][x]
}

type heatmapChart struct {
	Title  string
	Rows   []string
	Cols   []string
	Values [][]float64
	// Skip hides a cell; hidden cells are left blank
	Skip   func(i, j int) bool
	Format func(v float64) string
}

func plainNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r *ChartRenderer) drawBars(path string, ch barChart) error {
	c := newCanvas(r.width, r.height, r.fonts, ch.Title)

	dataMax := 0.0
	for _, v := range ch.Values {
		dataMax = math.Max(dataMax, v)
	}
	ceil := c.yAxis(dataMax, ch.YLabel, plainNumber)

	n := len(ch.Values)
	if n == 0 {
		return c.save(path)
	}
	slot := c.plotWidth() / float64(n)
	barWidth := slot * 0.8
	centers := make([]float64, n)

	for i, v := range ch.Values {
		x := c.left + slot*float64(i) + (slot-barWidth)/2
		top := c.y(v, ceil)
		centers[i] = x + barWidth/2

		c.dc.SetColor(barColor(i))
		c.dc.DrawRectangle(x, top, barWidth, c.bottom-top)
		c.dc.Fill()

		if i < len(ch.Annotations) {
			c.dc.SetColor(textColor)
			c.dc.DrawStringAnchored(ch.Annotations[i], centers[i], top-4, 0.5, 0)
		}
	}
	c.xLabels(ch.Labels, centers)
	return c.save(path)
}

func (r *ChartRenderer) drawLines(path string, ch lineChart) error {
	c := newCanvas(r.width, r.height, r.fonts, ch.Title)

	dataMax := 0.0
	points := 0
	for _, s := range ch.Series {
		for _, v := range s.Values {
			if !math.IsNaN(v) {
				dataMax = math.Max(dataMax, v)
			}
		}
		points = max(points, len(s.Values))
	}
	ceil := c.yAxis(dataMax, ch.YLabel, plainNumber)
	if points == 0 {
		return c.save(path)
	}

	xAt := func(i int) float64 {
		if points == 1 {
			return c.left + c.plotWidth()/2
		}
		return c.left + c.plotWidth()*float64(i)/float64(points-1)
	}

	names := make([]string, len(ch.Series))
	colors := make([]color.Color, len(ch.Series))
	for si, s := range ch.Series {
		col := lineColor(si)
		if s.Faint {
			rgba := col.(color.RGBA)
			col = color.NRGBA{rgba.R, rgba.G, rgba.B, 0x60}
		}
		names[si], colors[si] = s.Name, col

		c.dc.SetColor(col)
		c.dc.SetLineWidth(s.Width)
		open := false
		for i, v := range s.Values {
			if math.IsNaN(v) {
				if open {
					c.dc.Stroke()
				}
				open = false
				continue
			}
			if !open {
				c.dc.MoveTo(xAt(i), c.y(v, ceil))
				open = true
				continue
			}
			c.dc.LineTo(xAt(i), c.y(v, ceil))
		}
		if open {
			c.dc.Stroke()
		}
	}

	if ch.Peak != nil && len(ch.Series) > 0 && len(ch.Series[0].Values) > 0 {
		peak := -1
		for i, v := range ch.Series[0].Values {
			if peak < 0 || v > ch.Series[0].Values[peak] {
				peak = i
			}
		}
		v := ch.Series[0].Values[peak]
		px, py := xAt(peak), c.y(v, ceil)
		c.dc.SetColor(textColor)
		c.dc.DrawCircle(px, py, 4)
		c.dc.Fill()
		anchor := 0.0
		if px > c.left+c.plotWidth()*0.8 {
			anchor = 1
		}
		c.dc.DrawStringAnchored(ch.Peak(peak, v), px+8-16*anchor, py-10, anchor, 0)
	}

	centers := make([]float64, len(ch.XLabels))
	for i := range centers {
		centers[i] = xAt(i)
	}
	c.xLabels(ch.XLabels, centers)
	c.legend(names, colors)
	return c.save(path)
}

func (r *ChartRenderer) drawStackedArea(path string, ch areaChart) error {
	c := newCanvas(r.width, r.height, r.fonts, ch.Title)

	points := len(ch.XLabels)
	totals := make([]float64, points)
	for _, s := range ch.Values {
		for i, v := range s {
			totals[i] += v
		}
	}
	dataMax := 0.0
	for _, t := range totals {
		dataMax = math.Max(dataMax, t)
	}
	ceil := c.yAxis(dataMax, ch.YLabel, plainNumber)
	if points == 0 {
		return c.save(path)
	}

	xAt := func(i int) float64 {
		if points == 1 {
			return c.left + c.plotWidth()/2
		}
		return c.left + c.plotWidth()*float64(i)/float64(points-1)
	}

	base := make([]float64, points)
	colors := make([]color.Color, len(ch.Names))
	for si, s := range ch.Values {
		colors[si] = lineColor(si)
		c.dc.SetColor(colors[si])

		for i := 0; i < points; i++ {
			c.dc.LineTo(xAt(i), c.y(base[i]+s[i], ceil))
		}
		for i := points - 1; i >= 0; i-- {
			c.dc.LineTo(xAt(i), c.y(base[i], ceil))
		}
		c.dc.ClosePath()
		c.dc.Fill()

		for i := range base {
			base[i] += s[i]
		}
	}

	centers := make([]float64, points)
	for i := range centers {
		centers[i] = xAt(i)
	}
	c.xLabels(ch.XLabels, centers)
	c.legend(ch.Names, colors)
	return c.save(path)
}

func (r *ChartRenderer) drawHeatmap(path string, ch heatmapChart) error {
	c := newCanvas(r.width, r.height, r.fonts, ch.Title)
	c.left = 160

	if len(ch.Rows) == 0 || len(ch.Cols) == 0 {
		return c.save(path)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range ch.Values {
		for j, v := range ch.Values[i] {
			if ch.Skip != nil && ch.Skip(i, j) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) {
		span = 1
	}

	cw := c.plotWidth() / float64(len(ch.Cols))
	rh := c.plotHeight() / float64(len(ch.Rows))

	for i := range ch.Rows {
		for j := range ch.Cols {
			if ch.Skip != nil && ch.Skip(i, j) {
				continue
			}
			v := ch.Values[i][j]
			t := (v - lo) / span
			x, y := c.left+cw*float64(j), c.top+rh*float64(i)

			c.dc.SetColor(heatColor(t))
			c.dc.DrawRectangle(x, y, cw, rh)
			c.dc.Fill()

			if t > 0.6 {
				c.dc.SetColor(color.White)
			} else {
				c.dc.SetColor(textColor)
			}
			c.dc.DrawStringAnchored(ch.Format(v), x+cw/2, y+rh/2, 0.5, 0.5)
		}
	}

	c.dc.SetColor(textColor)
	for i, name := range ch.Rows {
		c.dc.DrawStringAnchored(name, c.left-8, c.top+rh*(float64(i)+0.5), 1, 0.5)
	}
	centers := make([]float64, len(ch.Cols))
	for j := range centers {
		centers[j] = c.left + cw*(float64(j)+0.5)
	}
	c.xLabels(ch.Cols, centers)
	return c.save(path)
}

func percentLabel(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
