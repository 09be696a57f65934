package video

import (
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/andresmejia3/moodlens/internal/emotion"
)

// Chart geometry. The y-range stays [0, 8] even though codes only span 1-7.
const (
	chartWidth  = 640
	chartHeight = 480
	chartYMin   = 0.0
	chartYMax   = 8.0

	marginLeft   = 60
	marginRight  = 20
	marginTop    = 50
	marginBottom = 50
)

var (
	chartBackground = gocv.NewScalar(255, 255, 255, 0)
	axisColor       = color.RGBA{A: 255}
	gridColor       = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	lineColor       = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// TrendChart renders the emotion trend in its own window.
// It implements pipeline.Plotter.
type TrendChart struct {
	title string
	win   *gocv.Window
}

// NewTrendChart opens an empty chart window. Nothing is drawn until Plot.
func NewTrendChart(title string) *TrendChart {
	return &TrendChart{title: title, win: gocv.NewWindow(title)}
}

// Plot redraws the whole chart from values, oldest first.
func (c *TrendChart) Plot(values []int) {
	canvas := gocv.NewMatWithSizeFromScalar(chartBackground, chartHeight, chartWidth, gocv.MatTypeCV8UC3)
	defer canvas.Close()

	DrawTrend(&canvas, c.title, values)
	c.win.IMShow(canvas)
	// Let the GUI backend process the redraw.
	c.win.WaitKey(1)
}

func (c *TrendChart) Close() error {
	return c.win.Close()
}

// plotArea is where the trend line lives inside a w x h canvas.
func plotArea(w, h int) image.Rectangle {
	return image.Rect(marginLeft, marginTop, w-marginRight, h-marginBottom)
}

// DrawTrend draws axes, labels and the trend line onto canvas.
func DrawTrend(canvas *gocv.Mat, title string, values []int) {
	area := plotArea(canvas.Cols(), canvas.Rows())

	// Horizontal grid with a tick per integer code
	for y := int(chartYMin); y <= int(chartYMax); y++ {
		py := emotion.ScaleY(float64(y), area, chartYMin, chartYMax)
		gocv.Line(canvas, image.Pt(area.Min.X, py), image.Pt(area.Max.X, py), gridColor, 1)
		gocv.PutText(canvas, strconv.Itoa(y), image.Pt(area.Min.X-25, py+5), gocv.FontHersheySimplex, 0.45, axisColor, 1)
	}

	gocv.Rectangle(canvas, area, axisColor, 1)

	pts := emotion.Polyline(values, area, chartYMin, chartYMax)
	for i := 1; i < len(pts); i++ {
		gocv.Line(canvas, pts[i-1], pts[i], lineColor, 2)
	}

	gocv.PutText(canvas, title, image.Pt(area.Min.X+area.Dx()/2-70, marginTop-20), gocv.FontHersheySimplex, 0.7, axisColor, 2)
	gocv.PutText(canvas, "Frame", image.Pt(area.Min.X+area.Dx()/2-25, canvas.Rows()-15), gocv.FontHersheySimplex, 0.5, axisColor, 1)
	gocv.PutText(canvas, "Emotion", image.Pt(5, marginTop-10), gocv.FontHersheySimplex, 0.5, axisColor, 1)
}
