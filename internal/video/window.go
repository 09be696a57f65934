package video

import (
	"gocv.io/x/gocv"

	"github.com/andresmejia3/moodlens/internal/pipeline"
)

const (
	fontScale     = 0.7
	textThickness = 2
	boxThickness  = 2
)

// Window shows annotated frames. It implements pipeline.Display.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a named display window.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show draws the overlay onto the frame and displays it.
func (w *Window) Show(f pipeline.Frame, o pipeline.Overlay) {
	mf, ok := f.(*MatFrame)
	if !ok {
		return
	}
	Annotate(&mf.Mat, o)
	w.win.IMShow(mf.Mat)
}

// Visible reports false once the user has closed the window.
func (w *Window) Visible() bool {
	return w.win.GetWindowProperty(gocv.WindowPropertyVisible) >= 1
}

func (w *Window) WaitKey(delay int) int {
	return w.win.WaitKey(delay)
}

func (w *Window) Close() error {
	return w.win.Close()
}

// Annotate draws the overlay's box and labels onto img.
func Annotate(img *gocv.Mat, o pipeline.Overlay) {
	if o.Empty() {
		return
	}
	if !o.Box.Empty() {
		gocv.Rectangle(img, o.Box, o.BoxColor, boxThickness)
	}
	for _, t := range o.Texts {
		gocv.PutText(img, t.Body, t.Origin, gocv.FontHersheySimplex, fontScale, t.Color, textThickness)
	}
}
