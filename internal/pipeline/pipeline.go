package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/andresmejia3/moodlens/internal/attributes"
	"github.com/andresmejia3/moodlens/internal/emotion"
)

const (
	// AnalysisInterval is how many frames pass between analysis attempts.
	AnalysisInterval = 20
	// TrendSize is the number of emotion codes kept for the chart.
	TrendSize = 30
)

// Frame is one captured video frame.
type Frame interface {
	// Crop returns the pixels inside r as a standalone image.
	Crop(r image.Rectangle) (image.Image, error)
	Close() error
}

// Detector finds face rectangles in a frame.
type Detector interface {
	Detect(f Frame) ([]image.Rectangle, error)
}

// Analyzer estimates emotion, gender and age for a cropped face.
// Any failure is reported through the Result, never as a panic or error return.
type Analyzer interface {
	Analyze(ctx context.Context, face image.Image) Result
}

// Plotter redraws the emotion trend chart.
type Plotter interface {
	Plot(values []int)
}

// Result is the outcome of one analysis call.
type Result struct {
	Attrs *attributes.Attributes
	Err   error
}

// Succeeded wraps decoded attributes.
func Succeeded(a attributes.Attributes) Result { return Result{Attrs: &a} }

// Empty is returned when the model produced no faces at all.
func Empty() Result { return Result{} }

// Failed wraps the reason an analysis could not complete.
func Failed(err error) Result { return Result{Err: err} }

// Text is a single label drawn on the frame.
type Text struct {
	Body   string
	Origin image.Point // baseline-left corner
	Color  color.RGBA
}

// Overlay is everything drawn on top of one frame.
// A zero Overlay (Box empty, no Texts) means nothing is drawn.
type Overlay struct {
	Box      image.Rectangle
	BoxColor color.RGBA
	Texts    []Text
}

// Empty reports whether there is anything to draw.
func (o Overlay) Empty() bool {
	return o.Box.Empty() && len(o.Texts) == 0
}

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

// State is everything the capture loop carries from one frame to the next.
type State struct {
	FrameCount uint64
	Display    attributes.Display
	Trend      *emotion.Trend

	detector Detector
	analyzer Analyzer
	plotter  Plotter
	log      io.Writer
}

// Option customizes a State.
type Option func(*State)

// WithLog redirects analysis failure messages (stdout by default).
func WithLog(w io.Writer) Option {
	return func(s *State) { s.log = w }
}

// WithPlotter sets the chart redrawn after every successful analysis.
func WithPlotter(p Plotter) Option {
	return func(s *State) { s.plotter = p }
}

// New builds the initial loop state: counter at zero, every display value at
// the sentinel, and a full trend of neutral codes.
func New(detector Detector, analyzer Analyzer, opts ...Option) *State {
	s := &State{
		Display:  attributes.Unset(),
		Trend:    emotion.NewTrend(TrendSize, emotion.Neutral),
		detector: detector,
		analyzer: analyzer,
		log:      os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Redraw plots the current trend, if there is a chart to plot it on.
func (s *State) Redraw() {
	if s.plotter != nil {
		s.plotter.Plot(s.Trend.Values())
	}
}

// ShouldAnalyze is the analysis gate.
func ShouldAnalyze(frameCount uint64, faces int) bool {
	return frameCount%AnalysisInterval == 0 && faces > 0
}

// Step processes one frame and returns what to draw on it.
// Errors from detection or cropping are fatal and returned as-is; analysis
// failures are absorbed into the state.
func (s *State) Step(ctx context.Context, f Frame) (Overlay, error) {
	faces, err := s.detector.Detect(f)
	if err != nil {
		return Overlay{}, fmt.Errorf("face detection failed: %w", err)
	}

	if ShouldAnalyze(s.FrameCount, len(faces)) {
		crop, err := f.Crop(faces[0])
		if err != nil {
			return Overlay{}, fmt.Errorf("failed to crop face: %w", err)
		}
		s.apply(s.analyzer.Analyze(ctx, crop))
	}

	var out Overlay
	if len(faces) > 0 {
		out = s.overlay(faces[0])
	}

	s.FrameCount++
	return out, nil
}

// apply folds an analysis result into the state.
func (s *State) apply(res Result) {
	if res.Err != nil {
		fmt.Fprintf(s.log, "Analysis failed: %v\n", res.Err)
		s.Display = attributes.Unset()
		return
	}
	if res.Attrs == nil {
		return
	}

	s.Display = res.Attrs.Display()
	s.Trend.Push(emotion.Code(s.Display.Emotion))
	s.Redraw()
}

func (s *State) overlay(face image.Rectangle) Overlay {
	x := face.Min.X
	top := face.Min.Y
	bottom := face.Max.Y

	return Overlay{
		Box:      face,
		BoxColor: red,
		Texts: []Text{
			{Body: "Emotion: " + s.Display.Emotion, Origin: image.Pt(x, top-10), Color: blue},
			{Body: "Gender:", Origin: image.Pt(x, bottom+20), Color: green},
			{Body: s.Display.Gender, Origin: image.Pt(x, bottom+50), Color: green},
			{Body: "Age: " + s.Display.Age, Origin: image.Pt(x, bottom+80), Color: red},
		},
	}
}
