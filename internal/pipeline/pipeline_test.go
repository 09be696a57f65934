package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/andresmejia3/moodlens/internal/attributes"
	"github.com/andresmejia3/moodlens/internal/emotion"
)

// fakeFrame is a frame with a fixed set of faces baked in.
type fakeFrame struct {
	faces  []image.Rectangle
	closed bool
}

func (f *fakeFrame) Crop(r image.Rectangle) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
}

func (f *fakeFrame) Close() error {
	f.closed = true
	return nil
}

// frameDetector returns whatever faces the fakeFrame carries.
type frameDetector struct{}

func (frameDetector) Detect(f Frame) ([]image.Rectangle, error) {
	return f.(*fakeFrame).faces, nil
}

// scriptedAnalyzer returns results keyed by call number; unscripted calls succeed empty.
type scriptedAnalyzer struct {
	results map[int]Result
	calls   int
}

func (a *scriptedAnalyzer) Analyze(ctx context.Context, face image.Image) Result {
	res, ok := a.results[a.calls]
	a.calls++
	if !ok {
		return Empty()
	}
	return res
}

type recordingPlotter struct {
	plots [][]int
}

func (p *recordingPlotter) Plot(values []int) {
	p.plots = append(p.plots, values)
}

var faceRect = image.Rect(100, 120, 250, 270)

func happyResult() Result {
	return Succeeded(attributes.FromRaw(map[string]interface{}{
		"dominant_emotion": "happy",
		"gender":           map[string]interface{}{"Man": 70, "Woman": 30},
		"age":              40,
	}))
}

func TestShouldAnalyze(t *testing.T) {
	tests := []struct {
		count uint64
		faces int
		want  bool
	}{
		{0, 1, true},
		{0, 0, false},
		{1, 1, false},
		{19, 3, false},
		{20, 1, true},
		{20, 0, false},
		{40, 2, true},
		{41, 2, false},
	}

	for _, tt := range tests {
		if got := ShouldAnalyze(tt.count, tt.faces); got != tt.want {
			t.Errorf("ShouldAnalyze(%d, %d) = %v, want %v", tt.count, tt.faces, got, tt.want)
		}
	}
}

func TestNewState(t *testing.T) {
	s := New(frameDetector{}, &scriptedAnalyzer{})

	if s.Display != attributes.Unset() {
		t.Errorf("Expected sentinel display, got %+v", s.Display)
	}
	if s.Trend.Len() != TrendSize {
		t.Fatalf("Expected trend length %d, got %d", TrendSize, s.Trend.Len())
	}
	for _, v := range s.Trend.Values() {
		if v != emotion.Neutral {
			t.Fatalf("Expected trend pre-filled with %d, got %v", emotion.Neutral, s.Trend.Values())
		}
	}
}

func TestRedrawPlotsInitialTrend(t *testing.T) {
	plotter := &recordingPlotter{}
	s := New(frameDetector{}, &scriptedAnalyzer{}, WithPlotter(plotter))
	if len(plotter.plots) != 0 {
		t.Fatalf("New should not draw, got %d plots", len(plotter.plots))
	}

	s.Redraw()
	if len(plotter.plots) != 1 {
		t.Fatalf("Expected 1 plot, got %d", len(plotter.plots))
	}
	got := plotter.plots[0]
	if len(got) != TrendSize {
		t.Fatalf("Expected %d values, got %d", TrendSize, len(got))
	}
	for i, v := range got {
		if v != emotion.Neutral {
			t.Errorf("values[%d] = %d, want %d", i, v, emotion.Neutral)
		}
	}

	// No chart configured
	New(frameDetector{}, &scriptedAnalyzer{}).Redraw()
}

func TestStepAnalyzesOnlyOnGate(t *testing.T) {
	analyzer := &scriptedAnalyzer{}
	s := New(frameDetector{}, analyzer, WithLog(&bytes.Buffer{}))

	for i := 0; i < 45; i++ {
		frame := &fakeFrame{faces: []image.Rectangle{faceRect}}
		if _, err := s.Step(context.Background(), frame); err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
	}
	// Frames 0, 20 and 40
	if analyzer.calls != 3 {
		t.Errorf("Expected 3 analysis calls, got %d", analyzer.calls)
	}

	// A face-less frame on the gate does not analyze
	s.FrameCount = 60
	if _, err := s.Step(context.Background(), &fakeFrame{}); err != nil {
		t.Fatal(err)
	}
	if analyzer.calls != 3 {
		t.Errorf("Expected no analysis without a face, got %d calls", analyzer.calls)
	}
	if s.FrameCount != 61 {
		t.Errorf("Expected frame count 61, got %d", s.FrameCount)
	}
}

func TestStepSuccessUpdatesTrendAndPlots(t *testing.T) {
	plotter := &recordingPlotter{}
	analyzer := &scriptedAnalyzer{results: map[int]Result{0: happyResult()}}
	s := New(frameDetector{}, analyzer, WithPlotter(plotter))

	overlay, err := s.Step(context.Background(), &fakeFrame{faces: []image.Rectangle{faceRect}})
	if err != nil {
		t.Fatal(err)
	}

	want := attributes.Display{Emotion: "happy", Gender: "Man: 70.0%, Woman: 30.0%", Age: "30"}
	if s.Display != want {
		t.Errorf("Display = %+v, want %+v", s.Display, want)
	}

	values := s.Trend.Values()
	if len(values) != TrendSize || values[TrendSize-1] != 4 || values[0] != emotion.Neutral {
		t.Errorf("Unexpected trend after happy analysis: %v", values)
	}
	if len(plotter.plots) != 1 {
		t.Fatalf("Expected 1 chart redraw, got %d", len(plotter.plots))
	}

	if overlay.Box != faceRect {
		t.Errorf("Overlay box = %v, want %v", overlay.Box, faceRect)
	}
	assertTexts(t, overlay, "Emotion: happy", "Gender:", "Man: 70.0%, Woman: 30.0%", "Age: 30")
}

func TestStepOverlayPositions(t *testing.T) {
	s := New(frameDetector{}, &scriptedAnalyzer{})
	overlay, err := s.Step(context.Background(), &fakeFrame{faces: []image.Rectangle{faceRect, image.Rect(0, 0, 10, 10)}})
	if err != nil {
		t.Fatal(err)
	}

	want := []image.Point{
		{100, 110}, // above the box
		{100, 290},
		{100, 320},
		{100, 350},
	}
	if len(overlay.Texts) != len(want) {
		t.Fatalf("Expected %d texts, got %d", len(want), len(overlay.Texts))
	}
	for i, p := range want {
		if overlay.Texts[i].Origin != p {
			t.Errorf("Texts[%d].Origin = %v, want %v", i, overlay.Texts[i].Origin, p)
		}
	}
	if overlay.Box != faceRect {
		t.Errorf("Only the first face should be boxed, got %v", overlay.Box)
	}
}

func TestStepFailureResetsToSentinel(t *testing.T) {
	var logBuf bytes.Buffer
	plotter := &recordingPlotter{}
	analyzer := &scriptedAnalyzer{results: map[int]Result{
		0: happyResult(),
		1: Failed(errors.New("model exploded")),
	}}
	s := New(frameDetector{}, analyzer, WithLog(&logBuf), WithPlotter(plotter))

	for i := 0; i <= AnalysisInterval; i++ {
		if _, err := s.Step(context.Background(), &fakeFrame{faces: []image.Rectangle{faceRect}}); err != nil {
			t.Fatal(err)
		}
	}

	if s.Display != attributes.Unset() {
		t.Errorf("Expected sentinel display after failure, got %+v", s.Display)
	}
	if !strings.Contains(logBuf.String(), "model exploded") {
		t.Errorf("Expected failure to be logged, got %q", logBuf.String())
	}
	// Failure leaves the trend alone
	if len(plotter.plots) != 1 {
		t.Errorf("Expected only the successful analysis to redraw, got %d redraws", len(plotter.plots))
	}
	if s.Trend.Len() != TrendSize {
		t.Errorf("Trend length changed to %d", s.Trend.Len())
	}
}

func TestStepEmptyResultKeepsState(t *testing.T) {
	plotter := &recordingPlotter{}
	analyzer := &scriptedAnalyzer{results: map[int]Result{0: happyResult(), 1: Empty()}}
	s := New(frameDetector{}, analyzer, WithPlotter(plotter))

	for i := 0; i <= AnalysisInterval; i++ {
		if _, err := s.Step(context.Background(), &fakeFrame{faces: []image.Rectangle{faceRect}}); err != nil {
			t.Fatal(err)
		}
	}

	if s.Display.Emotion != "happy" {
		t.Errorf("Empty result should keep previous display, got %+v", s.Display)
	}
	if len(plotter.plots) != 1 {
		t.Errorf("Empty result should not redraw the chart, got %d redraws", len(plotter.plots))
	}
}

func TestStepNoFaceDrawsNothing(t *testing.T) {
	analyzer := &scriptedAnalyzer{results: map[int]Result{0: happyResult()}}
	s := New(frameDetector{}, analyzer)

	if _, err := s.Step(context.Background(), &fakeFrame{faces: []image.Rectangle{faceRect}}); err != nil {
		t.Fatal(err)
	}
	overlay, err := s.Step(context.Background(), &fakeFrame{})
	if err != nil {
		t.Fatal(err)
	}
	if !overlay.Empty() {
		t.Errorf("Expected empty overlay without a face, got %+v", overlay)
	}
	if s.Display.Emotion != "happy" {
		t.Errorf("Display values should survive face-less frames, got %+v", s.Display)
	}
}

type failingDetector struct{}

func (failingDetector) Detect(Frame) ([]image.Rectangle, error) {
	return nil, errors.New("cascade not loaded")
}

func TestStepDetectorErrorIsFatal(t *testing.T) {
	s := New(failingDetector{}, &scriptedAnalyzer{})
	if _, err := s.Step(context.Background(), &fakeFrame{}); err == nil {
		t.Fatal("Expected detector error to propagate")
	}
}

func assertTexts(t *testing.T, o Overlay, want ...string) {
	t.Helper()
	if len(o.Texts) != len(want) {
		t.Fatalf("Expected %d texts, got %d", len(want), len(o.Texts))
	}
	for i, w := range want {
		if o.Texts[i].Body != w {
			t.Errorf("Texts[%d] = %q, want %q", i, o.Texts[i].Body, w)
		}
	}
}
