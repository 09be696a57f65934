package emotion

import "image"

// Neutral is the code used for "neutral" and for any label we don't recognize.
const Neutral = 7

// codes ranks the emotion labels reported by the attribute model.
var codes = map[string]int{
	"angry":    1,
	"disgust":  2,
	"fear":     3,
	"happy":    4,
	"sad":      5,
	"surprise": 6,
	"neutral":  Neutral,
}

// Code returns the trend code for an emotion label, defaulting to Neutral.
func Code(label string) int {
	if c, ok := codes[label]; ok {
		return c
	}
	return Neutral
}

// Trend is a fixed-capacity FIFO of emotion codes.
// Its length never changes: pushing a value drops the oldest one.
type Trend struct {
	values []int
	head   int // index of the oldest value
}

// NewTrend creates a trend of the given capacity, pre-filled with fill.
func NewTrend(capacity, fill int) *Trend {
	if capacity < 1 {
		capacity = 1
	}
	t := &Trend{values: make([]int, capacity)}
	for i := range t.values {
		t.values[i] = fill
	}
	return t
}

// Push appends a code and evicts the oldest one.
func (t *Trend) Push(code int) {
	t.values[t.head] = code
	t.head = (t.head + 1) % len(t.values)
}

// Len is always the capacity the trend was created with.
func (t *Trend) Len() int {
	return len(t.values)
}

// Values returns a copy of the codes, oldest first.
func (t *Trend) Values() []int {
	out := make([]int, 0, len(t.values))
	out = append(out, t.values[t.head:]...)
	out = append(out, t.values[:t.head]...)
	return out
}

// Polyline maps trend values onto the plot area. The first value sits on the
// left edge and the last on the right edge; yMin is the bottom of the area.
func Polyline(values []int, area image.Rectangle, yMin, yMax float64) []image.Point {
	if len(values) == 0 || yMax <= yMin {
		return nil
	}

	pts := make([]image.Point, len(values))
	step := 0.0
	if len(values) > 1 {
		step = float64(area.Dx()) / float64(len(values)-1)
	}

	for i, v := range values {
		pts[i] = image.Pt(area.Min.X+int(float64(i)*step+0.5), ScaleY(float64(v), area, yMin, yMax))
	}
	return pts
}

// ScaleY converts a value to a pixel row inside area, clamping to [yMin, yMax].
func ScaleY(v float64, area image.Rectangle, yMin, yMax float64) int {
	if v < yMin {
		v = yMin
	} else if v > yMax {
		v = yMax
	}
	frac := (v - yMin) / (yMax - yMin)
	return area.Max.Y - int(frac*float64(area.Dy())+0.5)
}
