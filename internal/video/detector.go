package video

import (
	"fmt"
	"image"

	"github.com/andresmejia3/moodlens/internal/pipeline"
	"gocv.io/x/gocv"
)

// Haar cascade parameters.
const (
	scaleFactor  = 1.1
	minNeighbors = 4
)

// CascadeDetector finds faces with an OpenCV Haar cascade.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	gray       gocv.Mat
}

// NewCascadeDetector loads the cascade XML at path.
func NewCascadeDetector(path string) (*CascadeDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("error reading cascade file: %s", path)
	}
	return &CascadeDetector{classifier: classifier, gray: gocv.NewMat()}, nil
}

// Detect runs the cascade on a grayscale copy of the frame.
func (d *CascadeDetector) Detect(f pipeline.Frame) ([]image.Rectangle, error) {
	mf, ok := f.(*MatFrame)
	if !ok {
		return nil, fmt.Errorf("cascade detector needs a *MatFrame, got %T", f)
	}

	gocv.CvtColor(mf.Mat, &d.gray, gocv.ColorBGRToGray)
	return d.classifier.DetectMultiScaleWithParams(
		d.gray,
		scaleFactor, minNeighbors, 0,
		image.Pt(0, 0), image.Pt(0, 0),
	), nil
}

func (d *CascadeDetector) Close() error {
	d.gray.Close()
	return d.classifier.Close()
}
