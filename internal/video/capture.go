package video

import (
	"fmt"
	"image"

	"github.com/andresmejia3/moodlens/internal/pipeline"
	"gocv.io/x/gocv"
)

// Every frame is normalized to this size before detection.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// MatFrame is a pipeline.Frame backed by an OpenCV matrix.
type MatFrame struct {
	Mat gocv.Mat
}

// Crop copies the part of the frame inside r. r is clipped to the frame.
func (f *MatFrame) Crop(r image.Rectangle) (image.Image, error) {
	r = clip(r, f.Mat.Cols(), f.Mat.Rows())
	if r.Empty() {
		return nil, fmt.Errorf("crop %v lies outside the %dx%d frame", r, f.Mat.Cols(), f.Mat.Rows())
	}

	region := f.Mat.Region(r)
	defer region.Close()

	// The region shares memory with the frame and isn't continuous; clone it first.
	face := region.Clone()
	defer face.Close()

	return face.ToImage()
}

func (f *MatFrame) Close() error {
	return f.Mat.Close()
}

// Capture reads frames from a camera or a video file.
type Capture struct {
	vc     *gocv.VideoCapture
	width  int
	height int
}

// OpenCamera opens a capture device (0 is the system default).
func OpenCamera(device int) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("error opening video capture device %d: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture device %d is not available", device)
	}
	return &Capture{vc: vc, width: FrameWidth, height: FrameHeight}, nil
}

// OpenFile opens a video file instead of a live device.
func OpenFile(path string) (*Capture, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening video file %s: %w", path, err)
	}
	return &Capture{vc: vc, width: FrameWidth, height: FrameHeight}, nil
}

// FrameCount reports the number of frames in a file, or 0 when unknown (e.g. cameras).
func (c *Capture) FrameCount() int {
	n := int(c.vc.Get(gocv.VideoCaptureFrameCount))
	if n < 0 {
		return 0
	}
	return n
}

// Read grabs the next frame, resized to FrameWidth x FrameHeight.
// It returns false once the stream ends or the device stops delivering frames.
func (c *Capture) Read() (pipeline.Frame, bool) {
	raw := gocv.NewMat()
	defer raw.Close()

	if ok := c.vc.Read(&raw); !ok || raw.Empty() {
		return nil, false
	}

	resized := gocv.NewMat()
	gocv.Resize(raw, &resized, image.Pt(c.width, c.height), 0, 0, gocv.InterpolationLinear)
	return &MatFrame{Mat: resized}, true
}

func (c *Capture) Close() error {
	return c.vc.Close()
}

// clip restricts r to a w x h frame.
func clip(r image.Rectangle, w, h int) image.Rectangle {
	return r.Intersect(image.Rect(0, 0, w, h))
}
