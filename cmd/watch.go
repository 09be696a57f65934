package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/moodlens/internal/pipeline"
	"github.com/andresmejia3/moodlens/internal/utils"
	"github.com/andresmejia3/moodlens/internal/video"
	"github.com/andresmejia3/moodlens/internal/worker"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const (
	videoWindowTitle = "Face Analysis"
	chartWindowTitle = "Emotion Trend"
)

var watchOpts Options

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Overlay live emotion, gender and age estimates on the webcam feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runWatch(cmd.Context(), watchOpts)
	},
}

func init() {
	watchCmd.Flags().IntVarP(&watchOpts.Device, "device", "d", 0, "Capture device index (0 is the system default camera)")
	watchCmd.Flags().StringVarP(&watchOpts.InputPath, "input", "i", "", "Read frames from a video file instead of the camera")
	watchCmd.Flags().StringVarP(&watchOpts.CascadePath, "cascade", "c", "data/haarcascade_frontalface_default.xml", "Path to the Haar cascade used for face detection")
	watchCmd.Flags().StringVarP(&watchOpts.WorkerPath, "worker", "w", "python/worker.py", "Path to the DeepFace worker script")
	watchCmd.Flags().StringVar(&watchOpts.Python, "python", "python3", "Python interpreter used to run the worker")
	watchCmd.Flags().StringVar(&watchOpts.WorkerTimeout, "worker-timeout", "60s", "How long to wait for one analysis before giving up on it (0 waits forever)")

	rootCmd.AddCommand(watchCmd)
}

// runWatch wires the camera, detector, model worker and windows into the capture loop.
func runWatch(ctx context.Context, opts Options) error {
	if err := validateWatchFlags(&opts); err != nil {
		return err
	}
	timeout, _ := time.ParseDuration(opts.WorkerTimeout) // validated above

	detector, err := video.NewCascadeDetector(opts.CascadePath)
	if err != nil {
		utils.ShowError("Failed to load face detector", err, nil)
		return err
	}
	defer detector.Close()

	fmt.Fprintf(os.Stderr, "🧠 Starting DeepFace worker (%s)...\n", opts.WorkerPath)
	py, err := worker.NewPythonWorker(opts.Python, opts.WorkerPath, timeout)
	if err != nil {
		utils.ShowError("Worker startup failed", err, nil)
		return err
	}
	defer py.Close()

	src, err := openSource(opts)
	if err != nil {
		utils.ShowError("Failed to open video source", err, nil)
		return err
	}

	chart := video.NewTrendChart(chartWindowTitle)
	defer chart.Close()

	state := pipeline.New(detector, worker.NewAnalyzer(py), pipeline.WithPlotter(chart))
	state.Redraw()

	fmt.Fprintf(os.Stderr, "🎥 Watching. Press 'q' in the %q window to quit.\n", videoWindowTitle)
	if err := pipeline.Run(ctx, src, video.NewWindow(videoWindowTitle), state); err != nil {
		py.Close() // reap the worker so its stderr is complete
		utils.ShowError("Capture loop failed", err, py.Cmd)
		return err
	}

	fmt.Fprintf(os.Stderr, "\n🏁 Stopped after %d frames.\n", state.FrameCount)
	return nil
}

// openSource opens the camera, or the input file with a progress bar.
func openSource(opts Options) (pipeline.Source, error) {
	if opts.InputPath == "" {
		camera, err := video.OpenCamera(opts.Device)
		if err != nil {
			return nil, err
		}
		return camera, nil
	}

	capture, err := video.OpenFile(opts.InputPath)
	if err != nil {
		return nil, err
	}

	total := capture.FrameCount()
	if total <= 0 {
		// Fallback to a spinner if the container has no frame count
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("🔍 Analyzing"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)
	return &progressSource{Source: capture, bar: bar}, nil
}

// progressSource ticks a progress bar for every frame read.
type progressSource struct {
	pipeline.Source
	bar *progressbar.ProgressBar
}

func (p *progressSource) Read() (pipeline.Frame, bool) {
	f, ok := p.Source.Read()
	if ok {
		p.bar.Add(1)
	}
	return f, ok
}

func (p *progressSource) Close() error {
	p.bar.Finish()
	return p.Source.Close()
}

// validateWatchFlags ensures all CLI arguments are valid before starting heavy processes.
func validateWatchFlags(opts *Options) error {
	if opts.Device < 0 {
		return fmt.Errorf("invalid capture device: must be >= 0, got %d", opts.Device)
	}
	if opts.InputPath != "" {
		if err := utils.CheckFile(opts.InputPath, "input video"); err != nil {
			return err
		}
	}
	if err := utils.CheckFile(opts.CascadePath, "cascade file"); err != nil {
		return err
	}
	if err := utils.CheckFile(opts.WorkerPath, "worker script"); err != nil {
		return err
	}
	if opts.Python == "" {
		return fmt.Errorf("python interpreter must not be empty")
	}
	if d, err := time.ParseDuration(opts.WorkerTimeout); err != nil {
		return fmt.Errorf("invalid worker timeout %q: %w", opts.WorkerTimeout, err)
	} else if d < 0 {
		return fmt.Errorf("invalid worker timeout: must be >= 0, got %s", d)
	}
	return nil
}
