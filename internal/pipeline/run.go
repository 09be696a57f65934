package pipeline

import "context"

// QuitKey stops the loop when pressed in the video window.
const QuitKey = 'q'

// Source produces frames until the stream ends.
type Source interface {
	// Read returns the next frame, or false once no more frames are available.
	Read() (Frame, bool)
	Close() error
}

// Display shows annotated frames and reports whether the user wants out.
type Display interface {
	Show(f Frame, o Overlay)
	// Visible reports whether the window is still open.
	Visible() bool
	// WaitKey polls the keyboard for up to delay milliseconds; -1 means no key.
	WaitKey(delay int) int
	Close() error
}

// Run drives the capture loop until the stream ends, the window is closed,
// the quit key is pressed, or ctx is cancelled.
// The source and display are released before returning.
func Run(ctx context.Context, src Source, disp Display, s *State) error {
	defer disp.Close()
	defer src.Close()

	for {
		frame, ok := src.Read()
		if !ok {
			return nil
		}

		overlay, err := s.Step(ctx, frame)
		if err != nil {
			frame.Close()
			return err
		}

		disp.Show(frame, overlay)
		frame.Close()

		if !disp.Visible() {
			return nil
		}
		if key := disp.WaitKey(1); key&0xFF == QuitKey {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
