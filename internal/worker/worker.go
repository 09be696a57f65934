package worker

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/andresmejia3/moodlens/internal/types"
	"github.com/andresmejia3/moodlens/internal/utils" // Using the SafeCommand wrapper
	"github.com/vmihailenco/msgpack/v5"
)

// maxResponseSize guards against reading garbage lengths off a broken pipe.
const maxResponseSize = 16 * 1024 * 1024

// ErrWorkerExited is returned once the worker has closed its data pipe.
// Every later call fails with it immediately.
var ErrWorkerExited = errors.New("worker exited")

// deadliner is implemented by *os.File; in-memory pipes don't support deadlines.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

type PythonWorker struct {
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser
	// Timeout bounds the wait for each reply. Zero waits forever.
	Timeout time.Duration

	dead      error
	closeOnce sync.Once
}

// NewPythonWorker starts the attribute model worker script with the given interpreter.
func NewPythonWorker(python, script string, timeout time.Duration) (*PythonWorker, error) {
	py := utils.NewSafeCommand(python, "-u", script)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker failed to start: %w", err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonWorker{
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
		Timeout:  timeout,
	}, nil
}

// Communicate sends one framed payload and blocks for the framed reply.
// Protocol: [uint32 big-endian length][payload] in both directions.
func (w *PythonWorker) Communicate(data []byte) ([]byte, error) {
	if err := w.send(data); err != nil {
		return nil, err
	}
	return w.receive()
}

func (w *PythonWorker) send(data []byte) error {
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Stdin.Write(data)
	return err
}

func (w *PythonWorker) receive() ([]byte, error) {
	if d, ok := w.DataPipe.(deadliner); ok && w.Timeout > 0 {
		d.SetReadDeadline(time.Now().Add(w.Timeout))
		defer d.SetReadDeadline(time.Time{})
	}

	header := make([]byte, 4)
	if n, err := io.ReadFull(w.DataPipe, header); err != nil {
		if n > 0 {
			return nil, fmt.Errorf("truncated worker header: %w", ErrWorkerExited)
		}
		return nil, err // This is where we catch a worker that died mid-request
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponseSize {
		return nil, fmt.Errorf("worker response too large (%d bytes): %w", respLen, ErrWorkerExited)
	}
	respBody := make([]byte, respLen)
	if _, err := io.ReadFull(w.DataPipe, respBody); err != nil {
		// Half a frame was consumed; the stream can't be resynchronized.
		return nil, fmt.Errorf("truncated worker response: %w", ErrWorkerExited)
	}
	return respBody, nil
}

// Analyze runs one request through the worker.
// Replies to earlier requests that timed out are skipped.
func (w *PythonWorker) Analyze(req types.AnalyzeRequest) (*types.AnalyzeResponse, error) {
	if w.dead != nil {
		return nil, w.dead
	}

	payload, err := msgpack.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	if err := w.send(payload); err != nil {
		return nil, w.fail(err)
	}

	for {
		raw, err := w.receive()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, fmt.Errorf("worker did not answer within %s: %w", w.Timeout, err)
			}
			return nil, w.fail(err)
		}

		var resp types.AnalyzeResponse
		if err := msgpack.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("malformed worker response: %w", err)
		}
		if resp.ID != req.ID {
			continue // late answer to a request we already gave up on
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("python worker error: %s", resp.Error)
		}
		return &resp, nil
	}
}

// fail marks the worker as gone after a broken pipe and reaps the process,
// so Cmd.Stderr holds the complete crash log.
func (w *PythonWorker) fail(err error) error {
	if errors.Is(err, ErrWorkerExited) {
		w.dead = err
	} else {
		w.dead = fmt.Errorf("%w: %v", ErrWorkerExited, err)
	}
	w.Close()
	return w.dead
}

// Close shuts the worker down and waits for it. Safe to call more than once.
func (w *PythonWorker) Close() {
	w.closeOnce.Do(func() {
		w.Stdin.Close()
		w.DataPipe.Close()
		if w.Cmd != nil {
			w.Cmd.Wait()
		}
	})
}
