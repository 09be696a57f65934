package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/andresmejia3/moodlens/internal/attributes"
	"github.com/andresmejia3/moodlens/internal/pipeline"
	"github.com/andresmejia3/moodlens/internal/types"
	"github.com/andresmejia3/moodlens/internal/utils"
	"github.com/google/uuid"
)

// jpegQuality for face crops sent to the model.
const jpegQuality = 90

// Analyzer adapts a PythonWorker to the capture loop.
type Analyzer struct {
	worker *PythonWorker
	// onExit is called once, with the reaped worker, the first time it is found dead.
	onExit   func(err error, cmd *utils.SafeCommand)
	reported bool
}

func NewAnalyzer(w *PythonWorker) *Analyzer {
	return &Analyzer{
		worker: w,
		onExit: func(err error, cmd *utils.SafeCommand) {
			utils.ShowError("DeepFace worker exited", err, cmd)
		},
	}
}

// Analyze asks the model for emotion, gender and age. The worker's own face
// detector is told not to insist on finding a face, since the crop already is one.
func (a *Analyzer) Analyze(ctx context.Context, face image.Image) pipeline.Result {
	if err := ctx.Err(); err != nil {
		return pipeline.Failed(err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, face, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return pipeline.Failed(fmt.Errorf("failed to encode face crop: %w", err))
	}

	resp, err := a.worker.Analyze(types.AnalyzeRequest{
		ID:               uuid.NewString(),
		Image:            buf.Bytes(),
		Actions:          types.DefaultActions,
		EnforceDetection: false,
	})
	if err != nil {
		if errors.Is(err, ErrWorkerExited) && !a.reported {
			a.reported = true
			a.onExit(err, a.worker.Cmd)
		}
		return pipeline.Failed(err)
	}
	return decodeResult(resp.Result)
}

// decodeResult picks the first face out of the model's output.
// The model normally answers with a list of mappings, but older versions
// return a bare mapping for a single face.
func decodeResult(result interface{}) pipeline.Result {
	switch r := result.(type) {
	case nil:
		return pipeline.Empty()
	case []interface{}:
		if len(r) == 0 {
			return pipeline.Empty()
		}
		return decodeFace(r[0])
	case map[string]interface{}:
		if len(r) == 0 {
			return pipeline.Empty()
		}
		return decodeFace(r)
	default:
		return decodeFace(r)
	}
}

func decodeFace(v interface{}) pipeline.Result {
	switch m := v.(type) {
	case map[string]interface{}:
		return pipeline.Succeeded(attributes.FromRaw(m))
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return pipeline.Succeeded(attributes.FromRaw(out))
	}
	return pipeline.Failed(fmt.Errorf("unexpected analysis result of type %T", v))
}
