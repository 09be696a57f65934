package types

// AnalyzeRequest is sent to the Python worker for every analyzed face.
type AnalyzeRequest struct {
	ID               string   `msgpack:"id"`
	Image            []byte   `msgpack:"image"` // JPEG-encoded face crop
	Actions          []string `msgpack:"actions"`
	EnforceDetection bool     `msgpack:"enforce_detection"`
}

// AnalyzeResponse is what the worker sends back.
// Result is left untyped: the model returns a list of per-face mappings whose
// keys and value shapes are not guaranteed.
type AnalyzeResponse struct {
	ID     string      `msgpack:"id"`
	Error  string      `msgpack:"error,omitempty"`
	Result interface{} `msgpack:"result"`
}

// DefaultActions is the set of attributes requested from the model.
var DefaultActions = []string{"emotion", "gender", "age"}
