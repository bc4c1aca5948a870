package assistant

import "errors"

var (
	ErrEmptySubmission  = errors.New("submission has neither text nor image")
	ErrImageRequired    = errors.New("image is required")
	ErrImageNotAccepted = errors.New("image not accepted")
	ErrUnsupportedImage = errors.New("unsupported image type")

	// ErrModel wraps every failure of the remote model call.
	ErrModel = errors.New("model call failed")

	ErrUnknownApp = errors.New("unknown app")
)

// Warning is a rejected submission. It is shown inline and no model call is
// made.
type Warning struct {
	Message string
	Err     error
}

func (w *Warning) Error() string {
	return w.Message
}

func (w *Warning) Unwrap() error {
	return w.Err
}

// AsWarning reports whether err is a submission warning.
func AsWarning(err error) (*Warning, bool) {
	var w *Warning
	if errors.As(err, &w) {
		return w, true
	}
	return nil, false
}
