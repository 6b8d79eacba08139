// Package speech wraps continuous speech recognition: a Recognizer
// capability produces interim and final transcript fragments, the Capture
// adapter routes final fragments through the voice-command dispatcher into
// the answer buffer, and the silence Monitor auto-submits buffered speech
// after a fixed quiet period.
package speech

import (
	"context"

	"github.com/pkg/errors"
)

// ErrAccessDenied is reported when the recognizer cannot capture audio for
// permission reasons. Capture stops and is not retried.
var ErrAccessDenied = errors.New("speech: microphone access denied")

// Result is one recognition result. Final results are candidate answer
// text; interim results only drive the speaking indicator.
type Result struct {
	Text  string
	Final bool
}

// Callbacks receive recognizer activity. All callbacks are invoked from the
// recognizer's own goroutine; OnEnd fires exactly once per Start, after
// which no further callbacks arrive.
type Callbacks struct {
	OnResult func(Result)
	OnError  func(err error)
	OnEnd    func()
}

// Recognizer is a continuous, interim-result speech recognizer. Start
// begins recognition until Stop is called or the recognizer fails; calling
// Start while active is an error, Stop while inactive is a no-op.
type Recognizer interface {
	Start(ctx context.Context, cb Callbacks) error
	Stop()
}
