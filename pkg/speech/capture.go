package speech

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/voicecmd"
)

// AnswerSink is the runtime surface the capture pipeline feeds. Fragments
// that are not voice commands are appended to the voice buffer; the silence
// monitor submits the buffer once the speaker goes quiet.
type AnswerSink interface {
	AppendVoiceFragment(text string)
	VoiceBufferEmpty() bool
	SubmitVoiceAnswer()
}

// CaptureConfig wires a Capture adapter.
type CaptureConfig struct {
	Recognizer Recognizer
	Dispatcher *voicecmd.Dispatcher
	Sink       AnswerSink
	Events     events.Publisher
}

// Capture owns one recognition session at a time. Final fragments go
// through the command dispatcher first; unmatched ones reach the sink.
type Capture struct {
	recognizer Recognizer
	dispatcher *voicecmd.Dispatcher
	sink       AnswerSink
	bus        events.Publisher
	monitor    *Monitor

	mu     sync.Mutex
	active bool
}

// NewCapture creates the adapter and its silence monitor.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if cfg.Recognizer == nil {
		return nil, errors.New("capture: recognizer is nil")
	}
	if cfg.Sink == nil {
		return nil, errors.New("capture: answer sink is nil")
	}
	c := &Capture{
		recognizer: cfg.Recognizer,
		dispatcher: cfg.Dispatcher,
		sink:       cfg.Sink,
		bus:        cfg.Events,
	}
	c.monitor = NewMonitor(cfg.Sink.VoiceBufferEmpty, c.onSilence)
	return c, nil
}

// Active reports whether a capture session is running.
func (c *Capture) Active() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start begins continuous recognition. Only one session may be active.
func (c *Capture) Start(ctx context.Context) error {
	if c == nil {
		return errors.New("capture: nil capture")
	}
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return errors.New("capture: already active")
	}
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	err := c.recognizer.Start(ctx, Callbacks{
		OnResult: c.onResult,
		OnError:  c.onError,
		OnEnd:    c.onEnd,
	})
	if err != nil {
		return errors.Wrap(err, "capture: start recognition")
	}
	c.mu.Lock()
	c.active = true
	c.mu.Unlock()
	c.monitor.Start()
	c.publish(events.RecordingChanged(true))
	c.publish(events.SpeakingChanged(true))
	return nil
}

// Stop ends the capture session. A Stop while inactive is a no-op.
func (c *Capture) Stop() {
	if c == nil || !c.Active() {
		return
	}
	c.recognizer.Stop()
}

// onResult handles one recognition fragment. Only finalized transcripts
// reset the silence clock: interim noise keeps the speaking indicator alive
// but cannot postpone the auto-submit.
func (c *Capture) onResult(r Result) {
	c.publish(events.SpeakingChanged(true))
	if !r.Final {
		return
	}
	c.monitor.Touch()
	if c.dispatcher.Dispatch(r.Text) {
		// Command fragments are consumed, never buffered.
		return
	}
	c.sink.AppendVoiceFragment(r.Text)
}

func (c *Capture) onError(err error) {
	if errors.Is(err, ErrAccessDenied) {
		c.publish(events.Notice(events.NoticeError, "Microphone Access Denied",
			"Please allow microphone access and try again."))
	} else {
		log.Error().Err(err).Msg("speech recognition error")
		c.publish(events.Notice(events.NoticeError, "Speech Recognition Error", err.Error()))
	}
	c.recognizer.Stop()
}

func (c *Capture) onEnd() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
	c.monitor.Stop()
	c.publish(events.RecordingChanged(false))
	c.publish(events.SpeakingChanged(false))
}

func (c *Capture) onSilence() {
	c.Stop()
	c.sink.SubmitVoiceAnswer()
}

func (c *Capture) publish(ev events.Event) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(ev)
}
