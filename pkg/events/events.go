// Package events carries the runtime's event stream: every observable state
// change (screen, transcript, timer, capture, panels, notices) is published
// as a JSON payload over an in-process watermill pub/sub, and the
// presentation layer subscribes through a forwarder.
package events

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/go-go-golems/parley/pkg/api"
)

// Type discriminates event payloads.
type Type string

const (
	TypeScreenChanged      Type = "screen-changed"
	TypeTranscriptAppended Type = "transcript-appended"
	TypeDraftChanged       Type = "draft-changed"
	TypeTimerTick          Type = "timer-tick"
	TypeTimerExpired       Type = "timer-expired"
	TypeSpeakingChanged    Type = "speaking-changed"
	TypeRecordingChanged   Type = "recording-changed"
	TypePanelToggled       Type = "panel-toggled"
	TypeNotice             Type = "notice"
	TypeSessionEnded       Type = "session-ended"
)

// Panel names used by PanelToggled events.
const (
	PanelChat     = "chat"
	PanelSettings = "settings"
)

// Notice severities.
const (
	NoticeInfo  = "info"
	NoticeError = "error"
)

// Event is the single wire shape for all runtime events; unused fields are
// omitted per type.
type Event struct {
	Type Type `json:"type"`

	Screen string `json:"screen,omitempty"`

	Sender string `json:"sender,omitempty"`
	Text   string `json:"text,omitempty"`

	RemainingSeconds int  `json:"remaining_seconds,omitempty"`
	TimerActive      bool `json:"timer_active,omitempty"`

	Panel string `json:"panel,omitempty"`
	Open  bool   `json:"open,omitempty"`

	Speaking  bool `json:"speaking,omitempty"`
	Recording bool `json:"recording,omitempty"`

	Level   string `json:"level,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`

	Summary *api.Summary `json:"summary,omitempty"`
}

// Publisher is the narrow surface the runtime publishes through. A nil
// Publisher is valid and drops events.
type Publisher interface {
	Publish(ev Event)
}

// ScreenChanged reports a lobby/meet/summary transition.
func ScreenChanged(screen string) Event {
	return Event{Type: TypeScreenChanged, Screen: screen}
}

// TranscriptAppended reports one new conversation turn.
func TranscriptAppended(sender, text string) Event {
	return Event{Type: TypeTranscriptAppended, Sender: sender, Text: text}
}

// DraftChanged reports the current draft answer text.
func DraftChanged(text string) Event {
	return Event{Type: TypeDraftChanged, Text: text}
}

// TimerTick reports the countdown state after a tick, arm, or stop.
func TimerTick(remaining int, active bool) Event {
	return Event{Type: TypeTimerTick, RemainingSeconds: remaining, TimerActive: active}
}

// TimerExpired reports that a question's countdown ran out.
func TimerExpired() Event {
	return Event{Type: TypeTimerExpired}
}

// SpeakingChanged reports recognition activity (interim results included).
func SpeakingChanged(speaking bool) Event {
	return Event{Type: TypeSpeakingChanged, Speaking: speaking}
}

// RecordingChanged reports capture start/stop.
func RecordingChanged(recording bool) Event {
	return Event{Type: TypeRecordingChanged, Recording: recording}
}

// PanelToggled reports a chat/settings panel opening or closing.
func PanelToggled(panel string, open bool) Event {
	return Event{Type: TypePanelToggled, Panel: panel, Open: open}
}

// Notice reports a user-facing notification (toast equivalent).
func Notice(level, title, message string) Event {
	return Event{Type: TypeNotice, Level: level, Title: title, Message: message}
}

// SessionEnded reports the transition into the summary screen.
func SessionEnded(summary *api.Summary) Event {
	return Event{Type: TypeSessionEnded, Summary: summary}
}

// Marshal encodes an event for the wire.
func Marshal(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(err, "events: marshal event")
	}
	return payload, nil
}

// Unmarshal decodes an event payload.
func Unmarshal(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, errors.Wrap(err, "events: unmarshal event")
	}
	return ev, nil
}
