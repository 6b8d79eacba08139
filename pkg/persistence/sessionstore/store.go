// Package sessionstore persists point-in-time snapshots of a live interview
// session so an interrupted attempt can be reconstructed on the next start.
// One snapshot exists at a time; every save is a full overwrite.
package sessionstore

import (
	"context"
	"time"

	"github.com/go-go-golems/parley/pkg/api"
	"github.com/pkg/errors"
)

var errEmptyPendingSummary = errors.New("session store: empty pending summary")

// TimerState is the persisted countdown state. IsActive implies
// LimitMinutes was set and RemainingSeconds was derived from it.
type TimerState struct {
	IsActive         bool `json:"is_active"`
	RemainingSeconds int  `json:"remaining_seconds"`
	LimitMinutes     int  `json:"limit_minutes,omitempty"`
}

// Snapshot is a full serialized copy of the live session state.
type Snapshot struct {
	Status           string         `json:"status"`
	SessionID        string         `json:"session_id"`
	UserID           string         `json:"user_id"`
	TopicID          string         `json:"topic_id"`
	Transcript       []api.Message  `json:"transcript,omitempty"`
	ActiveQuestion   *api.Question  `json:"active_question,omitempty"`
	ActiveQuestionID string         `json:"active_question_id,omitempty"`
	QuestionPool     []api.Question `json:"question_pool,omitempty"`
	Timer            TimerState     `json:"timer"`
	SavedAtMs        int64          `json:"saved_at_ms"`
}

// Age returns how long ago the snapshot was written.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.SavedAtMs))
}

// Store is the durable client storage the restoration protocol runs
// against. Load returns ok=false when no snapshot exists or the stored
// payload cannot be decoded; corruption is treated as absence.
//
// The pending-summary methods are the local fallback for interview
// summaries that could not be delivered to the remote analytics endpoint;
// they are keyed by session id and survive snapshot clears.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, bool, error)
	Clear(ctx context.Context) error

	SavePendingSummary(ctx context.Context, sessionID string, summary *api.Summary) error
	LoadPendingSummary(ctx context.Context, sessionID string) (*api.Summary, bool, error)
	ClearPendingSummary(ctx context.Context, sessionID string) error

	Close() error
}
