// Package session implements the live interview runtime: the lobby, meet
// and summary screens, the per-question countdown, answer submission, voice
// buffer bookkeeping, and snapshot persistence so an interrupted attempt
// can be resumed.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/api"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/persistence/sessionstore"
	"github.com/go-go-golems/parley/pkg/synth"
)

// Screens of the interview flow.
const (
	ScreenLobby   = "lobby"
	ScreenMeet    = "meet"
	ScreenSummary = "summary"
)

// Message senders.
const (
	SenderUser        = "user"
	SenderInterviewer = "interviewer"
)

// DefaultAnswer is submitted on the candidate's behalf when the countdown
// runs out.
const DefaultAnswer = "I don't know"

// SnapshotMaxAge is the staleness cutoff for resuming a persisted session.
const SnapshotMaxAge = 24 * time.Hour

// summaryScreenDelay gives the candidate a moment to read the
// interviewer's closing line before the summary screen replaces the meet.
const summaryScreenDelay = 2 * time.Second

// InterviewAPI is the slice of the engine client the runtime depends on.
type InterviewAPI interface {
	ListQuestions(ctx context.Context, userID, topicID string, tags []string) ([]api.Question, error)
	StartInterview(ctx context.Context, userID, topicID string) (*api.StartResponse, error)
	SubmitAnswer(ctx context.Context, userID, sessionID, text string) (*api.SubmitResponse, error)
	EndInterview(ctx context.Context, userID, sessionID string) (*api.Summary, error)
	StoreSummary(ctx context.Context, userID, sessionID string, summary *api.Summary) error
}

var _ InterviewAPI = &api.Client{}

// Runtime drives one interview attempt at a time. All exported methods are
// safe for concurrent use; the capture pipeline, the countdown loop and the
// UI all call into the same instance.
type Runtime struct {
	mu sync.Mutex

	api   InterviewAPI
	store sessionstore.Store
	synth synth.Synthesizer
	bus   events.Publisher

	now          func() time.Time
	tickInterval time.Duration
	summaryDelay time.Duration

	screen     string
	userID     string
	topicID    string
	sessionID  string
	transcript []api.Message
	draft      string
	voice      string

	pool     []api.Question
	active   *api.Question
	activeID string

	summary       *api.Summary
	summaryStored bool

	showChat     bool
	showSettings bool

	timer    Timer
	tickStop chan struct{}

	// expiryHandled guards the default-answer submission: it is cleared
	// only when a fresh countdown is armed or the session resets, so an
	// expiry observed both by the tick loop and by restoration still
	// submits once.
	expiryHandled atomic.Bool

	// restoring suppresses snapshot writes while a snapshot is being
	// replayed, so a partial restore can never overwrite the stored one.
	restoring bool
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithSynthesizer enables spoken interviewer turns.
func WithSynthesizer(s synth.Synthesizer) RuntimeOption {
	return func(r *Runtime) { r.synth = s }
}

// WithPublisher wires the runtime's event stream.
func WithPublisher(p events.Publisher) RuntimeOption {
	return func(r *Runtime) { r.bus = p }
}

// WithClock overrides the runtime's notion of now.
func WithClock(now func() time.Time) RuntimeOption {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

// WithTickInterval overrides the one-second countdown cadence.
func WithTickInterval(d time.Duration) RuntimeOption {
	return func(r *Runtime) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

// WithSummaryDelay overrides the meet-to-summary pause after the engine
// ends the session.
func WithSummaryDelay(d time.Duration) RuntimeOption {
	return func(r *Runtime) {
		if d >= 0 {
			r.summaryDelay = d
		}
	}
}

// NewRuntime creates an interview runtime for one user.
func NewRuntime(client InterviewAPI, store sessionstore.Store, userID string, opts ...RuntimeOption) (*Runtime, error) {
	if client == nil {
		return nil, errors.New("session runtime: nil API client")
	}
	if store == nil {
		return nil, errors.New("session runtime: nil store")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("session runtime: empty user id")
	}
	r := &Runtime{
		api:          client,
		store:        store,
		userID:       userID,
		screen:       ScreenLobby,
		now:          time.Now,
		tickInterval: time.Second,
		summaryDelay: summaryScreenDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Runtime) publish(ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

// speak hands text to the synthesizer without blocking the state machine.
func (r *Runtime) speak(text string) {
	if r.synth == nil {
		return
	}
	go func() {
		if err := r.synth.Speak(context.Background(), text); err != nil {
			log.Warn().Err(err).Msg("interviewer speech failed")
		}
	}()
}

func (r *Runtime) appendLocked(sender, text string) {
	msg := api.Message{
		Sender:    sender,
		Text:      text,
		Timestamp: r.now().Format(time.RFC3339),
	}
	r.transcript = append(r.transcript, msg)
	r.publish(events.TranscriptAppended(sender, text))
}

// saveLocked persists the live state. Snapshots exist only for the meet
// screen; lobby and summary have nothing to resume.
func (r *Runtime) saveLocked(ctx context.Context) {
	if r.restoring || r.screen != ScreenMeet || r.sessionID == "" {
		return
	}
	snap := sessionstore.Snapshot{
		Status:           r.screen,
		SessionID:        r.sessionID,
		UserID:           r.userID,
		TopicID:          r.topicID,
		Transcript:       append([]api.Message(nil), r.transcript...),
		ActiveQuestion:   r.active,
		ActiveQuestionID: r.activeID,
		QuestionPool:     append([]api.Question(nil), r.pool...),
		Timer:            r.timer.State(),
		SavedAtMs:        r.now().UnixMilli(),
	}
	if err := r.store.Save(ctx, snap); err != nil {
		log.Error().Err(err).Str("session_id", r.sessionID).Msg("session snapshot save failed")
	}
}

// StartInterview leaves the lobby and opens a session on the engine. The
// meet screen is entered optimistically so connection feedback has a place
// to render.
func (r *Runtime) StartInterview(ctx context.Context, topicID string) error {
	if r == nil {
		return errors.New("session runtime: nil runtime")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(topicID) == "" {
		r.publish(events.Notice(events.NoticeError, "No topic selected", "Pick a topic before starting an interview."))
		return errors.New("session runtime: empty topic id")
	}
	if r.screen == ScreenMeet && r.sessionID != "" {
		return errors.New("session runtime: interview already running")
	}

	r.resetSessionLocked()
	r.topicID = topicID
	r.screen = ScreenMeet
	r.publish(events.ScreenChanged(ScreenMeet))

	pool, err := r.api.ListQuestions(ctx, r.userID, topicID, nil)
	if err != nil {
		log.Warn().Err(err).Str("topic_id", topicID).Msg("question pool fetch failed")
		r.publish(events.Notice(events.NoticeInfo, "Question pool unavailable", "Questions will not be matched against the topic pool."))
	} else {
		r.pool = pool
	}

	start, err := r.api.StartInterview(ctx, r.userID, topicID)
	if err != nil {
		r.publish(events.Notice(events.NoticeError, "Could not start interview", err.Error()))
		return errors.Wrap(err, "session runtime: start interview")
	}
	r.sessionID = start.SessionID
	r.appendLocked(SenderInterviewer, start.InitialQuestion)
	r.speak(start.InitialQuestion)
	r.resolveActiveLocked(ctx, start.InitialQuestion)
	r.saveLocked(ctx)
	return nil
}

// SubmitDraft submits the typed answer text.
func (r *Runtime) SubmitDraft(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitLocked(ctx, r.draft)
}

// SubmitAnswer submits explicit answer text.
func (r *Runtime) SubmitAnswer(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitLocked(ctx, text)
}

func (r *Runtime) submitLocked(ctx context.Context, text string) error {
	if r.screen != ScreenMeet || r.sessionID == "" {
		return errors.New("session runtime: no running interview")
	}
	r.stopCountdownLocked()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	r.appendLocked(SenderUser, trimmed)
	r.draft = ""
	r.voice = ""
	r.publish(events.DraftChanged(""))
	r.saveLocked(ctx)

	reply, err := r.api.SubmitAnswer(ctx, r.userID, r.sessionID, trimmed)
	if err != nil {
		r.publish(events.Notice(events.NoticeError, "Answer not delivered", err.Error()))
		return errors.Wrap(err, "session runtime: submit answer")
	}

	r.appendLocked(SenderInterviewer, reply.Response)
	r.speak(reply.Response)

	if reply.SessionEnded {
		r.summary = reply.Summary
		r.summaryStored = false
		delay := r.summaryDelay
		time.AfterFunc(delay, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.screen != ScreenMeet {
				return
			}
			r.toSummaryLocked(context.Background())
		})
		return nil
	}

	r.resolveActiveLocked(ctx, reply.Response)
	r.saveLocked(ctx)
	return nil
}

// resolveActiveLocked binds an interviewer utterance to a pool question,
// refetching the pool once before falling back to a placeholder. The
// session always leaves with an active question.
func (r *Runtime) resolveActiveLocked(ctx context.Context, text string) {
	q := matchQuestion(r.pool, text)
	if q == nil {
		pool, err := r.api.ListQuestions(ctx, r.userID, r.topicID, nil)
		if err != nil {
			log.Warn().Err(err).Str("topic_id", r.topicID).Msg("question pool refetch failed")
		} else {
			r.pool = pool
			q = matchQuestion(r.pool, text)
		}
	}
	if q == nil {
		q = placeholderQuestion(r.topicID, text)
		log.Debug().Str("question_id", q.ID).Msg("interviewer question not in pool, using placeholder")
	}
	r.active = q
	r.activeID = q.ID

	if q.TimeMinutes != nil && *q.TimeMinutes > 0 {
		r.armCountdownLocked((*q.TimeMinutes)*60, *q.TimeMinutes)
	} else {
		r.stopCountdownLocked()
	}
}

func (r *Runtime) armCountdownLocked(remainingSeconds, limitMinutes int) {
	r.stopCountdownLocked()
	r.expiryHandled.Store(false)
	if remainingSeconds == limitMinutes*60 {
		r.timer.Start(limitMinutes)
	} else {
		r.timer.Resume(remainingSeconds, limitMinutes)
	}
	r.publish(events.TimerTick(r.timer.Remaining(), true))

	stop := make(chan struct{})
	r.tickStop = stop
	go r.tickLoop(stop)
}

func (r *Runtime) stopCountdownLocked() {
	if r.tickStop != nil {
		close(r.tickStop)
		r.tickStop = nil
	}
	if r.timer.Active() {
		r.timer.Stop()
		r.publish(events.TimerTick(0, false))
	}
}

func (r *Runtime) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.handleTick(stop) {
				return
			}
		}
	}
}

// handleTick advances the countdown by one second. It reports true when
// the loop should exit, either because the countdown was superseded or
// because it expired.
func (r *Runtime) handleTick(stop chan struct{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tickStop != stop || !r.timer.Active() {
		return true
	}
	expired := r.timer.Tick()
	r.publish(events.TimerTick(r.timer.Remaining(), true))
	r.saveLocked(context.Background())
	if expired {
		r.handleExpiryLocked(context.Background())
		return true
	}
	return false
}

// handleExpiryLocked submits the default answer for an expired countdown.
// The CAS guard makes the submission at-most-once even when the expiry is
// observed twice (live tick plus snapshot restoration).
func (r *Runtime) handleExpiryLocked(ctx context.Context) {
	if !r.expiryHandled.CompareAndSwap(false, true) {
		return
	}
	r.publish(events.TimerExpired())
	r.publish(events.Notice(events.NoticeInfo, "Time is up", "Submitting a default answer for this question."))
	if err := r.submitLocked(ctx, DefaultAnswer); err != nil {
		log.Error().Err(err).Str("session_id", r.sessionID).Msg("default answer submission failed")
	}
}

// EndInterview closes the session on the engine and shows the summary. The
// candidate always gets out of the meet screen, even when the engine call
// fails.
func (r *Runtime) EndInterview(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessionID == "" {
		r.toLobbyLocked(ctx)
		return nil
	}
	r.stopCountdownLocked()

	summary, err := r.api.EndInterview(ctx, r.userID, r.sessionID)
	if err != nil {
		r.publish(events.Notice(events.NoticeError, "Could not end interview", err.Error()))
		r.toLobbyLocked(ctx)
		return errors.Wrap(err, "session runtime: end interview")
	}
	r.summary = summary
	r.summaryStored = false
	r.toSummaryLocked(ctx)
	return nil
}

func (r *Runtime) toSummaryLocked(ctx context.Context) {
	r.stopCountdownLocked()
	r.screen = ScreenSummary
	r.publish(events.ScreenChanged(ScreenSummary))
	r.publish(events.SessionEnded(r.summary))
	if err := r.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("session snapshot clear failed")
	}
	r.storeSummaryLocked(ctx)
}

// storeSummaryLocked pushes the summary to the engine's analytics store,
// falling back to the local pending-summary table when the call fails.
// Delivery never blocks the screen transition.
func (r *Runtime) storeSummaryLocked(ctx context.Context) {
	if r.summary == nil || r.summaryStored || r.sessionID == "" {
		return
	}
	if err := r.api.StoreSummary(ctx, r.userID, r.sessionID, r.summary); err != nil {
		log.Warn().Err(err).Str("session_id", r.sessionID).Msg("summary upload failed, keeping it locally")
		if saveErr := r.store.SavePendingSummary(ctx, r.sessionID, r.summary); saveErr != nil {
			log.Error().Err(saveErr).Str("session_id", r.sessionID).Msg("pending summary save failed")
		}
		return
	}
	r.summaryStored = true
	if err := r.store.ClearPendingSummary(ctx, r.sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", r.sessionID).Msg("pending summary clear failed")
	}
}

// ReturnToLobby leaves the summary screen. Summary delivery gets one more
// attempt on the way out.
func (r *Runtime) ReturnToLobby(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storeSummaryLocked(ctx)
	r.toLobbyLocked(ctx)
}

func (r *Runtime) toLobbyLocked(ctx context.Context) {
	r.resetSessionLocked()
	r.screen = ScreenLobby
	r.publish(events.ScreenChanged(ScreenLobby))
	if err := r.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("session snapshot clear failed")
	}
}

func (r *Runtime) resetSessionLocked() {
	r.stopCountdownLocked()
	r.sessionID = ""
	r.topicID = ""
	r.transcript = nil
	r.draft = ""
	r.voice = ""
	r.pool = nil
	r.active = nil
	r.activeID = ""
	r.summary = nil
	r.summaryStored = false
	r.showChat = false
	r.showSettings = false
	r.expiryHandled.Store(false)
	r.publish(events.DraftChanged(""))
}

// Restore replays a persisted snapshot, resuming the interview where it
// left off. It reports whether a session was resumed. Stale snapshots are
// discarded and leave the runtime in the lobby.
func (r *Runtime) Restore(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok, err := r.store.Load(ctx)
	if err != nil {
		return false, errors.Wrap(err, "session runtime: load snapshot")
	}
	if !ok || snap.Status != ScreenMeet || snap.SessionID == "" {
		return false, nil
	}
	if snap.Age(r.now()) > SnapshotMaxAge {
		log.Info().Str("session_id", snap.SessionID).Msg("discarding stale session snapshot")
		if err := r.store.Clear(ctx); err != nil {
			log.Warn().Err(err).Msg("session snapshot clear failed")
		}
		return false, nil
	}

	r.restoring = true
	r.resetSessionLocked()

	r.screen = ScreenMeet
	r.sessionID = snap.SessionID
	r.topicID = snap.TopicID
	r.transcript = append([]api.Message(nil), snap.Transcript...)
	r.pool = append([]api.Question(nil), snap.QuestionPool...)
	r.active = snap.ActiveQuestion
	r.activeID = snap.ActiveQuestionID

	r.publish(events.ScreenChanged(ScreenMeet))
	for _, msg := range snap.Transcript {
		r.publish(events.TranscriptAppended(msg.Sender, msg.Text))
	}

	pendingExpiry := false
	if snap.Timer.IsActive {
		if snap.Timer.RemainingSeconds > 0 {
			r.armCountdownLocked(snap.Timer.RemainingSeconds, snap.Timer.LimitMinutes)
		} else {
			// The countdown ran out while the client was away.
			r.timer.Resume(0, snap.Timer.LimitMinutes)
			r.expiryHandled.Store(false)
			pendingExpiry = true
		}
	}

	r.restoring = false
	if pendingExpiry {
		r.handleExpiryLocked(ctx)
	}
	return true, nil
}

// AppendVoiceFragment adds a final recognition fragment to both the voice
// buffer and the visible draft.
func (r *Runtime) AppendVoiceFragment(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if text == "" {
		return
	}
	r.voice += text
	r.draft = strings.TrimSpace(r.draft + " " + text)
	r.publish(events.DraftChanged(r.draft))
}

// VoiceBufferEmpty reports whether any spoken answer is pending.
func (r *Runtime) VoiceBufferEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.TrimSpace(r.voice) == ""
}

// SubmitVoiceAnswer submits the spoken answer, preferring the voice buffer
// over the typed draft.
func (r *Runtime) SubmitVoiceAnswer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	text := r.voice
	if strings.TrimSpace(text) == "" {
		text = r.draft
	}
	if err := r.submitLocked(context.Background(), text); err != nil {
		log.Warn().Err(err).Msg("voice answer submission failed")
	}
}

// SetDraft replaces the typed draft (textarea edits).
func (r *Runtime) SetDraft(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = text
	r.publish(events.DraftChanged(text))
}

// OpenChat shows the transcript panel; the settings panel yields.
func (r *Runtime) OpenChat() { r.setPanels(true, false) }

// CloseChat hides the transcript panel.
func (r *Runtime) CloseChat() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.showChat {
		r.showChat = false
		r.publish(events.PanelToggled(events.PanelChat, false))
	}
}

// OpenSettings shows the settings panel; the chat panel yields.
func (r *Runtime) OpenSettings() { r.setPanels(false, true) }

// CloseSettings hides the settings panel.
func (r *Runtime) CloseSettings() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.showSettings {
		r.showSettings = false
		r.publish(events.PanelToggled(events.PanelSettings, false))
	}
}

func (r *Runtime) setPanels(chat, settings bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat && r.showSettings {
		r.showSettings = false
		r.publish(events.PanelToggled(events.PanelSettings, false))
	}
	if settings && r.showChat {
		r.showChat = false
		r.publish(events.PanelToggled(events.PanelChat, false))
	}
	if chat && !r.showChat {
		r.showChat = true
		r.publish(events.PanelToggled(events.PanelChat, true))
	}
	if settings && !r.showSettings {
		r.showSettings = true
		r.publish(events.PanelToggled(events.PanelSettings, true))
	}
}

// Screen returns the current screen name.
func (r *Runtime) Screen() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.screen
}

// SessionID returns the engine session id, empty outside a session.
func (r *Runtime) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// Transcript returns a copy of the conversation so far.
func (r *Runtime) Transcript() []api.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Message(nil), r.transcript...)
}

// Draft returns the current typed/spoken draft.
func (r *Runtime) Draft() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// Summary returns the interview summary once the session has ended.
func (r *Runtime) Summary() *api.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// ActiveQuestion returns the question currently being answered.
func (r *Runtime) ActiveQuestion() *api.Question {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// TimerState returns the countdown state.
func (r *Runtime) TimerState() sessionstore.TimerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer.State()
}

// ChatOpen reports whether the transcript panel is visible.
func (r *Runtime) ChatOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showChat
}

// SettingsOpen reports whether the settings panel is visible.
func (r *Runtime) SettingsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showSettings
}

// Close stops the countdown loop.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCountdownLocked()
}
