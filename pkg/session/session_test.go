package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parley/pkg/api"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/persistence/sessionstore"
)

type fakeAPI struct {
	mu sync.Mutex

	pool      []api.Question
	poolErr   error
	poolCalls int

	startResp *api.StartResponse
	startErr  error

	submitFn func(text string) (*api.SubmitResponse, error)
	submits  []string

	endSummary *api.Summary
	endErr     error

	storeErr     error
	storedFor    []string
	storeAttempt int
}

func (f *fakeAPI) ListQuestions(_ context.Context, _, _ string, _ []string) ([]api.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poolCalls++
	if f.poolErr != nil {
		return nil, f.poolErr
	}
	return f.pool, nil
}

func (f *fakeAPI) StartInterview(_ context.Context, _, _ string) (*api.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.startResp, nil
}

func (f *fakeAPI) SubmitAnswer(_ context.Context, _, _, text string) (*api.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, text)
	if f.submitFn != nil {
		return f.submitFn(text)
	}
	return &api.SubmitResponse{Response: "Noted."}, nil
}

func (f *fakeAPI) EndInterview(_ context.Context, _, _ string) (*api.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.endErr != nil {
		return nil, f.endErr
	}
	return f.endSummary, nil
}

func (f *fakeAPI) StoreSummary(_ context.Context, _, sessionID string, _ *api.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeAttempt++
	if f.storeErr != nil {
		return f.storeErr
	}
	f.storedFor = append(f.storedFor, sessionID)
	return nil
}

func (f *fakeAPI) submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submits...)
}

type eventRecorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (p *eventRecorder) Publish(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, ev)
}

func (p *eventRecorder) ofType(t events.Type) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, ev := range p.evs {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func minutes(n int) *int { return &n }

func newTestRuntime(t *testing.T, f *fakeAPI, opts ...RuntimeOption) (*Runtime, *sessionstore.InMemoryStore, *eventRecorder) {
	t.Helper()
	store := sessionstore.NewInMemoryStore()
	rec := &eventRecorder{}
	opts = append([]RuntimeOption{WithPublisher(rec), WithTickInterval(time.Hour)}, opts...)
	r, err := NewRuntime(f, store, "u-1", opts...)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, store, rec
}

func TestRuntime_StartInterviewEntersMeetAndResolvesQuestion(t *testing.T) {
	f := &fakeAPI{
		pool:      []api.Question{{ID: "q-1", TopicID: "t-1", Text: "What is a goroutine?", TimeMinutes: minutes(2)}},
		startResp: &api.StartResponse{SessionID: "s-1", InitialQuestion: "What is a goroutine?"},
	}
	r, store, rec := newTestRuntime(t, f)

	require.NoError(t, r.StartInterview(context.Background(), "t-1"))
	require.Equal(t, ScreenMeet, r.Screen())
	require.Equal(t, "s-1", r.SessionID())

	q := r.ActiveQuestion()
	require.NotNil(t, q)
	require.Equal(t, "q-1", q.ID)

	st := r.TimerState()
	require.True(t, st.IsActive)
	require.Equal(t, 120, st.RemainingSeconds)

	snap, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "s-1", snap.SessionID)
	require.Len(t, snap.Transcript, 1)
	require.Equal(t, SenderInterviewer, snap.Transcript[0].Sender)

	screens := rec.ofType(events.TypeScreenChanged)
	require.NotEmpty(t, screens)
	require.Equal(t, ScreenMeet, screens[len(screens)-1].Screen)
}

func TestRuntime_StartInterviewRequiresTopic(t *testing.T) {
	r, _, rec := newTestRuntime(t, &fakeAPI{})
	require.Error(t, r.StartInterview(context.Background(), "  "))
	require.Equal(t, ScreenLobby, r.Screen())
	require.NotEmpty(t, rec.ofType(events.TypeNotice))
}

func TestRuntime_CountdownExpirySubmitsDefaultAnswerOnce(t *testing.T) {
	f := &fakeAPI{
		pool:      []api.Question{{ID: "q-1", TopicID: "t-1", Text: "What is a goroutine?", TimeMinutes: minutes(1)}},
		startResp: &api.StartResponse{SessionID: "s-1", InitialQuestion: "What is a goroutine?"},
		submitFn: func(string) (*api.SubmitResponse, error) {
			return &api.SubmitResponse{Response: "Let us move on."}, nil
		},
	}
	r, _, rec := newTestRuntime(t, f, WithTickInterval(time.Millisecond))

	require.NoError(t, r.StartInterview(context.Background(), "t-1"))
	require.Eventually(t, func() bool {
		return len(f.submitted()) >= 1
	}, 5*time.Second, 5*time.Millisecond)

	// Give a stray second expiry time to fire, then check it never did.
	time.Sleep(100 * time.Millisecond)
	submits := f.submitted()
	require.Equal(t, []string{DefaultAnswer}, submits)
	require.Len(t, rec.ofType(events.TypeTimerExpired), 1)

	// The follow-up utterance is not in the pool: resolution still lands
	// on a placeholder and an untimed question arms no countdown.
	q := r.ActiveQuestion()
	require.NotNil(t, q)
	require.Equal(t, "Let us move on.", q.Text)
	require.Nil(t, q.TimeMinutes)
	require.False(t, r.TimerState().IsActive)
}

func TestRuntime_SubmitClearsDraftAndVoiceTogether(t *testing.T) {
	f := &fakeAPI{
		startResp: &api.StartResponse{SessionID: "s-1", InitialQuestion: "Tell me about channels."},
	}
	r, _, _ := newTestRuntime(t, f)
	require.NoError(t, r.StartInterview(context.Background(), "t-1"))

	r.AppendVoiceFragment("buffered channels ")
	r.AppendVoiceFragment("block when full")
	require.Equal(t, "buffered channels block when full", r.Draft())
	require.False(t, r.VoiceBufferEmpty())

	r.SubmitVoiceAnswer()
	submits := f.submitted()
	require.Equal(t, []string{"buffered channels block when full"}, submits)
	require.Empty(t, r.Draft())
	require.True(t, r.VoiceBufferEmpty())
}

func TestRuntime_VoiceBufferTakesPrecedenceOverDraft(t *testing.T) {
	f := &fakeAPI{
		startResp: &api.StartResponse{SessionID: "s-1", InitialQuestion: "Tell me about channels."},
	}
	r, _, _ := newTestRuntime(t, f)
	require.NoError(t, r.StartInterview(context.Background(), "t-1"))

	r.SetDraft("typed words")
	r.AppendVoiceFragment("spoken words")
	r.SubmitVoiceAnswer()
	require.Equal(t, "spoken words", f.submitted()[0])

	// Without a voice buffer the typed draft goes out.
	r.SetDraft("typed only")
	r.SubmitVoiceAnswer()
	require.Equal(t, "typed only", f.submitted()[1])
}

func TestRuntime_BlankSubmissionIsIgnored(t *testing.T) {
	f := &fakeAPI{
		startResp: &api.StartResponse{SessionID: "s-1", InitialQuestion: "Tell me about channels."},
	}
	r, _, _ := newTestRuntime(t, f)
	require.NoError(t, r.StartInterview(context.Background(), "t-1"))

	require.NoError(t, r.SubmitAnswer(context.Background(), "   "))
	require.Empty(t, f.submitted())
	require.Len(t, r.Transcript(), 1)
}

func TestRuntime_SessionEndedMovesToSummaryAndClearsSnapshot(t *testing.T) {
	summary := &api.Summary{TechnicalScore: 8, GrammaticalScore: 7}
	f := &fakeAPI{
		startResp: &api.StartResponse{SessionID: "s-1", InitialQuestion: "Last question."},
		submitFn: func(string) (*api.SubmitResponse, error) {
			return &api.SubmitResponse{Response: "That concludes the interview.", SessionEnded: true, Summary: summary}, nil
		},
	}
	r, store, rec := newTestRuntime(t, f, WithSummaryDelay(50*time.Millisecond))
	require.NoError(t, r.StartInterview(context.Background(), "t-1"))

	require.NoError(t, r.SubmitAnswer(context.Background(), "My final answer."))
	require.Equal(t, ScreenMeet, r.Screen(), "closing line stays visible before the summary")

	require.Eventually(t, func() bool {
		return r.Screen() == ScreenSummary
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, summary, r.Summary())
	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok, "snapshot cleared once the session ended")

	ended := rec.ofType(events.TypeSessionEnded)
	require.Len(t, ended, 1)
	require.Equal(t, summary, ended[0].Summary)
}

func TestRuntime_EndInterviewFallsBackToLobbyOnError(t *testing.T) {
	f := &fakeAPI{
		startResp: &api.StartResponse{SessionID: "s-1", InitialQuestion: "First question."},
		endErr:    errors.New("engine unavailable"),
	}
	r, store, rec := newTestRuntime(t, f)
	require.NoError(t, r.StartInterview(context.Background(), "t-1"))

	require.Error(t, r.EndInterview(context.Background()))
	require.Equal(t, ScreenLobby, r.Screen())
	require.NotEmpty(t, rec.ofType(events.TypeNotice))

	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRuntime_SummaryUploadFailureKeepsPendingCopy(t *testing.T) {
	summary := &api.Summary{TechnicalScore: 6}
	f := &fakeAPI{
		startResp:  &api.StartResponse{SessionID: "s-1", InitialQuestion: "First question."},
		endSummary: summary,
		storeErr:   errors.New("analytics down"),
	}
	r, store, _ := newTestRuntime(t, f)
	require.NoError(t, r.StartInterview(context.Background(), "t-1"))
	require.NoError(t, r.EndInterview(context.Background()))
	require.Equal(t, ScreenSummary, r.Screen())

	pending, ok, err := store.LoadPendingSummary(context.Background(), "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, summary, pending)

	// The upload recovers: leaving the summary screen retries and clears
	// the local copy.
	f.mu.Lock()
	f.storeErr = nil
	f.mu.Unlock()
	r.ReturnToLobby(context.Background())
	require.Equal(t, ScreenLobby, r.Screen())
	require.Equal(t, []string{"s-1"}, f.storedFor)
	_, ok, err = store.LoadPendingSummary(context.Background(), "s-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRuntime_RestoreResumesPersistedRemainder(t *testing.T) {
	f := &fakeAPI{}
	r, store, rec := newTestRuntime(t, f)

	limit := 2
	require.NoError(t, store.Save(context.Background(), sessionstore.Snapshot{
		Status:    ScreenMeet,
		SessionID: "s-9",
		UserID:    "u-1",
		TopicID:   "t-1",
		Transcript: []api.Message{
			{Sender: SenderInterviewer, Text: "What is a mutex?"},
			{Sender: SenderUser, Text: "A lock."},
		},
		ActiveQuestion:   &api.Question{ID: "q-3", Text: "What is a mutex?", TimeMinutes: &limit},
		ActiveQuestionID: "q-3",
		Timer:            sessionstore.TimerState{IsActive: true, RemainingSeconds: 73, LimitMinutes: 2},
		SavedAtMs:        time.Now().Add(-time.Hour).UnixMilli(),
	}))

	resumed, err := r.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, resumed)
	require.Equal(t, ScreenMeet, r.Screen())
	require.Equal(t, "s-9", r.SessionID())
	require.Len(t, r.Transcript(), 2)

	st := r.TimerState()
	require.True(t, st.IsActive)
	require.Equal(t, 73, st.RemainingSeconds, "resume keeps the persisted remainder, not the full allowance")

	require.Len(t, rec.ofType(events.TypeTranscriptAppended), 2)
	require.Empty(t, f.submitted())
}

func TestRuntime_RestoreDiscardsStaleSnapshot(t *testing.T) {
	r, store, _ := newTestRuntime(t, &fakeAPI{})

	require.NoError(t, store.Save(context.Background(), sessionstore.Snapshot{
		Status:    ScreenMeet,
		SessionID: "s-9",
		UserID:    "u-1",
		TopicID:   "t-1",
		SavedAtMs: time.Now().Add(-25 * time.Hour).UnixMilli(),
	}))

	resumed, err := r.Restore(context.Background())
	require.NoError(t, err)
	require.False(t, resumed)
	require.Equal(t, ScreenLobby, r.Screen())

	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok, "stale snapshot is dropped, not kept around")
}

func TestRuntime_RestoreHandlesUnobservedExpiryOnce(t *testing.T) {
	f := &fakeAPI{
		submitFn: func(string) (*api.SubmitResponse, error) {
			return &api.SubmitResponse{Response: "Moving on."}, nil
		},
	}
	r, store, _ := newTestRuntime(t, f)

	require.NoError(t, store.Save(context.Background(), sessionstore.Snapshot{
		Status:    ScreenMeet,
		SessionID: "s-9",
		UserID:    "u-1",
		TopicID:   "t-1",
		Timer:     sessionstore.TimerState{IsActive: true, RemainingSeconds: 0, LimitMinutes: 1},
		SavedAtMs: time.Now().Add(-time.Minute).UnixMilli(),
	}))

	resumed, err := r.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, resumed)

	require.Equal(t, []string{DefaultAnswer}, f.submitted())
	require.Equal(t, ScreenMeet, r.Screen())
}

func TestRuntime_RestoreWithoutSnapshotIsNoop(t *testing.T) {
	r, _, _ := newTestRuntime(t, &fakeAPI{})
	resumed, err := r.Restore(context.Background())
	require.NoError(t, err)
	require.False(t, resumed)
	require.Equal(t, ScreenLobby, r.Screen())
}

func TestRuntime_PanelsAreMutuallyExclusive(t *testing.T) {
	r, _, rec := newTestRuntime(t, &fakeAPI{})

	r.OpenChat()
	require.True(t, r.ChatOpen())
	r.OpenSettings()
	require.False(t, r.ChatOpen())
	require.True(t, r.SettingsOpen())
	r.CloseSettings()
	require.False(t, r.SettingsOpen())

	toggles := rec.ofType(events.TypePanelToggled)
	require.Len(t, toggles, 4)
}

func TestRuntime_SubmitErrorStaysInMeet(t *testing.T) {
	f := &fakeAPI{
		startResp: &api.StartResponse{SessionID: "s-1", InitialQuestion: "First question."},
		submitFn: func(string) (*api.SubmitResponse, error) {
			return nil, errors.New("engine timeout")
		},
	}
	r, _, rec := newTestRuntime(t, f)
	require.NoError(t, r.StartInterview(context.Background(), "t-1"))

	require.Error(t, r.SubmitAnswer(context.Background(), "my answer"))
	require.Equal(t, ScreenMeet, r.Screen())
	require.NotEmpty(t, rec.ofType(events.TypeNotice))
	// The user's turn stays in the transcript so it can be retried in
	// context.
	msgs := r.Transcript()
	require.Equal(t, "my answer", msgs[len(msgs)-1].Text)
}
