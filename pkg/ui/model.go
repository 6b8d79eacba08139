package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/api"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/session"
	"github.com/go-go-golems/parley/pkg/synth"
)

// TopicLister is the slice of the engine client the lobby needs.
type TopicLister interface {
	ListTopics(ctx context.Context, userID string) ([]api.Topic, error)
}

// Recorder is the capture surface the meet screen toggles. A nil Recorder
// disables voice entirely.
type Recorder interface {
	Start(ctx context.Context) error
	Stop()
	Active() bool
}

type topicsLoadedMsg struct {
	topics []api.Topic
	err    error
}

type actionDoneMsg struct{ err error }

// Model is the bubbletea model for the whole client.
type Model struct {
	rt       *session.Runtime
	topics   TopicLister
	recorder Recorder
	userID   string

	screen string

	topicList   []api.Topic
	topicCursor int
	topicsErr   string
	loading     bool

	transcript []api.Message
	draft      textarea.Model
	chat       viewport.Model

	remaining   int
	timerActive bool
	speaking    bool
	recording   bool

	chatOpen     bool
	settingsOpen bool
	voiceCursor  int

	summary *api.Summary
	notice  string

	width  int
	height int
}

// New creates the model. recorder may be nil.
func New(rt *session.Runtime, topics TopicLister, recorder Recorder, userID string) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your answer, or start recording..."
	ta.SetHeight(3)
	ta.CharLimit = 0

	vp := viewport.New(60, 12)

	return Model{
		rt:       rt,
		topics:   topics,
		recorder: recorder,
		userID:   userID,
		screen:   rt.Screen(),
		draft:    ta,
		chat:     vp,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadTopics()
}

func (m Model) loadTopics() tea.Cmd {
	return func() tea.Msg {
		topics, err := m.topics.ListTopics(context.Background(), m.userID)
		return topicsLoadedMsg{topics: topics, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.draft.SetWidth(msg.Width - 4)
		m.chat.Width = msg.Width - 6
		m.chat.Height = max(4, msg.Height-12)
		return m, nil

	case topicsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.topicsErr = msg.err.Error()
			return m, nil
		}
		m.topicsErr = ""
		m.topicList = msg.topics
		if m.topicCursor >= len(m.topicList) {
			m.topicCursor = 0
		}
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			log.Debug().Err(msg.err).Msg("ui action failed")
		}
		return m, nil

	case EventMsg:
		return m.applyEvent(msg.Event)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

// applyEvent folds one runtime event into the view state. The runtime is
// the single source of truth; the model never mutates session state itself.
func (m Model) applyEvent(ev events.Event) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case events.TypeScreenChanged:
		m.screen = ev.Screen
		switch ev.Screen {
		case session.ScreenMeet:
			m.transcript = nil
			m.summary = nil
			m.notice = ""
			m.draft.Reset()
			m.draft.Focus()
		case session.ScreenLobby:
			m.transcript = nil
			m.summary = nil
			m.draft.Blur()
			return m, m.loadTopics()
		case session.ScreenSummary:
			m.draft.Blur()
			if m.recorder != nil {
				m.recorder.Stop()
			}
		}
	case events.TypeTranscriptAppended:
		m.transcript = append(m.transcript, api.Message{Sender: ev.Sender, Text: ev.Text})
		m.chat.SetContent(m.renderTranscript())
		m.chat.GotoBottom()
	case events.TypeDraftChanged:
		if ev.Text != m.draft.Value() {
			m.draft.SetValue(ev.Text)
		}
	case events.TypeTimerTick:
		m.remaining = ev.RemainingSeconds
		m.timerActive = ev.TimerActive
	case events.TypeSpeakingChanged:
		m.speaking = ev.Speaking
	case events.TypeRecordingChanged:
		m.recording = ev.Recording
	case events.TypePanelToggled:
		switch ev.Panel {
		case events.PanelChat:
			m.chatOpen = ev.Open
		case events.PanelSettings:
			m.settingsOpen = ev.Open
		}
	case events.TypeNotice:
		m.notice = ev.Title
		if ev.Message != "" {
			m.notice += ": " + ev.Message
		}
	case events.TypeSessionEnded:
		m.summary = ev.Summary
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if m.recorder != nil {
			m.recorder.Stop()
		}
		return m, tea.Quit
	}
	switch m.screen {
	case session.ScreenMeet:
		return m.handleMeetKey(msg)
	case session.ScreenSummary:
		return m.handleSummaryKey(msg)
	default:
		return m.handleLobbyKey(msg)
	}
}

func (m Model) handleLobbyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.topicCursor > 0 {
			m.topicCursor--
		}
	case "down", "j":
		if m.topicCursor < len(m.topicList)-1 {
			m.topicCursor++
		}
	case "r":
		m.loading = true
		return m, m.loadTopics()
	case "enter":
		if len(m.topicList) == 0 {
			return m, nil
		}
		topicID := m.topicList[m.topicCursor].ID
		return m, func() tea.Msg {
			return actionDoneMsg{err: m.rt.StartInterview(context.Background(), topicID)}
		}
	}
	return m, nil
}

func (m Model) handleMeetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := m.draft.Value()
		m.rt.SetDraft(text)
		return m, func() tea.Msg {
			return actionDoneMsg{err: m.rt.SubmitDraft(context.Background())}
		}
	case tea.KeyCtrlR:
		return m, m.toggleRecording()
	case tea.KeyCtrlT:
		if m.chatOpen {
			m.rt.CloseChat()
		} else {
			m.rt.OpenChat()
		}
		return m, nil
	case tea.KeyCtrlG:
		if m.settingsOpen {
			m.rt.CloseSettings()
		} else {
			m.rt.OpenSettings()
		}
		return m, nil
	case tea.KeyCtrlE:
		if m.recorder != nil {
			m.recorder.Stop()
		}
		return m, func() tea.Msg {
			return actionDoneMsg{err: m.rt.EndInterview(context.Background())}
		}
	}

	if m.settingsOpen {
		switch msg.String() {
		case "up", "k":
			if m.voiceCursor > 0 {
				m.voiceCursor--
			}
			return m, nil
		case "down", "j":
			if m.voiceCursor < len(synth.Voices)-1 {
				m.voiceCursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.draft, cmd = m.draft.Update(msg)
	return m, cmd
}

func (m Model) handleSummaryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "c":
		if m.summary != nil {
			if err := clipboard.WriteAll(renderSummaryText(m.summary)); err != nil {
				log.Warn().Err(err).Msg("clipboard copy failed")
			} else {
				m.notice = "Summary copied to clipboard"
			}
		}
		return m, nil
	case "enter", "esc":
		return m, func() tea.Msg {
			m.rt.ReturnToLobby(context.Background())
			return actionDoneMsg{}
		}
	}
	return m, nil
}

func (m Model) toggleRecording() tea.Cmd {
	if m.recorder == nil {
		m.notice = "Voice capture is not configured"
		return nil
	}
	if m.recorder.Active() {
		m.recorder.Stop()
		return nil
	}
	return func() tea.Msg {
		return actionDoneMsg{err: m.recorder.Start(context.Background())}
	}
}

func (m Model) View() string {
	switch m.screen {
	case session.ScreenMeet:
		return m.viewMeet()
	case session.ScreenSummary:
		return m.viewSummary()
	default:
		return m.viewLobby()
	}
}

func (m Model) viewLobby() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Parley — Interview Practice"))
	b.WriteString("\n\n")
	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("Loading topics..."))
	case m.topicsErr != "":
		b.WriteString(noticeStyle.Render("Could not load topics: " + m.topicsErr))
		b.WriteString("\n" + dimStyle.Render("Press r to retry."))
	case len(m.topicList) == 0:
		b.WriteString(dimStyle.Render("No topics available. Press r to refresh."))
	default:
		b.WriteString("Pick a topic:\n\n")
		for i, topic := range m.topicList {
			line := "  " + topic.Topic
			if i == m.topicCursor {
				line = selectedStyle.Render("> " + topic.Topic)
			}
			b.WriteString(line + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter: start interview • r: refresh • q: quit"))
	return b.String()
}

func (m Model) viewMeet() string {
	var b strings.Builder

	status := "Interview in progress"
	if m.recording {
		status = recordingStyle.Render("● REC") + "  " + status
	}
	if m.speaking {
		status += "  (listening)"
	}
	header := headerStyle.Render(status)
	if m.timerActive {
		clock := formatClock(m.remaining)
		style := timerStyle
		if m.remaining <= 10 {
			style = timerLowStyle
		}
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, "  ", style.Render(clock))
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if last := m.lastInterviewerLine(); last != "" {
		b.WriteString(interviewerStyle.Render("Interviewer: ") + last)
		b.WriteString("\n\n")
	}

	if m.chatOpen {
		b.WriteString(panelStyle.Render(m.chat.View()))
		b.WriteString("\n")
	}
	if m.settingsOpen {
		b.WriteString(panelStyle.Render(m.viewSettings()))
		b.WriteString("\n")
	}

	b.WriteString(m.draft.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("enter: send • ctrl+r: record • ctrl+t: chat • ctrl+g: settings • ctrl+e: end interview"))
	return b.String()
}

func (m Model) viewSettings() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\nInterviewer voice:\n")
	for i, v := range synth.Voices {
		line := "  " + v
		if i == m.voiceCursor {
			line = selectedStyle.Render("> " + v)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) viewSummary() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Interview Summary"))
	b.WriteString("\n\n")
	if m.summary == nil {
		b.WriteString(dimStyle.Render("No summary was produced for this session."))
	} else {
		b.WriteString(renderSummaryText(m.summary))
	}
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("c: copy • enter: back to lobby • q: quit"))
	return b.String()
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	for _, msg := range m.transcript {
		switch msg.Sender {
		case session.SenderUser:
			b.WriteString(candidateStyle.Render("You: ") + msg.Text)
		default:
			b.WriteString(interviewerStyle.Render("Interviewer: ") + msg.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) lastInterviewerLine() string {
	for i := len(m.transcript) - 1; i >= 0; i-- {
		if m.transcript[i].Sender != session.SenderUser {
			return m.transcript[i].Text
		}
	}
	return ""
}

func renderSummaryText(s *api.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Technical score:   %d/10\n", s.TechnicalScore)
	fmt.Fprintf(&b, "Grammatical score: %d/10\n", s.GrammaticalScore)
	fmt.Fprintf(&b, "Off-topic answers: %d\n", s.OffTopicCount)
	if len(s.StrongPoints) > 0 {
		b.WriteString("\nStrong points:\n")
		for _, p := range s.StrongPoints {
			b.WriteString("  + " + p + "\n")
		}
	}
	if len(s.WeakPoints) > 0 {
		b.WriteString("\nWeak points:\n")
		for _, p := range s.WeakPoints {
			b.WriteString("  - " + p + "\n")
		}
	}
	if len(s.PracticePoints) > 0 {
		b.WriteString("\nPractice next:\n")
		for _, p := range s.PracticePoints {
			b.WriteString("  * " + p + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
