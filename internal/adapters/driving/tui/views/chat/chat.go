// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sitesage/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sitesage/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sitesage/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/sitesage/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sitesage/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sitesage/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

// ErrNoQueryService indicates that no query service was provided.
var ErrNoQueryService = errors.New("query service is required")

// chromeHeight is the rows taken by the header, input and status bar.
const chromeHeight = 8

// View is the chat screen: transcript, question box and status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript *transcript.Transcript
	statusbar  *status.Bar

	queryService driving.QueryService
	statsService driving.StatsService
	ctx          context.Context

	width    int
	height   int
	ready    bool
	thinking bool

	// rated is set once the latest answer received feedback.
	rated bool
}

// NewView creates a chat view. stats may be nil, which disables rating.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	query driving.QueryService,
	stats driving.StatsService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewQuestionInput(s),
		transcript:   transcript.New(s),
		statusbar:    status.NewBar(s, km),
		queryService: query,
		statsService: stats,
		ctx:          context.Background(),
		width:        80,
		height:       24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.FeedbackRecorded:
		if msg.Err != nil {
			v.statusbar.SetState(status.StateError)
			v.statusbar.SetMessage(msg.Err.Error())
			return v, nil
		}
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage("Thanks! Recorded " + string(msg.Outcome) + ".")
		return v, nil

	case messages.ErrorOccurred:
		v.thinking = false
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }

	case keymap.Matches(k, v.keymap.Send):
		return v, v.submit()

	case keymap.Matches(k, v.keymap.Good):
		return v, v.rate(true)

	case keymap.Matches(k, v.keymap.Bad):
		return v, v.rate(false)

	case keymap.Matches(k, v.keymap.Clear):
		if !v.thinking {
			v.transcript.Clear()
			v.statusbar.Clear()
		}
		return v, nil

	case keymap.Matches(k, v.keymap.ScrollUp):
		v.transcript.ScrollUp()
		return v, nil

	case keymap.Matches(k, v.keymap.ScrollDown):
		v.transcript.ScrollDown()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the typed question. One question is in flight at a time.
func (v *View) submit() tea.Cmd {
	if v.thinking {
		return nil
	}
	question := v.input.Question()
	if question == "" {
		return nil
	}

	v.thinking = true
	v.rated = false
	v.transcript.Add(question)
	v.input.Reset()
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")
	return v.ask(question)
}

func (v *View) ask(question string) tea.Cmd {
	return func() tea.Msg {
		if v.queryService == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoQueryService}
		}
		answer, err := v.queryService.Answer(v.ctx, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.thinking = false
	v.transcript.Resolve(msg.Question, msg.Answer, msg.Err)

	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}
	if v.canRate() {
		v.statusbar.SetState(status.StateAnswered)
	} else {
		v.statusbar.SetState(status.StateReady)
	}
	v.statusbar.SetMessage("")
}

// canRate reports whether the latest reply can still receive feedback.
// Only retrieval-backed answers and declines feed the quality metrics.
func (v *View) canRate() bool {
	if v.statsService == nil || v.thinking || v.rated {
		return false
	}
	last, ok := v.transcript.Last()
	if !ok || last.Answer == nil {
		return false
	}
	return last.Answer.Kind == domain.AnswerGenerated || last.Answer.Kind == domain.AnswerInsufficient
}

func (v *View) rate(good bool) tea.Cmd {
	if !v.canRate() {
		return nil
	}
	last, _ := v.transcript.Last()
	answerable, helpful := FeedbackFor(last.Answer.Kind, good)
	v.rated = true

	stats, ctx := v.statsService, v.ctx
	return func() tea.Msg {
		err := stats.RecordFeedback(ctx, answerable, helpful)
		return messages.FeedbackRecorded{
			Outcome: domain.ClassifyFeedback(answerable, helpful),
			Err:     err,
		}
	}
}

// FeedbackFor maps a good or bad rating of a reply onto the
// (answerable, helpful) verdict. An answer rated good was answerable; a
// decline rated good means the website did not hold the answer.
func FeedbackFor(kind domain.AnswerKind, good bool) (answerable, helpful bool) {
	if kind == domain.AnswerInsufficient {
		return !good, good
	}
	return good, good
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("SiteSage"),
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		"",
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.transcript.SetDimensions(width, height-chromeHeight)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Thinking reports whether a question is awaiting its answer.
func (v *View) Thinking() bool {
	return v.thinking
}

// Transcript returns the conversation component.
func (v *View) Transcript() *transcript.Transcript {
	return v.transcript
}

// Status returns the current status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}

// SetQuestion fills the question box.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}
