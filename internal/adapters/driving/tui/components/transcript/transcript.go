// Package transcript renders the scrollable conversation history.
package transcript

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sitesage/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// Entry is one question and its reply.
type Entry struct {
	Question string

	// Answer is nil while the reply is pending or when Err is set.
	Answer *domain.Answer
	Err    error
}

// Pending reports whether the entry still awaits its reply.
func (e Entry) Pending() bool {
	return e.Answer == nil && e.Err == nil
}

// Transcript wraps a bubbles viewport holding the conversation.
type Transcript struct {
	viewport viewport.Model
	styles   *styles.Styles
	entries  []Entry
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	t := &Transcript{
		viewport: viewport.New(80, 15),
		styles:   s,
	}
	t.refresh()
	return t
}

// Update forwards mouse and key scrolling to the viewport.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the visible part of the conversation.
func (t *Transcript) View() string {
	return t.viewport.View()
}

// Add appends a pending question and scrolls to it.
func (t *Transcript) Add(question string) {
	t.entries = append(t.entries, Entry{Question: question})
	t.refresh()
}

// Resolve fills the reply of the most recent pending entry for question.
// It returns false when no such entry exists.
func (t *Transcript) Resolve(question string, answer *domain.Answer, err error) bool {
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := &t.entries[i]
		if e.Question == question && e.Pending() {
			e.Answer = answer
			e.Err = err
			if answer == nil && err == nil {
				e.Answer = &domain.Answer{Kind: domain.AnswerUnavailable, Text: domain.UnavailableMessage}
			}
			t.refresh()
			return true
		}
	}
	return false
}

// Last returns the most recent entry.
func (t *Transcript) Last() (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Entries returns the conversation so far.
func (t *Transcript) Entries() []Entry {
	return t.entries
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Clear empties the conversation.
func (t *Transcript) Clear() {
	t.entries = nil
	t.refresh()
}

// ScrollUp moves half a page back.
func (t *Transcript) ScrollUp() {
	t.viewport.HalfViewUp()
}

// ScrollDown moves half a page forward.
func (t *Transcript) ScrollDown() {
	t.viewport.HalfViewDown()
}

// AtBottom reports whether the newest line is visible.
func (t *Transcript) AtBottom() bool {
	return t.viewport.AtBottom()
}

// SetDimensions resizes the viewport and re-wraps the text.
func (t *Transcript) SetDimensions(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

// Content returns the full rendered conversation.
func (t *Transcript) Content() string {
	return t.render()
}

func (t *Transcript) refresh() {
	t.viewport.SetContent(t.render())
	t.viewport.GotoBottom()
}

func (t *Transcript) render() string {
	if len(t.entries) == 0 {
		return t.styles.Muted.Render("No questions yet. Type one below and press enter.")
	}

	// Leave room for the speaker label.
	wrap := t.styles.Normal.Width(max(t.viewport.Width-10, 10))
	blocks := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		var b strings.Builder
		b.WriteString(t.styles.User.Render("You: "))
		b.WriteString(wrap.Render(e.Question))
		b.WriteString("\n")
		b.WriteString(t.styles.Assistant.Render("SiteSage: "))

		switch {
		case e.Err != nil:
			b.WriteString(t.styles.Error.Render(e.Err.Error()))
		case e.Pending():
			b.WriteString(t.styles.Muted.Render("..."))
		default:
			b.WriteString(t.renderAnswer(e.Answer, wrap))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func (t *Transcript) renderAnswer(a *domain.Answer, wrap lipgloss.Style) string {
	switch a.Kind {
	case domain.AnswerHighTraffic, domain.AnswerUnavailable:
		return t.styles.Warning.Render(a.Text)
	case domain.AnswerInsufficient:
		return t.styles.Muted.Render(a.Text)
	case domain.AnswerGenerated, domain.AnswerGreeting:
	}
	return wrap.Render(a.Text)
}
