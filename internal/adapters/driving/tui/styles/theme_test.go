package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	assert.Equal(t, lipgloss.Color("#7C3AED"), theme.Primary)
	assert.Equal(t, lipgloss.Color("#06B6D4"), theme.Secondary)
	assert.NotEqual(t, theme.Primary, theme.Secondary)
}

func TestNewStyles_NilThemeUsesDefault(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestNewStyles_CustomTheme(t *testing.T) {
	theme := DefaultTheme()
	theme.Primary = lipgloss.Color("#FF0000")

	s := NewStyles(theme)

	assert.Same(t, theme, s.Theme())
	assert.Equal(t, lipgloss.Color("#FF0000"), s.Assistant.GetForeground())
}

func TestStyles_SpeakersDiffer(t *testing.T) {
	s := DefaultStyles()

	assert.True(t, s.User.GetBold())
	assert.True(t, s.Assistant.GetBold())
	assert.NotEqual(t, s.User.GetForeground(), s.Assistant.GetForeground())
}

func TestStyles_RenderKeepsText(t *testing.T) {
	s := DefaultStyles()

	assert.Contains(t, s.Title.Render("SiteSage"), "SiteSage")
	assert.Contains(t, s.Muted.Render("Source: x"), "Source: x")
}
