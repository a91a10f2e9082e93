package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

func testPassages() []domain.RetrievedPassage {
	return []domain.RetrievedPassage{
		{
			Fingerprint: "aaa",
			Title:       "IT Help\nDesk",
			Source:      "https://example.com/help",
			Text:        "Passwords   are reset\nat the help desk.",
			Score:       0.912,
		},
		{
			Fingerprint: "bbb",
			Title:       "VPN",
			Source:      "https://example.com/vpn",
			Text:        "Install the VPN client.",
			Score:       0.75,
		},
	}
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	cleanup := setupTestServices(Services{Query: &mockQueryService{}})
	defer cleanup()

	_, err := execute("ask")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_PrintsAnswer(t *testing.T) {
	query := &mockQueryService{answer: &domain.Answer{
		Text:     "Visit the help desk.\n\nSource: [IT Help Desk](https://example.com/help)",
		Source:   "https://example.com/help",
		Kind:     domain.AnswerGenerated,
		Passages: testPassages(),
	}}
	cleanup := setupTestServices(Services{Query: query})
	defer cleanup()

	out, err := execute("ask", "how", "do", "I", "reset", "my", "password?")

	require.NoError(t, err)
	assert.Equal(t, "how do I reset my password?", query.question)
	assert.Contains(t, out, "Source: [IT Help Desk](https://example.com/help)")
	assert.NotContains(t, out, "Passages:")
}

func TestAskCmd_ShowsPassages(t *testing.T) {
	query := &mockQueryService{answer: &domain.Answer{
		Text:     "Visit the help desk.",
		Kind:     domain.AnswerGenerated,
		Passages: testPassages(),
	}}
	cleanup := setupTestServices(Services{Query: query})
	defer cleanup()

	out, err := execute("ask", "--passages", "reset password")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] IT Help Desk (0.912)")
	assert.Contains(t, out, "Passwords are reset at the help desk.")
	assert.Contains(t, out, "[2] VPN (0.750)")
}

func TestAskCmd_JSON(t *testing.T) {
	query := &mockQueryService{answer: &domain.Answer{
		Text: "I'm an AI assistant.",
		Kind: domain.AnswerInsufficient,
	}}
	cleanup := setupTestServices(Services{Query: query})
	defer cleanup()

	out, err := execute("ask", "--json", "cafeteria hours")

	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "insufficient_information"`)
}

func TestAskCmd_Error(t *testing.T) {
	cleanup := setupTestServices(Services{Query: &mockQueryService{err: errors.New("connection refused")}})
	defer cleanup()

	_, err := execute("ask", "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask failed")
}

func TestAskCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices(Services{})
	defer cleanup()

	_, err := execute("ask", "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query service not configured")
}

func TestRetrieveCmd_ListsPassages(t *testing.T) {
	query := &mockQueryService{passages: testPassages()}
	cleanup := setupTestServices(Services{Query: query})
	defer cleanup()

	out, err := execute("retrieve", "vpn")

	require.NoError(t, err)
	assert.Contains(t, out, "Source: https://example.com/help")
	assert.Contains(t, out, "[2] VPN (0.750)")
}

func TestRetrieveCmd_NoPassages(t *testing.T) {
	cleanup := setupTestServices(Services{Query: &mockQueryService{passages: []domain.RetrievedPassage{}}})
	defer cleanup()

	out, err := execute("retrieve", "cafeteria")

	require.NoError(t, err)
	assert.Contains(t, out, "No passages passed the relevance threshold.")
}

func TestRetrieveCmd_JSON(t *testing.T) {
	cleanup := setupTestServices(Services{Query: &mockQueryService{passages: testPassages()}})
	defer cleanup()

	out, err := execute("retrieve", "--json", "vpn")

	require.NoError(t, err)
	assert.Contains(t, out, `"fingerprint": "aaa"`)
	assert.Contains(t, out, `"score": 0.75`)
}

func TestSnippetOf(t *testing.T) {
	assert.Equal(t, "a b c", snippetOf(" a\n b\tc ", 10))
	assert.Equal(t, "abc...", snippetOf("abcdef", 3))
	assert.Equal(t, "héllo", snippetOf("héllo", 5))
	assert.Equal(t, "", snippetOf("   ", 5))
}
