// Package messages defines Bubbletea message types for the chat TUI.
package messages

import (
	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// QuestionAsked is sent when the user submits a question.
type QuestionAsked struct {
	Question string
}

// AnswerReceived carries the reply to a question.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// FeedbackRecorded signals a rating was stored.
type FeedbackRecorded struct {
	Outcome domain.FeedbackOutcome
	Err     error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
