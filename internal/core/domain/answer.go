package domain

import (
	"fmt"
	"strings"
)

// Fixed user-facing responses.
const (
	HighTrafficMessage = "I am currently experiencing high traffic. Please try again later."
	UnavailableMessage = "I am unable to answer this question at the moment. Please try again later."
)

// AnswerKind classifies how an answer was produced.
type AnswerKind string

// Answer kinds.
const (
	AnswerGenerated    AnswerKind = "generated"
	AnswerGreeting     AnswerKind = "greeting"
	AnswerInsufficient AnswerKind = "insufficient_information"
	AnswerHighTraffic  AnswerKind = "high_traffic"
	AnswerUnavailable  AnswerKind = "unavailable"
)

// Answer is the result of a question.
type Answer struct {
	// Text is the reply shown to the user.
	Text string `json:"text"`

	// Source is the URL of the top passage. Empty when no passage was used.
	Source string `json:"source,omitempty"`

	// Kind tells how the answer was produced.
	Kind AnswerKind `json:"kind"`

	// Passages are the passages handed to the LLM.
	Passages []RetrievedPassage `json:"passages,omitempty"`
}

// Answered reports whether the reply was grounded in retrieved passages.
func (a *Answer) Answered() bool {
	return a != nil && a.Kind == AnswerGenerated
}

// GreetingMessage is the canned reply to greetings and identity questions.
func GreetingMessage(corpus string) string {
	return fmt.Sprintf("Hi there! I'm an AI assistant powered by %s. "+
		"I'm here to help with any questions you might have. How can I assist you today?", corpus)
}

// InsufficientInformationMessage is the reply when no passage qualifies.
func InsufficientInformationMessage(corpus string) string {
	return fmt.Sprintf("I'm an AI assistant powered by %s. "+
		"I can only answer questions related to %s. Do you have a different question?", corpus, corpus)
}

// SourceAttribution formats the trailing source link appended to answers.
func SourceAttribution(title, source string) string {
	title = strings.ReplaceAll(title, "\n", " ")
	return fmt.Sprintf("\n\nSource: [%s](%s)", title, source)
}
