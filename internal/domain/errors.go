package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been started or expired.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrUserNotFound is returned for unknown user ids.
	ErrUserNotFound = errors.New("user not found")
	// ErrTopicNotSelected is returned when answers are recorded before a topic is chosen.
	ErrTopicNotSelected = errors.New("quiz topic not selected")
	// ErrSessionFinalized is returned when a finalized session is modified or submitted again.
	ErrSessionFinalized = errors.New("quiz session already finalized")
	// ErrNoQuestions is returned when navigating a selection that holds no questions.
	ErrNoQuestions = errors.New("no questions for the selected topic")
	// ErrUnknownTopic indicates a topic string that matches no topic.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrInvalidBank indicates question bank content that breaks a structural rule.
	ErrInvalidBank = errors.New("invalid question bank")
	// ErrEmptyBank indicates the loaded question bank has no questions.
	ErrEmptyBank = errors.New("question bank is empty")
	// ErrInvalidBadge indicates a badge_key outside the fixed set.
	ErrInvalidBadge = errors.New("invalid badge key")
	// ErrInvalidRole indicates an onboarding request with an unknown role.
	ErrInvalidRole = errors.New("invalid role")
)
