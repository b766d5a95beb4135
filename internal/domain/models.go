package domain

import (
	"fmt"
	"time"
)

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID              string   `json:"id" yaml:"id"`
	Topic           Topic    `json:"topic" yaml:"topic"`
	Prompt          string   `json:"prompt" yaml:"prompt"`
	Options         []Option `json:"options" yaml:"options"`
	CorrectOptionID string   `json:"correct_option_id" yaml:"correct_option_id"`
}

// HasOption reports whether optionID is one of the question's options.
func (q Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Validate checks the structural rules of a bank question.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: question without id", ErrInvalidBank)
	}
	if !q.Topic.Valid() {
		return fmt.Errorf("%w: question %s has unknown topic %q", ErrInvalidBank, q.ID, q.Topic)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if opt.ID == "" {
			return fmt.Errorf("%w: question %s has an option without id", ErrInvalidBank, q.ID)
		}
		if _, dup := seen[opt.ID]; dup {
			return fmt.Errorf("%w: question %s repeats option %s", ErrInvalidBank, q.ID, opt.ID)
		}
		seen[opt.ID] = struct{}{}
	}
	if !q.HasOption(q.CorrectOptionID) {
		return fmt.Errorf("%w: question %s correct option %q is not one of its options", ErrInvalidBank, q.ID, q.CorrectOptionID)
	}
	return nil
}

// View strips the answer key so the question can be shown to learners.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:      q.ID,
		Topic:   q.Topic,
		Prompt:  q.Prompt,
		Options: append([]Option(nil), q.Options...),
	}
}

// QuestionView is the learner-facing projection of a Question.
type QuestionView struct {
	ID      string   `json:"id"`
	Topic   Topic    `json:"topic"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// Views projects a question sequence, keeping order. Never returns nil.
func Views(questions []Question) []QuestionView {
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.View())
	}
	return views
}

// AnswerSet maps question ids to the selected option id.
type AnswerSet map[string]string

// Clone returns an independent copy.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// QuizResult is the immutable outcome of one grading call.
type QuizResult struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	Score        int       `json:"score"`
	Passed       bool      `json:"passed"`
	MissedTopics []Topic   `json:"misses"`
}

// Total is the size of the scored set the result was computed over.
func (r QuizResult) Total() int {
	return r.Score + len(r.MissedTopics)
}

// Role distinguishes learners from mentors.
type Role string

const (
	RoleLearner Role = "learner"
	RoleMentor  Role = "mentor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleLearner || r == RoleMentor
}

// OnboardingStatus tracks whether the profile setup flow was completed.
type OnboardingStatus string

const (
	OnboardingPending  OnboardingStatus = "pending"
	OnboardingComplete OnboardingStatus = "complete"
)

// CommunityProfile is the public part of a user profile.
type CommunityProfile struct {
	Headline string `json:"headline"`
	Bio      string `json:"bio"`
}

// UserStats are engagement counters shown on the dashboard.
type UserStats struct {
	ChallengeStreak int `json:"challenge_streak"`
	HelpfulPosts    int `json:"helpful_posts"`
}

// User owns its badge collection; only the badge merge step appends to it.
type User struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	AvatarURL        string           `json:"avatar_url"`
	Role             Role             `json:"role"`
	Badges           BadgeSet         `json:"badges"`
	Profile          CommunityProfile `json:"community_profile"`
	Stats            UserStats        `json:"stats"`
	Skills           []string         `json:"skills,omitempty"`
	OnboardingStatus OnboardingStatus `json:"onboarding_status"`
}
