// Package placement scores placement quizzes and decides mastery badge awards.
// Everything here is a pure function of its inputs plus an injected clock.
package placement

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"weld-academy-service/internal/domain"
)

// Passing threshold is PassNumerator/PassDenominator (80%), compared as exact fractions.
const (
	PassNumerator   = 4
	PassDenominator = 5
)

// Grader turns answer sets into QuizResults.
type Grader struct {
	now   func() time.Time
	newID func() string
}

// NewGrader returns a grader using wall-clock time and ULID result ids.
func NewGrader() *Grader {
	return NewGraderWithClock(time.Now)
}

// NewGraderWithClock allows deterministic completed_at stamps in tests.
func NewGraderWithClock(now func() time.Time) *Grader {
	return &Grader{
		now: now,
		newID: func() string {
			return NewResultID(now())
		},
	}
}

// NewResultID builds a "quiz_" prefixed ULID for the given time.
func NewResultID(t time.Time) string {
	return "quiz_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// Grade scores the bank questions whose ids appear in answers, in bank order.
// Answers for ids missing from the bank are ignored. Never fails.
func (g *Grader) Grade(userID string, answers domain.AnswerSet, bank []domain.Question, startedAt time.Time) domain.QuizResult {
	scored := make([]domain.Question, 0, len(answers))
	for _, q := range bank {
		if _, ok := answers[q.ID]; ok {
			scored = append(scored, q)
		}
	}
	return g.score(userID, scored, answers, startedAt)
}

// GradeSelection scores exactly the given question sequence; unanswered questions
// count as missed.
func (g *Grader) GradeSelection(userID string, questions []domain.Question, answers domain.AnswerSet, startedAt time.Time) domain.QuizResult {
	return g.score(userID, questions, answers, startedAt)
}

func (g *Grader) score(userID string, scored []domain.Question, answers domain.AnswerSet, startedAt time.Time) domain.QuizResult {
	result := domain.QuizResult{
		ID:           g.newID(),
		UserID:       userID,
		StartedAt:    startedAt,
		MissedTopics: []domain.Topic{},
	}

	for _, q := range scored {
		// A missing answer reads as "" which never matches a validated correct option.
		if selected, ok := answers[q.ID]; ok && selected == q.CorrectOptionID {
			result.Score++
			continue
		}
		result.MissedTopics = append(result.MissedTopics, q.Topic)
	}

	result.Passed = Passed(result.Score, len(scored))
	result.CompletedAt = g.now()
	if result.CompletedAt.Before(startedAt) {
		result.CompletedAt = startedAt
	}
	return result
}

// Passed reports score/total >= 0.8. An empty scored set never passes.
func Passed(score, total int) bool {
	if total <= 0 {
		return false
	}
	return score*PassDenominator >= total*PassNumerator
}
