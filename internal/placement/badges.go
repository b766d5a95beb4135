package placement

import (
	"time"

	"weld-academy-service/internal/domain"
)

// FoundationEvidence is attached to badges earned through the placement quiz.
const FoundationEvidence = "Passed placement quiz"

// EvaluateBadges returns previous plus FoundationVerified when result passed and the
// badge is not held yet. The bool reports whether a badge was newly granted.
// No other badge key is ever awarded here and nothing is removed.
func EvaluateBadges(previous domain.BadgeSet, result domain.QuizResult, now time.Time) (domain.BadgeSet, bool) {
	if !result.Passed {
		return previous, false
	}
	return previous.Add(domain.Badge{
		Key:      domain.BadgeFoundationVerified,
		EarnedAt: now,
		Evidence: FoundationEvidence,
	})
}
