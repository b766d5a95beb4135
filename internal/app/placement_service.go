package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"weld-academy-service/internal/domain"
	"weld-academy-service/internal/placement"
)

// BankRepository loads the authoritative question bank (from cache/backing store).
type BankRepository interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// UserRepository owns user records. UpdateBadges must apply fn atomically per user and
// only persist when fn reports a change.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	SaveUser(ctx context.Context, user domain.User) error
	UpdateBadges(ctx context.Context, userID string, fn func(domain.BadgeSet) (domain.BadgeSet, bool)) (domain.User, error)
}

// ResultRepository keeps graded quiz results for history views.
type ResultRepository interface {
	SaveResult(ctx context.Context, result domain.QuizResult) error
	ListResults(ctx context.Context, userID string) ([]domain.QuizResult, error)
}

// Observer receives placement events, e.g. for metrics.
type Observer interface {
	ObserveSession()
	ObserveGrade(result domain.QuizResult)
	ObserveBadge(key domain.BadgeKey)
}

type nopObserver struct{}

func (nopObserver) ObserveSession()                {}
func (nopObserver) ObserveGrade(domain.QuizResult) {}
func (nopObserver) ObserveBadge(domain.BadgeKey)   {}

// defaultQuizDuration backdates started_at when a direct grade request omits it.
const defaultQuizDuration = 5 * time.Minute

// Outcome is what a learner sees after submitting: the result and the merged badges.
type Outcome struct {
	Result  domain.QuizResult `json:"result"`
	Badges  domain.BadgeSet   `json:"badges"`
	Awarded bool              `json:"awarded"`
}

// GradeRequest grades an answer set without a server-side session.
// QuestionIDs, when set, is the explicit scored set.
type GradeRequest struct {
	UserID      string
	Answers     domain.AnswerSet
	QuestionIDs []string
	StartedAt   time.Time
}

// OnboardRequest completes a user's profile setup.
type OnboardRequest struct {
	UserID   string
	Role     domain.Role
	Headline string
	Bio      string
	Skills   []string
}

// PlacementService contains the placement quiz use cases.
type PlacementService struct {
	bank     BankRepository
	sessions SessionRepository
	users    UserRepository
	results  ResultRepository

	grader   *placement.Grader
	now      func() time.Time
	latency  time.Duration
	log      *zap.Logger
	observer Observer
}

// Option customises a PlacementService.
type Option func(*PlacementService)

// WithLogger sets the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *PlacementService) { s.log = log }
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(s *PlacementService) { s.observer = o }
}

// WithLatency delays every grading call, mimicking a remote grader.
func WithLatency(d time.Duration) Option {
	return func(s *PlacementService) { s.latency = d }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *PlacementService) {
		s.now = now
		s.grader = placement.NewGraderWithClock(now)
	}
}

func NewPlacementService(bank BankRepository, sessions SessionRepository, users UserRepository, results ResultRepository, opts ...Option) *PlacementService {
	s := &PlacementService{
		bank:     bank,
		sessions: sessions,
		users:    users,
		results:  results,
		grader:   placement.NewGrader(),
		now:      time.Now,
		log:      zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Topics lists the selection catalog with question counts.
func (s *PlacementService) Topics(ctx context.Context) ([]domain.TopicSummary, error) {
	bank, err := s.bank.Questions(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Catalog(bank), nil
}

// Questions returns the questions of a topic in bank order.
func (s *PlacementService) Questions(ctx context.Context, topic domain.Topic) ([]domain.Question, error) {
	bank, err := s.bank.Questions(ctx)
	if err != nil {
		return nil, err
	}
	return domain.SelectTopic(bank, topic), nil
}

// StartSession opens a quiz session for a known user.
func (s *PlacementService) StartSession(ctx context.Context, userID string) (*Session, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	session := NewSessionWithClock(ulid.Make().String(), userID, s.now)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.observer.ObserveSession()
	s.log.Debug("quiz session started", zap.String("session_id", session.ID()), zap.String("user_id", userID))
	return session, nil
}

// Session loads a stored session.
func (s *PlacementService) Session(ctx context.Context, sessionID string) (*Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// CloseSession forgets a session.
func (s *PlacementService) CloseSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// NextQuestion moves a session's cursor forward and returns the question under it.
func (s *PlacementService) NextQuestion(ctx context.Context, sessionID string) (domain.Question, Progress, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Question{}, Progress{}, err
	}
	question, err := session.Advance()
	if err != nil {
		return domain.Question{}, Progress{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Question{}, Progress{}, fmt.Errorf("save session: %w", err)
	}
	return question, session.Progress(), nil
}

// SelectTopic chooses the question sequence of a session, discarding earlier answers.
func (s *PlacementService) SelectTopic(ctx context.Context, sessionID string, topic domain.Topic) ([]domain.Question, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	bank, err := s.bank.Questions(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := session.SelectTopic(bank, topic)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if len(questions) == 0 {
		s.log.Info("topic has no questions", zap.String("session_id", sessionID), zap.String("topic", string(topic)))
	}
	return questions, nil
}

// RecordAnswer stores an answer in a session and reports progress.
func (s *PlacementService) RecordAnswer(ctx context.Context, sessionID, questionID, optionID string) (Progress, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}
	if err := session.RecordAnswer(questionID, optionID); err != nil {
		return Progress{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return Progress{}, fmt.Errorf("save session: %w", err)
	}
	return session.Progress(), nil
}

// ResetSession drops the session topic so a different one can be chosen.
func (s *PlacementService) ResetSession(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Reset()
	return s.sessions.Save(ctx, session)
}

// Submit finalizes a session and grades the presented question sequence.
func (s *PlacementService) Submit(ctx context.Context, sessionID string) (Outcome, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := s.users.GetUser(ctx, session.UserID()); err != nil {
		return Outcome{}, err
	}
	if err := s.wait(ctx); err != nil {
		return Outcome{}, err
	}

	answers, questions, startedAt, err := session.Finalize()
	if err != nil {
		return Outcome{}, err
	}
	result := s.grader.GradeSelection(session.UserID(), questions, answers, startedAt)

	// Saving the finalized state claims the session; a store that already holds it
	// finalized rejects the save with ErrSessionFinalized.
	if err := s.sessions.Save(ctx, session); err != nil {
		if !errors.Is(err, domain.ErrSessionFinalized) {
			session.Reopen()
		}
		return Outcome{}, fmt.Errorf("save session: %w", err)
	}

	outcome, err := s.record(ctx, result)
	if err != nil {
		s.reopen(ctx, session)
		return Outcome{}, err
	}
	return outcome, nil
}

// reopen makes a claimed session submittable again after persisting its outcome failed.
func (s *PlacementService) reopen(ctx context.Context, session *Session) {
	session.Reopen()
	if err := s.sessions.Save(context.WithoutCancel(ctx), session); err != nil {
		s.log.Warn("reopen session failed", zap.String("session_id", session.ID()), zap.Error(err))
	}
}

// Grade scores a raw answer set. Without QuestionIDs the scored set is every bank
// question that has an answer.
func (s *PlacementService) Grade(ctx context.Context, req GradeRequest) (Outcome, error) {
	if _, err := s.users.GetUser(ctx, req.UserID); err != nil {
		return Outcome{}, err
	}
	bank, err := s.bank.Questions(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.wait(ctx); err != nil {
		return Outcome{}, err
	}

	startedAt := req.StartedAt
	if startedAt.IsZero() {
		startedAt = s.now().Add(-defaultQuizDuration)
	}
	answers := req.Answers
	if answers == nil {
		answers = domain.AnswerSet{}
	}

	var result domain.QuizResult
	if len(req.QuestionIDs) > 0 {
		result = s.grader.GradeSelection(req.UserID, pickQuestions(bank, req.QuestionIDs), answers, startedAt)
	} else {
		result = s.grader.Grade(req.UserID, answers, bank, startedAt)
	}
	return s.record(ctx, result)
}

// User returns a user record.
func (s *PlacementService) User(ctx context.Context, userID string) (domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

// Results lists a user's graded quizzes, oldest first.
func (s *PlacementService) Results(ctx context.Context, userID string) ([]domain.QuizResult, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.results.ListResults(ctx, userID)
}

// Onboard stores role, profile and skills and marks onboarding complete.
func (s *PlacementService) Onboard(ctx context.Context, req OnboardRequest) (domain.User, error) {
	if !req.Role.Valid() {
		return domain.User{}, domain.ErrInvalidRole
	}
	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return domain.User{}, err
	}
	user.Role = req.Role
	user.Profile = domain.CommunityProfile{Headline: req.Headline, Bio: req.Bio}
	user.Skills = normalizeSkills(req.Skills)
	user.OnboardingStatus = domain.OnboardingComplete
	if err := s.users.SaveUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	s.log.Info("user onboarded", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// record merges badges before storing the result. A failure in between leaves a badge
// without its result, which a retried submission repairs since the merge is idempotent.
func (s *PlacementService) record(ctx context.Context, result domain.QuizResult) (Outcome, error) {
	awarded := false
	user, err := s.users.UpdateBadges(ctx, result.UserID, func(prev domain.BadgeSet) (domain.BadgeSet, bool) {
		next, added := placement.EvaluateBadges(prev, result, s.now())
		awarded = added
		return next, added
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("merge badges: %w", err)
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		return Outcome{}, fmt.Errorf("save result: %w", err)
	}

	s.observer.ObserveGrade(result)
	if awarded {
		s.observer.ObserveBadge(domain.BadgeFoundationVerified)
	}
	s.log.Info("placement quiz graded",
		zap.String("result_id", result.ID),
		zap.String("user_id", result.UserID),
		zap.Int("score", result.Score),
		zap.Int("total", result.Total()),
		zap.Bool("passed", result.Passed),
		zap.Bool("badge_awarded", awarded),
	)
	return Outcome{Result: result, Badges: user.Badges, Awarded: awarded}, nil
}

func (s *PlacementService) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pickQuestions resolves ids against the bank in request order, skipping unknown or repeated ids.
func pickQuestions(bank []domain.Question, ids []string) []domain.Question {
	byID := make(map[string]domain.Question, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, q)
	}
	return out
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if _, dup := seen[skill]; dup {
			continue
		}
		seen[skill] = struct{}{}
		out = append(out, skill)
	}
	return out
}
