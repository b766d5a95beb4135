package app

import (
	"sync"
	"time"

	"weld-academy-service/internal/domain"
)

// SessionState is a step of the quiz session state machine.
type SessionState string

const (
	StateTopicUnselected SessionState = "topic_unselected"
	StateTopicSelected   SessionState = "topic_selected"
	StateAllAnswered     SessionState = "all_answered"
	StateFinalized       SessionState = "finalized"
)

// Session collects one learner's answers for a topic-scoped question sequence.
type Session struct {
	id        string
	userID    string
	createdAt time.Time
	now       func() time.Time

	mu        sync.Mutex
	state     SessionState
	topic     domain.Topic
	questions []domain.Question
	answers   domain.AnswerSet
	cursor    int
	startedAt time.Time
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id, userID string) *Session {
	return NewSessionWithClock(id, userID, time.Now)
}

// NewSessionWithClock is used for deterministic timestamps in tests.
func NewSessionWithClock(id, userID string, now func() time.Time) *Session {
	return &Session{
		id:        id,
		userID:    userID,
		createdAt: now(),
		now:       now,
		state:     StateTopicUnselected,
		answers:   domain.AnswerSet{},
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectTopic filters bank by topic, discards any recorded answers and rewinds the cursor.
func (s *Session) SelectTopic(bank []domain.Question, topic domain.Topic) ([]domain.Question, error) {
	if topic != domain.TopicAll && !topic.Valid() {
		return nil, domain.ErrUnknownTopic
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFinalized {
		return nil, domain.ErrSessionFinalized
	}

	s.topic = topic
	s.questions = domain.SelectTopic(bank, topic)
	s.answers = domain.AnswerSet{}
	s.cursor = 0
	s.startedAt = s.now()
	s.state = StateTopicSelected
	s.refreshLocked()
	return append([]domain.Question(nil), s.questions...), nil
}

// RecordAnswer stores optionID for questionID, replacing any earlier choice.
// Whether the option belongs to the question is left to the grader.
func (s *Session) RecordAnswer(questionID, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateTopicUnselected:
		return domain.ErrTopicNotSelected
	case StateFinalized:
		return domain.ErrSessionFinalized
	}
	s.answers[questionID] = optionID
	s.refreshLocked()
	return nil
}

// Current returns the question under the cursor.
func (s *Session) Current() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.cursor], true
}

// Next advances the cursor, stopping on the last question. It reports whether it moved.
func (s *Session) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked()
}

// Advance moves to the next question and returns the question now under the cursor.
// On the last question the cursor stays put.
func (s *Session) Advance() (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateTopicUnselected:
		return domain.Question{}, domain.ErrTopicNotSelected
	case StateFinalized:
		return domain.Question{}, domain.ErrSessionFinalized
	}
	if len(s.questions) == 0 {
		return domain.Question{}, domain.ErrNoQuestions
	}
	s.nextLocked()
	return s.questions[s.cursor], nil
}

func (s *Session) nextLocked() bool {
	if s.cursor+1 >= len(s.questions) {
		return false
	}
	s.cursor++
	return true
}

// Cursor is the zero-based index of the current question.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// IsComplete reports whether every selected question has an answer.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked()
}

// Progress summarizes how far the learner is through the selected sequence.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	answered := 0
	for _, q := range s.questions {
		if _, ok := s.answers[q.ID]; ok {
			answered++
		}
	}
	return Progress{
		Answered: answered,
		Total:    len(s.questions),
		Cursor:   s.cursor,
		Complete: s.completeLocked(),
	}
}

// Finalize freezes the session and returns its answers at any completeness level,
// together with the presented question sequence and the time the topic was chosen.
func (s *Session) Finalize() (domain.AnswerSet, []domain.Question, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFinalized {
		return nil, nil, time.Time{}, domain.ErrSessionFinalized
	}
	s.state = StateFinalized
	startedAt := s.startedAt
	if startedAt.IsZero() {
		startedAt = s.createdAt
	}
	return s.answers.Clone(), append([]domain.Question(nil), s.questions...), startedAt, nil
}

// Reopen undoes Finalize, keeping topic and answers, so a failed submission can be retried.
func (s *Session) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFinalized {
		return
	}
	if s.topic == "" {
		s.state = StateTopicUnselected
		return
	}
	s.refreshLocked()
}

// Reset returns the session to TopicUnselected, dropping topic and answers.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateTopicUnselected
	s.topic = ""
	s.questions = nil
	s.answers = domain.AnswerSet{}
	s.cursor = 0
	s.startedAt = time.Time{}
}

func (s *Session) completeLocked() bool {
	for _, q := range s.questions {
		if _, ok := s.answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) refreshLocked() {
	if len(s.questions) > 0 && s.completeLocked() {
		s.state = StateAllAnswered
	} else {
		s.state = StateTopicSelected
	}
}

// Progress is reported after each recorded answer.
type Progress struct {
	Answered int  `json:"answered"`
	Total    int  `json:"total"`
	Cursor   int  `json:"cursor"`
	Complete bool `json:"complete"`
}

// SessionSnapshot is the serialisable form of a Session.
type SessionSnapshot struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	CreatedAt time.Time         `json:"created_at"`
	State     SessionState      `json:"state"`
	Topic     domain.Topic      `json:"topic,omitempty"`
	Questions []domain.Question `json:"questions,omitempty"`
	Answers   domain.AnswerSet  `json:"answers"`
	Cursor    int               `json:"cursor"`
	StartedAt time.Time         `json:"started_at"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		ID:        s.id,
		UserID:    s.userID,
		CreatedAt: s.createdAt,
		State:     s.state,
		Topic:     s.topic,
		Questions: append([]domain.Question(nil), s.questions...),
		Answers:   s.answers.Clone(),
		Cursor:    s.cursor,
		StartedAt: s.startedAt,
	}
}

// RestoreSession rebuilds a session from a snapshot.
func RestoreSession(snap SessionSnapshot) *Session {
	s := NewSessionWithClock(snap.ID, snap.UserID, time.Now)
	s.createdAt = snap.CreatedAt
	s.state = snap.State
	if s.state == "" {
		s.state = StateTopicUnselected
	}
	s.topic = snap.Topic
	s.questions = snap.Questions
	if snap.Answers != nil {
		s.answers = snap.Answers.Clone()
	}
	s.cursor = snap.Cursor
	s.startedAt = snap.StartedAt
	return s
}
