package domain

import "fmt"

// SelectTopic filters bank by topic in bank order. TopicAll returns the whole bank.
// The result is never nil so callers can test len() for the "no questions" state.
func SelectTopic(bank []Question, topic Topic) []Question {
	out := make([]Question, 0, len(bank))
	for _, q := range bank {
		if topic == TopicAll || q.Topic == topic {
			out = append(out, q)
		}
	}
	return out
}

// ValidateBank checks every question and rejects duplicate question ids.
func ValidateBank(bank []Question) error {
	if len(bank) == 0 {
		return ErrEmptyBank
	}
	seen := make(map[string]struct{}, len(bank))
	for _, q := range bank {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %s", ErrInvalidBank, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// TopicSummary is one entry of the topic selection catalog.
type TopicSummary struct {
	Topic         Topic  `json:"topic"`
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// Catalog lists the comprehensive entry followed by every topic with its question count.
func Catalog(bank []Question) []TopicSummary {
	topics := append([]Topic{TopicAll}, Topics()...)
	out := make([]TopicSummary, 0, len(topics))
	for _, t := range topics {
		out = append(out, TopicSummary{
			Topic:         t,
			Name:          t.Name(),
			QuestionCount: len(SelectTopic(bank, t)),
		})
	}
	return out
}

// DefaultBank is the built-in placement bank, one question per topic.
func DefaultBank() []Question {
	return []Question{
		{
			ID:     "q1",
			Topic:  TopicWeldingSymbols,
			Prompt: "In a standard AWS welding symbol, where is information about the weld size located?",
			Options: []Option{
				{ID: "q1a1", Text: "In the tail"},
				{ID: "q1a2", Text: "To the left of the symbol"},
				{ID: "q1a3", Text: "To the right of the symbol"},
				{ID: "q1a4", Text: "Below the reference line"},
			},
			CorrectOptionID: "q1a2",
		},
		{
			ID:     "q2",
			Topic:  TopicVisualInspection,
			Prompt: "According to AWS D1.1 for structural steel, which of the following is an unacceptable weld profile discontinuity?",
			Options: []Option{
				{ID: "q2a1", Text: `Slight undercut, less than 1/32"`},
				{ID: "q2a2", Text: "Minimal surface porosity"},
				{ID: "q2a3", Text: "Excessive convexity"},
				{ID: "q2a4", Text: "A smooth transition at the weld toes"},
			},
			CorrectOptionID: "q2a3",
		},
		{
			ID:     "q3",
			Topic:  TopicCodeNavigation,
			Prompt: "ASME Section IX primarily covers which of the following?",
			Options: []Option{
				{ID: "q3a1", Text: "Rules for Construction of Pressure Vessels"},
				{ID: "q3a2", Text: "Nondestructive Examination"},
				{ID: "q3a3", Text: "Welding, Brazing, and Fusing Qualifications"},
				{ID: "q3a4", Text: "Rules for Inservice Inspection of Nuclear Power Plant Components"},
			},
			CorrectOptionID: "q3a3",
		},
		{
			ID:     "q4",
			Topic:  TopicWPS,
			Prompt: "What is the primary purpose of a Procedure Qualification Record (PQR)?",
			Options: []Option{
				{ID: "q4a1", Text: "To provide instructions to the welder for production welding"},
				{ID: "q4a2", Text: "To document the actual variables used to create an acceptable test weld"},
				{ID: "q4a3", Text: "To certify a welder's ability to deposit sound weld metal"},
				{ID: "q4a4", Text: "To list all approved welders for a specific project"},
			},
			CorrectOptionID: "q4a2",
		},
		{
			ID:     "q5",
			Topic:  TopicSafety,
			Prompt: `When working in a confined space, what is the primary role of the "hole watch" or attendant?`,
			Options: []Option{
				{ID: "q5a1", Text: "To assist with the welding or inspection work inside the space"},
				{ID: "q5a2", Text: "To monitor entrants and conditions, and summon rescue services if needed"},
				{ID: "q5a3", Text: "To provide ventilation for the confined space"},
				{ID: "q5a4", Text: "To complete the work permit before entry"},
			},
			CorrectOptionID: "q5a2",
		},
	}
}
