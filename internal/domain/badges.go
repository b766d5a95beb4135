package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// BadgeKey identifies a mastery badge.
type BadgeKey string

const (
	BadgeFoundationVerified BadgeKey = "foundation_verified"
	BadgeClauseMaster       BadgeKey = "clause_master"
	BadgeAcademyMentor      BadgeKey = "academy_mentor"
	BadgeTopContributor     BadgeKey = "top_contributor"
)

// Valid reports whether k is one of the fixed badge keys.
func (k BadgeKey) Valid() bool {
	switch k {
	case BadgeFoundationVerified, BadgeClauseMaster, BadgeAcademyMentor, BadgeTopContributor:
		return true
	}
	return false
}

// Badge is a persistent achievement marker on a user record.
type Badge struct {
	Key      BadgeKey  `json:"badge_key"`
	EarnedAt time.Time `json:"earned_at"`
	Evidence string    `json:"evidence,omitempty"`
}

// BadgeSet holds at most one badge per key, in the order they were earned.
// The zero value is an empty set. Values are immutable; Add returns a new set.
type BadgeSet struct {
	badges []Badge
}

// NewBadgeSet builds a set from a list, keeping the first badge of each key.
// Badges with unknown keys are skipped; use ParseBadges to reject them instead.
func NewBadgeSet(badges ...Badge) BadgeSet {
	var set BadgeSet
	for _, b := range badges {
		if !b.Key.Valid() || set.Has(b.Key) {
			continue
		}
		set.badges = append(set.badges, b)
	}
	return set
}

// ParseBadges builds a set from stored or decoded badges. Repeated keys are dropped,
// an unknown key fails with ErrInvalidBadge.
func ParseBadges(badges []Badge) (BadgeSet, error) {
	for _, b := range badges {
		if !b.Key.Valid() {
			return BadgeSet{}, fmt.Errorf("%w: %q", ErrInvalidBadge, b.Key)
		}
	}
	return NewBadgeSet(badges...), nil
}

// Has reports whether a badge with key is present.
func (s BadgeSet) Has(key BadgeKey) bool {
	for _, b := range s.badges {
		if b.Key == key {
			return true
		}
	}
	return false
}

// Get returns the badge stored under key.
func (s BadgeSet) Get(key BadgeKey) (Badge, bool) {
	for _, b := range s.badges {
		if b.Key == key {
			return b, true
		}
	}
	return Badge{}, false
}

// Add returns a set that contains b. The second result is false, and the set is
// returned unchanged, when a badge with the same key is already present.
func (s BadgeSet) Add(b Badge) (BadgeSet, bool) {
	if s.Has(b.Key) {
		return s, false
	}
	next := make([]Badge, len(s.badges), len(s.badges)+1)
	copy(next, s.badges)
	return BadgeSet{badges: append(next, b)}, true
}

// Len is the number of badges.
func (s BadgeSet) Len() int {
	return len(s.badges)
}

// List returns a copy of the badges in earned order. Never nil.
func (s BadgeSet) List() []Badge {
	out := make([]Badge, len(s.badges))
	copy(out, s.badges)
	return out
}

// MarshalJSON encodes the set as a plain array.
func (s BadgeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes an array, dropping repeated keys and rejecting unknown ones.
func (s *BadgeSet) UnmarshalJSON(data []byte) error {
	var badges []Badge
	if err := json.Unmarshal(data, &badges); err != nil {
		return err
	}
	set, err := ParseBadges(badges)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
