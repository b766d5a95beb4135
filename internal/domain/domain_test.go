package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestSelectTopicFiltersInBankOrder(t *testing.T) {
	bank := DefaultBank()

	safety := SelectTopic(bank, TopicSafety)
	if len(safety) != 1 || safety[0].ID != "q5" {
		t.Fatalf("expected only q5 for safety, got %+v", safety)
	}

	all := SelectTopic(bank, TopicAll)
	if len(all) != len(bank) {
		t.Fatalf("expected full bank, got %d", len(all))
	}
	for i := range bank {
		if all[i].ID != bank[i].ID {
			t.Fatalf("expected bank order at %d, got %s", i, all[i].ID)
		}
	}
}

func TestSelectTopicEmptyIsNotNil(t *testing.T) {
	got := SelectTopic(DefaultBank()[:2], TopicSafety)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestValidateBank(t *testing.T) {
	if err := ValidateBank(DefaultBank()); err != nil {
		t.Fatalf("default bank invalid: %v", err)
	}
	if err := ValidateBank(nil); !errors.Is(err, ErrEmptyBank) {
		t.Fatalf("expected empty bank error, got %v", err)
	}

	bank := DefaultBank()
	bank[1].ID = bank[0].ID
	if err := ValidateBank(bank); !errors.Is(err, ErrInvalidBank) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}

	bank = DefaultBank()
	bank[0].CorrectOptionID = "q2a1"
	if err := ValidateBank(bank); !errors.Is(err, ErrInvalidBank) {
		t.Fatalf("expected foreign correct option error, got %v", err)
	}

	bank = DefaultBank()
	bank[0].Topic = TopicAll
	if err := ValidateBank(bank); !errors.Is(err, ErrInvalidBank) {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestParseTopic(t *testing.T) {
	cases := map[string]Topic{
		"Job Site Safety":  TopicSafety,
		"job site safety":  TopicSafety,
		"Safety":           TopicSafety,
		"WPS":              TopicWPS,
		"VisualInspection": TopicVisualInspection,
		"all":              TopicAll,
	}
	for raw, want := range cases {
		got, err := ParseTopic(raw)
		if err != nil || got != want {
			t.Fatalf("ParseTopic(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseTopic("Brazing"); !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("expected unknown topic, got %v", err)
	}
}

func TestCatalogCounts(t *testing.T) {
	catalog := Catalog(DefaultBank())
	if len(catalog) != 6 {
		t.Fatalf("expected 6 catalog entries, got %d", len(catalog))
	}
	if catalog[0].Topic != TopicAll || catalog[0].QuestionCount != 5 || catalog[0].Name != "Comprehensive Quiz" {
		t.Fatalf("unexpected comprehensive entry %+v", catalog[0])
	}
	for _, entry := range catalog[1:] {
		if entry.QuestionCount != 1 {
			t.Fatalf("expected one question for %s, got %d", entry.Topic, entry.QuestionCount)
		}
	}
}

func TestBadgeSetAddIsCopyOnWrite(t *testing.T) {
	earned := time.Date(2023, 10, 15, 10, 0, 0, 0, time.UTC)
	base := NewBadgeSet(Badge{Key: BadgeClauseMaster, EarnedAt: earned})

	next, added := base.Add(Badge{Key: BadgeFoundationVerified, EarnedAt: earned})
	if !added || next.Len() != 2 {
		t.Fatalf("expected badge added, got added=%v len=%d", added, next.Len())
	}
	if base.Len() != 1 {
		t.Fatalf("receiver mutated, len=%d", base.Len())
	}

	again, added := next.Add(Badge{Key: BadgeFoundationVerified, EarnedAt: earned.Add(time.Hour)})
	if added || again.Len() != 2 {
		t.Fatalf("expected duplicate ignored, got added=%v len=%d", added, again.Len())
	}
	b, _ := again.Get(BadgeFoundationVerified)
	if !b.EarnedAt.Equal(earned) {
		t.Fatalf("expected original earned_at kept, got %v", b.EarnedAt)
	}
}

func TestBadgeSetJSONDropsDuplicates(t *testing.T) {
	raw := `[
		{"badge_key":"foundation_verified","earned_at":"2023-10-15T10:00:00Z"},
		{"badge_key":"clause_master","earned_at":"2023-11-20T14:30:00Z"},
		{"badge_key":"foundation_verified","earned_at":"2024-01-05T18:00:00Z"}
	]`
	var set BadgeSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 badges, got %d", set.Len())
	}

	var empty BadgeSet
	data, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty array, got %s", data)
	}
}

func TestBadgeSetRejectsUnknownKeys(t *testing.T) {
	raw := `[
		{"badge_key":"foundation_verified","earned_at":"2023-10-15T10:00:00Z"},
		{"badge_key":"bogus_key","earned_at":"2023-11-20T14:30:00Z"}
	]`
	var set BadgeSet
	err := json.Unmarshal([]byte(raw), &set)
	if !errors.Is(err, ErrInvalidBadge) {
		t.Fatalf("expected ErrInvalidBadge, got %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("set must stay untouched on error, got %+v", set.List())
	}

	if _, err := ParseBadges([]Badge{{Key: "bogus_key"}}); !errors.Is(err, ErrInvalidBadge) {
		t.Fatalf("expected ErrInvalidBadge from ParseBadges, got %v", err)
	}

	built := NewBadgeSet(Badge{Key: "bogus_key"}, Badge{Key: BadgeClauseMaster})
	if built.Len() != 1 || !built.Has(BadgeClauseMaster) {
		t.Fatalf("expected unknown key skipped, got %+v", built.List())
	}
}

func TestQuestionViewHidesAnswer(t *testing.T) {
	data, err := json.Marshal(DefaultBank()[0].View())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(data, &decoded)
	if _, ok := decoded["correct_option_id"]; ok {
		t.Fatalf("view leaked the answer key: %s", data)
	}
}
