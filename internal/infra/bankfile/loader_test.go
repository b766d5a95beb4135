package bankfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"weld-academy-service/internal/domain"
)

const sampleBank = `
version: "2024.1"
questions:
  - id: q1
    topic: Welding Symbols
    prompt: Where is the weld size located?
    options:
      - {id: q1a1, text: In the tail}
      - {id: q1a2, text: To the left of the symbol}
    correct_option_id: q1a2
  - id: q5
    topic: Safety
    prompt: What does the hole watch do?
    options:
      - {id: q5a1, text: Welds}
      - {id: q5a2, text: Monitors entrants}
    correct_option_id: q5a2
`

func TestParseNormalisesTopics(t *testing.T) {
	doc, err := Parse([]byte(sampleBank))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Version != "2024.1" || len(doc.Questions) != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Questions[1].Topic != domain.TopicSafety {
		t.Fatalf("expected short code mapped to display topic, got %q", doc.Questions[1].Topic)
	}
}

func TestParseRejectsBrokenBank(t *testing.T) {
	broken := `
questions:
  - id: q1
    topic: Welding Symbols
    options:
      - {id: a, text: A}
    correct_option_id: b
`
	if _, err := Parse([]byte(broken)); !errors.Is(err, domain.ErrInvalidBank) {
		t.Fatalf("expected invalid bank, got %v", err)
	}

	unknownTopic := `
questions:
  - id: q1
    topic: Brazing
    options:
      - {id: a, text: A}
    correct_option_id: a
`
	if _, err := Parse([]byte(unknownTopic)); !errors.Is(err, domain.ErrInvalidBank) {
		t.Fatalf("expected invalid bank for topic, got %v", err)
	}
}

func TestLoaderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(sampleBank), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	bank, err := NewLoader(path).LoadBank(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(bank) != 2 || bank[0].CorrectOptionID != "q1a2" {
		t.Fatalf("unexpected bank %+v", bank)
	}
}

func TestShippedBankMatchesDefault(t *testing.T) {
	doc, err := ReadFile(filepath.Join("..", "..", "..", "config", "questions.yaml"))
	if err != nil {
		t.Fatalf("read shipped bank: %v", err)
	}
	want := domain.DefaultBank()
	if len(doc.Questions) != len(want) {
		t.Fatalf("expected %d questions, got %d", len(want), len(doc.Questions))
	}
	for i := range want {
		if doc.Questions[i].ID != want[i].ID || doc.Questions[i].CorrectOptionID != want[i].CorrectOptionID || doc.Questions[i].Topic != want[i].Topic {
			t.Fatalf("question %d differs: %+v", i, doc.Questions[i])
		}
	}
}
