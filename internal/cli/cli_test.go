package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weld-academy-service/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestGradeCommandPrintsResult(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "logger:\n  level: error\n")
	answersPath := writeFile(t, dir, "answers.json", `{"q1":"q1a2","q2":"q2a3","q3":"q3a1"}`)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"grade", "--config", cfgPath, "--user", "user-maria", "--answers", answersPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("grade: %v", err)
	}

	var result domain.QuizResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if result.UserID != "user-maria" || result.Score != 2 || result.Total() != 3 || result.Passed {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.MissedTopics) != 1 || result.MissedTopics[0] != domain.TopicCodeNavigation {
		t.Fatalf("expected code navigation miss, got %v", result.MissedTopics)
	}
}

func TestGradeCommandRejectsBadAnswersFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "logger:\n  level: error\n")
	answersPath := writeFile(t, dir, "answers.json", `["q1"]`)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"grade", "--config", cfgPath, "--user", "user-maria", "--answers", answersPath})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for non-object answers file")
	}
}

func TestSeedBankRequiresPostgres(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "logger:\n  level: error\n")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"seed-bank", "--config", cfgPath})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error without postgres url")
	}
}

func TestCommandErrorsReachStderr(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "logger:\n  level: error\n")

	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"seed-bank", "--config", cfgPath})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error without postgres url")
	}
	if !strings.HasPrefix(stderr.String(), "Error: ") {
		t.Fatalf("expected error on stderr, got %q", stderr.String())
	}
	if strings.Contains(stderr.String(), "Usage:") {
		t.Fatalf("usage must stay silent on runtime errors")
	}
}

func TestSampleUsersHoldUniqueBadges(t *testing.T) {
	users := sampleUsers()
	if len(users) != 2 {
		t.Fatalf("expected two sample users, got %d", len(users))
	}
	if users[0].Badges.Len() != 0 {
		t.Fatalf("learner starts without badges")
	}
	if !users[1].Badges.Has(domain.BadgeFoundationVerified) || users[1].Badges.Len() != 3 {
		t.Fatalf("mentor badges %+v", users[1].Badges.List())
	}
}
