package memory

import (
	"context"
	"errors"
	"testing"

	"weld-academy-service/internal/app"
	"weld-academy-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	if err := store.Save(ctx, app.NewSession("s-1", "user-maria")); err != nil {
		t.Fatalf("save: %v", err)
	}
	session, err := store.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("expected session present: %v", err)
	}
	if session.UserID() != "user-maria" {
		t.Fatalf("unexpected user %q", session.UserID())
	}

	_ = store.Delete(ctx, "s-1")
	if _, err := store.Get(ctx, "s-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
}
