package session

import "testing"

func TestRepositoryCacheHit(t *testing.T) {
	store := newStore(t)
	repo := NewRepository(store, func() int { return 4096 })

	s, err := repo.Create("Caching")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.TokenThreshold != 4096 {
		t.Errorf("TokenThreshold = %d, want 4096", s.TokenThreshold)
	}

	// Mutate in memory without saving; Get must return the same instance.
	s.Append(NewMessage("user", "unsaved"))
	got, err := repo.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("expected cache to return the in-memory session instance")
	}
	if len(got.Messages) != 1 {
		t.Errorf("len(Messages) = %d, want 1", len(got.Messages))
	}
}

func TestRepositoryDiskFallback(t *testing.T) {
	store := newStore(t)
	repo := NewRepository(store, func() int { return 4096 })

	s, err := repo.Create("Fallback")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.Phase = PhaseTeaching
	if err := repo.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh repository over the same root must reconstruct from disk.
	fresh := NewRepository(store, func() int { return 4096 })
	got, err := fresh.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Phase != PhaseTeaching {
		t.Errorf("Phase = %q, want teaching", got.Phase)
	}
	if got.Theme != "Fallback" {
		t.Errorf("Theme = %q, want Fallback", got.Theme)
	}
}

func TestRepositoryGetMissing(t *testing.T) {
	store := newStore(t)
	repo := NewRepository(store, func() int { return 4096 })
	if _, err := repo.Get("20240101_000000_missing"); err == nil {
		t.Fatal("expected error for unknown session id")
	}
}
