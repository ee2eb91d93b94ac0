package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"hnwatch/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")

	s, err := New(context.Background(), dbPath, slog.Default())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := s.Close(); closeErr != nil {
			t.Errorf("failed to close store: %v", closeErr)
		}
	})

	return s
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func TestArticlesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createdAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	articles := []domain.Article{
		{
			ObjectID:  "1",
			Title:     strPtr("Android 17"),
			URL:       strPtr("https://example.com/1"),
			Author:    "alice",
			CreatedAt: createdAt,
			Points:    intPtr(42),
		},
		{
			ObjectID:   "2",
			StoryTitle: strPtr("iOS tips"),
			StoryURL:   strPtr("https://example.com/2"),
			Author:     "bob",
			CreatedAt:  createdAt.Add(-time.Hour),
		},
	}

	if err := s.SaveArticles(ctx, articles); err != nil {
		t.Fatalf("failed to save articles: %v", err)
	}

	got := s.Articles(ctx)
	if len(got) != 2 {
		t.Fatalf("expected two articles, got %d", len(got))
	}
	if got[0].ObjectID != "1" || got[1].ObjectID != "2" {
		t.Fatalf("order mismatch: got %q, %q", got[0].ObjectID, got[1].ObjectID)
	}
	if got[0].Points == nil || *got[0].Points != 42 {
		t.Fatalf("points did not survive round trip: %+v", got[0].Points)
	}
	// Absent nullable fields stay nil, not zero.
	if got[1].Title != nil || got[1].Points != nil {
		t.Fatalf("expected nil nullable fields, got %+v", got[1])
	}
	if !got[0].CreatedAt.Equal(createdAt) {
		t.Fatalf("created_at mismatch: got %v want %v", got[0].CreatedAt, createdAt)
	}
}

func TestMissingKeysDegradeToDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if got := s.Articles(ctx); got != nil {
		t.Fatalf("expected nil articles, got %v", got)
	}
	if got := s.Favorites(ctx); got != nil {
		t.Fatalf("expected nil favorites, got %v", got)
	}
	if got := s.LastArticleID(ctx); got != "" {
		t.Fatalf("expected empty marker, got %q", got)
	}
	if s.HasRequestedPermission(ctx) {
		t.Fatalf("expected permission flag default false")
	}

	prefs := s.NotificationPreferences(ctx)
	want := domain.DefaultNotificationPreferences()
	if prefs != want {
		t.Fatalf("prefs default mismatch: got %+v want %+v", prefs, want)
	}
}

func TestCorruptBlobDegradesToDefault(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.set(ctx, keyNotificationPrefs, []byte("{not json")); err != nil {
		t.Fatalf("failed to seed corrupt blob: %v", err)
	}

	prefs := s.NotificationPreferences(ctx)
	want := domain.DefaultNotificationPreferences()
	if prefs != want {
		t.Fatalf("expected defaults for corrupt blob, got %+v", prefs)
	}
}

func TestFavoritesAndDeletedRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveFavorites(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("failed to save favorites: %v", err)
	}
	if err := s.SaveDeleted(ctx, []string{"c"}); err != nil {
		t.Fatalf("failed to save deleted: %v", err)
	}

	if got := s.Favorites(ctx); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("favorites mismatch: got %v", got)
	}
	if got := s.Deleted(ctx); !slices.Equal(got, []string{"c"}) {
		t.Fatalf("deleted mismatch: got %v", got)
	}

	// Overwrites replace, not append.
	if err := s.SaveFavorites(ctx, []string{"b"}); err != nil {
		t.Fatalf("failed to overwrite favorites: %v", err)
	}
	if got := s.Favorites(ctx); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("overwritten favorites mismatch: got %v", got)
	}
}

func TestLastArticleIDTrimsWhitespace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveLastArticleID(ctx, "  42  "); err != nil {
		t.Fatalf("failed to save marker: %v", err)
	}
	if got := s.LastArticleID(ctx); got != "42" {
		t.Fatalf("marker mismatch: got %q want %q", got, "42")
	}
}

func TestClearRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveFavorites(ctx, []string{"a"}); err != nil {
		t.Fatalf("failed to save favorites: %v", err)
	}
	if err := s.SaveLastArticleID(ctx, "42"); err != nil {
		t.Fatalf("failed to save marker: %v", err)
	}
	if err := s.SetHasRequestedPermission(ctx, true); err != nil {
		t.Fatalf("failed to set permission flag: %v", err)
	}
	prefs := domain.DefaultNotificationPreferences()
	prefs.FlutterArticles = true
	if err := s.SaveNotificationPreferences(ctx, prefs); err != nil {
		t.Fatalf("failed to save prefs: %v", err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	if got := s.Favorites(ctx); got != nil {
		t.Fatalf("expected cleared favorites, got %v", got)
	}
	if got := s.LastArticleID(ctx); got != "" {
		t.Fatalf("expected cleared marker, got %q", got)
	}
	if s.HasRequestedPermission(ctx) {
		t.Fatalf("expected cleared permission flag")
	}
	if got := s.NotificationPreferences(ctx); got != domain.DefaultNotificationPreferences() {
		t.Fatalf("expected default prefs after clear, got %+v", got)
	}
}
