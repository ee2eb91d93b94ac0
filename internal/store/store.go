// Package store holds the canonical reading state: the network-derived
// article list reconciled against the locally persisted favorites,
// trash and archive. All mutations are serialized through one store
// instance; readers always observe a consistent snapshot.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"hnwatch/internal/domain"

	"golang.org/x/sync/errgroup"
)

type Status int

const (
	StatusUninitialized Status = iota
	StatusReady
)

// Persistence is the slice of the storage gateway the store depends
// on. Reads degrade to defaults instead of failing; writes report
// errors so mutations can roll back.
type Persistence interface {
	Articles(ctx context.Context) []domain.Article
	SaveArticles(ctx context.Context, articles []domain.Article) error
	Favorites(ctx context.Context) []string
	SaveFavorites(ctx context.Context, favoriteIDs []string) error
	Deleted(ctx context.Context) []string
	SaveDeleted(ctx context.Context, deletedIDs []string) error
	DeletedArticles(ctx context.Context) []domain.Article
	SaveDeletedArticles(ctx context.Context, articles []domain.Article) error
	NotificationPreferences(ctx context.Context) domain.NotificationPreferences
	SaveNotificationPreferences(ctx context.Context, prefs domain.NotificationPreferences) error
	LastArticleID(ctx context.Context) string
	SaveLastArticleID(ctx context.Context, articleID string) error
}

// Searcher fetches normalized articles for a query, newest first.
type Searcher interface {
	SearchByDate(ctx context.Context, query string) ([]domain.Article, error)
	Invalidate(query string)
}

type Store struct {
	persistence Persistence
	searcher    Searcher
	query       string
	log         *slog.Logger

	mu             sync.Mutex
	status         Status
	articles       []domain.Article
	favoriteIDs    map[string]struct{}
	deletedIDs     map[string]struct{}
	deletedArchive map[string]domain.Article
	lastArticleID  string
	prefs          domain.NotificationPreferences
	loading        bool
	refreshing     bool
	lastErr        error
	fetchGen       uint64
}

func New(
	persistence Persistence,
	searcher Searcher,
	query string,
	log *slog.Logger,
) *Store {
	return &Store{
		persistence:    persistence,
		searcher:       searcher,
		query:          query,
		log:            log,
		favoriteIDs:    make(map[string]struct{}),
		deletedIDs:     make(map[string]struct{}),
		deletedArchive: make(map[string]domain.Article),
		prefs:          domain.DefaultNotificationPreferences(),
	}
}

// Initialize loads all persisted collections in parallel, computes the
// initial visible article set, and transitions to Ready. Load errors
// never keep the store out of Ready: the gateway substitutes defaults.
// A background Load is kicked off afterwards so callers never wait on
// the network.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.status == StatusReady {
		s.mu.Unlock()

		return
	}
	s.loading = true
	s.mu.Unlock()

	var (
		cachedArticles   []domain.Article
		favoriteIDs      []string
		deletedIDs       []string
		archivedArticles []domain.Article
		prefs            domain.NotificationPreferences
		lastArticleID    string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cachedArticles = s.persistence.Articles(gctx)

		return nil
	})
	g.Go(func() error {
		favoriteIDs = s.persistence.Favorites(gctx)

		return nil
	})
	g.Go(func() error {
		deletedIDs = s.persistence.Deleted(gctx)

		return nil
	})
	g.Go(func() error {
		archivedArticles = s.persistence.DeletedArticles(gctx)

		return nil
	})
	g.Go(func() error {
		prefs = s.persistence.NotificationPreferences(gctx)

		return nil
	})
	g.Go(func() error {
		lastArticleID = s.persistence.LastArticleID(gctx)

		return nil
	})

	// Gateway reads are soft, so waiting only synchronizes.
	_ = g.Wait()

	deleted := make(map[string]struct{}, len(deletedIDs))
	for _, id := range deletedIDs {
		deleted[id] = struct{}{}
	}

	favorites := make(map[string]struct{}, len(favoriteIDs))
	for _, id := range favoriteIDs {
		favorites[id] = struct{}{}
	}

	archive := make(map[string]domain.Article, len(archivedArticles))
	for _, article := range archivedArticles {
		archive[article.ObjectID] = article
	}

	visible := make([]domain.Article, 0, len(cachedArticles))
	for _, article := range cachedArticles {
		if _, ok := deleted[article.ObjectID]; ok {
			continue
		}

		visible = append(visible, article)
	}

	s.mu.Lock()
	s.articles = visible
	s.favoriteIDs = favorites
	s.deletedIDs = deleted
	s.deletedArchive = archive
	s.prefs = prefs
	s.lastArticleID = lastArticleID
	s.status = StatusReady
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Store is initialized",
		"cachedArticles", len(visible),
		"favorites", len(favorites),
		"deleted", len(deleted))

	go s.Load(ctx)
}

// Load fetches the default query, reconciles against the deleted set
// and replaces the article list wholesale. On fetch failure the
// current articles stay untouched and a non-fatal error signal is
// recorded instead; a cold cache plus a dead network never empties an
// existing feed. Also advances the last-seen-article marker.
func (s *Store) Load(ctx context.Context) {
	s.load(ctx, false)
}

// Refresh is the explicit re-fetch path: it bypasses the client's
// freshness window and does not advance the last-seen-article marker,
// so a pending notification delta is not consumed by the user pulling
// the feed.
func (s *Store) Refresh(ctx context.Context) {
	s.searcher.Invalidate(s.query)
	s.load(ctx, true)
}

func (s *Store) load(ctx context.Context, isRefresh bool) {
	s.mu.Lock()
	if isRefresh {
		s.refreshing = true
	} else {
		s.loading = true
	}
	s.lastErr = nil
	s.fetchGen++
	gen := s.fetchGen
	s.mu.Unlock()

	fetched, fetchErr := s.searcher.SearchByDate(ctx, s.query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchGen != gen {
		// A newer fetch superseded this one; its response is stale
		// regardless of success.
		s.log.InfoContext(ctx, "Discarding superseded fetch",
			"gen", gen,
			"currentGen", s.fetchGen)

		return
	}

	s.loading = false
	s.refreshing = false

	if fetchErr != nil {
		s.lastErr = fmt.Errorf("load articles: %w", fetchErr)
		s.log.ErrorContext(ctx, "Failed to load articles, keeping cached data",
			"error", fetchErr,
			"query", s.query,
			"cachedArticles", len(s.articles))

		return
	}

	filtered := make([]domain.Article, 0, len(fetched))
	for _, article := range fetched {
		if _, ok := s.deletedIDs[article.ObjectID]; ok {
			continue
		}

		filtered = append(filtered, article)
	}
	sortArticlesDesc(filtered)

	s.articles = filtered

	if err := s.persistence.SaveArticles(ctx, filtered); err != nil {
		s.lastErr = fmt.Errorf("persist articles: %w", err)
		s.log.ErrorContext(ctx, "Failed to persist articles",
			"error", err,
			"articleCount", len(filtered))
	}

	if !isRefresh && len(filtered) > 0 {
		s.lastArticleID = filtered[0].ObjectID

		if err := s.persistence.SaveLastArticleID(ctx, s.lastArticleID); err != nil {
			s.log.ErrorContext(ctx, "Failed to persist last article ID",
				"error", err,
				"lastArticleID", s.lastArticleID)
		}
	}
}

// ToggleFavorite flips membership of articleID in the favorite set.
// The in-memory set changes first; a persistence failure rolls it
// back and is returned to the caller.
func (s *Store) ToggleFavorite(ctx context.Context, articleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := maps.Clone(s.favoriteIDs)

	if _, ok := s.favoriteIDs[articleID]; ok {
		delete(s.favoriteIDs, articleID)
	} else {
		s.favoriteIDs[articleID] = struct{}{}
	}

	if err := s.persistence.SaveFavorites(ctx, sortedIDs(s.favoriteIDs)); err != nil {
		s.favoriteIDs = snapshot

		return fmt.Errorf("persist favorites: %w", err)
	}

	return nil
}

// DeleteArticle moves articleID out of the live feed: the id joins the
// deleted set, the current article value is archived for restore, and
// any favorite mark is dropped. Deleting an id that is already gone
// from the live list still ensures it ends up in the deleted set.
func (s *Store) DeleteArticle(ctx context.Context, articleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked()

	var (
		deletedArticle domain.Article
		found          bool
	)

	remaining := make([]domain.Article, 0, len(s.articles))
	for _, article := range s.articles {
		if article.ObjectID == articleID {
			deletedArticle = article
			found = true

			continue
		}

		remaining = append(remaining, article)
	}

	s.articles = remaining
	s.deletedIDs[articleID] = struct{}{}
	delete(s.favoriteIDs, articleID)

	if found {
		s.deletedArchive[articleID] = deletedArticle
	}

	err := errors.Join(
		s.persistence.SaveArticles(ctx, s.articles),
		s.persistence.SaveDeleted(ctx, sortedIDs(s.deletedIDs)),
		s.persistence.SaveDeletedArticles(ctx, archivedArticlesLocked(s.deletedArchive)),
		s.persistence.SaveFavorites(ctx, sortedIDs(s.favoriteIDs)),
	)
	if err != nil {
		s.restoreLocked(snapshot)

		return fmt.Errorf("persist delete of %s: %w", articleID, err)
	}

	return nil
}

// RestoreArticle takes articleID out of the trash. When an archived
// snapshot exists and the live list does not already contain the id,
// the snapshot is re-inserted in date order; either way the id leaves
// the deleted set and the archive.
func (s *Store) RestoreArticle(ctx context.Context, articleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked()

	delete(s.deletedIDs, articleID)

	archived, wasArchived := s.deletedArchive[articleID]
	delete(s.deletedArchive, articleID)

	if wasArchived && !containsArticle(s.articles, articleID) {
		s.articles = append(slices.Clone(s.articles), archived)
		sortArticlesDesc(s.articles)
	}

	err := errors.Join(
		s.persistence.SaveDeleted(ctx, sortedIDs(s.deletedIDs)),
		s.persistence.SaveArticles(ctx, s.articles),
		s.persistence.SaveDeletedArticles(ctx, archivedArticlesLocked(s.deletedArchive)),
	)
	if err != nil {
		s.restoreLocked(snapshot)

		return fmt.Errorf("persist restore of %s: %w", articleID, err)
	}

	return nil
}

// PermanentlyDeleteArticle removes articleID from the trash for good:
// both the deleted-id entry and the archived snapshot are purged, so
// the article cannot be restored afterwards.
func (s *Store) PermanentlyDeleteArticle(ctx context.Context, articleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked()

	delete(s.deletedIDs, articleID)
	delete(s.deletedArchive, articleID)

	err := errors.Join(
		s.persistence.SaveDeleted(ctx, sortedIDs(s.deletedIDs)),
		s.persistence.SaveDeletedArticles(ctx, archivedArticlesLocked(s.deletedArchive)),
	)
	if err != nil {
		s.restoreLocked(snapshot)

		return fmt.Errorf("persist permanent delete of %s: %w", articleID, err)
	}

	return nil
}

// SetNotificationPrefs shallow-merges the patch into the current
// preferences and persists the result.
func (s *Store) SetNotificationPrefs(ctx context.Context, patch domain.PreferencesPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.prefs
	s.prefs = patch.Apply(s.prefs)

	if err := s.persistence.SaveNotificationPreferences(ctx, s.prefs); err != nil {
		s.prefs = snapshot

		return fmt.Errorf("persist notification preferences: %w", err)
	}

	return nil
}

type stateSnapshot struct {
	articles       []domain.Article
	favoriteIDs    map[string]struct{}
	deletedIDs     map[string]struct{}
	deletedArchive map[string]domain.Article
}

func (s *Store) snapshotLocked() stateSnapshot {
	return stateSnapshot{
		articles:       slices.Clone(s.articles),
		favoriteIDs:    maps.Clone(s.favoriteIDs),
		deletedIDs:     maps.Clone(s.deletedIDs),
		deletedArchive: maps.Clone(s.deletedArchive),
	}
}

func (s *Store) restoreLocked(snapshot stateSnapshot) {
	s.articles = snapshot.articles
	s.favoriteIDs = snapshot.favoriteIDs
	s.deletedIDs = snapshot.deletedIDs
	s.deletedArchive = snapshot.deletedArchive
}

func sortArticlesDesc(articles []domain.Article) {
	slices.SortStableFunc(articles, func(a, b domain.Article) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func sortedIDs(ids map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(ids))
}

func archivedArticlesLocked(archive map[string]domain.Article) []domain.Article {
	articles := make([]domain.Article, 0, len(archive))
	for _, id := range slices.Sorted(maps.Keys(archive)) {
		articles = append(articles, archive[id])
	}

	return articles
}

func containsArticle(articles []domain.Article, articleID string) bool {
	return slices.ContainsFunc(articles, func(article domain.Article) bool {
		return article.ObjectID == articleID
	})
}

