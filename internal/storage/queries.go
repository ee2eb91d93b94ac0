package storage

import (
	"context"
	"strings"

	"hnwatch/internal/domain"

	jsoniter "github.com/json-iterator/go"
)

const (
	keyArticles               = "articles"
	keyFavorites              = "favorites"
	keyDeleted                = "deleted"
	keyDeletedArticles        = "deleted_articles"
	keyNotificationPrefs      = "notification_prefs"
	keyLastArticleID          = "last_article_id"
	keyHasRequestedPermission = "has_requested_permission"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// storageKeys is the full set of keys owned by the gateway. Clear
// removes exactly these.
var storageKeys = []string{
	keyArticles,
	keyFavorites,
	keyDeleted,
	keyDeletedArticles,
	keyNotificationPrefs,
	keyLastArticleID,
	keyHasRequestedPermission,
}

// getJSON decodes the value under key into out. A missing key, a read
// failure, and a corrupt blob all leave out untouched and return false.
// Reads never propagate errors to callers; they degrade to defaults.
func (s *Store) getJSON(ctx context.Context, key string, out any) bool {
	value, ok, err := s.get(ctx, key)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read value",
			"error", err,
			"key", key)

		return false
	}
	if !ok {
		return false
	}

	if err = json.Unmarshal(value, out); err != nil {
		s.log.ErrorContext(ctx, "Failed to decode value",
			"error", err,
			"key", key,
			"valueLen", len(value))

		return false
	}

	return true
}

func (s *Store) setJSON(ctx context.Context, key string, in any) error {
	value, err := json.Marshal(in)
	if err != nil {
		return &PersistenceError{Op: "encode " + key, Err: err}
	}

	return s.set(ctx, key, value)
}

func (s *Store) SaveArticles(ctx context.Context, articles []domain.Article) error {
	return s.setJSON(ctx, keyArticles, articles)
}

func (s *Store) Articles(ctx context.Context) []domain.Article {
	var articles []domain.Article
	s.getJSON(ctx, keyArticles, &articles)

	return articles
}

func (s *Store) SaveFavorites(ctx context.Context, favoriteIDs []string) error {
	return s.setJSON(ctx, keyFavorites, favoriteIDs)
}

func (s *Store) Favorites(ctx context.Context) []string {
	var favoriteIDs []string
	s.getJSON(ctx, keyFavorites, &favoriteIDs)

	return favoriteIDs
}

func (s *Store) SaveDeleted(ctx context.Context, deletedIDs []string) error {
	return s.setJSON(ctx, keyDeleted, deletedIDs)
}

func (s *Store) Deleted(ctx context.Context) []string {
	var deletedIDs []string
	s.getJSON(ctx, keyDeleted, &deletedIDs)

	return deletedIDs
}

func (s *Store) SaveDeletedArticles(ctx context.Context, articles []domain.Article) error {
	return s.setJSON(ctx, keyDeletedArticles, articles)
}

func (s *Store) DeletedArticles(ctx context.Context) []domain.Article {
	var articles []domain.Article
	s.getJSON(ctx, keyDeletedArticles, &articles)

	return articles
}

func (s *Store) SaveNotificationPreferences(
	ctx context.Context,
	prefs domain.NotificationPreferences,
) error {
	return s.setJSON(ctx, keyNotificationPrefs, prefs)
}

func (s *Store) NotificationPreferences(ctx context.Context) domain.NotificationPreferences {
	prefs := domain.DefaultNotificationPreferences()
	s.getJSON(ctx, keyNotificationPrefs, &prefs)

	return prefs
}

func (s *Store) SaveLastArticleID(ctx context.Context, articleID string) error {
	articleID = strings.TrimSpace(articleID)

	return s.set(ctx, keyLastArticleID, []byte(articleID))
}

// LastArticleID returns the marker of the newest article observed by
// the last successful fetch, or empty when never recorded.
func (s *Store) LastArticleID(ctx context.Context) string {
	value, ok, err := s.get(ctx, keyLastArticleID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read last article ID",
			"error", err)

		return ""
	}
	if !ok {
		return ""
	}

	return strings.TrimSpace(string(value))
}

func (s *Store) SetHasRequestedPermission(ctx context.Context, value bool) error {
	return s.setJSON(ctx, keyHasRequestedPermission, value)
}

func (s *Store) HasRequestedPermission(ctx context.Context) bool {
	var value bool
	s.getJSON(ctx, keyHasRequestedPermission, &value)

	return value
}

// Clear removes every gateway-owned key in one transaction, so callers
// observe either all keys present or none.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "clear", Err: err}
	}

	query := "delete from kv where key = ?"

	for _, key := range storageKeys {
		if _, err = tx.ExecContext(ctx, query, key); err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.log.ErrorContext(ctx, "Failed to roll back clear",
					"error", rollbackErr,
					"key", key)
			}

			return &PersistenceError{Op: "clear " + key, Err: err}
		}
	}

	if err = tx.Commit(); err != nil {
		return &PersistenceError{Op: "clear", Err: err}
	}

	return nil
}
