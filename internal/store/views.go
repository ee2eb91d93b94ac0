package store

import (
	"hnwatch/internal/domain"
)

// VisibleArticles is the live feed: the canonical article list minus
// anything in the deleted set. The list should already exclude deleted
// ids after a load, but deletions between loads make the read-time
// filter necessary.
func (s *Store) VisibleArticles() []domain.Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := make([]domain.Article, 0, len(s.articles))
	for _, article := range s.articles {
		if _, ok := s.deletedIDs[article.ObjectID]; ok {
			continue
		}

		visible = append(visible, article)
	}

	return visible
}

// FavoriteArticles is the favorites list: articles marked favorite and
// not deleted. A deleted article never shows up here even if its
// favorite mark somehow survived.
func (s *Store) FavoriteArticles() []domain.Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	favorites := make([]domain.Article, 0, len(s.favoriteIDs))
	for _, article := range s.articles {
		if _, ok := s.favoriteIDs[article.ObjectID]; !ok {
			continue
		}
		if _, ok := s.deletedIDs[article.ObjectID]; ok {
			continue
		}

		favorites = append(favorites, article)
	}

	return favorites
}

// DeletedArticles is the trash list: archived snapshots whose ids are
// still in the deleted set, newest first. Archive entries without a
// matching deleted id are drift and stay hidden.
func (s *Store) DeletedArticles() []domain.Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	trash := make([]domain.Article, 0, len(s.deletedArchive))
	for id, article := range s.deletedArchive {
		if _, ok := s.deletedIDs[id]; !ok {
			continue
		}

		trash = append(trash, article)
	}
	sortArticlesDesc(trash)

	return trash
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Err is the non-fatal error signal: set when a load failed and cached
// data is being shown, cleared by the next successful load or by
// ClearError.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = nil
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loading
}

func (s *Store) IsRefreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refreshing
}

func (s *Store) LastArticleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastArticleID
}

func (s *Store) NotificationPrefs() domain.NotificationPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.prefs
}

// FavoriteIDs returns the favorite set as a sorted slice.
func (s *Store) FavoriteIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedIDs(s.favoriteIDs)
}

// DeletedIDs returns the deleted set as a sorted slice.
func (s *Store) DeletedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedIDs(s.deletedIDs)
}

// IsFavorite reports whether articleID is currently favorited.
func (s *Store) IsFavorite(articleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.favoriteIDs[articleID]

	return ok
}
