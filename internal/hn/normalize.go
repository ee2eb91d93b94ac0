package hn

import (
	"strings"

	"hnwatch/internal/domain"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Normalize turns raw search hits into displayable articles. A hit
// survives only if it decodes, carries an object ID, and has a usable
// title and URL (directly or through the story_* fallbacks). Malformed
// hits are dropped one by one, never failing the batch, and input
// order is preserved.
func Normalize(rawHits []jsoniter.RawMessage) []domain.Article {
	articles := make([]domain.Article, 0, len(rawHits))

	for _, raw := range rawHits {
		var article domain.Article
		if err := json.Unmarshal(raw, &article); err != nil {
			continue
		}

		if strings.TrimSpace(article.ObjectID) == "" {
			continue
		}

		if article.DisplayTitle() == "" || article.DisplayURL() == "" {
			continue
		}

		articles = append(articles, article)
	}

	return articles
}
