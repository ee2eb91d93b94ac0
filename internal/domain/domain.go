package domain

import (
	"strings"
	"time"
)

// Article is a single search hit from the Hacker News search API.
// Nullable upstream fields stay pointers so that a missing value is
// distinguishable from an empty one and survives round-trips through
// the articles cache unchanged.
type Article struct {
	ObjectID    string    `json:"objectID"`
	Title       *string   `json:"title"`
	URL         *string   `json:"url"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	StoryTitle  *string   `json:"story_title,omitempty"`
	StoryURL    *string   `json:"story_url,omitempty"`
	Points      *int      `json:"points"`
	NumComments *int      `json:"num_comments"`
}

// DisplayTitle returns the article title, falling back to the story
// title for comment-type hits. Empty when neither is usable.
func (a *Article) DisplayTitle() string {
	if a.Title != nil && strings.TrimSpace(*a.Title) != "" {
		return *a.Title
	}
	if a.StoryTitle != nil && strings.TrimSpace(*a.StoryTitle) != "" {
		return *a.StoryTitle
	}

	return ""
}

// DisplayURL returns the article URL, falling back to the story URL.
// Empty when neither is usable.
func (a *Article) DisplayURL() string {
	if a.URL != nil && strings.TrimSpace(*a.URL) != "" {
		return *a.URL
	}
	if a.StoryURL != nil && strings.TrimSpace(*a.StoryURL) != "" {
		return *a.StoryURL
	}

	return ""
}

// DisplayPoints is for presentation only. The stored Points value stays
// nil when the API omitted it.
func (a *Article) DisplayPoints() int {
	if a.Points == nil {
		return 0
	}

	return *a.Points
}

func (a *Article) DisplayNumComments() int {
	if a.NumComments == nil {
		return 0
	}

	return *a.NumComments
}

type NotificationPreferences struct {
	Enabled             bool `json:"enabled"`
	AndroidArticles     bool `json:"androidArticles"`
	IOSArticles         bool `json:"iosArticles"`
	ReactNativeArticles bool `json:"reactNativeArticles"`
	FlutterArticles     bool `json:"flutterArticles"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		Enabled:             true,
		AndroidArticles:     true,
		IOSArticles:         true,
		ReactNativeArticles: true,
		FlutterArticles:     false,
	}
}

// Topics returns the keyword list the enabled topic toggles map to.
// Keywords are matched against article titles as case-insensitive
// substrings.
func (p NotificationPreferences) Topics() []string {
	var topics []string

	if p.AndroidArticles {
		topics = append(topics, "android")
	}
	if p.IOSArticles {
		topics = append(topics, "ios")
	}
	if p.ReactNativeArticles {
		topics = append(topics, "react native")
	}
	if p.FlutterArticles {
		topics = append(topics, "flutter")
	}

	return topics
}

// PreferencesPatch is a partial preferences update. Nil fields keep
// their current value.
type PreferencesPatch struct {
	Enabled             *bool
	AndroidArticles     *bool
	IOSArticles         *bool
	ReactNativeArticles *bool
	FlutterArticles     *bool
}

// Apply merges the patch into prefs and returns the result.
func (patch PreferencesPatch) Apply(prefs NotificationPreferences) NotificationPreferences {
	if patch.Enabled != nil {
		prefs.Enabled = *patch.Enabled
	}
	if patch.AndroidArticles != nil {
		prefs.AndroidArticles = *patch.AndroidArticles
	}
	if patch.IOSArticles != nil {
		prefs.IOSArticles = *patch.IOSArticles
	}
	if patch.ReactNativeArticles != nil {
		prefs.ReactNativeArticles = *patch.ReactNativeArticles
	}
	if patch.FlutterArticles != nil {
		prefs.FlutterArticles = *patch.FlutterArticles
	}

	return prefs
}

// NotificationPayload is attached to every delivered notification and
// must resolve to a navigable (URL, title) pair when the user opens it.
type NotificationPayload struct {
	ArticleID string `json:"articleId"`
	URL       string `json:"url"`
	Title     string `json:"title"`
}
