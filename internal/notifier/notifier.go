// Package notifier decides when the user should hear about new
// matching articles and hands the message to a delivery channel.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hnwatch/internal/domain"

	"mvdan.cc/xurls/v2"
)

const (
	singularTitle = "New Mobile Article"
	pluralBody    = "Check out the latest mobile development articles"

	itemPageURLFormat = "https://news.ycombinator.com/item?id=%s"
)

var strictURLRe = xurls.Strict()

// Sender delivers one notification and returns an opaque handle for
// it.
type Sender interface {
	Deliver(
		ctx context.Context,
		title string,
		body string,
		payload domain.NotificationPayload,
	) (string, error)
}

// Persistence is the slice of the storage gateway the notifier uses.
type Persistence interface {
	NotificationPreferences(ctx context.Context) domain.NotificationPreferences
	LastArticleID(ctx context.Context) string
	SaveLastArticleID(ctx context.Context, articleID string) error
	HasRequestedPermission(ctx context.Context) bool
	SetHasRequestedPermission(ctx context.Context, value bool) error
}

type Searcher interface {
	SearchByDate(ctx context.Context, query string) ([]domain.Article, error)
}

type Notifier struct {
	persistence Persistence
	searcher    Searcher
	sender      Sender
	query       string
	log         *slog.Logger
}

func New(
	persistence Persistence,
	searcher Searcher,
	sender Sender,
	query string,
	log *slog.Logger,
) *Notifier {
	return &Notifier{
		persistence: persistence,
		searcher:    searcher,
		sender:      sender,
		query:       query,
		log:         log,
	}
}

// AnnounceOnce delivers a one-time setup notification the first time
// the service runs with a working delivery channel, recording the fact
// so restarts stay silent.
func (n *Notifier) AnnounceOnce(ctx context.Context) {
	if n.persistence.HasRequestedPermission(ctx) {
		return
	}

	handle, err := n.sender.Deliver(ctx,
		"Notifications enabled",
		"You will be notified about new mobile development articles",
		domain.NotificationPayload{})
	if err != nil {
		n.log.ErrorContext(ctx, "Failed to deliver setup notification",
			"error", err)

		return
	}

	if err = n.persistence.SetHasRequestedPermission(ctx, true); err != nil {
		n.log.ErrorContext(ctx, "Failed to record setup notification",
			"error", err,
			"handle", handle)
	}
}

// CheckForNewArticles fetches the latest feed, compares against the
// last-seen-article marker and delivers at most one notification about
// articles newer than the marker whose titles match an enabled topic.
// The marker always advances to the newest fetched id, whether or not
// anything fired. Every failure is logged and swallowed: a periodic
// caller must never be crashed or blocked by this check.
func (n *Notifier) CheckForNewArticles(ctx context.Context) {
	prefs := n.persistence.NotificationPreferences(ctx)
	if !prefs.Enabled {
		return
	}

	topics := prefs.Topics()
	if len(topics) == 0 {
		return
	}

	lastArticleID := n.persistence.LastArticleID(ctx)

	articles, err := n.searcher.SearchByDate(ctx, n.query)
	if err != nil {
		n.log.ErrorContext(ctx, "Failed to fetch articles for notification check",
			"error", err,
			"query", n.query)

		return
	}
	if len(articles) == 0 {
		return
	}

	latest := articles[0]

	if lastArticleID != "" && latest.ObjectID != lastArticleID {
		newArticles := sliceNewerThan(articles, lastArticleID)
		relevant := filterByTopics(newArticles, topics)

		if len(relevant) > 0 {
			n.deliver(ctx, relevant)
		}
	}

	if err = n.persistence.SaveLastArticleID(ctx, latest.ObjectID); err != nil {
		n.log.ErrorContext(ctx, "Failed to persist last article ID",
			"error", err,
			"lastArticleID", latest.ObjectID)
	}
}

func (n *Notifier) deliver(ctx context.Context, relevant []domain.Article) {
	first := relevant[0]
	articleTitle := first.DisplayTitle()

	title := singularTitle
	body := articleTitle
	if len(relevant) > 1 {
		title = fmt.Sprintf("%d New Mobile Articles", len(relevant))
		body = pluralBody
	}

	payload := domain.NotificationPayload{
		ArticleID: first.ObjectID,
		URL:       navigableURL(&first),
		Title:     articleTitle,
	}

	handle, err := n.sender.Deliver(ctx, title, body, payload)
	if err != nil {
		n.log.ErrorContext(ctx, "Failed to deliver notification",
			"error", err,
			"articleID", first.ObjectID,
			"relevantCount", len(relevant))

		return
	}

	n.log.InfoContext(ctx, "Notification is delivered",
		"handle", handle,
		"articleID", first.ObjectID,
		"relevantCount", len(relevant))
}

// sliceNewerThan returns the articles strictly newer than
// lastArticleID. When the marker is gone from the batch entirely the
// whole batch counts as new.
func sliceNewerThan(articles []domain.Article, lastArticleID string) []domain.Article {
	for i, article := range articles {
		if article.ObjectID == lastArticleID {
			return articles[:i]
		}
	}

	return articles
}

func filterByTopics(articles []domain.Article, topics []string) []domain.Article {
	var relevant []domain.Article

	for _, article := range articles {
		title := strings.ToLower(article.DisplayTitle())

		for _, topic := range topics {
			if strings.Contains(title, strings.ToLower(topic)) {
				relevant = append(relevant, article)

				break
			}
		}
	}

	return relevant
}

// navigableURL guarantees the deep-link contract: the payload URL is
// either the article's own link, when it is a well-formed absolute
// URL, or the comments page for the item.
func navigableURL(article *domain.Article) string {
	raw := strings.TrimSpace(article.DisplayURL())

	if matched := strictURLRe.FindString(raw); matched == raw && raw != "" {
		return raw
	}

	return fmt.Sprintf(itemPageURLFormat, article.ObjectID)
}
