// Package activity watches a world's public activity feed and maps
// recently-changed entries back to local bindings, so a targeted re-sync
// can touch only the articles that actually moved.
package activity

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/lorebridge/lorebridge/internal/store"
)

// Change is one feed entry resolved against the journal. ArticleID is
// set only when a bound document matched the entry's link.
type Change struct {
	Title     string
	Link      string
	ArticleID string
	Document  *store.Document
}

// Bound reports whether the change matched a local binding.
func (c *Change) Bound() bool { return c.Document != nil }

// Watcher parses the activity feed and resolves entries against the
// journal's article-URL bindings.
type Watcher struct {
	feedURL string
	store   *store.Store
	parser  *gofeed.Parser
}

// NewWatcher creates a watcher for the given feed URL.
func NewWatcher(feedURL string, s *store.Store) *Watcher {
	return &Watcher{feedURL: feedURL, store: s, parser: gofeed.NewParser()}
}

// RecentChanges parses the feed and returns one Change per entry.
// Entries without a link are skipped with a log line.
func (w *Watcher) RecentChanges(ctx context.Context) ([]Change, error) {
	if w.feedURL == "" {
		return nil, fmt.Errorf("activity: no feed URL configured")
	}

	feed, err := w.parser.ParseURLWithContext(w.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing activity feed: %w", err)
	}

	var changes []Change
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			log.Printf("activity: feed entry %q has no link, skipping", item.Title)
			continue
		}

		change := Change{Title: item.Title, Link: link}
		doc, err := w.store.FindDocumentByArticleURL(link)
		if err != nil {
			return nil, fmt.Errorf("matching feed entry %q: %w", item.Title, err)
		}
		if doc != nil && doc.ArticleID != nil {
			change.ArticleID = *doc.ArticleID
			change.Document = doc
		}
		changes = append(changes, change)
	}

	log.Printf("activity: %d feed entries, %d matched local bindings", len(changes), countBound(changes))
	return changes, nil
}

func countBound(changes []Change) int {
	n := 0
	for i := range changes {
		if changes[i].Bound() {
			n++
		}
	}
	return n
}
