package activity

import (
	"strings"
)

// Item is a normalized, display-ready event.
type Item struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Repo      string `json:"repo"`
	RepoURL   string `json:"repoUrl"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Feed is the result of a fetch: the account it was fetched for and its
// most recent items, newest first.
type Feed struct {
	Account string `json:"account"`
	Items   []Item `json:"activity"`
}

const (
	defaultRefType = "repository"
	defaultAction  = "Updated"
)

// Summarize renders the human-readable line for an event. Dispatch is on
// the kind; a payload of the wrong variant reads as empty.
func Summarize(e RawEvent) string {
	switch e.Kind {
	case KindPush:
		p, _ := e.Payload.(PushPayload)
		if len(p.Commits) > 0 && p.Commits[0].Message != "" {
			return p.Commits[0].Message
		}
		return "Pushed commits"
	case KindCreate:
		p, _ := e.Payload.(CreatePayload)
		return "Created " + orDefault(p.RefType, defaultRefType)
	case KindPullRequest:
		p, _ := e.Payload.(PullRequestPayload)
		return orDefault(p.Action, defaultAction) + " pull request"
	case KindIssues:
		p, _ := e.Payload.(IssuesPayload)
		return orDefault(p.Action, defaultAction) + " issue"
	case KindWatch:
		return "Starred repository"
	case KindFork:
		return "Forked repository"
	default:
		return strings.TrimSuffix(string(e.Kind), "Event")
	}
}

// Normalize keeps the first limit events in upstream order and converts
// them into items. htmlURL is the host prefix repository links are built on.
func Normalize(events []RawEvent, limit int, htmlURL string) []Item {
	if limit < len(events) {
		events = events[:limit]
	}
	base := strings.TrimRight(htmlURL, "/")

	items := make([]Item, 0, len(events))
	for _, e := range events {
		items = append(items, Item{
			ID:        e.ID,
			Type:      string(e.Kind),
			Repo:      e.Repo,
			RepoURL:   base + "/" + e.Repo,
			Timestamp: e.CreatedAt,
			Message:   Summarize(e),
		})
	}
	return items
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
