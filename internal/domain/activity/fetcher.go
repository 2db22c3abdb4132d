package activity

import (
	"context"
	"strings"
)

// Source lists the most recent public events of an account, newest first.
// Implementations return a *FetchError on failure and make at most one
// upstream attempt per call.
type Source interface {
	ListPublicEvents(ctx context.Context, account string) ([]RawEvent, error)
}

// Fetcher produces a normalized feed for an account.
type Fetcher interface {
	FetchRecentActivity(ctx context.Context, account string, limit int) (Feed, error)
}

// Normalizer is the Fetcher that talks to a Source. It holds no mutable
// state and is safe for concurrent use.
type Normalizer struct {
	source  Source
	htmlURL string
}

// NewNormalizer builds repository links on htmlURL, e.g. https://github.com.
func NewNormalizer(source Source, htmlURL string) *Normalizer {
	return &Normalizer{source: source, htmlURL: htmlURL}
}

// FetchRecentActivity returns at most limit items for account. An empty
// account yields an empty feed without calling the source.
func (n *Normalizer) FetchRecentActivity(ctx context.Context, account string, limit int) (Feed, error) {
	if limit <= 0 {
		return Feed{}, ErrInvalidLimit
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return Feed{Account: "", Items: []Item{}}, nil
	}

	events, err := n.source.ListPublicEvents(ctx, account)
	if err != nil {
		return Feed{}, err
	}
	return Feed{Account: account, Items: Normalize(events, limit, n.htmlURL)}, nil
}
