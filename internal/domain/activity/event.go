// Package activity models public account events and their normalized,
// display-ready form.
package activity

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Kind is the upstream event type tag, e.g. "PushEvent".
type Kind string

// Known event kinds. Anything else decodes to an UnknownPayload.
const (
	KindPush        Kind = "PushEvent"
	KindCreate      Kind = "CreateEvent"
	KindPullRequest Kind = "PullRequestEvent"
	KindIssues      Kind = "IssuesEvent"
	KindWatch       Kind = "WatchEvent"
	KindFork        Kind = "ForkEvent"
)

// RawEvent is one upstream event as received. It only lives for the
// duration of a fetch.
type RawEvent struct {
	ID        string
	Kind      Kind
	Repo      string
	CreatedAt string // ISO-8601, kept verbatim
	Payload   Payload
}

// Payload is the kind-specific part of a RawEvent. The concrete type is
// selected by the event kind.
type Payload interface {
	kind() Kind
}

// Commit is a single commit of a push.
type Commit struct {
	SHA     string
	Message string
}

// PushPayload holds the commits of a PushEvent in upstream order.
type PushPayload struct {
	Ref     string
	Commits []Commit
}

// CreatePayload describes a created repository, branch or tag.
type CreatePayload struct {
	RefType string
	Ref     string
}

// PullRequestPayload describes a pull request transition.
type PullRequestPayload struct {
	Action string
	Number int
}

// IssuesPayload describes an issue transition.
type IssuesPayload struct {
	Action string
	Number int
}

// WatchPayload is a star.
type WatchPayload struct {
	Action string
}

// ForkPayload names the created fork.
type ForkPayload struct {
	Forkee string
}

// UnknownPayload keeps the raw payload of kinds this package does not model.
type UnknownPayload struct {
	Type Kind
	Raw  json.RawMessage
}

func (PushPayload) kind() Kind        { return KindPush }
func (CreatePayload) kind() Kind      { return KindCreate }
func (PullRequestPayload) kind() Kind { return KindPullRequest }
func (IssuesPayload) kind() Kind      { return KindIssues }
func (WatchPayload) kind() Kind       { return KindWatch }
func (ForkPayload) kind() Kind        { return KindFork }
func (p UnknownPayload) kind() Kind   { return p.Type }

// object is a JSON object decoded one level deep.
type object map[string]json.RawMessage

// DecodeEvents parses an upstream response body. The body must be a JSON
// array of objects; individual fields that are missing or of the wrong type
// are treated as absent.
func DecodeEvents(body []byte) ([]RawEvent, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode event list: %w", err)
	}
	if items == nil {
		// "null" is not a list
		return nil, fmt.Errorf("decode event list: body is null")
	}

	events := make([]RawEvent, 0, len(items))
	for i, raw := range items {
		var obj object
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		if obj == nil {
			return nil, fmt.Errorf("decode event %d: element is null", i)
		}
		events = append(events, decodeEvent(obj))
	}
	return events, nil
}

func decodeEvent(obj object) RawEvent {
	e := RawEvent{
		ID:        obj.idStr("id"),
		Kind:      Kind(obj.str("type")),
		Repo:      obj.obj("repo").str("name"),
		CreatedAt: obj.str("created_at"),
	}
	e.Payload = decodePayload(e.Kind, obj["payload"])
	return e
}

func decodePayload(k Kind, raw json.RawMessage) Payload {
	p := decodeObject(raw)
	switch k {
	case KindPush:
		commits := p.list("commits")
		out := PushPayload{Ref: p.str("ref"), Commits: make([]Commit, 0, len(commits))}
		for _, c := range commits {
			co := decodeObject(c)
			out.Commits = append(out.Commits, Commit{SHA: co.str("sha"), Message: co.str("message")})
		}
		return out
	case KindCreate:
		return CreatePayload{RefType: p.str("ref_type"), Ref: p.str("ref")}
	case KindPullRequest:
		return PullRequestPayload{Action: p.str("action"), Number: p.num("number")}
	case KindIssues:
		return IssuesPayload{Action: p.str("action"), Number: p.obj("issue").num("number")}
	case KindWatch:
		return WatchPayload{Action: p.str("action")}
	case KindFork:
		return ForkPayload{Forkee: p.obj("forkee").str("full_name")}
	default:
		return UnknownPayload{Type: k, Raw: raw}
	}
}

func decodeObject(raw json.RawMessage) object {
	var o object
	if len(raw) == 0 {
		return o
	}
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil
	}
	return o
}

// str returns a string field; any other type reads as "".
func (o object) str(key string) string {
	raw, ok := o[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// idStr is str that also accepts a numeric identifier verbatim.
func (o object) idStr(key string) string {
	if s := o.str(key); s != "" {
		return s
	}
	raw, ok := o[key]
	if !ok {
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

func (o object) num(key string) int {
	raw, ok := o[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

func (o object) obj(key string) object {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	return decodeObject(raw)
}

func (o object) list(key string) []json.RawMessage {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var l []json.RawMessage
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil
	}
	return l
}
