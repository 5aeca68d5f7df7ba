package domain

// EventKind identifies the kind of repository event that can start a pipeline.
type EventKind int

const (
	// EventPush is a push to a branch.
	EventPush EventKind = iota
	// EventPullRequest is a pull request being opened or updated.
	EventPullRequest
)

// String returns the webhook-style name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventPush:
		return "push"
	case EventPullRequest:
		return "pull_request"
	}
	return "unknown"
}

// Event holds the details of a triggering repository event.
type Event struct {
	Kind         EventKind
	Owner        string
	Repo         string
	Branch       string // push events only
	PRNumber     int    // pull request events only
	BaseRef      string // pull request events only
	HeadRef      string
	HeadSHA      string
	Installation int64
}

// Ref returns the ref the pipeline should run against: the head SHA when
// known, otherwise the head ref or branch name.
func (e Event) Ref() string {
	if e.HeadSHA != "" {
		return e.HeadSHA
	}
	if e.HeadRef != "" {
		return e.HeadRef
	}
	return e.Branch
}
