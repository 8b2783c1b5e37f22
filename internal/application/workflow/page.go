package workflow

import "context"

// Presence is the tri-state result of waiting for an element
type Presence int

const (
	// PresenceError means the wait failed for a reason other than the element being absent
	PresenceError Presence = iota
	// Present means the element appeared and was clicked
	Present
	// Absent means the wait's deadline expired without the element appearing
	Absent
)

func (p Presence) String() string {
	switch p {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "error"
	}
}

// Camera renders the current page as PNG bytes
type Camera interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Page is the browser tab driven by the portal flow.
// Every call is bounded by the deadline of ctx.
type Page interface {
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error
	// Click waits for selector to become visible and clicks it. An expired
	// wait yields Absent with a nil error.
	Click(ctx context.Context, selector string) (Presence, error)
	// Screenshot renders the current viewport as PNG
	Screenshot(ctx context.Context) ([]byte, error)
}
