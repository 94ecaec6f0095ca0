package ports

import (
	"context"
	"time"
)

// SessionHandle is the store's view of a live simulation session. The
// concrete session type lives in the application layer; the store only
// needs identity, liveness bookkeeping and a way to stop the loop.
type SessionHandle interface {
	// ID returns the session identifier
	ID() string

	// CreatedAt returns when the session was created
	CreatedAt() time.Time

	// LastAccessedAt returns the time of the most recent client activity
	LastAccessedAt() time.Time

	// Touch marks the session as recently used
	Touch()

	// Stop shuts down the session loop and releases its resources
	Stop()
}

// SessionStore tracks live sessions by ID.
type SessionStore interface {
	// Put registers a session
	Put(ctx context.Context, session SessionHandle) error

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (SessionHandle, bool)

	// List returns all registered sessions
	List(ctx context.Context) []SessionHandle

	// Remove unregisters a session without stopping it
	Remove(ctx context.Context, id string) error

	// Count returns the number of registered sessions
	Count(ctx context.Context) int
}
