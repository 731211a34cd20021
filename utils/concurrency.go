package utils

import "context"

// SessionLimiter bounds the number of browser sessions running at once.
// Every search request spawns its own headless Chrome, so the server caps
// simultaneous sessions to protect the host; requests beyond the cap wait
// their turn.
type SessionLimiter struct {
	semaphore chan struct{}
}

// NewSessionLimiter creates a limiter allowing at most maxSessions
// concurrent holders. A non-positive maxSessions is treated as 1.
func NewSessionLimiter(maxSessions int) *SessionLimiter {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &SessionLimiter{semaphore: make(chan struct{}, maxSessions)}
}

// Acquire blocks until a slot is free or ctx is cancelled.
func (l *SessionLimiter) Acquire(ctx context.Context) error {
	select {
	case l.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *SessionLimiter) Release() {
	<-l.semaphore
}
