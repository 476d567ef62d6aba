package sync

import (
	"fmt"
	"sync"
)

// JobTracker records which account syncs are currently running so a second
// trigger for the same account is rejected instead of queued.
type JobTracker struct {
	mu      sync.Mutex
	running map[string]string
}

// NewJobTracker creates an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{running: make(map[string]string)}
}

// TryStart claims the account for jobID. It returns false when another job
// already holds the account.
func (t *JobTracker) TryStart(userID int64, provider, accountID, jobID string) bool {
	key := jobKey(userID, provider, accountID)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.running[key]; exists {
		return false
	}
	t.running[key] = jobID
	return true
}

// Finish releases the account claim.
func (t *JobTracker) Finish(userID int64, provider, accountID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.running, jobKey(userID, provider, accountID))
}

// Running returns the job id holding the account, if any.
func (t *JobTracker) Running(userID int64, provider, accountID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.running[jobKey(userID, provider, accountID)]
	return id, ok
}

func jobKey(userID int64, provider, accountID string) string {
	return fmt.Sprintf("%d/%s/%s", userID, provider, accountID)
}
