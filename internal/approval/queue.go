// Package approval gates mix actions behind human sign-off. Urgent
// actions can bypass the queue depending on the mode; pending actions
// that outlive their urgency timeout are approved anyway — they had
// their chance to be rejected.
package approval

import (
	"sync"
	"time"

	"github.com/mixmate/mixmate/internal/action"
)

// Mode selects the approval policy.
type Mode int

const (
	ModeAutoUrgent Mode = iota // auto-approve Immediate/Fast urgency (default)
	ModeApproveAll             // every action needs approval
	ModeAutoAll                // auto-approve everything (demo/testing)
	ModeDenyAll                // reject everything (safe mode)
)

func (m Mode) String() string {
	switch m {
	case ModeApproveAll:
		return "approve_all"
	case ModeAutoAll:
		return "auto_all"
	case ModeDenyAll:
		return "deny_all"
	}
	return "auto_urgent"
}

// ModeFromString parses a mode name; unknown names map to AutoUrgent.
func ModeFromString(s string) Mode {
	switch s {
	case "approve_all":
		return ModeApproveAll
	case "auto_all":
		return ModeAutoAll
	case "deny_all":
		return ModeDenyAll
	}
	return ModeAutoUrgent
}

// QueuedAction is one entry moving through the queue.
type QueuedAction struct {
	Action   action.MixAction
	QueuedAt time.Time
	Timeout  time.Duration
	Approved bool
	Rejected bool
	Expired  bool
}

// Queue routes actions by urgency and mode. Submit returning true means
// the action was auto-approved and was NOT enqueued: the submitter
// validates and executes it inline, and the executor goroutine only ever
// sees actions popped from the approved queue — so every action has
// exactly one execution site.
type Queue struct {
	mu       sync.Mutex
	mode     Mode
	pending  []QueuedAction
	approved []QueuedAction
	rejected []QueuedAction

	// signal wakes a PopApproved waiter; buffered so a notify with no
	// waiter is remembered for the next pop.
	signal chan struct{}

	// OnRejected, when set, is invoked (outside the lock) for every
	// rejected action. The preference learner counts rejections with it.
	OnRejected func(action.MixAction)
}

// NewQueue builds a queue in the given mode.
func NewQueue(mode Mode) *Queue {
	return &Queue{
		mode:   mode,
		signal: make(chan struct{}, 1),
	}
}

// SetMode switches the approval policy.
func (q *Queue) SetMode(m Mode) {
	q.mu.Lock()
	q.mode = m
	q.mu.Unlock()
}

// Mode reports the current policy.
func (q *Queue) Mode() Mode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.mode
}

// timeoutForUrgency maps urgency to the pending timeout.
func timeoutForUrgency(u action.Urgency) time.Duration {
	switch u {
	case action.Immediate:
		return 500 * time.Millisecond
	case action.Fast:
		return 2 * time.Second
	case action.Low:
		return 30 * time.Second
	}
	return 10 * time.Second
}

// Submit routes an action. Returns true when it is auto-approved (and not
// enqueued); false when it is pending or rejected.
func (q *Queue) Submit(a action.MixAction) bool {
	q.mu.Lock()

	switch q.mode {
	case ModeAutoAll:
		q.mu.Unlock()
		return true
	case ModeDenyAll:
		q.rejected = append(q.rejected, QueuedAction{
			Action: a, QueuedAt: time.Now(), Rejected: true,
		})
		cb := q.OnRejected
		q.mu.Unlock()
		if cb != nil {
			cb(a)
		}
		return false
	case ModeAutoUrgent:
		if a.Urgency == action.Immediate || a.Urgency == action.Fast {
			q.mu.Unlock()
			return true
		}
	}

	q.pending = append(q.pending, QueuedAction{
		Action:   a,
		QueuedAt: time.Now(),
		Timeout:  timeoutForUrgency(a.Urgency),
	})
	q.mu.Unlock()
	q.notify()
	return false
}

// Pending returns a copy of the pending entries for UI display.
func (q *Queue) Pending() []QueuedAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]QueuedAction(nil), q.pending...)
}

// PendingCount reports how many actions await a decision.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Approve moves the pending entry at index into the approved queue.
func (q *Queue) Approve(index int) bool {
	q.mu.Lock()
	if index < 0 || index >= len(q.pending) {
		q.mu.Unlock()
		return false
	}
	entry := q.pending[index]
	entry.Approved = true
	q.approved = append(q.approved, entry)
	q.pending = append(q.pending[:index], q.pending[index+1:]...)
	q.mu.Unlock()
	q.notify()
	return true
}

// Reject drops the pending entry at index into the rejected queue.
func (q *Queue) Reject(index int) bool {
	q.mu.Lock()
	if index < 0 || index >= len(q.pending) {
		q.mu.Unlock()
		return false
	}
	entry := q.pending[index]
	entry.Rejected = true
	q.rejected = append(q.rejected, entry)
	q.pending = append(q.pending[:index], q.pending[index+1:]...)
	cb := q.OnRejected
	q.mu.Unlock()
	if cb != nil {
		cb(entry.Action)
	}
	return true
}

// ApproveAll approves every pending entry in order.
func (q *Queue) ApproveAll() {
	q.mu.Lock()
	for _, entry := range q.pending {
		entry.Approved = true
		q.approved = append(q.approved, entry)
	}
	q.pending = q.pending[:0]
	q.mu.Unlock()
	q.notify()
}

// RejectAll rejects every pending entry.
func (q *Queue) RejectAll() {
	q.mu.Lock()
	rejected := make([]action.MixAction, 0, len(q.pending))
	for _, entry := range q.pending {
		entry.Rejected = true
		q.rejected = append(q.rejected, entry)
		rejected = append(rejected, entry.Action)
	}
	q.pending = q.pending[:0]
	cb := q.OnRejected
	q.mu.Unlock()
	if cb != nil {
		for _, a := range rejected {
			cb(a)
		}
	}
}

// PopApproved returns the next approved action, waiting up to timeout for
// one to arrive. The expiry sweep runs first, so entries that sat in
// pending past their urgency timeout come out stamped Expired.
func (q *Queue) PopApproved(timeout time.Duration) (QueuedAction, bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		q.expireLocked()
		if len(q.approved) > 0 {
			entry := q.approved[0]
			q.approved = q.approved[1:]
			q.mu.Unlock()
			return entry, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return QueuedAction{}, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-q.signal:
			timer.Stop()
		case <-timer.C:
			// One final sweep+check on the way out.
			q.mu.Lock()
			q.expireLocked()
			if len(q.approved) > 0 {
				entry := q.approved[0]
				q.approved = q.approved[1:]
				q.mu.Unlock()
				return entry, true
			}
			q.mu.Unlock()
			return QueuedAction{}, false
		}
	}
}

// expireLocked promotes timed-out pending entries to approved, preserving
// queue order. Expiry converts to approval, never cancellation: acting on
// a stale suggestion beats dropping it silently.
func (q *Queue) expireLocked() {
	now := time.Now()
	kept := q.pending[:0]
	for _, entry := range q.pending {
		if now.Sub(entry.QueuedAt) > entry.Timeout {
			entry.Approved = true
			entry.Expired = true
			q.approved = append(q.approved, entry)
		} else {
			kept = append(kept, entry)
		}
	}
	q.pending = kept
}

func (q *Queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
