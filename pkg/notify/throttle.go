package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// idleRunTTL is how long a run may go silent before its limiter is dropped.
// Failed runs never send a final commit event.
const idleRunTTL = 10 * time.Minute

type runLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttled drops intermediate events above a fixed rate per import run.
// Stage completions (Done) always pass so every stage's final count is delivered.
type Throttled struct {
	next  Reporter
	limit rate.Limit
	now   func() time.Time

	mu   sync.Mutex
	runs map[uuid.UUID]*runLimiter
}

// NewThrottled limits each run's intermediate events to perSecond. A
// non-positive rate disables throttling.
func NewThrottled(next Reporter, perSecond float64) *Throttled {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Throttled{
		next:  next,
		limit: limit,
		now:   time.Now,
		runs:  make(map[uuid.UUID]*runLimiter),
	}
}

func (t *Throttled) Report(ctx context.Context, e models.ProgressEvent) {
	if !t.allow(e) {
		return
	}
	t.next.Report(ctx, e)
}

func (t *Throttled) allow(e models.ProgressEvent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for id, rl := range t.runs {
		if now.Sub(rl.lastSeen) > idleRunTTL {
			delete(t.runs, id)
		}
	}

	if e.Done {
		if e.Stage == models.StageCommit {
			delete(t.runs, e.RunID)
		} else if rl, ok := t.runs[e.RunID]; ok {
			rl.lastSeen = now
		}
		return true
	}

	rl, ok := t.runs[e.RunID]
	if !ok {
		rl = &runLimiter{limiter: rate.NewLimiter(t.limit, 1)}
		t.runs[e.RunID] = rl
	}
	rl.lastSeen = now
	return rl.limiter.AllowN(now, 1)
}
