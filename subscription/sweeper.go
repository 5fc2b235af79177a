package subscription

import (
	"context"
	"time"

	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
)

// Sweeper is the time-driven half of the lifecycle: the payment processor
// does not reliably push a terminal event once a grace period lapses, so a
// scheduled scan downgrades lapsed past_due records itself, through the
// same reconciliation path the webhook uses.
type Sweeper struct {
	store       *Store
	engine      *Engine
	gracePeriod time.Duration
	now         func() time.Time
}

func NewSweeper(store *Store, engine *Engine, gracePeriod time.Duration) *Sweeper {
	return &Sweeper{
		store:       store,
		engine:      engine,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

// SweepResult summarizes one run. Errors holds per-record failures; one bad
// record never aborts the batch.
type SweepResult struct {
	Downgraded int      `json:"downgraded"`
	Errors     []string `json:"errors,omitempty"`
}

// Run scans for lapsed past_due records and expires each one. Only the
// candidate scan itself can fail the run.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	now := s.now()
	candidates, err := s.store.ListLapsedPastDue(ctx, now, now.Add(-s.gracePeriod))
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{}
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "sweep aborted: "+ctx.Err().Error())
			break
		}

		res, err := s.engine.Process(ctx, GraceExpired{UserID: candidate.UserID})
		if err != nil {
			utils.LogErrorWithUser(candidate.UserID, err, "Sweeper could not expire subscription")
			result.Errors = append(result.Errors, "user "+candidate.UserID+": "+err.Error())
			continue
		}
		if res.Applied {
			result.Downgraded++
		}
	}

	utils.LogInfo("Subscription sweep finished")
	return result, nil
}
