package catalog

import (
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// Quota costs of the Data API calls used here, in units.
const (
	costChannelsList = 1
	costSearchList   = 100
	costVideosList   = 1

	// DefaultDailyQuota is the default Data API allowance per project.
	DefaultDailyQuota = 10000
)

// quotaTracker estimates the remaining daily quota. It is an estimate: the
// API does not report usage, so units are subtracted per call and the
// budget is refilled 24h after the last reset.
type quotaTracker struct {
	mu        sync.Mutex
	daily     int
	reserve   int
	remaining int
	lastReset time.Time
	exhausted bool
	now       func() time.Time
	log       *log.Helper
}

func newQuotaTracker(daily, reserve int, logger *log.Helper) *quotaTracker {
	if daily <= 0 {
		daily = DefaultDailyQuota
	}
	return &quotaTracker{
		daily:     daily,
		reserve:   reserve,
		remaining: daily,
		lastReset: time.Now(),
		now:       time.Now,
		log:       logger,
	}
}

// reserveUnits checks that a call costing units may be made and charges it.
// It returns ErrQuotaExhausted once the estimate would drop below the reserve.
func (q *quotaTracker) reserveUnits(units int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.now().Sub(q.lastReset) > 24*time.Hour {
		q.remaining = q.daily
		q.lastReset = q.now()
		q.exhausted = false
		q.log.Infow("msg", "quota reset", "remaining", q.remaining)
	}

	if q.remaining-units < q.reserve {
		if !q.exhausted {
			q.log.Warnw("msg", "quota exhausted", "remaining", q.remaining, "reserve", q.reserve)
			q.exhausted = true
		}
		return ErrQuotaExhausted
	}
	q.remaining -= units
	return nil
}

func (q *quotaTracker) estimate() (remaining int, exhausted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining, q.exhausted
}
