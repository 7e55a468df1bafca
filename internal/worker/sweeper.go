// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Expirer cancels stale reservations and reports how many it cancelled.
type Expirer interface {
	ExpireReservations(ctx context.Context) (int, error)
}

// Sweeper calls an Expirer on a fixed interval until its context ends.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	log      logrus.FieldLogger
}

// NewSweeper returns a sweeper.  A nil log uses the standard logger.
func NewSweeper(e Expirer, interval time.Duration, log logrus.FieldLogger) *Sweeper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweeper{expirer: e, interval: interval, log: log.WithField("worker", "reservation_sweeper")}
}

// Start blocks until ctx is done.  It returns immediately when the
// interval is not positive.
func (w *Sweeper) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info("reservation sweeper disabled")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("reservation sweeper started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("reservation sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass and returns the number of cancelled
// reservations.  Failures are logged, not returned; the next tick retries.
func (w *Sweeper) Sweep(ctx context.Context) int {
	n, err := w.expirer.ExpireReservations(ctx)
	if err != nil {
		w.log.WithError(err).WithField("expired", n).Error("reservation sweep failed")
		return n
	}
	if n > 0 {
		w.log.WithField("expired", n).Info("expired reservations cancelled")
	} else {
		w.log.Debug("no expired reservations")
	}
	return n
}
