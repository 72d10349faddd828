package workers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"presence-chat/contract"
	"presence-chat/domain"
	"presence-chat/errors"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var _ contract.Worker = (*PresenceSweeper)(nil)

// Registry is the part of the chat service the sweeper drives.
type Registry interface {
	ListParticipants() ([]domain.Participant, error)
	Evict(snapshot domain.Participant) error
}

// PresenceSweeper periodically evicts participants whose last activity is
// older than the staleness threshold. Evictions of one sweep run concurrently
// and independently: a failing eviction is logged and counted, never fatal.
type PresenceSweeper struct {
	log       *slog.Logger
	registry  Registry
	observer  contract.SweepObserver
	interval  time.Duration
	threshold time.Duration
	workers   int
	now       func() time.Time
}

func NewPresenceSweeper(
	log *slog.Logger,
	registry Registry,
	observer contract.SweepObserver,
	interval, threshold time.Duration,
	workers int,
	clock func() time.Time,
) *PresenceSweeper {
	if clock == nil {
		clock = time.Now
	}
	return &PresenceSweeper{
		log:       log,
		registry:  registry,
		observer:  observer,
		interval:  interval,
		threshold: threshold,
		workers:   max(workers, 1),
		now:       clock,
	}
}

// Run sweeps every interval until ctx is canceled.
func (w *PresenceSweeper) Run(ctx context.Context) error {
	w.log.Info("Starting presence sweeper", "interval", w.interval, "threshold", w.threshold)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping presence sweeper")
			return nil
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep snapshots the registry and evicts every stale participant once.
func (w *PresenceSweeper) Sweep() contract.SweepReport {
	participants, err := w.registry.ListParticipants()
	if err != nil {
		w.log.Error("Presence sweep could not snapshot the registry", "error", err)
		return w.report(contract.SweepReport{Err: err})
	}

	now := w.now()
	stale := lo.Filter(participants, func(p domain.Participant, _ int) bool {
		return p.IsStale(now, w.threshold)
	})

	var evicted, refreshed, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(w.workers)
	for _, participant := range stale {
		g.Go(func() error {
			err := w.evict(participant)
			switch {
			case err == nil:
				evicted.Add(1)
			case stderrors.Is(err, errors.ErrParticipantRefreshed):
				w.log.Debug("Participant refreshed during sweep, kept", "name", participant.Name)
				refreshed.Add(1)
			case stderrors.Is(err, errors.ErrNotFound):
				w.log.Debug("Participant already gone", "name", participant.Name)
			default:
				w.log.Error("Eviction failed", "name", participant.Name, "error", err)
				failed.Add(1)
			}
			// Failures stay inside this unit of work.
			return nil
		})
	}
	_ = g.Wait()

	return w.report(contract.SweepReport{
		Scanned:   len(participants),
		Evicted:   int(evicted.Load()),
		Refreshed: int(refreshed.Load()),
		Failed:    int(failed.Load()),
	})
}

func (w *PresenceSweeper) evict(participant domain.Participant) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return w.registry.Evict(participant)
}

func (w *PresenceSweeper) report(report contract.SweepReport) contract.SweepReport {
	w.log.Debug("Presence sweep done",
		"scanned", report.Scanned,
		"evicted", report.Evicted,
		"refreshed", report.Refreshed,
		"failed", report.Failed)
	if w.observer != nil {
		w.observer.ObserveSweep(report)
	}
	return report
}
