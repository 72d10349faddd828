//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"presence-chat/domain"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// SweepReport summarizes one presence sweep.
type SweepReport struct {
	Scanned   int
	Evicted   int
	Refreshed int
	Failed    int
	// Err is set when the registry snapshot itself could not be taken.
	Err error
}

// Healthy reports whether the sweep completed without any failure.
func (r SweepReport) Healthy() bool {
	return r.Err == nil && r.Failed == 0
}

// SweepObserver is notified after every sweep.
type SweepObserver interface {
	ObserveSweep(report SweepReport)
}

// MessagePublisher is told about every message once it is stored.
type MessagePublisher interface {
	Publish(event domain.FeedEvent)
}
