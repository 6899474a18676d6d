//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
)

// ISupervisor keeps background workers of the server alive until shutdown.
type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Stop()
}

// Worker is one background loop, such as telemetry sampling. Run blocks until
// ctx ends; restarts after a panic or an error are the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerName labels w in supervision logs by its concrete type.
func WorkerName(w Worker) string {
	if w == nil {
		return "unknown"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
