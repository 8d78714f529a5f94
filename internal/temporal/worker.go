package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a worker for the batch workflow.
func StartWorker(c client.Client, taskQueue string, acts *Activities) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})
	Register(w, acts)
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// Register adds the batch workflow and its activities to r.
func Register(r worker.Registry, acts *Activities) {
	r.RegisterWorkflow(BatchTransformWorkflow)
	r.RegisterActivity(acts)
}
