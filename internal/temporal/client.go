package temporal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Batch status values returned by Dispatcher.Status.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrBatchNotFound is returned for unknown workflow ids.
var ErrBatchNotFound = errors.New("batch not found")

// Submission identifies a started batch.
type Submission struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

// BatchStatus is the state of a batch and, once completed, its output.
type BatchStatus struct {
	WorkflowID string       `json:"workflowId"`
	Status     string       `json:"status"`
	Output     *BatchOutput `json:"output,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Dispatcher submits batches to a Temporal cluster.
type Dispatcher struct {
	client    client.Client
	taskQueue string
}

// NewDispatcher returns a dispatcher using c.
func NewDispatcher(c client.Client, taskQueue string) *Dispatcher {
	return &Dispatcher{client: c, taskQueue: taskQueue}
}

// Submit starts BatchTransformWorkflow for in.
func (d *Dispatcher) Submit(ctx context.Context, in BatchInput) (Submission, error) {
	opts := client.StartWorkflowOptions{
		ID:        "phoenix-batch-" + uuid.NewString(),
		TaskQueue: d.taskQueue,
	}
	run, err := d.client.ExecuteWorkflow(ctx, opts, BatchTransformWorkflow, in)
	if err != nil {
		return Submission{}, fmt.Errorf("starting batch workflow: %w", err)
	}
	return Submission{WorkflowID: run.GetID(), RunID: run.GetRunID()}, nil
}

// Status reports the state of workflowID without blocking.
func (d *Dispatcher) Status(ctx context.Context, workflowID string) (BatchStatus, error) {
	desc, err := d.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return BatchStatus{}, fmt.Errorf("%w: %v", ErrBatchNotFound, err)
		}
		return BatchStatus{}, fmt.Errorf("describing batch %s: %w", workflowID, err)
	}
	st := BatchStatus{WorkflowID: workflowID}
	switch desc.GetWorkflowExecutionInfo().GetStatus() {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		st.Status = StatusRunning
		return st, nil
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var out BatchOutput
		if err := d.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &out); err != nil {
			return BatchStatus{}, fmt.Errorf("reading batch result: %w", err)
		}
		st.Status = StatusCompleted
		st.Output = &out
		return st, nil
	default:
		st.Status = StatusFailed
		st.Error = desc.GetWorkflowExecutionInfo().GetStatus().String()
		return st, nil
	}
}
