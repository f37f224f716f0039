package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"jobctl/internal/apperrors"
	"jobctl/internal/observability"
	"jobctl/internal/poll"
)

// Controller binds the mutation and wait mechanisms to a single job. It
// owns the job's identity and the locally cached entity version.
//
// A Controller is not safe for concurrent mutating use: the cached entity
// version is plain state. Callers sharing one across goroutines must
// serialize mutations or accept last-writer-wins caching; the remote
// service remains the sole arbiter of version ordering either way.
type Controller struct {
	gateway Gateway
	opts    Options

	spec    *Spec // snapshot taken at construction, not refreshed
	jobID   string
	version string
}

// Options configures a Controller.
type Options struct {
	// WaitAttempts bounds every polling wait. Zero means 60.
	WaitAttempts int
	// WaitInterval is the sleep between polling attempts. Zero means 1s.
	WaitInterval time.Duration
	// ConflictBackoff is the initial delay between conflict retries,
	// growing exponentially with consecutive conflicts. Zero retries
	// immediately.
	ConflictBackoff time.Duration
	// Metrics records mutation and wait telemetry when non-nil.
	Metrics *observability.Metrics
}

func (o Options) withDefaults() Options {
	if o.WaitAttempts <= 0 {
		o.WaitAttempts = 60
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = time.Second
	}
	return o
}

// New creates a Controller for a job that does not exist yet. Create seeds
// the identity.
func New(gateway Gateway, spec *Spec, opts Options) *Controller {
	return &Controller{
		gateway: gateway,
		opts:    opts.withDefaults(),
		spec:    spec,
	}
}

// Attach creates a Controller for an existing job, seeding the spec
// snapshot and cached entity version from the service.
func Attach(ctx context.Context, gateway Gateway, jobID string, opts Options) (*Controller, error) {
	c := &Controller{
		gateway: gateway,
		opts:    opts.withDefaults(),
		jobID:   jobID,
	}
	info, err := c.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	c.spec = info.Spec
	if info.Status != nil {
		c.version = info.Status.Version
	}
	return c, nil
}

// ID returns the job ID, empty until Create succeeds.
func (c *Controller) ID() string {
	return c.jobID
}

// Version returns the locally cached entity version. It reflects the last
// successful mutation or attach, not necessarily the service's current
// version.
func (c *Controller) Version() string {
	return c.version
}

// Create creates the job and seeds the job ID and entity version. Creation
// is not idempotent: any failure is permanent and nothing is retried.
func (c *Controller) Create(ctx context.Context) error {
	if c.jobID != "" {
		return apperrors.InvalidArgument(string(OpCreateJob), "job already created")
	}
	if c.spec == nil {
		return apperrors.InvalidArgument(string(OpCreateJob), "job spec is required")
	}

	var resp CreateJobResponse
	if err := c.gateway.Invoke(ctx, OpCreateJob, &CreateJobRequest{Spec: c.spec}, &resp); err != nil {
		return err
	}
	if resp.JobID == "" {
		return apperrors.Internal(string(OpCreateJob), errors.New("service returned an empty job id"))
	}

	c.jobID = resp.JobID
	c.version = resp.Version
	slog.Info("job created", "jobId", c.jobID, "version", c.version)
	return nil
}

// Start starts pods of the job. Without ranges it is a versioned job-level
// mutation with conflict retry. With ranges it bypasses concurrency control
// and issues one unversioned StartPod call per instance index in each
// half-open range; a failing pod call aborts the remainder, already started
// pods stay started.
func (c *Controller) Start(ctx context.Context, ranges []InstanceRange, explicitVersion string) (string, error) {
	if len(ranges) > 0 {
		return "", c.eachPodInRanges(ctx, OpStartPod, ranges)
	}
	return c.mutate(ctx, OpStartJob, explicitVersion, func(ctx context.Context, version string) (string, error) {
		var resp StartJobResponse
		req := &StartJobRequest{JobID: c.jobID, Version: version}
		if err := c.gateway.Invoke(ctx, OpStartJob, req, &resp); err != nil {
			return "", err
		}
		return resp.Version, nil
	})
}

// Stop stops pods of the job. Range handling mirrors Start.
func (c *Controller) Stop(ctx context.Context, ranges []InstanceRange, explicitVersion string) (string, error) {
	if len(ranges) > 0 {
		return "", c.eachPodInRanges(ctx, OpStopPod, ranges)
	}
	return c.mutate(ctx, OpStopJob, explicitVersion, func(ctx context.Context, version string) (string, error) {
		var resp StopJobResponse
		req := &StopJobRequest{JobID: c.jobID, Version: version}
		if err := c.gateway.Invoke(ctx, OpStopJob, req, &resp); err != nil {
			return "", err
		}
		return resp.Version, nil
	})
}

// Restart restarts pods of the job, batchSize at a time. Ranges restrict
// the restart to those instances and ride inside the versioned call.
func (c *Controller) Restart(ctx context.Context, batchSize uint32, ranges []InstanceRange, explicitVersion string) (string, error) {
	return c.mutate(ctx, OpRestartJob, explicitVersion, func(ctx context.Context, version string) (string, error) {
		var resp RestartJobResponse
		req := &RestartJobRequest{
			JobID:     c.jobID,
			Version:   version,
			BatchSize: batchSize,
			Ranges:    ranges,
		}
		if err := c.gateway.Invoke(ctx, OpRestartJob, req, &resp); err != nil {
			return "", err
		}
		return resp.Version, nil
	})
}

// Delete deletes the job. Force deletes a running job; the flag is passed
// through uninterpreted. The cached entity version is left untouched since
// delete returns none.
func (c *Controller) Delete(ctx context.Context, explicitVersion string, force bool) error {
	_, err := c.mutate(ctx, OpDeleteJob, explicitVersion, func(ctx context.Context, version string) (string, error) {
		var resp DeleteJobResponse
		req := &DeleteJobRequest{JobID: c.jobID, Version: version, Force: force}
		if err := c.gateway.Invoke(ctx, OpDeleteJob, req, &resp); err != nil {
			return "", err
		}
		return "", nil
	})
	if err != nil {
		return err
	}
	slog.Info("job deleted", "jobId", c.jobID)
	return nil
}

// eachPodInRanges issues one unversioned per-pod call for every instance
// index in every range. Calls are independent; there is no atomicity and no
// rollback.
func (c *Controller) eachPodInRanges(ctx context.Context, op Operation, ranges []InstanceRange) error {
	for _, r := range ranges {
		for i := r.From; i < r.To; i++ {
			name := PodName(c.jobID, i)
			var req, resp any
			switch op {
			case OpStartPod:
				req, resp = &StartPodRequest{PodName: name}, &StartPodResponse{}
			case OpStopPod:
				req, resp = &StopPodRequest{PodName: name}, &StopPodResponse{}
			default:
				return apperrors.InvalidArgument(string(op), "operation does not support ranges")
			}
			if err := c.gateway.Invoke(ctx, op, req, resp); err != nil {
				return err
			}
		}
	}
	slog.Info("range operation issued", "jobId", c.jobID, "op", string(op), "ranges", len(ranges))
	return nil
}

// GetJob returns the full job response including workflow status.
func (c *Controller) GetJob(ctx context.Context) (*GetJobResponse, error) {
	var resp GetJobResponse
	if err := c.gateway.Invoke(ctx, OpGetJob, &GetJobRequest{JobID: c.jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetInfo returns the job's spec and status.
func (c *Controller) GetInfo(ctx context.Context) (*Info, error) {
	resp, err := c.GetJob(ctx)
	if err != nil {
		return nil, err
	}
	if resp.JobInfo == nil {
		return nil, apperrors.Internal(string(OpGetJob), errors.New("service returned no job info"))
	}
	return resp.JobInfo, nil
}

// GetStatus returns the job's runtime status.
func (c *Controller) GetStatus(ctx context.Context) (*Status, error) {
	info, err := c.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	if info.Status == nil {
		return nil, apperrors.Internal(string(OpGetJob), errors.New("service returned no job status"))
	}
	return info.Status, nil
}

// GetSpec returns the job's current spec as known by the service. The
// Controller's own spec snapshot is not refreshed.
func (c *Controller) GetSpec(ctx context.Context) (*Spec, error) {
	info, err := c.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	return info.Spec, nil
}

// QueryPods lists info for all pods of the job.
func (c *Controller) QueryPods(ctx context.Context) ([]PodInfo, error) {
	var resp QueryPodsResponse
	if err := c.gateway.Invoke(ctx, OpQueryPods, &QueryPodsRequest{JobID: c.jobID}, &resp); err != nil {
		return nil, err
	}
	return resp.Pods, nil
}

// GetPodStatus returns the status of one pod by instance index.
func (c *Controller) GetPodStatus(ctx context.Context, instanceID uint32) (*PodStatus, error) {
	var resp GetPodResponse
	req := &GetPodRequest{PodName: PodName(c.jobID, instanceID), StatusOnly: true}
	if err := c.gateway.Invoke(ctx, OpGetPod, req, &resp); err != nil {
		return nil, err
	}
	if resp.Current == nil || resp.Current.Status == nil {
		return nil, apperrors.Internal(string(OpGetPod), errors.New("service returned no pod status"))
	}
	return resp.Current.Status, nil
}

// waitConfig builds the polling bounds from the options.
func (c *Controller) waitConfig() poll.Config {
	return poll.Config{
		MaxAttempts: c.opts.WaitAttempts,
		Interval:    c.opts.WaitInterval,
	}
}

// WaitForState polls until the job reaches goalState, reaches failedState,
// or the attempt budget runs out. States are short names; the job state
// prefix is added before comparison.
func (c *Controller) WaitForState(ctx context.Context, goalState, failedState string) (poll.Outcome, error) {
	goal := JobStateLabel(goalState)
	failed := JobStateLabel(failedState)
	slog.Info("waiting for job state", "jobId", c.jobID, "goal", goal)

	out, err := poll.Run(ctx, c.waitConfig(), c.jobID,
		func(ctx context.Context) (string, error) {
			status, err := c.GetStatus(ctx)
			if err != nil {
				return "", err
			}
			return status.State, nil
		},
		func(state string) poll.Verdict {
			switch state {
			case goal:
				return poll.Success
			case failed:
				return poll.Failure
			default:
				return poll.Continue
			}
		})
	c.recordWait(ctx, "job_state", out, err)
	return out, err
}

// WaitForWorkflowState polls the job's workflow status instead of the job
// status. States are short names; the workflow state prefix is added.
func (c *Controller) WaitForWorkflowState(ctx context.Context, goalState, failedState string) (poll.Outcome, error) {
	goal := WorkflowStateLabel(goalState)
	failed := WorkflowStateLabel(failedState)
	slog.Info("waiting for workflow state", "jobId", c.jobID, "goal", goal)

	out, err := poll.Run(ctx, c.waitConfig(), c.jobID,
		func(ctx context.Context) (string, error) {
			resp, err := c.GetJob(ctx)
			if err != nil {
				return "", err
			}
			if resp.WorkflowInfo == nil || resp.WorkflowInfo.Status == nil {
				return "", apperrors.NotFound("workflow", c.jobID)
			}
			return resp.WorkflowInfo.Status.State, nil
		},
		func(state string) poll.Verdict {
			switch state {
			case goal:
				return poll.Success
			case failed:
				return poll.Failure
			default:
				return poll.Continue
			}
		})
	c.recordWait(ctx, "workflow_state", out, err)
	return out, err
}

// WaitForTerminated polls until the job reaches any terminal state. Every
// terminal state counts as success; there is no failure state.
func (c *Controller) WaitForTerminated(ctx context.Context) (poll.Outcome, error) {
	slog.Info("waiting for terminal state", "jobId", c.jobID)

	out, err := poll.Run(ctx, c.waitConfig(), c.jobID,
		func(ctx context.Context) (string, error) {
			status, err := c.GetStatus(ctx)
			if err != nil {
				return "", err
			}
			return status.State, nil
		},
		func(state string) poll.Verdict {
			if IsTerminalJobState(state) {
				return poll.Success
			}
			return poll.Continue
		})
	c.recordWait(ctx, "terminated", out, err)
	return out, err
}

// WaitForCondition polls an arbitrary predicate under the same attempt
// budget and interval as the state waits.
func (c *Controller) WaitForCondition(ctx context.Context, cond poll.Condition) (poll.Outcome, error) {
	out, err := poll.Until(ctx, c.waitConfig(), c.jobID, cond)
	c.recordWait(ctx, "condition", out, err)
	return out, err
}

// WaitForAllPodsRunning polls until every pod of the job is running. The
// instance count comes from the spec snapshot taken at construction; it is
// not refreshed, so an externally resized job is waited on at its old size.
func (c *Controller) WaitForAllPodsRunning(ctx context.Context) (poll.Outcome, error) {
	count := c.instanceCount()
	out, err := poll.Until(ctx, c.waitConfig(), c.jobID,
		func(ctx context.Context) (bool, error) {
			var running uint32
			for i := uint32(0); i < count; i++ {
				status, err := c.GetPodStatus(ctx, i)
				if err != nil {
					return false, err
				}
				if status.State == PodStateRunning {
					running++
				}
			}
			return running == count, nil
		})
	c.recordWait(ctx, "all_pods_running", out, err)
	return out, err
}

func (c *Controller) instanceCount() uint32 {
	if c.spec == nil {
		return 0
	}
	return c.spec.InstanceCount
}

func (c *Controller) recordWait(ctx context.Context, kind string, out poll.Outcome, err error) {
	if c.opts.Metrics == nil {
		return
	}
	c.opts.Metrics.RecordWait(ctx, kind, out.Reached && err == nil, out.Attempts, out.Elapsed.Seconds())
}
