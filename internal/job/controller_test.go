package job

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"jobctl/internal/apperrors"
	"jobctl/internal/poll"
)

func TestCreate_SeedsIdentity(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpCreateJob, func(n int, req, resp any) error {
		if req.(*CreateJobRequest).Spec == nil {
			t.Error("Expected the spec on the wire")
		}
		r := resp.(*CreateJobResponse)
		r.JobID = "job-abc"
		r.Version = "1-0-0"
		return nil
	})

	c := New(gw, &Spec{Name: "test", InstanceCount: 2, RespoolID: "pool-1"}, Options{})
	if err := c.Create(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.ID() != "job-abc" {
		t.Errorf("Expected job ID job-abc, got %s", c.ID())
	}
	if c.Version() != "1-0-0" {
		t.Errorf("Expected seeded version 1-0-0, got %s", c.Version())
	}

	// Creation is not idempotent.
	if err := c.Create(context.Background()); err == nil {
		t.Error("Expected second create to fail")
	}
	if gw.calls[OpCreateJob] != 1 {
		t.Errorf("Expected a single create RPC, got %d", gw.calls[OpCreateJob])
	}
}

func TestCreate_FailurePermanent(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpCreateJob, func(n int, req, resp any) error {
		return apperrors.Unavailable("CreateJob", errors.New("connection refused"))
	})

	c := New(gw, &Spec{Name: "test"}, Options{})
	err := c.Create(context.Background())
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("Expected the RPC error unchanged, got %v", err)
	}
	if gw.calls[OpCreateJob] != 1 {
		t.Errorf("Create must never retry, got %d calls", gw.calls[OpCreateJob])
	}
	if c.ID() != "" {
		t.Errorf("Identity must stay unseeded on failure, got %s", c.ID())
	}
}

func TestAttach_SeedsFromService(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpGetJob, func(n int, req, resp any) error {
		r := resp.(*GetJobResponse)
		r.JobInfo = &Info{
			Spec:   &Spec{Name: "test", InstanceCount: 5},
			Status: &Status{State: "JOB_STATE_RUNNING", Version: "4-0-0"},
		}
		return nil
	})

	c, err := Attach(context.Background(), gw, "job-xyz", Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.Version() != "4-0-0" {
		t.Errorf("Expected version 4-0-0, got %s", c.Version())
	}
	if len(c.GetPods()) != 5 {
		t.Errorf("Expected 5 pods from the attached spec, got %d", len(c.GetPods()))
	}
}

func TestStart_RangeModeBypassesVersioning(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpStartPod, func(n int, req, resp any) error { return nil })

	c := testController(gw, "job-1", "1-0-0")
	ranges := []InstanceRange{{From: 0, To: 2}, {From: 5, To: 6}}
	version, err := c.Start(context.Background(), ranges, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if version != "" {
		t.Errorf("Range mode returns no version, got %s", version)
	}

	want := map[string]bool{"job-1-0": true, "job-1-1": true, "job-1-5": true}
	if gw.calls[OpStartPod] != len(want) {
		t.Fatalf("Expected %d pod calls, got %d", len(want), gw.calls[OpStartPod])
	}
	for _, req := range gw.reqs[OpStartPod] {
		name := req.(*StartPodRequest).PodName
		if !want[name] {
			t.Errorf("Unexpected pod call for %s", name)
		}
		delete(want, name)
	}
	if gw.calls[OpStartJob] != 0 {
		t.Error("Range mode must not issue the versioned job-level call")
	}
	if c.Version() != "1-0-0" {
		t.Errorf("Range mode must not touch the cached version, got %s", c.Version())
	}
}

func TestStop_RangeFailureAbortsWithoutRollback(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpStopPod, func(n int, req, resp any) error {
		if req.(*StopPodRequest).PodName == "job-1-5" {
			return apperrors.NotFound("pod", "job-1-5")
		}
		return nil
	})

	c := testController(gw, "job-1", "1-0-0")
	ranges := []InstanceRange{{From: 0, To: 2}, {From: 5, To: 7}}
	_, err := c.Stop(context.Background(), ranges, "")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("Expected the pod failure to propagate, got %v", err)
	}
	// Indices 0 and 1 were already stopped, index 5 failed, index 6 was
	// never attempted. No rollback happens.
	if gw.calls[OpStopPod] != 3 {
		t.Errorf("Expected 3 pod calls before aborting, got %d", gw.calls[OpStopPod])
	}
}

func TestRestart_RangesRideInsideVersionedCall(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpRestartJob, func(n int, req, resp any) error {
		r := req.(*RestartJobRequest)
		if len(r.Ranges) != 1 || r.Ranges[0].From != 2 || r.Ranges[0].To != 4 {
			t.Errorf("Expected ranges in the restart payload, got %+v", r.Ranges)
		}
		if r.BatchSize != 1 {
			t.Errorf("Expected batch size 1, got %d", r.BatchSize)
		}
		if r.Version != "1-0-0" {
			t.Errorf("Expected the versioned call, got version %q", r.Version)
		}
		resp.(*RestartJobResponse).Version = "2-0-0"
		return nil
	})

	c := testController(gw, "job-1", "1-0-0")
	version, err := c.Restart(context.Background(), 1, []InstanceRange{{From: 2, To: 4}}, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if version != "2-0-0" {
		t.Errorf("Expected version 2-0-0, got %s", version)
	}
	if gw.calls[OpStartPod]+gw.calls[OpStopPod] != 0 {
		t.Error("Restart ranges must not trigger per-pod calls")
	}
}

func TestGetStatus_IdempotentReads(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpGetJob, respondStatus("JOB_STATE_RUNNING", "5-0-0"))

	c := testController(gw, "job-1", "1-0-0")
	first, err := c.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := c.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first.State != second.State || first.Version != second.Version {
		t.Errorf("Consecutive reads differ: %+v vs %+v", first, second)
	}
	if c.Version() != "1-0-0" {
		t.Errorf("Pure reads must never touch the cached version, got %s", c.Version())
	}
}

func TestGetPodStatus_UsesDerivedName(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpGetPod, func(n int, req, resp any) error {
		r := req.(*GetPodRequest)
		if r.PodName != "job-1-2" {
			t.Errorf("Expected pod name job-1-2, got %s", r.PodName)
		}
		if !r.StatusOnly {
			t.Error("Expected a status-only fetch")
		}
		resp.(*GetPodResponse).Current = &PodInfo{Status: &PodStatus{State: "POD_STATE_RUNNING"}}
		return nil
	})

	c := testController(gw, "job-1", "1-0-0")
	status, err := c.GetPodStatus(context.Background(), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status.State != "POD_STATE_RUNNING" {
		t.Errorf("Unexpected state %s", status.State)
	}
}

func TestQueryPods(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpQueryPods, func(n int, req, resp any) error {
		resp.(*QueryPodsResponse).Pods = []PodInfo{
			{Name: "job-1-0", Status: &PodStatus{State: "POD_STATE_RUNNING"}},
			{Name: "job-1-1", Status: &PodStatus{State: "POD_STATE_PENDING"}},
		}
		return nil
	})

	c := testController(gw, "job-1", "1-0-0")
	pods, err := c.QueryPods(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(pods) != 2 {
		t.Errorf("Expected 2 pods, got %d", len(pods))
	}
}

func TestWaitForState_AddsPrefixAndReachesGoal(t *testing.T) {
	t.Parallel()

	states := []string{"JOB_STATE_PENDING", "JOB_STATE_PENDING", "JOB_STATE_RUNNING"}
	gw := newFakeGateway()
	gw.on(OpGetJob, func(n int, req, resp any) error {
		state := states[len(states)-1]
		if n <= len(states) {
			state = states[n-1]
		}
		resp.(*GetJobResponse).JobInfo = &Info{Status: &Status{State: state, Version: "1-0-0"}}
		return nil
	})

	c := testController(gw, "job-1", "1-0-0")
	out, err := c.WaitForState(context.Background(), "RUNNING", "FAILED")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !out.Reached || out.Attempts != 3 {
		t.Errorf("Expected goal after 3 attempts, got %+v", out)
	}
	if gw.calls[OpGetJob] != 3 {
		t.Errorf("Expected exactly 3 fetches, got %d", gw.calls[OpGetJob])
	}
}

func TestWaitForState_FailureStateDistinguished(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpGetJob, func(n int, req, resp any) error {
		state := "JOB_STATE_PENDING"
		if n >= 2 {
			state = "JOB_STATE_FAILED"
		}
		resp.(*GetJobResponse).JobInfo = &Info{Status: &Status{State: state, Version: "1-0-0"}}
		return nil
	})

	c := testController(gw, "job-1", "1-0-0")
	_, err := c.WaitForState(context.Background(), "SUCCEEDED", "FAILED")

	var failErr *poll.FailureStateError
	if !errors.As(err, &failErr) {
		t.Fatalf("Expected FailureStateError, got %v", err)
	}
	if failErr.State != "JOB_STATE_FAILED" {
		t.Errorf("Expected JOB_STATE_FAILED, got %s", failErr.State)
	}
}

func TestWaitForState_BudgetExhaustion(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpGetJob, respondStatus("JOB_STATE_PENDING", "1-0-0"))

	c := New(gw, &Spec{Name: "test"}, Options{WaitAttempts: 5, WaitInterval: 1})
	c.jobID = "job-1"
	_, err := c.WaitForState(context.Background(), "RUNNING", "FAILED")

	var exhausted *poll.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Expected ExhaustedError, got %v", err)
	}
	if gw.calls[OpGetJob] != 5 {
		t.Errorf("Expected exactly 5 fetches, got %d", gw.calls[OpGetJob])
	}
}

func TestWaitForWorkflowState(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpGetJob, func(n int, req, resp any) error {
		r := resp.(*GetJobResponse)
		r.JobInfo = &Info{Status: &Status{State: "JOB_STATE_RUNNING", Version: "1-0-0"}}
		state := "WORKFLOW_STATE_ROLLING_FORWARD"
		if n >= 3 {
			state = "WORKFLOW_STATE_SUCCEEDED"
		}
		r.WorkflowInfo = &WorkflowInfo{Status: &WorkflowStatus{State: state}}
		return nil
	})

	c := testController(gw, "job-1", "1-0-0")
	out, err := c.WaitForWorkflowState(context.Background(), "SUCCEEDED", "FAILED")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.LastState != "WORKFLOW_STATE_SUCCEEDED" {
		t.Errorf("Expected workflow success, got %s", out.LastState)
	}
}

func TestWaitForTerminated_AnyTerminalStateSucceeds(t *testing.T) {
	t.Parallel()

	for _, terminal := range []string{"SUCCEEDED", "FAILED", "KILLED"} {
		terminal := terminal
		t.Run(terminal, func(t *testing.T) {
			t.Parallel()

			gw := newFakeGateway()
			gw.on(OpGetJob, func(n int, req, resp any) error {
				state := "JOB_STATE_RUNNING"
				if n >= 2 {
					state = "JOB_STATE_" + terminal
				}
				resp.(*GetJobResponse).JobInfo = &Info{Status: &Status{State: state, Version: "1-0-0"}}
				return nil
			})

			c := testController(gw, "job-1", "1-0-0")
			out, err := c.WaitForTerminated(context.Background())
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !out.Reached {
				t.Errorf("Expected %s to count as terminal", terminal)
			}
		})
	}
}

func TestWaitForState_TransientReadConsumesAttempt(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpGetJob, func(n int, req, resp any) error {
		if n == 1 {
			return apperrors.Unavailable("GetJob", fmt.Errorf("connection reset"))
		}
		resp.(*GetJobResponse).JobInfo = &Info{Status: &Status{State: "JOB_STATE_RUNNING", Version: "1-0-0"}}
		return nil
	})

	c := testController(gw, "job-1", "1-0-0")
	out, err := c.WaitForState(context.Background(), "RUNNING", "FAILED")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Attempts != 2 {
		t.Errorf("Expected the failed read to consume an attempt, got %d", out.Attempts)
	}
}

func TestWaitForCondition(t *testing.T) {
	t.Parallel()

	c := testController(newFakeGateway(), "job-1", "1-0-0")
	n := 0
	out, err := c.WaitForCondition(context.Background(), func(ctx context.Context) (bool, error) {
		n++
		return n >= 2, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !out.Reached || n != 2 {
		t.Errorf("Expected condition met on evaluation 2, got %d (%+v)", n, out)
	}
}

func TestWaitForAllPodsRunning(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.on(OpGetPod, func(n int, req, resp any) error {
		// Three pods per round; the last pod starts running on round two.
		state := "POD_STATE_RUNNING"
		if n == 3 {
			state = "POD_STATE_STARTING"
		}
		resp.(*GetPodResponse).Current = &PodInfo{Status: &PodStatus{State: state}}
		return nil
	})

	c := testController(gw, "job-1", "1-0-0")
	out, err := c.WaitForAllPodsRunning(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !out.Reached {
		t.Error("Expected all pods running")
	}
	if out.Attempts != 2 {
		t.Errorf("Expected success on the second round, got %d", out.Attempts)
	}
}
