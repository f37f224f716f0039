package job

import (
	"context"
	"strconv"
)

// PodName derives a pod's externally visible name from the owning job ID
// and the instance index. It is computed on demand and never stored; the
// job ID is immutable so the derivation cannot go stale.
func PodName(jobID string, instanceID uint32) string {
	return jobID + "-" + strconv.FormatUint(uint64(instanceID), 10)
}

// Pod is a lightweight, freely copyable reference to one instance of a
// job. It owns no RPC resources.
type Pod struct {
	job        *Controller
	instanceID uint32
}

// GetPod returns a reference to the pod at the given instance index.
func (c *Controller) GetPod(instanceID uint32) Pod {
	return Pod{job: c, instanceID: instanceID}
}

// GetPods returns references to all pods of the job, enumerated from the
// spec snapshot's instance count. The snapshot is not refreshed, so the
// result can lag an externally resized job.
func (c *Controller) GetPods() []Pod {
	count := c.instanceCount()
	pods := make([]Pod, 0, count)
	for i := uint32(0); i < count; i++ {
		pods = append(pods, Pod{job: c, instanceID: i})
	}
	return pods
}

// Name returns the pod's derived name.
func (p Pod) Name() string {
	return PodName(p.job.ID(), p.instanceID)
}

// InstanceID returns the pod's instance index within its job.
func (p Pod) InstanceID() uint32 {
	return p.instanceID
}

// GetStatus returns the pod's runtime status.
func (p Pod) GetStatus(ctx context.Context) (*PodStatus, error) {
	return p.job.GetPodStatus(ctx, p.instanceID)
}

// GetEvents returns the pod's state transition history.
func (p Pod) GetEvents(ctx context.Context) ([]PodEvent, error) {
	var resp GetPodEventsResponse
	req := &GetPodEventsRequest{PodName: p.Name()}
	if err := p.job.gateway.Invoke(ctx, OpGetPodEvents, req, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// ShortState returns the pod's current state without the service prefix,
// e.g. "RUNNING" instead of "POD_STATE_RUNNING".
func (p Pod) ShortState(ctx context.Context) (string, error) {
	status, err := p.GetStatus(ctx)
	if err != nil {
		return "", err
	}
	return ShortPodState(status.State), nil
}
