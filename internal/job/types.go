package job

// Spec describes a job to the cluster service.
type Spec struct {
	Name          string            `json:"name"`
	Owner         string            `json:"owner,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
	InstanceCount uint32            `json:"instanceCount"`
	RespoolID     string            `json:"respoolId,omitempty"`
	Priority      uint32            `json:"priority,omitempty"`
	Preemptible   bool              `json:"preemptible,omitempty"`
	DefaultSpec   *PodSpec          `json:"defaultSpec,omitempty"`
}

// PodSpec describes the containers a pod runs.
type PodSpec struct {
	Containers []ContainerSpec `json:"containers,omitempty"`
}

// ContainerSpec describes a single container.
type ContainerSpec struct {
	Name     string        `json:"name"`
	Image    string        `json:"image"`
	Command  []string      `json:"command,omitempty"`
	Resource *ResourceSpec `json:"resource,omitempty"`
}

// ResourceSpec holds per-container resource limits.
type ResourceSpec struct {
	CPULimit   float64 `json:"cpuLimit,omitempty"`
	MemLimitMB float64 `json:"memLimitMb,omitempty"`
}

// Status is the observed runtime status of a job. Version is the entity
// version token the service advances on every accepted mutation; the client
// passes it through and never interprets or orders it.
type Status struct {
	State    string            `json:"state"`
	Version  string            `json:"version"`
	PodStats map[string]uint32 `json:"podStats,omitempty"`
}

// Info pairs a job's spec with its status.
type Info struct {
	Spec   *Spec   `json:"spec,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// WorkflowStatus is the status of an in-progress workflow (update/restart)
// on a job.
type WorkflowStatus struct {
	State             string `json:"state"`
	NumInstancesDone  uint32 `json:"numInstancesDone,omitempty"`
	NumInstancesTotal uint32 `json:"numInstancesTotal,omitempty"`
}

// WorkflowInfo describes the job's current workflow, if any.
type WorkflowInfo struct {
	Status *WorkflowStatus `json:"status,omitempty"`
}

// PodStatus is the observed runtime status of a single pod.
type PodStatus struct {
	State   string `json:"state"`
	PodID   string `json:"podId,omitempty"`
	Host    string `json:"host,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Version string `json:"version,omitempty"`
}

// PodInfo pairs a pod's status with its name.
type PodInfo struct {
	Name   string     `json:"name"`
	Status *PodStatus `json:"status,omitempty"`
}

// PodEvent is one entry of a pod's state transition history.
type PodEvent struct {
	Timestamp    string `json:"timestamp"`
	ActualState  string `json:"actualState"`
	DesiredState string `json:"desiredState,omitempty"`
	Version      string `json:"version,omitempty"`
	Message      string `json:"message,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
}

// InstanceRange is a half-open interval [From, To) of pod instance indices.
type InstanceRange struct {
	From uint32 `json:"from"`
	To   uint32 `json:"to"`
}

// CreateJobRequest creates a new job from a spec.
type CreateJobRequest struct {
	Spec *Spec `json:"spec"`
}

// CreateJobResponse carries the service-assigned job ID and the initial
// entity version.
type CreateJobResponse struct {
	JobID   string `json:"jobId"`
	Version string `json:"version"`
}

// StartJobRequest starts all pods of a job.
type StartJobRequest struct {
	JobID   string `json:"jobId"`
	Version string `json:"version"`
}

// StartJobResponse carries the advanced entity version.
type StartJobResponse struct {
	Version string `json:"version"`
}

// StopJobRequest stops all pods of a job.
type StopJobRequest struct {
	JobID   string `json:"jobId"`
	Version string `json:"version"`
}

// StopJobResponse carries the advanced entity version.
type StopJobResponse struct {
	Version string `json:"version"`
}

// RestartJobRequest restarts pods of a job. Ranges, when set, restrict the
// restart to those instances; they ride inside the versioned call, unlike
// the per-pod bypass used by Start and Stop.
type RestartJobRequest struct {
	JobID     string          `json:"jobId"`
	Version   string          `json:"version"`
	BatchSize uint32          `json:"batchSize,omitempty"`
	Ranges    []InstanceRange `json:"ranges,omitempty"`
}

// RestartJobResponse carries the advanced entity version.
type RestartJobResponse struct {
	Version string `json:"version"`
}

// DeleteJobRequest deletes a job. Force requests deletion of a running job;
// the flag is passed through uninterpreted.
type DeleteJobRequest struct {
	JobID   string `json:"jobId"`
	Version string `json:"version"`
	Force   bool   `json:"force,omitempty"`
}

// DeleteJobResponse is empty: delete does not return a new entity version.
type DeleteJobResponse struct{}

// GetJobRequest fetches a job's spec, status and workflow status.
type GetJobRequest struct {
	JobID string `json:"jobId"`
}

// GetJobResponse holds the job info and, if a workflow is in progress, its
// status.
type GetJobResponse struct {
	JobInfo      *Info         `json:"jobInfo,omitempty"`
	WorkflowInfo *WorkflowInfo `json:"workflowInfo,omitempty"`
}

// QueryPodsRequest lists the pods of a job.
type QueryPodsRequest struct {
	JobID string `json:"jobId"`
}

// QueryPodsResponse holds the matching pods.
type QueryPodsResponse struct {
	Pods []PodInfo `json:"pods,omitempty"`
}

// StartPodRequest starts a single pod by name, without concurrency control.
type StartPodRequest struct {
	PodName string `json:"podName"`
}

// StartPodResponse is empty.
type StartPodResponse struct{}

// StopPodRequest stops a single pod by name, without concurrency control.
type StopPodRequest struct {
	PodName string `json:"podName"`
}

// StopPodResponse is empty.
type StopPodResponse struct{}

// GetPodRequest fetches a pod's info. StatusOnly skips the spec.
type GetPodRequest struct {
	PodName    string `json:"podName"`
	StatusOnly bool   `json:"statusOnly,omitempty"`
}

// GetPodResponse holds the pod's current info.
type GetPodResponse struct {
	Current *PodInfo `json:"current,omitempty"`
}

// GetPodEventsRequest fetches a pod's state transition history.
type GetPodEventsRequest struct {
	PodName string `json:"podName"`
}

// GetPodEventsResponse holds the pod's events, most recent first.
type GetPodEventsResponse struct {
	Events []PodEvent `json:"events,omitempty"`
}
