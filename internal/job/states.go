package job

import "strings"

// State label prefixes used by the service enumerations. Callers supply
// short names ("SUCCEEDED"); the facade adds the prefix before comparison
// and strips it when exposing a pod state as a short name.
const (
	JobStatePrefix      = "JOB_STATE_"
	WorkflowStatePrefix = "WORKFLOW_STATE_"
	PodStatePrefix      = "POD_STATE_"
)

// Full pod state labels the client compares against.
const (
	PodStateRunning = PodStatePrefix + "RUNNING"
)

// terminalJobStates are the states after which a job no longer transitions
// on its own.
var terminalJobStates = []string{
	JobStatePrefix + "SUCCEEDED",
	JobStatePrefix + "FAILED",
	JobStatePrefix + "KILLED",
}

// JobStateLabel converts a short job state name to the full service label.
func JobStateLabel(short string) string {
	return JobStatePrefix + short
}

// WorkflowStateLabel converts a short workflow state name to the full
// service label.
func WorkflowStateLabel(short string) string {
	return WorkflowStatePrefix + short
}

// ShortPodState strips the pod state prefix from a full label.
func ShortPodState(label string) string {
	return strings.TrimPrefix(label, PodStatePrefix)
}

// IsTerminalJobState reports whether the full job state label is terminal.
func IsTerminalJobState(label string) bool {
	for _, s := range terminalJobStates {
		if label == s {
			return true
		}
	}
	return false
}
