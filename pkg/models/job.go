package models

// JobState is the internal lifecycle state of an asynchronous generation job.
// The set mirrors every state the dispatcher backend can report; clients only
// ever see the coarse external status from Map.
type JobState string

const (
	JobPending  JobState = "PENDING"
	JobReceived JobState = "RECEIVED"
	JobStarted  JobState = "STARTED"
	JobSuccess  JobState = "SUCCESS"
	JobFailure  JobState = "FAILURE"
	JobRevoked  JobState = "REVOKED"
	JobRejected JobState = "REJECTED"
	JobRetry    JobState = "RETRY"
	JobIgnored  JobState = "IGNORED"
)

// External job statuses surfaced by the status endpoint.
const (
	StatusPending  = "pending"
	StatusStarted  = "started"
	StatusComplete = "complete"
	StatusError    = "error"
)

type jobStateInfo struct {
	status      string
	description string
}

var jobStates = map[JobState]jobStateInfo{
	JobPending:  {StatusPending, "Task state unknown, assumed pending since there is an ID."},
	JobReceived: {StatusPending, "Task was received by a worker."},
	JobStarted:  {StatusStarted, "Task has been started by a worker."},
	JobSuccess:  {StatusComplete, "Task completed successfully."},
	JobFailure:  {StatusError, "Task failed with an error."},
	JobRevoked:  {StatusError, "Task was revoked and will not be executed."},
	JobRejected: {StatusError, "Task was rejected by the worker."},
	JobRetry:    {StatusPending, "Task is waiting for retry."},
	JobIgnored:  {StatusError, "Task was ignored and will not be executed."},
}

// Map returns the coarse external status and human description for a state.
// Unknown states are treated as pending, matching the backend's convention
// that absence of information is not an error.
func (s JobState) Map() (status, description string) {
	info, ok := jobStates[s]
	if !ok {
		info = jobStates[JobPending]
	}
	return info.status, info.description
}

// Terminal reports whether the state will never change again.
func (s JobState) Terminal() bool {
	switch s {
	case JobSuccess, JobFailure, JobRevoked, JobRejected, JobIgnored:
		return true
	}
	return false
}
