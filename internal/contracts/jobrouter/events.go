// Package jobrouter holds the job-router event contracts
// (2021-10-20-preview generation).
package jobrouter

// RouterJobReceived is raised when a job is created.
type RouterJobReceived struct {
	JobID                    string           `json:"jobId"`
	ChannelReference         string           `json:"channelReference"`
	ChannelID                string           `json:"channelId"`
	ClassificationPolicyID   string           `json:"classificationPolicyId,omitempty"`
	QueueID                  string           `json:"queueId,omitempty"`
	Priority                 *int             `json:"priority,omitempty"`
	Labels                   map[string]any   `json:"labels,omitempty"`
	Tags                     map[string]any   `json:"tags,omitempty"`
	RequestedWorkerSelectors []WorkerSelector `json:"requestedWorkerSelectors,omitempty"`
	JobStatus                string           `json:"jobStatus,omitempty"`
}

// RouterJobClassified is raised when a classification policy ran on a job.
type RouterJobClassified struct {
	QueueInfo               QueueInfo        `json:"queueInfo"`
	JobID                   string           `json:"jobId"`
	ChannelReference        string           `json:"channelReference"`
	ChannelID               string           `json:"channelId"`
	ClassificationPolicyID  string           `json:"classificationPolicyId,omitempty"`
	QueueID                 string           `json:"queueId,omitempty"`
	Priority                *int             `json:"priority,omitempty"`
	Labels                  map[string]any   `json:"labels"`
	Tags                    map[string]any   `json:"tags"`
	AttachedWorkerSelectors []WorkerSelector `json:"attachedWorkerSelectors,omitempty"`
}

// RouterJobQueued is raised when a job entered a queue.
type RouterJobQueued struct {
	JobID                   string           `json:"jobId"`
	ChannelReference        string           `json:"channelReference"`
	ChannelID               string           `json:"channelId"`
	QueueID                 string           `json:"queueId"`
	Priority                *int             `json:"priority,omitempty"`
	Labels                  map[string]any   `json:"labels,omitempty"`
	Tags                    map[string]any   `json:"tags,omitempty"`
	AttachedWorkerSelectors []WorkerSelector `json:"attachedWorkerSelectors,omitempty"`
}

// RouterJobCancelled is raised when a job was cancelled before completion.
type RouterJobCancelled struct {
	Note             string         `json:"note,omitempty"`
	DispositionCode  string         `json:"dispositionCode"`
	JobID            string         `json:"jobId"`
	ChannelReference string         `json:"channelReference"`
	ChannelID        string         `json:"channelId"`
	Labels           map[string]any `json:"labels,omitempty"`
	Tags             map[string]any `json:"tags"`
	QueueID          string         `json:"queueId,omitempty"`
}

// RouterJobCompleted is raised when the assigned worker completed the job.
type RouterJobCompleted struct {
	JobID            string         `json:"jobId"`
	AssignmentID     string         `json:"assignmentId"`
	WorkerID         string         `json:"workerId"`
	ChannelReference string         `json:"channelReference"`
	ChannelID        string         `json:"channelId"`
	QueueID          string         `json:"queueId,omitempty"`
	Labels           map[string]any `json:"labels,omitempty"`
	Tags             map[string]any `json:"tags,omitempty"`
}

// RouterJobClosed is raised when a completed job was closed.
type RouterJobClosed struct {
	JobID            string         `json:"jobId"`
	AssignmentID     string         `json:"assignmentId"`
	WorkerID         string         `json:"workerId"`
	DispositionCode  string         `json:"dispositionCode,omitempty"`
	ChannelReference string         `json:"channelReference"`
	ChannelID        string         `json:"channelId"`
	QueueID          string         `json:"queueId,omitempty"`
	Labels           map[string]any `json:"labels,omitempty"`
	Tags             map[string]any `json:"tags,omitempty"`
}

// RouterWorkerOfferIssued is raised when a job was offered to a worker.
type RouterWorkerOfferIssued struct {
	WorkerID         string         `json:"workerId"`
	JobID            string         `json:"jobId"`
	OfferID          string         `json:"offerId"`
	ChannelReference string         `json:"channelReference"`
	ChannelID        string         `json:"channelId"`
	QueueID          string         `json:"queueId,omitempty"`
	JobPriority      int            `json:"jobPriority"`
	OfferTimeUTC     string         `json:"offerTimeUtc,omitempty"`
	ExpiryTimeUTC    string         `json:"expiryTimeUtc,omitempty"`
	WorkerLabels     map[string]any `json:"workerLabels,omitempty"`
	JobLabels        map[string]any `json:"jobLabels,omitempty"`
	JobTags          map[string]any `json:"jobTags,omitempty"`
}

// RouterWorkerOfferAccepted is raised when a worker accepted an offer.
type RouterWorkerOfferAccepted struct {
	WorkerID         string         `json:"workerId"`
	JobID            string         `json:"jobId"`
	OfferID          string         `json:"offerId"`
	AssignmentID     string         `json:"assignmentId"`
	ChannelReference string         `json:"channelReference"`
	ChannelID        string         `json:"channelId"`
	QueueID          string         `json:"queueId,omitempty"`
	JobPriority      int            `json:"jobPriority"`
	WorkerLabels     map[string]any `json:"workerLabels,omitempty"`
	JobLabels        map[string]any `json:"jobLabels,omitempty"`
	JobTags          map[string]any `json:"jobTags,omitempty"`
}
