package jobrouter

// QueueInfo describes the queue a job was classified into.
type QueueInfo struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name,omitempty"`
	DistributionPolicyID string         `json:"distributionPolicyId,omitempty"`
	Labels               map[string]any `json:"labels,omitempty"`
	ExceptionPolicyID    string         `json:"exceptionPolicyId,omitempty"`
}

// LabelOperator compares a worker label against a selector value.
type LabelOperator string

const (
	OperatorEqual            LabelOperator = "equal"
	OperatorNotEqual         LabelOperator = "notEqual"
	OperatorLessThan         LabelOperator = "lessThan"
	OperatorLessThanEqual    LabelOperator = "lessThanEqual"
	OperatorGreaterThan      LabelOperator = "greaterThan"
	OperatorGreaterThanEqual LabelOperator = "greaterThanEqual"
)

// WorkerSelector is one criterion a worker must satisfy to be offered a job.
type WorkerSelector struct {
	Key           string        `json:"key"`
	LabelOperator LabelOperator `json:"labelOperator"`
	Value         any           `json:"value,omitempty"`
	TTLSeconds    *float64      `json:"ttlSeconds,omitempty"`
	Expedite      bool          `json:"expedite,omitempty"`
	State         string        `json:"state,omitempty"`
	ExpireTime    string        `json:"expireTime,omitempty"`
}
