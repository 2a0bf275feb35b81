// Package transport defines the plain, JSON-serializable request and
// response envelopes every operation speaks. The wire protocol (HTTP, MCP,
// a message queue) lives outside this module; transport only fixes the
// shape both sides agree on.
package transport

// Status is the outcome of a single operation call.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusPartial   Status = "PARTIAL"
	StatusNotFound  Status = "NOT_FOUND"
	StatusFailed    Status = "FAILED"
	StatusForbidden Status = "FORBIDDEN"
	StatusRetry     Status = "RETRY"
)

// Request is the shared envelope every operation accepts. Payload carries
// the operation-specific fields as a plain map so the envelope itself never
// needs to change shape when an operation's payload does.
type Request struct {
	TaskName      string         `json:"task_name"`
	TaskID        string         `json:"task_id,omitempty"`
	WorkflowID    string         `json:"workflow_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Payload       map[string]any `json:"payload"`
}

// Response is the shared envelope every operation returns.
type Response struct {
	Status       Status         `json:"status"`
	AgentID      string         `json:"agent_id"`
	Result       map[string]any `json:"result,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Missing      []string       `json:"missing,omitempty"`
}

// Completed builds a COMPLETED response carrying result.
func Completed(agentID string, result map[string]any) Response {
	return Response{Status: StatusCompleted, AgentID: agentID, Result: result}
}

// Failed builds a FAILED response carrying errMsg.
func Failed(agentID, errMsg string) Response {
	return Response{Status: StatusFailed, AgentID: agentID, ErrorMessage: errMsg}
}

// NotFound builds a NOT_FOUND response carrying errMsg.
func NotFound(agentID, errMsg string) Response {
	return Response{Status: StatusNotFound, AgentID: agentID, ErrorMessage: errMsg}
}

// Forbidden builds a FORBIDDEN response carrying errMsg.
func Forbidden(agentID, errMsg string) Response {
	return Response{Status: StatusForbidden, AgentID: agentID, ErrorMessage: errMsg}
}

// MissingFields builds a FAILED response listing the payload fields a
// handler needed but didn't receive.
func MissingFields(agentID string, fields []string) Response {
	return Response{
		Status:       StatusFailed,
		AgentID:      agentID,
		ErrorMessage: "missing required payload fields",
		Missing:      fields,
	}
}
