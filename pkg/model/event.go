package model

// Event names published to the presentation layer.
const (
	EventAssistantAlert = "assistant-alert"
	EventModelError     = "model-error"
)

// AssistantAlert is the payload of EventAssistantAlert.
type AssistantAlert struct {
	Timestamp  string `json:"timestamp"`
	IssueType  string `json:"issue_type"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// ModelErrorType classifies analyzer and transport failures.
type ModelErrorType string

const (
	ModelErrorUnauthorized      ModelErrorType = "unauthorized"
	ModelErrorInsufficientQuota ModelErrorType = "insufficient_quota"
	ModelErrorRateLimit         ModelErrorType = "rate_limit"
	ModelErrorTimeout           ModelErrorType = "timeout"
	ModelErrorNetwork           ModelErrorType = "network"
	ModelErrorInvalidRequest    ModelErrorType = "invalid_request"
	ModelErrorServer            ModelErrorType = "server_error"
	ModelErrorUnknown           ModelErrorType = "unknown"
)

// ModelErrorAlert is the payload of EventModelError.
type ModelErrorAlert struct {
	Timestamp  string         `json:"timestamp"`
	ErrorType  ModelErrorType `json:"error_type"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion"`
	Detail     string         `json:"detail"`
	Source     string         `json:"source"`
}
