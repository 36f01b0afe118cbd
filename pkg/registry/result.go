package registry

import "fmt"

// ExecutionResult is the uniform envelope every executor result is
// normalized into before it leaves the dispatch core. A result is
// either Ok (Content, optional Metadata) or Err (Code, Message).
type ExecutionResult struct {
	OK       bool                   `json:"ok"`
	Content  string                 `json:"content,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Code     ErrorCode              `json:"code,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// Ok builds a successful result.
func Ok(content string) ExecutionResult {
	return ExecutionResult{OK: true, Content: content}
}

// OkWithMetadata builds a successful result carrying metadata.
func OkWithMetadata(content string, metadata map[string]interface{}) ExecutionResult {
	return ExecutionResult{OK: true, Content: content, Metadata: metadata}
}

// Err builds a failed result.
func Err(code ErrorCode, message string) ExecutionResult {
	return ExecutionResult{Code: code, Message: message}
}

// Errf builds a failed result with a formatted message.
func Errf(code ErrorCode, format string, args ...interface{}) ExecutionResult {
	return ExecutionResult{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error returns the result's message when it is an error, empty otherwise.
func (r ExecutionResult) Error() string {
	if r.OK {
		return ""
	}
	return r.Message
}
