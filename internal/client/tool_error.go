package client

import "strings"

// ToolError reports a failed run of an external tool. Message carries the
// tool's own diagnostic verbatim so callers can surface it to clients.
type ToolError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func newToolError(tool string, stderr []byte, err error) *ToolError {
	msg := lastLine(stderr)
	if msg == "" {
		msg = err.Error()
	}
	return &ToolError{Tool: tool, Message: msg, Err: err}
}

// lastLine returns the last non-empty line of b
func lastLine(b []byte) string {
	lines := strings.Split(string(b), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
