package providers

import "strings"

type ErrorType string

const (
	ErrorQuota          ErrorType = "quota"
	ErrorRate           ErrorType = "rate"
	ErrorTransient      ErrorType = "transient"
	ErrorPermanentInput ErrorType = "permanent_input"
	ErrorPermanent      ErrorType = "permanent"
)

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "unsupported"), strings.Contains(e, "malformed"),
		strings.Contains(e, "invalid media"), strings.Contains(e, "exceeds"),
		strings.Contains(e, "too long"):
		return ErrorPermanentInput
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"),
		strings.Contains(e, "unavailable"), strings.Contains(e, "connection reset"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

// Retryable reports whether a failed external call may succeed on a later
// attempt. Permanent-input failures must surface to the caller unretried.
func Retryable(t ErrorType) bool {
	return t == ErrorQuota || t == ErrorRate || t == ErrorTransient
}
