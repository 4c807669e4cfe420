package backend

import (
	"regexp"
	"strings"
)

// errorClass categorizes a subprocess failure for retry/backoff
// decisions.
type errorClass string

const (
	classTransient errorClass = "transient"
	classQuota     errorClass = "quota"
	classAuth      errorClass = "auth"
	classNotFound  errorClass = "not_found"
)

var (
	quotaRe = regexp.MustCompile(`(?i)rate.?limit|quota exceeded|too many requests|429`)
	authRe  = regexp.MustCompile(`(?i)unauthorized|invalid api key|401|forbidden|403`)
	notFoundRe = regexp.MustCompile(`(?i)command not found|no such file or directory|executable file not found`)
)

// classifyError inspects combined stdout/stderr to decide whether a
// failure is worth retrying at all (auth/not_found are not: they will
// not clear on their own) versus transient (worth the normal backoff).
func classifyError(output string) errorClass {
	switch {
	case notFoundRe.MatchString(output):
		return classNotFound
	case authRe.MatchString(output):
		return classAuth
	case quotaRe.MatchString(output):
		return classQuota
	default:
		return classTransient
	}
}

// retryable reports whether a failure class is transient rather than
// terminal. Subprocess.Send uses it only to word its error; the
// controller retries every failed Send regardless of class.
func (c errorClass) retryable() bool {
	return c != classAuth && c != classNotFound
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "…"
}
