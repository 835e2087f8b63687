package connector

import "strings"

// transientCodes are the vendor error codes spec.md §4.1 names as
// recoverable by retry: connection reset / listener and protocol faults.
var transientCodes = []string{
	"ORA-3113", "ORA-03113",
	"ORA-3114", "ORA-03114",
	"ORA-12537",
	"ORA-12514",
}

// isTransient reports whether err's message carries one of the transient
// Oracle error codes, or looks like a plain connection reset from the
// driver layer below the ORA- prefix (e.g. "connection refused", "broken pipe").
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, code := range transientCodes {
		if strings.Contains(msg, code) {
			return true
		}
	}
	lower := strings.ToLower(msg)
	for _, frag := range []string{"connection reset", "broken pipe", "connection refused", "i/o timeout"} {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// vendorCode extracts a leading "ORA-XXXXX" token from an error message, if
// present, for attaching to apperr.Error.WithCode.
func vendorCode(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	idx := strings.Index(msg, "ORA-")
	if idx < 0 {
		return ""
	}
	end := idx + 4
	for end < len(msg) && msg[end] >= '0' && msg[end] <= '9' {
		end++
	}
	if end == idx+4 {
		return ""
	}
	return msg[idx:end]
}
