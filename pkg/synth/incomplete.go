package synth

import "strings"

const minCompleteResponseLen = 50

// isIncomplete flags a response that looks cut off: it ends mid-thought, has
// an unbalanced code fence, or is implausibly short for a rationale.
func isIncomplete(response string) bool {
	trimmed := strings.TrimSpace(response)
	if len(trimmed) < minCompleteResponseLen {
		return true
	}
	if strings.HasSuffix(trimmed, "...") ||
		strings.HasSuffix(trimmed, "(continued)") ||
		strings.HasSuffix(trimmed, "[truncated]") {
		return true
	}
	if strings.Count(trimmed, "```")%2 != 0 {
		return true
	}
	return false
}
