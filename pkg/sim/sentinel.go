package sim

import "strings"

// isRanForDuration recognises the Topology contract's sentinel (§6.3):
// an error that means "the engine gave up once duration was up", which
// the Runner treats as normal termination rather than a TickError.
func isRanForDuration(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.HasPrefix(s, "Ran for duration: ") && strings.HasSuffix(s, " without completing")
}
