package protocol

// Admission outcomes as seen by the observer feed and the decision
// journal. The explorer-facing wire never carries these: both denial
// causes collapse into the same empty GENERATE_RESPONSE.
const (
	OutcomeGranted         = "GRANTED"
	OutcomeDeniedNoEnergy  = "DENIED_NO_ENERGY"
	OutcomeDeniedRateLimit = "DENIED_RATE_LIMIT"
)

var knownOutcomes = map[string]struct{}{
	OutcomeGranted:         {},
	OutcomeDeniedNoEnergy:  {},
	OutcomeDeniedRateLimit: {},
}

func IsKnownOutcome(code string) bool {
	_, ok := knownOutcomes[code]
	return ok
}
