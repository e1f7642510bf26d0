package risk

import "fmt"

// Reason is a stable code naming one contributing signal. Codes end up in
// persisted assessments and staff escalation messages, so they are part of
// the external surface; don't rename casually.
type Reason string

const (
	ReasonVeryNewAccount       Reason = "very_new_account"
	ReasonNewAccount           Reason = "new_account"
	ReasonNoAvatar             Reason = "no_avatar"
	ReasonNoMutuals            Reason = "no_mutuals"
	ReasonJoinVelocity         Reason = "join_velocity"
	ReasonElevatedJoinVelocity Reason = "elevated_join_velocity"
	ReasonLowTrust             Reason = "low_trust_score"
)

// ReasonThreatSeverity tags the numeric severity of the worst active threat
// record found for the member.
func ReasonThreatSeverity(severity int) Reason {
	return Reason(fmt.Sprintf("threat_severity_%d", severity))
}

// ReasonStrings converts for storage and wire payloads.
func ReasonStrings(reasons []Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
