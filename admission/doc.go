// Admission control engine for gating new members into communities.
//
// This package (`github.com/darklock-net/gatehouse/admission`) contains a pipeline for deciding how much friction a joining member gets. Each join is scored from cheap heuristics (account age, avatar, shared communities, join velocity), blended with stored trust history and threat intelligence, and mapped to a verification challenge: none, a button press, a short code, or a staff review. The packages underneath hold the scoring, challenge state machine, and the per-concern stores; most of what this package does is keep that state consistent while members, staff, and timeouts race each other.
//
// See `admission/README.md` for more background, and `cmd/porter` for a daemon built on this package.
package admission
