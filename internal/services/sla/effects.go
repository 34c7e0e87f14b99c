package sla

// Effect kinds attempted alongside a breach state transition.
const (
	EffectAudit    = "audit"
	EffectNotify   = "notify"
	EffectReassign = "reassign"
)

// Effect records one attempted side effect (audit write, in-app
// notification, task reassignment). The primary state change commits
// first; effects are best-effort and their failures are reported here
// instead of rolling anything back.
type Effect struct {
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"` // profile or breach id
	Detail string `json:"detail,omitempty"`
	Err    error  `json:"-"`
}

// Failed returns the subset of effects that errored.
func Failed(effects []Effect) []Effect {
	var failed []Effect
	for _, e := range effects {
		if e.Err != nil {
			failed = append(failed, e)
		}
	}
	return failed
}
