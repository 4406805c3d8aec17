package order

import "strings"

// TransitionPolicy decides which status changes UpdateStatus accepts.
type TransitionPolicy interface {
	Allow(from, to Status) bool
}

type strictPolicy struct{}

type permissivePolicy struct{}

// StrictPolicy moves forward along pending, preparing, ready, delivered
// (skipping steps is fine) and allows cancellation from any non-terminal
// status.
var StrictPolicy TransitionPolicy = strictPolicy{}

// PermissivePolicy allows any status from any status.
var PermissivePolicy TransitionPolicy = permissivePolicy{}

var progression = map[Status]int{
	StatusPending:   0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusDelivered: 3,
}

func (strictPolicy) Allow(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return progression[to] > progression[from]
}

func (permissivePolicy) Allow(from, to Status) bool {
	return from.Valid() && to.Valid()
}

// PolicyFor maps the ORDER_STATUS_POLICY setting to a policy.
func PolicyFor(name string) TransitionPolicy {
	if strings.EqualFold(strings.TrimSpace(name), "permissive") {
		return PermissivePolicy
	}
	return StrictPolicy
}
