// README: Order lifecycle statuses and the legal transitions between them.
package order

type Status string

const (
	StatusQueued    Status = "queued"
	StatusInProcess Status = "in_process"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// AllowedTransitions represents the order state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusQueued:    {StatusInProcess, StatusCancelled},
	StatusInProcess: {StatusComplete, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal statuses have no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

func rank(s Status) int {
	switch s {
	case StatusQueued:
		return 0
	case StatusInProcess:
		return 1
	case StatusComplete, StatusCancelled:
		return 2
	}
	return -1
}

// Regresses reports whether observing to after from would move an order
// backwards or out of a terminal state. Skipping forward (queued straight to
// complete) is not a regression: the cache may simply have missed a step.
func Regresses(from, to Status) bool {
	if from == to || from == "" {
		return false
	}
	if from.Terminal() {
		return true
	}
	rf, rt := rank(from), rank(to)
	if rf < 0 || rt < 0 {
		return false
	}
	return rt < rf
}
