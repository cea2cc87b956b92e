package waitlist

import "waitify/internal/models"

// transitionTable is the single source of truth for entry status legality.
// Both the HTTP layer (action enablement) and the store (guarded updates)
// consult it, so legality is never encoded in which buttons happen to render.
var transitionTable = map[string][]string{
	models.StatusWaiting:   {models.StatusNotified, models.StatusSeated, models.StatusCancelled},
	models.StatusNotified:  {models.StatusSeated, models.StatusCancelled},
	models.StatusSeated:    {},
	models.StatusCancelled: {},
}

func CanTransition(from, to string) bool {
	allowed, ok := transitionTable[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}

func AllowedNext(status string) []string {
	allowed, ok := transitionTable[status]
	if !ok {
		return nil
	}
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether no further status change is possible. Removal
// is a hard delete, not a transition, and stays available regardless.
func IsTerminal(status string) bool {
	allowed, ok := transitionTable[status]
	return ok && len(allowed) == 0
}

func ValidStatus(status string) bool {
	_, ok := transitionTable[status]
	return ok
}
