package domain

// AllowedTransitions is the permitted status graph. Every status may move to
// every other status; only same-state moves are absent.
var AllowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:               {TicketStatusInProgress, TicketStatusAwaitingThirdParty, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress:         {TicketStatusOpen, TicketStatusAwaitingThirdParty, TicketStatusResolved, TicketStatusClosed},
	TicketStatusAwaitingThirdParty: {TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:           {TicketStatusOpen, TicketStatusInProgress, TicketStatusAwaitingThirdParty, TicketStatusClosed},
	TicketStatusClosed:             {TicketStatusOpen, TicketStatusInProgress, TicketStatusAwaitingThirdParty, TicketStatusResolved},
}

// CanTransition reports whether current may move to next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range AllowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
