package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

type TicketState string

const (
	TicketWaiting  TicketState = "waiting"
	TicketServing  TicketState = "serving"
	TicketFinished TicketState = "finished"
)

func (s TicketState) Valid() bool {
	switch s {
	case TicketWaiting, TicketServing, TicketFinished:
		return true
	}
	return false
}

// CanTransitionTo: waiting -> serving -> finished, waiting -> finished.
func (s TicketState) CanTransitionTo(next TicketState) bool {
	switch s {
	case TicketWaiting:
		return next == TicketServing || next == TicketFinished
	case TicketServing:
		return next == TicketFinished
	}
	return false
}

// Active - тикет ещё в очереди (ждёт или обслуживается).
func (s TicketState) Active() bool {
	return s == TicketWaiting || s == TicketServing
}

type Ticket struct {
	ID        int64
	BranchID  int64
	Name      string
	Age       int
	Phone     null.String
	State     TicketState
	CreatedAt time.Time
	StartedAt null.Time
	UpdatedAt time.Time
}

type NewTicket struct {
	BranchID int64
	Name     string
	Age      int
	Phone    null.String
}

// TransitionResult - итог атомарного перехода в хранилище.
// Changed=false означает "ничего не изменилось" (no-op), это не ошибка.
type TransitionResult struct {
	TicketID int64
	BranchID int64
	Changed  bool
}
