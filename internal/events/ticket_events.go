package events

import (
	"turnos-api/internal/dto"
	"turnos-api/internal/entities"
)

// CurrentTicketType - тип сообщения со снимком текущего тикета филиала.
const CurrentTicketType = "current_ticket"

// QueueSnapshotEvent - неизменяемый снимок "текущего тикета" филиала.
// Отправляется зрителям при подключении и после каждой мутации.
type QueueSnapshotEvent struct {
	Type     string         `json:"type"`
	BranchID int64          `json:"branch_id"`
	Ticket   *dto.TicketDTO `json:"ticket"`
}

func NewQueueSnapshotEvent(branchID int64, head *entities.Ticket) QueueSnapshotEvent {
	event := QueueSnapshotEvent{
		Type:     CurrentTicketType,
		BranchID: branchID,
	}
	if head != nil {
		record := dto.NewTicketDTO(*head)
		event.Ticket = &record
	}
	return event
}

// TicketCreatedEvent - возникает после коммита нового тикета.
type TicketCreatedEvent struct {
	TicketID int64
	BranchID int64
	Name     string
	Age      int
	Phone    *string
}

// Name - реализуем интерфейс eventbus.Event
func (e TicketCreatedEvent) Name() string {
	return "ticket.created"
}
