package services

import (
	"context"

	"turnos-api/internal/events"
	"turnos-api/internal/repositories"
)

type QueueProjectorInterface interface {
	Project(ctx context.Context, branchID int64) (events.QueueSnapshotEvent, error)
}

// QueueProjector строит снимок "текущего тикета" филиала.
// Ничего не кеширует: каждый вызов читает последнее закоммиченное состояние.
type QueueProjector struct {
	ticketRepo repositories.TicketRepositoryInterface
}

func NewQueueProjector(ticketRepo repositories.TicketRepositoryInterface) QueueProjectorInterface {
	return &QueueProjector{ticketRepo: ticketRepo}
}

func (p *QueueProjector) Project(ctx context.Context, branchID int64) (events.QueueSnapshotEvent, error) {
	head, err := p.ticketRepo.HeadOfQueue(ctx, branchID)
	if err != nil {
		return events.QueueSnapshotEvent{}, err
	}
	return events.NewQueueSnapshotEvent(branchID, head), nil
}
