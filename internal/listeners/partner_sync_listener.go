package listeners

import (
	"context"
	"fmt"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"turnos-api/internal/dto"
	"turnos-api/internal/events"
	"turnos-api/internal/services"
	"turnos-api/pkg/eventbus"
)

// PartnerSyncListener заводит владельца нового тикета в CRM.
type PartnerSyncListener struct {
	partnerService services.PartnerServiceInterface
	logger         *zap.Logger
}

func NewPartnerSyncListener(partnerService services.PartnerServiceInterface, logger *zap.Logger) *PartnerSyncListener {
	return &PartnerSyncListener{
		partnerService: partnerService,
		logger:         logger.Named("partner_sync"),
	}
}

func (l *PartnerSyncListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.TicketCreatedEvent{}.Name(), l.handleTicketCreated)
}

func (l *PartnerSyncListener) handleTicketCreated(ctx context.Context, event eventbus.Event) error {
	created, ok := event.(events.TicketCreatedEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", event)
	}

	res, err := l.partnerService.SelectOrCreate(ctx, dto.SelectOrCreatePartnerDTO{
		FirstName: created.Name,
		Age:       null.IntFrom(created.Age),
		Phone:     null.StringFromPtr(created.Phone),
	})
	if err != nil {
		return fmt.Errorf("синхронизация клиента тикета %d: %w", created.TicketID, err)
	}

	l.logger.Info("Клиент тикета синхронизирован с CRM",
		zap.Int64("ticketID", created.TicketID),
		zap.Int64("partnerID", res.Partner.ID),
		zap.Bool("created", res.Created),
	)
	return nil
}
