package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"turnos-api/internal/dto"
	"turnos-api/internal/entities"
	"turnos-api/internal/events"
	"turnos-api/internal/repositories"
	"turnos-api/pkg/eventbus"
	apperrors "turnos-api/pkg/errors"
	"turnos-api/pkg/utils"
)

const (
	statusCreated = "created"
	statusOK      = "ok"
)

type TicketServiceInterface interface {
	CreateTicket(ctx context.Context, payload dto.CreateTicketDTO) (*dto.CreatedTicketDTO, error)
	StartTicket(ctx context.Context, ticketID int64) (*dto.TransitionDTO, error)
	FinishTicket(ctx context.Context, ticketID int64) (*dto.TransitionDTO, error)
	GetCurrentTicket(ctx context.Context, branchID int64) (events.QueueSnapshotEvent, error)
	GetQueue(ctx context.Context, branchID int64) ([]dto.TicketDTO, error)
	GetTicket(ctx context.Context, ticketID int64) (*dto.TicketDTO, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

// TicketService: запись в хранилище -> (если что-то изменилось) снимок -> рассылка.
// Рассылка всегда начинается только после коммита.
type TicketService struct {
	ticketRepo repositories.TicketRepositoryInterface
	projector  QueueProjectorInterface
	notifier   QueueNotifierInterface
	publisher  EventPublisher
	logger     *zap.Logger
}

func NewTicketService(
	ticketRepo repositories.TicketRepositoryInterface,
	projector QueueProjectorInterface,
	notifier QueueNotifierInterface,
	publisher EventPublisher,
	logger *zap.Logger,
) TicketServiceInterface {
	return &TicketService{
		ticketRepo: ticketRepo,
		projector:  projector,
		notifier:   notifier,
		publisher:  publisher,
		logger:     logger.Named("ticket_service"),
	}
}

func (s *TicketService) CreateTicket(ctx context.Context, payload dto.CreateTicketDTO) (*dto.CreatedTicketDTO, error) {
	name := strings.TrimSpace(payload.Name)
	if payload.BranchID <= 0 {
		return nil, apperrors.NewInvalidInputError("некорректный ID филиала: %d", payload.BranchID)
	}
	if name == "" {
		return nil, apperrors.NewInvalidInputError("имя обязательно")
	}
	if payload.Age < 0 {
		return nil, apperrors.NewInvalidInputError("некорректный возраст: %d", payload.Age)
	}

	ticket := entities.NewTicket{
		BranchID: payload.BranchID,
		Name:     name,
		Age:      payload.Age,
		Phone:    utils.NormalizePhone(payload.Phone),
	}

	newID, err := s.ticketRepo.Create(ctx, ticket)
	if err != nil {
		s.logger.Error("Ошибка создания тикета", zap.Int64("branchID", payload.BranchID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Тикет создан", zap.Int64("ticketID", newID), zap.Int64("branchID", payload.BranchID))

	s.notify(ctx, payload.BranchID)

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TicketCreatedEvent{
			TicketID: newID,
			BranchID: ticket.BranchID,
			Name:     ticket.Name,
			Age:      ticket.Age,
			Phone:    ticket.Phone.Ptr(),
		})
	}

	return &dto.CreatedTicketDTO{ID: newID, Status: statusCreated}, nil
}

// StartTicket: если тикет не в waiting - это успех без изменений и без рассылки.
func (s *TicketService) StartTicket(ctx context.Context, ticketID int64) (*dto.TransitionDTO, error) {
	result, err := s.ticketRepo.Start(ctx, ticketID)
	if err != nil {
		s.logger.Error("Ошибка старта тикета", zap.Int64("ticketID", ticketID), zap.Error(err))
		return nil, err
	}

	if !result.Changed {
		s.logger.Info("Старт тикета без изменений", zap.Int64("ticketID", ticketID))
		return &dto.TransitionDTO{Status: statusOK, Changed: false}, nil
	}

	s.notify(ctx, result.BranchID)
	return &dto.TransitionDTO{Status: statusOK, Changed: true, BranchID: utils.ToPtr(result.BranchID)}, nil
}

func (s *TicketService) FinishTicket(ctx context.Context, ticketID int64) (*dto.TransitionDTO, error) {
	result, err := s.ticketRepo.Finish(ctx, ticketID)
	if err != nil {
		s.logger.Warn("Ошибка завершения тикета", zap.Int64("ticketID", ticketID), zap.Error(err))
		return nil, err
	}

	if !result.Changed {
		s.logger.Info("Тикет уже завершён", zap.Int64("ticketID", ticketID))
		return &dto.TransitionDTO{Status: statusOK, Changed: false, BranchID: utils.ToPtr(result.BranchID)}, nil
	}

	s.notify(ctx, result.BranchID)
	return &dto.TransitionDTO{Status: statusOK, Changed: true, BranchID: utils.ToPtr(result.BranchID)}, nil
}

func (s *TicketService) GetCurrentTicket(ctx context.Context, branchID int64) (events.QueueSnapshotEvent, error) {
	return s.projector.Project(ctx, branchID)
}

func (s *TicketService) GetQueue(ctx context.Context, branchID int64) ([]dto.TicketDTO, error) {
	tickets, err := s.ticketRepo.GetQueue(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return dto.NewTicketDTOs(tickets), nil
}

func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*dto.TicketDTO, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	res := dto.NewTicketDTO(*ticket)
	return &res, nil
}

// notify не зависит от отмены запроса: ушедший клиент не должен лишать зрителей обновления.
func (s *TicketService) notify(ctx context.Context, branchID int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyBranch(context.WithoutCancel(ctx), branchID)
}
