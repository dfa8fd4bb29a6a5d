package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"turnos-api/internal/dto"
	"turnos-api/internal/events"
	"turnos-api/internal/services"
	"turnos-api/pkg/api"
	"turnos-api/pkg/middleware"
)

type TicketController struct {
	ticketService services.TicketServiceInterface
	logger        *zap.Logger
}

func NewTicketController(ticketService services.TicketServiceInterface, logger *zap.Logger) *TicketController {
	return &TicketController{ticketService: ticketService, logger: logger}
}

func (c *TicketController) CreateTicket(ctx echo.Context) error {
	var payload dto.CreateTicketDTO
	if err := bindAndValidate(ctx, &payload); err != nil {
		middleware.FromContext(ctx, c.logger).Debug("CreateTicket: некорректный запрос", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.ticketService.CreateTicket(ctx.Request().Context(), payload)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Тикет создан", *res)
}

func (c *TicketController) StartTicket(ctx echo.Context) error {
	var payload dto.TicketIDDTO
	if err := bindAndValidate(ctx, &payload); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.ticketService.StartTicket(ctx.Request().Context(), payload.TicketID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Обслуживание начато", *res)
}

func (c *TicketController) FinishTicket(ctx echo.Context) error {
	var payload dto.TicketIDDTO
	if err := bindAndValidate(ctx, &payload); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.ticketService.FinishTicket(ctx.Request().Context(), payload.TicketID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Обслуживание завершено", *res)
}

func (c *TicketController) GetCurrentTicket(ctx echo.Context) error {
	branchID, err := parseID(ctx, "branch_id")
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.ticketService.GetCurrentTicket(ctx.Request().Context(), branchID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne[events.QueueSnapshotEvent](ctx, http.StatusOK, "Текущий тикет", res)
}

func (c *TicketController) GetQueue(ctx echo.Context) error {
	branchID, err := parseID(ctx, "branch_id")
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.ticketService.GetQueue(ctx.Request().Context(), branchID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Очередь филиала", res)
}

func (c *TicketController) GetTicket(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.ticketService.GetTicket(ctx.Request().Context(), id)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Тикет найден", *res)
}
