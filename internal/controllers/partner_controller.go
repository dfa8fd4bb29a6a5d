package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"turnos-api/internal/dto"
	"turnos-api/internal/services"
	"turnos-api/pkg/api"
)

type PartnerController struct {
	partnerService services.PartnerServiceInterface
	logger         *zap.Logger
}

func NewPartnerController(partnerService services.PartnerServiceInterface, logger *zap.Logger) *PartnerController {
	return &PartnerController{partnerService: partnerService, logger: logger}
}

func (c *PartnerController) Health(ctx echo.Context) error {
	res, err := c.partnerService.Health(ctx.Request().Context())
	if err != nil {
		c.logger.Warn("Odoo health: ошибка", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "CRM доступна", *res)
}

func (c *PartnerController) Search(ctx echo.Context) error {
	var params dto.SearchPartnersDTO
	if err := bindAndValidate(ctx, &params); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.partnerService.Search(ctx.Request().Context(), params.Query, params.Limit)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Клиенты найдены", res)
}

func (c *PartnerController) UpdatePhone(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	var payload dto.UpdatePartnerPhoneDTO
	if err := bindAndValidate(ctx, &payload); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.partnerService.UpdatePhone(ctx.Request().Context(), id, payload.Phone.String)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Телефон обновлён", *res)
}

func (c *PartnerController) SelectOrCreate(ctx echo.Context) error {
	var payload dto.SelectOrCreatePartnerDTO
	if err := bindAndValidate(ctx, &payload); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.partnerService.SelectOrCreate(ctx.Request().Context(), payload)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	return api.SuccessOne(ctx, code, "Клиент выбран", *res)
}
