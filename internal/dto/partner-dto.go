package dto

import (
	"github.com/aarondl/null/v8"

	dto_internal "turnos-api/internal/integrations/dto"
)

type SearchPartnersDTO struct {
	Query string `query:"q" validate:"max=100"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=25"`
}

type SelectOrCreatePartnerDTO struct {
	FirstName string      `json:"nombre" validate:"required,notblank,max=100"`
	LastName  string      `json:"apellido" validate:"max=100"`
	Age       null.Int    `json:"edad" validate:"omitempty,gte=0,lte=150"`
	Phone     null.String `json:"telefono" validate:"omitempty,phone"`
}

type UpdatePartnerPhoneDTO struct {
	Phone null.String `json:"telefono" validate:"omitempty,phone"`
}

type SelectOrCreateResultDTO struct {
	Created bool                               `json:"created"`
	Partner dto_internal.IntegrationPartnerDTO `json:"partner"`
}
