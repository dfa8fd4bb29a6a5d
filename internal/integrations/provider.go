package integrations

import (
	"context"

	"turnos-api/internal/integrations/dto"
)

// PartnerProvider - внешняя CRM, где ищутся и создаются клиенты очереди.
type PartnerProvider interface {
	Name() string
	Health(ctx context.Context) (*dto.ProviderHealthDTO, error)
	SearchPartners(ctx context.Context, query string, limit int) ([]dto.IntegrationPartnerDTO, error)
	FindPartnerExact(ctx context.Context, firstName, lastName, phone string) (*dto.IntegrationPartnerDTO, error)
	CreatePartner(ctx context.Context, input dto.PartnerInput) (*dto.IntegrationPartnerDTO, error)
	ReadPartner(ctx context.Context, id int64) (*dto.IntegrationPartnerDTO, error)
	UpdatePartnerPhone(ctx context.Context, id int64, phone string) (*dto.IntegrationPartnerDTO, error)
}
