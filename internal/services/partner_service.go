package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"turnos-api/internal/dto"
	"turnos-api/internal/integrations"
	dto_internal "turnos-api/internal/integrations/dto"
	"turnos-api/internal/repositories"
	apperrors "turnos-api/pkg/errors"
)

const (
	defaultPartnerLimit = 10
	maxPartnerLimit     = 25
	minPartnerQuery     = 2
)

type PartnerServiceInterface interface {
	Health(ctx context.Context) (*dto_internal.ProviderHealthDTO, error)
	Search(ctx context.Context, query string, limit int) ([]dto_internal.IntegrationPartnerDTO, error)
	UpdatePhone(ctx context.Context, partnerID int64, phone string) (*dto_internal.IntegrationPartnerDTO, error)
	SelectOrCreate(ctx context.Context, payload dto.SelectOrCreatePartnerDTO) (*dto.SelectOrCreateResultDTO, error)
}

type PartnerService struct {
	registry integrations.RegistryInterface
	cache    repositories.CacheRepositoryInterface
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewPartnerService(
	registry integrations.RegistryInterface,
	cache repositories.CacheRepositoryInterface,
	cacheTTL time.Duration,
	logger *zap.Logger,
) PartnerServiceInterface {
	return &PartnerService{
		registry: registry,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.Named("partner_service"),
	}
}

func (s *PartnerService) provider() (integrations.PartnerProvider, error) {
	p, err := s.registry.GetActive()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIntegrationConfig, err)
	}
	return p, nil
}

func (s *PartnerService) Health(ctx context.Context) (*dto_internal.ProviderHealthDTO, error) {
	p, err := s.provider()
	if err != nil {
		return nil, err
	}
	return p.Health(ctx)
}

func searchCacheKey(query string, limit int) string {
	return fmt.Sprintf("partners:search:%s:%d", strings.ToLower(query), limit)
}

// Search ищет клиентов в CRM. Результат кешируется; кеш недоступен - идём в CRM напрямую.
func (s *PartnerService) Search(ctx context.Context, query string, limit int) ([]dto_internal.IntegrationPartnerDTO, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minPartnerQuery {
		return []dto_internal.IntegrationPartnerDTO{}, nil
	}
	if limit <= 0 {
		limit = defaultPartnerLimit
	}
	if limit > maxPartnerLimit {
		limit = maxPartnerLimit
	}

	key := searchCacheKey(query, limit)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var partners []dto_internal.IntegrationPartnerDTO
			if jsonErr := json.Unmarshal([]byte(cached), &partners); jsonErr == nil {
				return partners, nil
			}
			s.logger.Warn("Повреждённая запись кеша поиска", zap.String("key", key))
		case !errors.Is(err, repositories.ErrCacheMiss):
			s.logger.Warn("Кеш поиска недоступен", zap.Error(err))
		}
	}

	p, err := s.provider()
	if err != nil {
		return nil, err
	}
	partners, err := p.SearchPartners(ctx, query, limit)
	if err != nil {
		s.logger.Error("Ошибка поиска клиентов в CRM", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if payload, err := json.Marshal(partners); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
				s.logger.Warn("Не удалось сохранить поиск в кеш", zap.Error(err))
			}
		}
	}
	return partners, nil
}

func (s *PartnerService) UpdatePhone(ctx context.Context, partnerID int64, phone string) (*dto_internal.IntegrationPartnerDTO, error) {
	if partnerID <= 0 {
		return nil, apperrors.NewInvalidInputError("некорректный ID клиента: %d", partnerID)
	}
	p, err := s.provider()
	if err != nil {
		return nil, err
	}
	updated, err := p.UpdatePartnerPhone(ctx, partnerID, phone)
	if err != nil {
		s.logger.Error("Ошибка обновления телефона клиента", zap.Int64("partnerID", partnerID), zap.Error(err))
		return nil, err
	}
	return updated, nil
}

// SelectOrCreate возвращает существующего клиента (по телефону, затем по имени) или создаёт нового.
func (s *PartnerService) SelectOrCreate(ctx context.Context, payload dto.SelectOrCreatePartnerDTO) (*dto.SelectOrCreateResultDTO, error) {
	firstName := strings.TrimSpace(payload.FirstName)
	if firstName == "" {
		return nil, apperrors.NewInvalidInputError("имя обязательно")
	}
	lastName := strings.TrimSpace(payload.LastName)
	phone := strings.TrimSpace(payload.Phone.String)

	p, err := s.provider()
	if err != nil {
		return nil, err
	}

	existing, err := p.FindPartnerExact(ctx, firstName, lastName, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &dto.SelectOrCreateResultDTO{Created: false, Partner: *existing}, nil
	}

	input := dto_internal.PartnerInput{FirstName: firstName, LastName: lastName, Phone: phone}
	if payload.Age.Valid {
		age := payload.Age.Int
		input.Age = &age
	}
	created, err := p.CreatePartner(ctx, input)
	if err != nil {
		s.logger.Error("Ошибка создания клиента в CRM", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Клиент создан в CRM", zap.Int64("partnerID", created.ID), zap.String("provider", p.Name()))
	return &dto.SelectOrCreateResultDTO{Created: true, Partner: *created}, nil
}
