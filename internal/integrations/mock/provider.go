package mock

import (
	"context"
	"strings"
	"sync"

	"turnos-api/internal/integrations"
	"turnos-api/internal/integrations/dto"
)

// Provider - CRM в памяти для локального запуска (CRM_PROVIDER=mock) и тестов.
type Provider struct {
	mu       sync.Mutex
	nextID   int64
	partners []dto.IntegrationPartnerDTO

	Created int
}

func New(seed ...dto.IntegrationPartnerDTO) *Provider {
	p := &Provider{nextID: 1}
	for _, partner := range seed {
		p.partners = append(p.partners, partner)
		if partner.ID >= p.nextID {
			p.nextID = partner.ID + 1
		}
	}
	return p
}

var _ integrations.PartnerProvider = (*Provider)(nil)

func (p *Provider) Name() string { return "mock" }

func (p *Provider) Health(_ context.Context) (*dto.ProviderHealthDTO, error) {
	return &dto.ProviderHealthDTO{OK: true, Version: map[string]interface{}{"server_version": "mock"}}, nil
}

func (p *Provider) SearchPartners(_ context.Context, query string, limit int) ([]dto.IntegrationPartnerDTO, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	out := []dto.IntegrationPartnerDTO{}
	if len([]rune(query)) < 2 {
		return out, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, partner := range p.partners {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(partner.Name), query) ||
			contains(partner.Phone, query) || contains(partner.Mobile, query) {
			out = append(out, partner)
		}
	}
	return out, nil
}

func (p *Provider) FindPartnerExact(_ context.Context, firstName, lastName, phone string) (*dto.IntegrationPartnerDTO, error) {
	fullName := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	phone = strings.TrimSpace(phone)

	p.mu.Lock()
	defer p.mu.Unlock()
	if phone != "" {
		for _, partner := range p.partners {
			if equals(partner.Phone, phone) || equals(partner.Mobile, phone) {
				found := partner
				return &found, nil
			}
		}
	}
	if fullName != "" {
		for _, partner := range p.partners {
			if strings.EqualFold(partner.Name, fullName) {
				found := partner
				return &found, nil
			}
		}
	}
	return nil, nil
}

func (p *Provider) CreatePartner(_ context.Context, input dto.PartnerInput) (*dto.IntegrationPartnerDTO, error) {
	name := strings.TrimSpace(strings.TrimSpace(input.FirstName) + " " + strings.TrimSpace(input.LastName))
	if name == "" {
		name = "Cliente sin nombre"
	}
	partner := dto.IntegrationPartnerDTO{Name: name}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		partner.Phone = &phone
		partner.Mobile = &phone
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	partner.ID = p.nextID
	p.nextID++
	p.partners = append(p.partners, partner)
	p.Created++
	return &partner, nil
}

func (p *Provider) ReadPartner(_ context.Context, id int64) (*dto.IntegrationPartnerDTO, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, partner := range p.partners {
		if partner.ID == id {
			found := partner
			return &found, nil
		}
	}
	return nil, nil
}

func (p *Provider) UpdatePartnerPhone(_ context.Context, id int64, phone string) (*dto.IntegrationPartnerDTO, error) {
	phone = strings.TrimSpace(phone)

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.partners {
		if p.partners[i].ID != id {
			continue
		}
		if phone == "" {
			p.partners[i].Phone, p.partners[i].Mobile = nil, nil
		} else {
			p.partners[i].Phone, p.partners[i].Mobile = &phone, &phone
		}
		updated := p.partners[i]
		return &updated, nil
	}
	return &dto.IntegrationPartnerDTO{ID: id}, nil
}

func contains(v *string, query string) bool {
	return v != nil && strings.Contains(strings.ToLower(*v), query)
}

func equals(v *string, phone string) bool {
	return v != nil && *v == phone
}
