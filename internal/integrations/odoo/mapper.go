package odoo

import (
	"fmt"

	dto_internal "turnos-api/internal/integrations/dto"
)

// mapPartners переводит ответ search_read/read во внутренние DTO.
func mapPartners(raw interface{}) ([]dto_internal.IntegrationPartnerDTO, error) {
	if raw == nil {
		return []dto_internal.IntegrationPartnerDTO{}, nil
	}
	// пустой результат Odoo иногда отдаёт как false
	if b, ok := raw.(bool); ok && !b {
		return []dto_internal.IntegrationPartnerDTO{}, nil
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("неожиданный ответ Odoo: %T", raw)
	}

	partners := make([]dto_internal.IntegrationPartnerDTO, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		partner, err := mapPartner(record)
		if err != nil {
			return nil, err
		}
		partners = append(partners, partner)
	}
	return partners, nil
}

func mapPartner(record map[string]interface{}) (dto_internal.IntegrationPartnerDTO, error) {
	id, ok := toInt64(record["id"])
	if !ok {
		return dto_internal.IntegrationPartnerDTO{}, fmt.Errorf("партнёр без id: %v", record)
	}
	name, _ := record["name"].(string)
	return dto_internal.IntegrationPartnerDTO{
		ID:     id,
		Name:   name,
		Phone:  optionalString(record["phone"]),
		Mobile: optionalString(record["mobile"]),
	}, nil
}

// optionalString: Odoo возвращает false для пустых полей.
func optionalString(v interface{}) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
