// Файл: internal/integrations/dto/partner.go
package dto

// IntegrationPartnerDTO - партнёр (клиент) во внешней CRM.
type IntegrationPartnerDTO struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Phone  *string `json:"phone"`
	Mobile *string `json:"mobile"`
}

type PartnerInput struct {
	FirstName string
	LastName  string
	Age       *int
	Phone     string
}

type ProviderHealthDTO struct {
	OK        bool                   `json:"ok"`
	Version   map[string]interface{} `json:"version"`
	UID       int64                  `json:"uid"`
	Databases []string               `json:"dbs"`
}
