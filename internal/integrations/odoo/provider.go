package odoo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/kolo/xmlrpc"
	"go.uber.org/zap"

	"turnos-api/internal/integrations"
	dto_internal "turnos-api/internal/integrations/dto"
	"turnos-api/pkg/config"
	apperrors "turnos-api/pkg/errors"
)

const (
	partnerModel       = "res.partner"
	defaultPartnerName = "Cliente sin nombre"
	minSearchLength    = 2
)

var partnerFields = []string{"id", "name", "phone", "mobile"}

// rpcCaller - один XML-RPC эндпоинт Odoo (common, object или db).
type rpcCaller interface {
	Call(serviceMethod string, args interface{}, reply interface{}) error
}

// Provider - клиент Odoo поверх XML-RPC.
type Provider struct {
	cfg    config.OdooConfig
	common rpcCaller
	models rpcCaller
	dbs    rpcCaller
	logger *zap.Logger

	// uid кешируется после первой успешной аутентификации
	uid   int64
	uidMu sync.Mutex
}

// New создаёт провайдера. Проверка настроек откладывается до первого вызова,
// чтобы сервис стартовал и при выключенной CRM.
func New(cfg config.OdooConfig, logger *zap.Logger) (integrations.PartnerProvider, error) {
	transport := newTimeoutTransport(http.DefaultTransport, cfg.Timeout)

	p := &Provider{
		cfg:    cfg,
		logger: logger.Named("odoo_provider"),
	}
	if cfg.URL == "" {
		return p, nil
	}

	var err error
	if p.common, err = xmlrpc.NewClient(cfg.URL+"/xmlrpc/2/common", transport); err != nil {
		return nil, fmt.Errorf("odoo: клиент common: %w", err)
	}
	if p.models, err = xmlrpc.NewClient(cfg.URL+"/xmlrpc/2/object", transport); err != nil {
		return nil, fmt.Errorf("odoo: клиент object: %w", err)
	}
	if p.dbs, err = xmlrpc.NewClient(cfg.URL+"/xmlrpc/2/db", transport); err != nil {
		return nil, fmt.Errorf("odoo: клиент db: %w", err)
	}
	return p, nil
}

func (p *Provider) Name() string {
	return "odoo"
}

func (p *Provider) checkConfig() error {
	if !p.cfg.Enabled {
		return fmt.Errorf("%w: ODOO_ENABLED=false", apperrors.ErrIntegrationDisabled)
	}
	missing := ""
	switch {
	case p.cfg.URL == "" || p.common == nil:
		missing = "ODOO_URL"
	case p.cfg.DB == "":
		missing = "ODOO_DB"
	case p.cfg.User == "":
		missing = "ODOO_USER"
	case p.cfg.Password == "":
		missing = "ODOO_PASSWORD"
	}
	if missing != "" {
		return fmt.Errorf("%w: не задан %s", apperrors.ErrIntegrationConfig, missing)
	}
	return nil
}

func (p *Provider) Health(ctx context.Context) (*dto_internal.ProviderHealthDTO, error) {
	if err := p.checkConfig(); err != nil {
		return nil, err
	}

	var version interface{}
	if err := p.call(ctx, p.common, "version", nil, &version); err != nil {
		return nil, fmt.Errorf("не удалось получить version() Odoo: %w", err)
	}
	uid, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	health := &dto_internal.ProviderHealthDTO{OK: true, UID: uid}
	if v, ok := version.(map[string]interface{}); ok {
		health.Version = v
	}

	// db.list разрешён не везде, поэтому его ошибка не делает health неуспешным
	var dbs []interface{}
	if err := p.call(ctx, p.dbs, "list", nil, &dbs); err != nil {
		p.logger.Debug("Odoo: db.list недоступен", zap.Error(err))
	} else {
		for _, d := range dbs {
			if s, ok := d.(string); ok {
				health.Databases = append(health.Databases, s)
			}
		}
	}
	return health, nil
}

func (p *Provider) SearchPartners(ctx context.Context, query string, limit int) ([]dto_internal.IntegrationPartnerDTO, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return []dto_internal.IntegrationPartnerDTO{}, nil
	}

	domain := []interface{}{
		"|",
		[]interface{}{"name", "ilike", query},
		"|",
		[]interface{}{"phone", "ilike", query},
		[]interface{}{"mobile", "ilike", query},
	}
	return p.searchRead(ctx, domain, map[string]interface{}{
		"fields": partnerFields,
		"limit":  limit,
		"order":  "name asc",
	})
}

// FindPartnerExact ищет сначала по телефону (phone|mobile), потом по полному имени.
func (p *Provider) FindPartnerExact(ctx context.Context, firstName, lastName, phone string) (*dto_internal.IntegrationPartnerDTO, error) {
	fullName := fullPartnerName(firstName, lastName)

	if phone = strings.TrimSpace(phone); phone != "" {
		found, err := p.searchRead(ctx,
			[]interface{}{"|", []interface{}{"phone", "=", phone}, []interface{}{"mobile", "=", phone}},
			map[string]interface{}{"fields": partnerFields, "limit": 1},
		)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}

	if fullName != "" {
		found, err := p.searchRead(ctx,
			[]interface{}{[]interface{}{"name", "=ilike", fullName}},
			map[string]interface{}{"fields": partnerFields, "limit": 1},
		)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}

	return nil, nil
}

func (p *Provider) CreatePartner(ctx context.Context, input dto_internal.PartnerInput) (*dto_internal.IntegrationPartnerDTO, error) {
	vals := partnerValues(input)

	raw, err := p.executeKw(ctx, "create", []interface{}{vals}, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания партнёра: %w", err)
	}
	partnerID, ok := toInt64(raw)
	if !ok {
		return nil, fmt.Errorf("odoo create вернул неожиданный id: %v", raw)
	}

	created, err := p.ReadPartner(ctx, partnerID)
	if err == nil && created != nil {
		return created, nil
	}
	if err != nil {
		p.logger.Warn("Партнёр создан, но не прочитан", zap.Int64("partnerID", partnerID), zap.Error(err))
	}

	fallback := &dto_internal.IntegrationPartnerDTO{ID: partnerID, Name: vals["name"].(string)}
	if phone, ok := vals["phone"].(string); ok {
		fallback.Phone = &phone
		fallback.Mobile = &phone
	}
	return fallback, nil
}

func (p *Provider) ReadPartner(ctx context.Context, id int64) (*dto_internal.IntegrationPartnerDTO, error) {
	raw, err := p.executeKw(ctx, "read",
		[]interface{}{[]interface{}{id}},
		map[string]interface{}{"fields": partnerFields},
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения партнёра %d: %w", id, err)
	}
	partners, err := mapPartners(raw)
	if err != nil {
		return nil, err
	}
	if len(partners) == 0 {
		return nil, nil
	}
	return &partners[0], nil
}

// UpdatePartnerPhone пишет телефон в phone и mobile; пустой телефон очищает поля.
func (p *Provider) UpdatePartnerPhone(ctx context.Context, id int64, phone string) (*dto_internal.IntegrationPartnerDTO, error) {
	phone = strings.TrimSpace(phone)
	var value interface{} = false
	if phone != "" {
		value = phone
	}

	raw, err := p.executeKw(ctx, "write",
		[]interface{}{[]interface{}{id}, map[string]interface{}{"phone": value, "mobile": value}},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления телефона: %w", err)
	}
	if ok, _ := raw.(bool); !ok {
		return nil, fmt.Errorf("odoo write() вернул false")
	}

	updated, err := p.ReadPartner(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return &dto_internal.IntegrationPartnerDTO{ID: id}, nil
	}
	return updated, nil
}

func (p *Provider) searchRead(ctx context.Context, domain []interface{}, kwargs map[string]interface{}) ([]dto_internal.IntegrationPartnerDTO, error) {
	raw, err := p.executeKw(ctx, "search_read", []interface{}{domain}, kwargs)
	if err != nil {
		return nil, fmt.Errorf("ошибка search_read: %w", err)
	}
	return mapPartners(raw)
}

func fullPartnerName(firstName, lastName string) string {
	return strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
}

// partnerValues - поля res.partner для create. Возраст в стандартном Odoo хранить негде,
// поэтому он уходит в заметки.
func partnerValues(input dto_internal.PartnerInput) map[string]interface{} {
	name := fullPartnerName(input.FirstName, input.LastName)
	if name == "" {
		name = defaultPartnerName
	}
	vals := map[string]interface{}{"name": name}

	if phone := strings.TrimSpace(input.Phone); phone != "" {
		vals["phone"] = phone
		vals["mobile"] = phone
	}
	if input.Age != nil {
		vals["comment"] = fmt.Sprintf("Edad: %d", *input.Age)
	}
	return vals
}
