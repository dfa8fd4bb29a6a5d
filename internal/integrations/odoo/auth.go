package odoo

import (
	"context"
	"fmt"
)

// authenticate возвращает uid пользователя Odoo, кешируя его на время жизни провайдера.
func (p *Provider) authenticate(ctx context.Context) (int64, error) {
	if err := p.checkConfig(); err != nil {
		return 0, err
	}

	p.uidMu.Lock()
	defer p.uidMu.Unlock()

	if p.uid > 0 {
		return p.uid, nil
	}

	var reply interface{}
	args := []interface{}{p.cfg.DB, p.cfg.User, p.cfg.Password, map[string]interface{}{}}
	if err := p.call(ctx, p.common, "authenticate", args, &reply); err != nil {
		return 0, fmt.Errorf("ошибка вызова authenticate(): %w", err)
	}

	// при неверных данных Odoo отвечает false
	uid, ok := toInt64(reply)
	if !ok || uid <= 0 {
		return 0, fmt.Errorf("authenticate() вернул false, проверьте ODOO_DB/ODOO_USER/ODOO_PASSWORD")
	}

	p.uid = uid
	return uid, nil
}

func (p *Provider) resetUID() {
	p.uidMu.Lock()
	p.uid = 0
	p.uidMu.Unlock()
}
