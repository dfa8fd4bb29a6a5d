package odoo

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dto_internal "turnos-api/internal/integrations/dto"
	"turnos-api/pkg/config"
	apperrors "turnos-api/pkg/errors"
)

type call struct {
	method string
	args   []interface{}
}

// fakeCaller отвечает на XML-RPC вызовы заранее заданной функцией.
type fakeCaller struct {
	mu     sync.Mutex
	calls  []call
	handle func(method string, args []interface{}) (interface{}, error)
}

func (f *fakeCaller) Call(method string, args interface{}, reply interface{}) error {
	list, _ := args.([]interface{})
	f.mu.Lock()
	f.calls = append(f.calls, call{method: method, args: list})
	f.mu.Unlock()

	result, err := f.handle(method, list)
	if err != nil {
		return err
	}
	if result != nil {
		reflect.ValueOf(reply).Elem().Set(reflect.ValueOf(result))
	}
	return nil
}

func (f *fakeCaller) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func testConfig() config.OdooConfig {
	return config.OdooConfig{
		URL:      "https://crm.example.com",
		DB:       "turnos",
		User:     "bot@example.com",
		Password: "secret",
		Enabled:  true,
		Timeout:  time.Second,
	}
}

func newTestProvider(common, models, dbs *fakeCaller) *Provider {
	return &Provider{
		cfg:    testConfig(),
		common: common,
		models: models,
		dbs:    dbs,
		logger: zap.NewNop(),
	}
}

func authOK() *fakeCaller {
	return &fakeCaller{handle: func(method string, _ []interface{}) (interface{}, error) {
		switch method {
		case "authenticate":
			return int64(7), nil
		case "version":
			return map[string]interface{}{"server_version": "17.0"}, nil
		}
		return nil, nil
	}}
}

func TestProvider_CheckConfig(t *testing.T) {
	p := newTestProvider(authOK(), nil, nil)
	p.cfg.Enabled = false
	_, err := p.Health(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrIntegrationDisabled)

	p = newTestProvider(authOK(), nil, nil)
	p.cfg.Password = ""
	_, err = p.SearchPartners(context.Background(), "ana", 5)
	assert.ErrorIs(t, err, apperrors.ErrIntegrationConfig)

	created, err := New(config.OdooConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	_, err = created.Health(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrIntegrationConfig)
}

func TestProvider_HealthTolerantToDBList(t *testing.T) {
	dbs := &fakeCaller{handle: func(string, []interface{}) (interface{}, error) {
		return nil, xmlrpc.FaultError{Code: 3, String: "Access Denied"}
	}}
	p := newTestProvider(authOK(), nil, dbs)

	health, err := p.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.OK)
	assert.Equal(t, int64(7), health.UID)
	assert.Equal(t, "17.0", health.Version["server_version"])
	assert.Empty(t, health.Databases)
}

func TestProvider_AuthenticateCachesUID(t *testing.T) {
	common := authOK()
	models := &fakeCaller{handle: func(string, []interface{}) (interface{}, error) {
		return []interface{}{}, nil
	}}
	p := newTestProvider(common, models, nil)

	for i := 0; i < 3; i++ {
		_, err := p.SearchPartners(context.Background(), "ana", 5)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, common.count("authenticate"))
	assert.Equal(t, 3, models.count("execute_kw"))
}

func TestProvider_AuthenticateRejected(t *testing.T) {
	common := &fakeCaller{handle: func(string, []interface{}) (interface{}, error) {
		return false, nil
	}}
	p := newTestProvider(common, nil, nil)

	_, err := p.ReadPartner(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authenticate()")
}

func TestProvider_SearchPartners(t *testing.T) {
	var gotArgs []interface{}
	models := &fakeCaller{handle: func(_ string, args []interface{}) (interface{}, error) {
		gotArgs = args
		return []interface{}{
			map[string]interface{}{"id": int64(5), "name": "Ana Gómez", "phone": "300", "mobile": false},
		}, nil
	}}
	p := newTestProvider(authOK(), models, nil)

	res, err := p.SearchPartners(context.Background(), "  ana ", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, int64(5), res[0].ID)
	require.NotNil(t, res[0].Phone)
	assert.Equal(t, "300", *res[0].Phone)
	assert.Nil(t, res[0].Mobile)

	require.Len(t, gotArgs, 7)
	assert.Equal(t, "res.partner", gotArgs[3])
	assert.Equal(t, "search_read", gotArgs[4])
	domain := gotArgs[5].([]interface{})[0].([]interface{})
	assert.Equal(t, "|", domain[0])
	assert.Equal(t, []interface{}{"name", "ilike", "ana"}, domain[1])
	kwargs := gotArgs[6].(map[string]interface{})
	assert.Equal(t, 5, kwargs["limit"])
	assert.Equal(t, "name asc", kwargs["order"])

	short, err := p.SearchPartners(context.Background(), "a", 5)
	require.NoError(t, err)
	assert.Empty(t, short)
	assert.Equal(t, 1, models.count("execute_kw"))
}

func TestProvider_FindPartnerExactPrefersPhone(t *testing.T) {
	var domains [][]interface{}
	models := &fakeCaller{handle: func(_ string, args []interface{}) (interface{}, error) {
		domain := args[5].([]interface{})[0].([]interface{})
		domains = append(domains, domain)
		if domain[0] == "|" {
			return []interface{}{}, nil
		}
		return []interface{}{map[string]interface{}{"id": int64(9), "name": "Ana Gómez"}}, nil
	}}
	p := newTestProvider(authOK(), models, nil)

	found, err := p.FindPartnerExact(context.Background(), "Ana", "Gómez", "300 123")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(9), found.ID)

	require.Len(t, domains, 2)
	assert.Equal(t, []interface{}{"phone", "=", "300 123"}, domains[0][1])
	assert.Equal(t, []interface{}{"name", "=ilike", "Ana Gómez"}, domains[1][0])
}

func TestProvider_CreatePartner(t *testing.T) {
	var vals map[string]interface{}
	models := &fakeCaller{handle: func(_ string, args []interface{}) (interface{}, error) {
		switch args[4] {
		case "create":
			vals = args[5].([]interface{})[0].(map[string]interface{})
			return int64(42), nil
		case "read":
			return nil, errors.New("read недоступен")
		}
		return nil, nil
	}}
	p := newTestProvider(authOK(), models, nil)
	age := 30

	created, err := p.CreatePartner(context.Background(), dto_internal.PartnerInput{Age: &age, Phone: " 300 "})
	require.NoError(t, err)

	assert.Equal(t, "Cliente sin nombre", vals["name"])
	assert.Equal(t, "300", vals["phone"])
	assert.Equal(t, "300", vals["mobile"])
	assert.Equal(t, "Edad: 30", vals["comment"])

	// read упал - отдаём то, что знаем
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, "Cliente sin nombre", created.Name)
	require.NotNil(t, created.Mobile)
	assert.Equal(t, "300", *created.Mobile)
}

func TestProvider_UpdatePartnerPhoneClears(t *testing.T) {
	var written map[string]interface{}
	models := &fakeCaller{handle: func(_ string, args []interface{}) (interface{}, error) {
		switch args[4] {
		case "write":
			written = args[5].([]interface{})[1].(map[string]interface{})
			return true, nil
		case "read":
			return []interface{}{map[string]interface{}{"id": int64(3), "name": "Ana", "phone": false, "mobile": false}}, nil
		}
		return nil, nil
	}}
	p := newTestProvider(authOK(), models, nil)

	updated, err := p.UpdatePartnerPhone(context.Background(), 3, "  ")
	require.NoError(t, err)
	assert.Equal(t, false, written["phone"])
	assert.Equal(t, false, written["mobile"])
	assert.Nil(t, updated.Phone)
}

func TestProvider_FaultResetsSessionOnAccessError(t *testing.T) {
	common := authOK()
	models := &fakeCaller{handle: func(string, []interface{}) (interface{}, error) {
		return nil, xmlrpc.FaultError{Code: 3, String: "AccessDenied"}
	}}
	p := newTestProvider(common, models, nil)

	_, err := p.ReadPartner(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Odoo Fault")

	_, _ = p.ReadPartner(context.Background(), 1)
	assert.Equal(t, 2, common.count("authenticate"))
}

func TestProvider_CallRespectsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := &fakeCaller{handle: func(string, []interface{}) (interface{}, error) {
		<-release
		return nil, nil
	}}
	p := newTestProvider(slow, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var reply interface{}
	err := p.call(ctx, slow, "version", nil, &reply)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
