package odoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"
)

// call выполняет XML-RPC вызов. Библиотека не принимает ctx, поэтому вызов
// уходит в горутину, а ожидание прерывается отменой ctx.
func (p *Provider) call(ctx context.Context, caller rpcCaller, method string, args interface{}, reply interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- caller.Call(method, args, reply)
	}()

	select {
	case err := <-done:
		return wrapFault(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// executeKw - object.execute_kw для res.partner.
func (p *Provider) executeKw(ctx context.Context, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	uid, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	params := []interface{}{p.cfg.DB, uid, p.cfg.Password, partnerModel, method, args}
	if kwargs != nil {
		params = append(params, kwargs)
	}

	var reply interface{}
	if err := p.call(ctx, p.models, "execute_kw", params, &reply); err != nil {
		var fault xmlrpc.FaultError
		if errors.As(err, &fault) && strings.Contains(strings.ToLower(fault.String), "access") {
			// сессия могла протухнуть: следующий вызов аутентифицируется заново
			p.resetUID()
		}
		return nil, err
	}
	return reply, nil
}

func wrapFault(err error) error {
	if err == nil {
		return nil
	}
	var fault xmlrpc.FaultError
	if errors.As(err, &fault) {
		return fmt.Errorf("Odoo Fault: %s: %w", fault.String, err)
	}
	return err
}

// timeoutTransport ограничивает каждый HTTP-запрос к Odoo.
type timeoutTransport struct {
	base    http.RoundTripper
	timeout time.Duration
}

func newTimeoutTransport(base http.RoundTripper, timeout time.Duration) http.RoundTripper {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &timeoutTransport{base: base, timeout: timeout}
}

func (t *timeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
