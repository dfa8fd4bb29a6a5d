// Файл: internal/integrations/registry.go
package integrations

import (
	"fmt"
	"sort"
	"sync"
)

// RegistryInterface - набор CRM-провайдеров, из которых один активный.
type RegistryInterface interface {
	Register(provider PartnerProvider) error
	Get(name string) (PartnerProvider, error)
	SetActive(name string) error
	GetActive() (PartnerProvider, error)
	Names() []string
}

type Registry struct {
	providers map[string]PartnerProvider
	active    string
	mu        sync.RWMutex
}

func NewRegistry() RegistryInterface {
	return &Registry{
		providers: make(map[string]PartnerProvider),
	}
}

func (r *Registry) Register(provider PartnerProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("CRM-провайдер %q уже зарегистрирован", name)
	}

	r.providers[name] = provider
	// первый зарегистрированный становится активным
	if r.active == "" {
		r.active = name
	}
	return nil
}

func (r *Registry) Get(name string) (PartnerProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("CRM-провайдер %q не найден", name)
	}
	return provider, nil
}

func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return fmt.Errorf("CRM-провайдер %q не зарегистрирован", name)
	}

	r.active = name
	return nil
}

func (r *Registry) GetActive() (PartnerProvider, error) {
	r.mu.RLock()
	activeName := r.active
	r.mu.RUnlock()

	if activeName == "" {
		return nil, fmt.Errorf("активный CRM-провайдер не выбран")
	}

	return r.Get(activeName)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
