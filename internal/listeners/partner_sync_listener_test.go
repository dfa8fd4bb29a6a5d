package listeners

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"turnos-api/internal/events"
	"turnos-api/internal/integrations"
	"turnos-api/internal/integrations/mock"
	"turnos-api/internal/services"
	"turnos-api/pkg/eventbus"
)

func TestPartnerSyncListener_CreatesPartnerOnce(t *testing.T) {
	provider := mock.New()
	registry := integrations.NewRegistry()
	require.NoError(t, registry.Register(provider))
	partnerService := services.NewPartnerService(registry, nil, 0, zap.NewNop())

	bus := eventbus.New(zap.NewNop(), time.Second)
	NewPartnerSyncListener(partnerService, zap.NewNop()).Register(bus)

	phone := "3001234567"
	event := events.TicketCreatedEvent{TicketID: 1, BranchID: 1, Name: "Ana", Age: 30, Phone: &phone}

	bus.Publish(context.Background(), event)
	require.NoError(t, bus.Wait(context.Background()))
	bus.Publish(context.Background(), event)
	require.NoError(t, bus.Wait(context.Background()))

	// второй раз клиент находится по телефону
	assert.Equal(t, 1, provider.Created)

	found, err := provider.FindPartnerExact(context.Background(), "", "", phone)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Ana", found.Name)
}

func TestPartnerSyncListener_RejectsForeignEvent(t *testing.T) {
	l := NewPartnerSyncListener(nil, zap.NewNop())

	err := l.handleTicketCreated(context.Background(), otherEvent{})
	assert.Error(t, err)
}

type otherEvent struct{}

func (otherEvent) Name() string { return "other" }
