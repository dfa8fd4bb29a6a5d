package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/require"

	"turnos-api/internal/entities"
	"turnos-api/internal/events"
	"turnos-api/pkg/eventbus"
	apperrors "turnos-api/pkg/errors"
)

// memTicketRepo - хранилище тикетов в памяти с теми же правилами переходов, что и в PostgreSQL.
type memTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	clock   time.Time
	tickets map[int64]*entities.Ticket
	failAll error
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{
		nextID:  1,
		clock:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		tickets: make(map[int64]*entities.Ticket),
	}
}

func (r *memTicketRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memTicketRepo) Create(_ context.Context, t entities.NewTicket) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return 0, apperrors.NewPersistenceError("create ticket", r.failAll)
	}
	now := r.tick()
	id := r.nextID
	r.nextID++
	r.tickets[id] = &entities.Ticket{
		ID: id, BranchID: t.BranchID, Name: t.Name, Age: t.Age, Phone: t.Phone,
		State: entities.TicketWaiting, CreatedAt: now, UpdatedAt: now,
	}
	return id, nil
}

func (r *memTicketRepo) Start(_ context.Context, id int64) (entities.TransitionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return entities.TransitionResult{}, apperrors.NewPersistenceError("start ticket", r.failAll)
	}
	res := entities.TransitionResult{TicketID: id}
	t, ok := r.tickets[id]
	if !ok || !t.State.CanTransitionTo(entities.TicketServing) {
		return res, nil
	}
	for _, other := range r.tickets {
		if other.BranchID == t.BranchID && other.State == entities.TicketServing {
			return res, nil
		}
	}
	now := r.tick()
	t.State = entities.TicketServing
	t.StartedAt = null.TimeFrom(now)
	t.UpdatedAt = now
	res.BranchID = t.BranchID
	res.Changed = true
	return res, nil
}

func (r *memTicketRepo) Finish(_ context.Context, id int64) (entities.TransitionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return entities.TransitionResult{}, apperrors.NewPersistenceError("finish ticket", r.failAll)
	}
	t, ok := r.tickets[id]
	if !ok {
		return entities.TransitionResult{}, apperrors.ErrNotFound
	}
	res := entities.TransitionResult{TicketID: id, BranchID: t.BranchID}
	if t.State.CanTransitionTo(entities.TicketFinished) {
		t.State = entities.TicketFinished
		t.UpdatedAt = r.tick()
		res.Changed = true
	}
	return res, nil
}

func (r *memTicketRepo) activeLocked(branchID int64) []entities.Ticket {
	var out []entities.Ticket
	for _, t := range r.tickets {
		if t.BranchID == branchID && t.State.Active() {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].State == entities.TicketServing, out[j].State == entities.TicketServing
		if si != sj {
			return si
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memTicketRepo) HeadOfQueue(_ context.Context, branchID int64) (*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, apperrors.NewPersistenceError("head of queue", r.failAll)
	}
	queue := r.activeLocked(branchID)
	if len(queue) == 0 {
		return nil, nil
	}
	return &queue[0], nil
}

func (r *memTicketRepo) GetQueue(_ context.Context, branchID int64) ([]entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, apperrors.NewPersistenceError("get queue", r.failAll)
	}
	queue := r.activeLocked(branchID)
	if queue == nil {
		queue = []entities.Ticket{}
	}
	return queue, nil
}

func (r *memTicketRepo) FindByID(_ context.Context, id int64) (*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *memTicketRepo) breakStorage() {
	r.mu.Lock()
	r.failAll = errors.New("connection refused")
	r.mu.Unlock()
}

// viewer - зритель, который копит полученные снимки.
type viewer struct {
	id string

	mu       sync.Mutex
	messages [][]byte
	fail     bool
}

func (v *viewer) ID() string { return v.id }

func (v *viewer) Send(message []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fail {
		return errors.New("зритель отключился")
	}
	v.messages = append(v.messages, message)
	return nil
}

func (v *viewer) events(t *testing.T) []events.QueueSnapshotEvent {
	t.Helper()
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]events.QueueSnapshotEvent, 0, len(v.messages))
	for _, m := range v.messages {
		var e events.QueueSnapshotEvent
		require.NoError(t, json.Unmarshal(m, &e))
		out = append(out, e)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TicketCreatedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(events.TicketCreatedEvent); ok {
		p.events = append(p.events, e)
	}
}
