package websocket

import (
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Conn - то, что хаб умеет делать с подключением зрителя.
// Send не должен блокироваться надолго: медленный получатель возвращает ошибку.
// Реализации должны быть указателями: хаб сравнивает подключения по идентичности.
// Если реализация умеет Close, выкинутое из хаба подключение закрывается.
type Conn interface {
	ID() string
	Send(message []byte) error
}

// Hub держит подключения зрителей, сгруппированные по филиалам.
// Карта членства не отдаётся наружу, все изменения идут через Attach/Detach/Broadcast.
type Hub struct {
	mu       sync.Mutex
	branches map[int64]map[string]Conn
	logger   *zap.Logger
	metrics  *Metrics
}

func NewHub(logger *zap.Logger, metrics *Metrics) *Hub {
	return &Hub{
		branches: make(map[int64]map[string]Conn),
		logger:   logger.Named("ws_hub"),
		metrics:  metrics,
	}
}

// Attach регистрирует подключение в филиале. Повторный Attach того же подключения - no-op.
func (h *Hub) Attach(branchID int64, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.branches[branchID]
	if !ok {
		group = make(map[string]Conn)
		h.branches[branchID] = group
	}
	if _, exists := group[conn.ID()]; exists {
		return
	}
	group[conn.ID()] = conn
	h.metrics.setViewers(branchID, len(group))

	h.logger.Debug("Зритель подключён",
		zap.Int64("branchID", branchID),
		zap.String("connID", conn.ID()),
		zap.Int("viewers", len(group)),
	)
}

// Detach удаляет подключение; пустая группа филиала удаляется целиком.
// Повторный вызов безопасен.
func (h *Hub) Detach(branchID int64, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(branchID, conn) {
		h.logger.Debug("Зритель отключён",
			zap.Int64("branchID", branchID),
			zap.String("connID", conn.ID()),
		)
	}
}

func (h *Hub) removeLocked(branchID int64, conn Conn) bool {
	group, ok := h.branches[branchID]
	if !ok {
		return false
	}
	current, ok := group[conn.ID()]
	if !ok || current != conn {
		return false
	}
	delete(group, conn.ID())
	if len(group) == 0 {
		delete(h.branches, branchID)
	}
	h.metrics.setViewers(branchID, len(group))
	return true
}

// Broadcast доставляет сообщение всем, кто был подключён к филиалу на момент снимка.
// Блокировка держится только на снимке и на удалении упавших подключений.
// Ошибки доставки не возвращаются: упавшие подключения удаляются и закрываются,
// чтобы зритель переподключился и получил свежий снимок.
func (h *Hub) Broadcast(branchID int64, message []byte) int {
	h.mu.Lock()
	group := h.branches[branchID]
	targets := make([]Conn, 0, len(group))
	for _, conn := range group {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	h.metrics.incBroadcast(branchID)

	var failed []Conn
	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(message); err != nil {
			h.logger.Debug("Не удалось доставить сообщение зрителю",
				zap.Int64("branchID", branchID),
				zap.String("connID", conn.ID()),
				zap.Error(err),
			)
			failed = append(failed, conn)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, conn := range failed {
			h.removeLocked(branchID, conn)
		}
		h.mu.Unlock()
		h.metrics.addFailures(branchID, len(failed))

		for _, conn := range failed {
			closeConn(conn)
		}
	}

	return delivered
}

// BroadcastJSON сериализует payload один раз и рассылает его.
func (h *Hub) BroadcastJSON(branchID int64, payload interface{}) int {
	message, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Ошибка сериализации сообщения для WebSocket",
			zap.Int64("branchID", branchID),
			zap.Error(err),
		)
		return 0
	}
	return h.Broadcast(branchID, message)
}

// Count - число зрителей филиала.
func (h *Hub) Count(branchID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.branches[branchID])
}

// Branches - филиалы, у которых есть хотя бы один зритель.
func (h *Hub) Branches() []int64 {
	h.mu.Lock()
	ids := make([]int64, 0, len(h.branches))
	for id := range h.branches {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CloseAll отключает всех зрителей (остановка сервера).
func (h *Hub) CloseAll() {
	branches := h.Branches()

	h.mu.Lock()
	var conns []Conn
	for branchID, group := range h.branches {
		for _, conn := range group {
			conns = append(conns, conn)
		}
		h.metrics.setViewers(branchID, 0)
	}
	h.branches = make(map[int64]map[string]Conn)
	h.mu.Unlock()

	for _, conn := range conns {
		closeConn(conn)
	}
	h.logger.Info("Все WebSocket-подключения закрыты",
		zap.Int("count", len(conns)),
		zap.Int64s("branches", branches),
	)
}

func closeConn(conn Conn) {
	if closer, ok := conn.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
