package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"turnos-api/pkg/websocket"
)

// Broadcaster - то, что нотификатору нужно от хаба.
type Broadcaster interface {
	Attach(branchID int64, conn websocket.Conn)
	Detach(branchID int64, conn websocket.Conn)
	BroadcastJSON(branchID int64, payload interface{}) int
}

type QueueNotifierInterface interface {
	NotifyBranch(ctx context.Context, branchID int64)
	AttachViewer(ctx context.Context, branchID int64, conn websocket.Conn) error
}

// QueueNotifier - шаг уведомления после коммита: снимок филиала -> рассылка.
// Проекция и рассылка для одного филиала сериализованы, поэтому зрители видят
// снимки в порядке коммитов, а последний снимок отражает последний коммит.
type QueueNotifier struct {
	projector QueueProjectorInterface
	hub       Broadcaster
	logger    *zap.Logger

	// Записи не удаляются: филиалов конечное число, по мьютексу на каждый.
	mu          sync.Mutex
	branchLocks map[int64]*sync.Mutex
}

func NewQueueNotifier(projector QueueProjectorInterface, hub Broadcaster, logger *zap.Logger) *QueueNotifier {
	return &QueueNotifier{
		projector:   projector,
		hub:         hub,
		logger:      logger.Named("queue_notifier"),
		branchLocks: make(map[int64]*sync.Mutex),
	}
}

func (n *QueueNotifier) lockBranch(branchID int64) func() {
	n.mu.Lock()
	l, ok := n.branchLocks[branchID]
	if !ok {
		l = &sync.Mutex{}
		n.branchLocks[branchID] = l
	}
	n.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// NotifyBranch рассылает свежий снимок филиала. Ошибки только логируются:
// результат мутации от доставки не зависит.
func (n *QueueNotifier) NotifyBranch(ctx context.Context, branchID int64) {
	unlock := n.lockBranch(branchID)
	defer unlock()

	event, err := n.projector.Project(ctx, branchID)
	if err != nil {
		n.logger.Error("Не удалось построить снимок очереди для рассылки",
			zap.Int64("branchID", branchID),
			zap.Error(err),
		)
		return
	}

	delivered := n.hub.BroadcastJSON(branchID, event)
	n.logger.Debug("Снимок очереди разослан",
		zap.Int64("branchID", branchID),
		zap.Int("delivered", delivered),
	)
}

// AttachViewer подключает зрителя и сразу отдаёт ему начальный снимок.
// Делается под блокировкой филиала, чтобы начальный снимок не обогнал рассылку.
func (n *QueueNotifier) AttachViewer(ctx context.Context, branchID int64, conn websocket.Conn) error {
	unlock := n.lockBranch(branchID)
	defer unlock()

	n.hub.Attach(branchID, conn)

	event, err := n.projector.Project(ctx, branchID)
	if err != nil {
		n.hub.Detach(branchID, conn)
		return err
	}

	message, err := json.Marshal(event)
	if err != nil {
		n.hub.Detach(branchID, conn)
		return fmt.Errorf("ошибка сериализации снимка: %w", err)
	}

	if err := conn.Send(message); err != nil {
		n.hub.Detach(branchID, conn)
		return fmt.Errorf("не удалось отправить начальный снимок: %w", err)
	}
	return nil
}
