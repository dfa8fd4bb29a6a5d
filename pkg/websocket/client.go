package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrClientClosed   = errors.New("websocket-клиент закрыт")
	ErrSendBufferFull = errors.New("буфер отправки клиента переполнен")
)

type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func DefaultOptions() Options {
	return Options{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 512,
		SendBuffer:     16,
	}
}

func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.WriteWait <= 0 {
		o.WriteWait = def.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = def.PongWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = def.MaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = def.SendBuffer
	}
	return o
}

// Client - один зритель, подключённый к филиалу через WebSocket.
type Client struct {
	id       string
	branchID int64
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	opts     Options
	logger   *zap.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, branchID int64, opts Options, logger *zap.Logger) *Client {
	opts = opts.withDefaults()
	id := uuid.NewString()
	return &Client{
		id:       id,
		branchID: branchID,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, opts.SendBuffer),
		done:     make(chan struct{}),
		opts:     opts,
		logger:   logger.With(zap.String("connID", id), zap.Int64("branchID", branchID)),
	}
}

func (c *Client) ID() string { return c.id }

// Done закрывается, когда клиент закрыт.
func (c *Client) Done() <-chan struct{} { return c.done }

// Send ставит сообщение в очередь на запись и никогда не блокируется.
func (c *Client) Send(message []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- message:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close закрывает клиента; повторные вызовы безопасны.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// ReadPump блокируется до отключения пира, истечения pong-таймаута или отмены ctx.
// На выходе зритель снимается с хаба и соединение закрывается.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Detach(c.branchID, c)
		_ = c.Close()
	}()

	// ReadMessage не принимает ctx: закрытие соединения разблокирует чтение.
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		// клиенты шлют текстовые "ping" - это тоже признак жизни
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Debug("WebSocket: соединение прервано", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	}
}

// WritePump - единственный писатель в соединение.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("WebSocket: ошибка записи, соединение закрывается", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
