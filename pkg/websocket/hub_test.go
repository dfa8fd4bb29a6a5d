package websocket

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingConn struct {
	id   string
	fail bool

	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func newRecordingConn(id string) *recordingConn {
	return &recordingConn{id: id}
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Send(message []byte) error {
	if c.fail {
		return errors.New("соединение разорвано")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func newTestHub() *Hub {
	return NewHub(zap.NewNop(), NewMetrics(nil))
}

func TestHub_AttachIsIdempotent(t *testing.T) {
	hub := newTestHub()
	conn := newRecordingConn("a")

	hub.Attach(1, conn)
	hub.Attach(1, conn)

	assert.Equal(t, 1, hub.Count(1))

	delivered := hub.Broadcast(1, []byte("x"))
	assert.Equal(t, 1, delivered)
	assert.Len(t, conn.received(), 1)
}

func TestHub_DetachRemovesEmptyBranch(t *testing.T) {
	hub := newTestHub()
	a := newRecordingConn("a")
	b := newRecordingConn("b")

	hub.Attach(1, a)
	hub.Attach(1, b)
	hub.Attach(2, newRecordingConn("c"))

	hub.Detach(1, a)
	assert.Equal(t, 1, hub.Count(1))
	assert.Equal(t, []int64{1, 2}, hub.Branches())

	hub.Detach(1, b)
	hub.Detach(1, b)
	assert.Equal(t, 0, hub.Count(1))
	assert.Equal(t, []int64{2}, hub.Branches())

	// отсоединение от несуществующего филиала
	hub.Detach(42, a)
}

func TestHub_DetachIgnoresForeignConnWithSameID(t *testing.T) {
	hub := newTestHub()
	original := newRecordingConn("same")
	impostor := newRecordingConn("same")

	hub.Attach(1, original)
	hub.Detach(1, impostor)

	assert.Equal(t, 1, hub.Count(1))
}

func TestHub_BroadcastIsIsolatedByBranch(t *testing.T) {
	hub := newTestHub()
	b1 := newRecordingConn("b1")
	b2 := newRecordingConn("b2")
	hub.Attach(1, b1)
	hub.Attach(2, b2)

	hub.Broadcast(1, []byte("one"))

	require.Len(t, b1.received(), 1)
	assert.Equal(t, "one", string(b1.received()[0]))
	assert.Empty(t, b2.received())
}

func TestHub_BroadcastPrunesFailedConnections(t *testing.T) {
	hub := newTestHub()
	good := newRecordingConn("good")
	bad := newRecordingConn("bad")
	bad.fail = true

	hub.Attach(1, good)
	hub.Attach(1, bad)

	delivered := hub.Broadcast(1, []byte("x"))

	assert.Equal(t, 1, delivered)
	assert.Len(t, good.received(), 1)
	assert.Equal(t, 1, hub.Count(1))
	assert.True(t, bad.closed)
	assert.False(t, good.closed)

	// упавший больше не участвует в рассылках
	bad.fail = false
	hub.Broadcast(1, []byte("y"))
	assert.Empty(t, bad.received())
	assert.Len(t, good.received(), 2)
}

func TestHub_SlowClientIsClosedAfterPrune(t *testing.T) {
	hub := newTestHub()
	// без WritePump буфер никто не вычитывает
	client := NewClient(hub, nil, 3, Options{SendBuffer: 1}, zap.NewNop())
	hub.Attach(3, client)

	assert.Equal(t, 1, hub.Broadcast(3, []byte("first")))
	assert.Equal(t, 0, hub.Broadcast(3, []byte("second")))

	assert.Equal(t, 0, hub.Count(3))
	select {
	case <-client.Done():
	default:
		t.Fatal("выкинутый из хаба клиент остался открытым")
	}
	assert.ErrorIs(t, client.Send([]byte("third")), ErrClientClosed)
}

func TestHub_DetachedConnReceivesNothing(t *testing.T) {
	hub := newTestHub()
	conn := newRecordingConn("a")
	hub.Attach(3, conn)
	hub.Detach(3, conn)

	var delivered int
	assert.NotPanics(t, func() {
		delivered = hub.Broadcast(3, []byte("x"))
	})
	assert.Equal(t, 0, delivered)
	assert.Empty(t, conn.received())
}

func TestHub_ConcurrentViewersReceiveExactlyOnce(t *testing.T) {
	hub := newTestHub()
	conns := make([]*recordingConn, 50)

	var wg sync.WaitGroup
	for i := range conns {
		conns[i] = newRecordingConn(fmt.Sprintf("viewer-%d", i))
		wg.Add(1)
		go func(c *recordingConn) {
			defer wg.Done()
			hub.Attach(5, c)
		}(conns[i])
	}
	wg.Wait()
	require.Equal(t, 50, hub.Count(5))

	delivered := hub.Broadcast(5, []byte("finished"))
	assert.Equal(t, 50, delivered)

	for _, c := range conns {
		msgs := c.received()
		require.Len(t, msgs, 1, c.ID())
		assert.Equal(t, "finished", string(msgs[0]))
	}
}

func TestHub_ConcurrentAttachDetachAndBroadcast(t *testing.T) {
	hub := newTestHub()
	stable := newRecordingConn("stable")
	hub.Attach(7, stable)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c := newRecordingConn(fmt.Sprintf("churn-%d", i))
			hub.Attach(7, c)
			hub.Detach(7, c)
		}(i)
		go func() {
			defer wg.Done()
			hub.Broadcast(7, []byte("tick"))
		}()
	}
	wg.Wait()

	assert.Len(t, stable.received(), 20)
	assert.Equal(t, 1, hub.Count(7))
}

func TestHub_BroadcastJSON(t *testing.T) {
	hub := newTestHub()
	conn := newRecordingConn("a")
	hub.Attach(1, conn)

	delivered := hub.BroadcastJSON(1, map[string]int64{"branch_id": 1})
	assert.Equal(t, 1, delivered)
	require.Len(t, conn.received(), 1)
	assert.JSONEq(t, `{"branch_id":1}`, string(conn.received()[0]))

	// несериализуемое значение никому не уходит
	assert.Equal(t, 0, hub.BroadcastJSON(1, make(chan int)))
	assert.Len(t, conn.received(), 1)
}

func TestHub_CloseAll(t *testing.T) {
	hub := newTestHub()
	a := newRecordingConn("a")
	b := newRecordingConn("b")
	hub.Attach(1, a)
	hub.Attach(2, b)

	hub.CloseAll()

	assert.Empty(t, hub.Branches())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestHub_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	hub := NewHub(zap.NewNop(), NewMetrics(reg))

	good := newRecordingConn("good")
	bad := newRecordingConn("bad")
	bad.fail = true
	hub.Attach(9, good)
	hub.Attach(9, bad)
	assert.Equal(t, float64(2), testutil.ToFloat64(hub.metrics.viewers.WithLabelValues("9")))

	hub.Broadcast(9, []byte("x"))

	assert.Equal(t, float64(1), testutil.ToFloat64(hub.metrics.viewers.WithLabelValues("9")))
	assert.Equal(t, float64(1), testutil.ToFloat64(hub.metrics.broadcasts.WithLabelValues("9")))
	assert.Equal(t, float64(1), testutil.ToFloat64(hub.metrics.deliveryFailures.WithLabelValues("9")))
}
