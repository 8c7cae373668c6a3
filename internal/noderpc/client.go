package noderpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second

	// msgBuffer bounds the reader-to-consumer channel. New-heads arrive
	// at block cadence, so a small buffer is plenty.
	msgBuffer = 16
)

// Message is one inbound frame, decoded just far enough to route.
//
// For responses, Method is resolved from the request that carried the
// same ID. For notifications, Notification is true and SubID carries
// the subscription identifier.
type Message struct {
	ID           uint64
	Method       string
	Result       json.RawMessage
	Err          *Error
	Notification bool
	SubID        string
}

// Decode unmarshals the message result into v.
func (m *Message) Decode(v any) error {
	if m.Err != nil {
		return m.Err
	}
	if err := json.Unmarshal(m.Result, v); err != nil {
		return fmt.Errorf("decoding %s result: %w", m.Method, err)
	}
	return nil
}

// Session is a WebSocket JSON-RPC session with a dedicated reader goroutine.
//
// The reader feeds inbound frames into a channel; ReadOne consumes at
// most one with a timeout. This avoids per-read deadlines on the
// connection, which would poison it on expiry.
//
// Thread Safety:
//   - Send and ReadOne may be called from different goroutines.
type Session struct {
	conn *websocket.Conn
	msgs chan Message

	// pending maps request IDs to method names so responses can be routed.
	pending map[uint64]string
	nextID  uint64
	mu      sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once
	readErr   error
}

// Dial opens a WebSocket connection to the given ws:// or wss:// URL
// and starts the reader goroutine.
func Dial(ctx context.Context, url string) (*Session, error) {
	dialer := websocket.Dialer{HandshakeTimeout: defaultDialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDialFailed, url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s := &Session{
		conn:    conn,
		msgs:    make(chan Message, msgBuffer),
		pending: make(map[uint64]string),
		closed:  make(chan struct{}),
	}

	go s.readLoop()

	return s, nil
}

// readLoop reads frames until the connection fails, routing each into
// the message channel. On failure it records the error and closes the
// session.
func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			s.close()
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Unparseable frame: skip it, the session is still healthy.
			continue
		}

		msg, ok := s.route(env)
		if !ok {
			continue
		}

		select {
		case s.msgs <- msg:
		case <-s.closed:
			return
		}
	}
}

// route turns an envelope into a Message, resolving response IDs
// against the pending request map.
func (s *Session) route(env envelope) (Message, bool) {
	if env.ID != nil {
		s.mu.Lock()
		method := s.pending[*env.ID]
		delete(s.pending, *env.ID)
		s.mu.Unlock()

		return Message{
			ID:     *env.ID,
			Method: method,
			Result: env.Result,
			Err:    env.Error,
		}, true
	}

	if env.Method == "" {
		return Message{}, false
	}

	var params subscriptionParams
	if err := json.Unmarshal(env.Params, &params); err != nil {
		return Message{}, false
	}

	return Message{
		Method:       env.Method,
		Result:       params.Result,
		Notification: true,
		SubID:        rawToString(params.Subscription),
	}, true
}

// rawToString renders a subscription ID, which servers encode as
// either a JSON string or a number.
func rawToString(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var num uint64
	if err := json.Unmarshal(raw, &num); err == nil {
		return strconv.FormatUint(num, 10)
	}
	return string(raw)
}

// Send issues a JSON-RPC request and returns its ID. The response
// arrives later via ReadOne.
func (s *Session) Send(ctx context.Context, method string, params []any) (uint64, error) {
	select {
	case <-s.closed:
		return 0, ErrClosed
	default:
	}

	if params == nil {
		params = []any{}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.pending[id] = method
	s.mu.Unlock()

	req := request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encoding %s request: %w", method, err)
	}

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.mu.Lock()
	s.conn.SetWriteDeadline(deadline)
	err = s.conn.WriteMessage(websocket.TextMessage, data)
	s.mu.Unlock()
	if err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return 0, fmt.Errorf("writing %s request: %w", method, err)
	}

	return id, nil
}

// ReadOne returns the next inbound message, waiting at most timeout.
//
// Returns ErrTimeout when nothing arrives in time (non-fatal) and
// ErrClosed when the connection is gone.
func (s *Session) ReadOne(timeout time.Duration) (Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-s.msgs:
		if !ok {
			return Message{}, ErrClosed
		}
		return msg, nil
	case <-s.closed:
		// Drain anything routed before the close won the race.
		select {
		case msg := <-s.msgs:
			return msg, nil
		default:
		}
		return Message{}, ErrClosed
	case <-timer.C:
		return Message{}, ErrTimeout
	}
}

// ReadErr returns the error that tore the session down, if any.
func (s *Session) ReadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

// Close shuts the session down. Safe to call multiple times.
func (s *Session) Close() error {
	s.close()
	return nil
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

// SyncStateOnce dials url, issues a single system_syncState request and
// returns the result. Used for the best-effort remote bootnode sample.
func SyncStateOnce(ctx context.Context, url string) (SyncState, error) {
	var state SyncState

	sess, err := Dial(ctx, url)
	if err != nil {
		return state, err
	}
	defer sess.Close()

	id, err := sess.Send(ctx, MethodSyncState, nil)
	if err != nil {
		return state, err
	}

	deadline := time.Now().Add(defaultDialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return state, ErrTimeout
		}

		msg, err := sess.ReadOne(remaining)
		if err != nil {
			return state, err
		}
		if msg.Notification || msg.ID != id {
			continue
		}
		if err := msg.Decode(&state); err != nil {
			return state, err
		}
		return state, nil
	}
}
