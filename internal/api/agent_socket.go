package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nhle/mailagent/internal/model"
)

const (
	// writeWait is the time allowed to write one frame.
	writeWait = 10 * time.Second

	// socketBuffer is the capacity of the inbound message channel.
	socketBuffer = 16
)

// ErrSocketClosed is returned by Send after Close.
var ErrSocketClosed = errors.New("agent socket closed")

// AgentSocket is a live connection to /ws/agent. Inbound frames are
// decoded by a read pump and delivered on Messages.
type AgentSocket struct {
	ClientID string

	conn     *websocket.Conn
	messages chan model.AgentMessage
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	err       error
}

// Dial opens the agent WebSocket. An empty clientID gets a random one.
// The current token, if any, is sent as a query parameter because
// browsers and most proxies do not forward headers on upgrade.
func (a *Agent) Dial(ctx context.Context, clientID string) (*AgentSocket, error) {
	if clientID == "" {
		clientID = uuid.NewString()
	}

	q := url.Values{}
	q.Set("client_id", clientID)
	if token := a.c.Token(ctx); token != "" {
		q.Set("token", token)
	}

	target, err := a.c.WebSocketURL("/ws/agent", q)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing agent socket: %w", err)
	}

	s := &AgentSocket{
		ClientID: clientID,
		conn:     conn,
		messages: make(chan model.AgentMessage, socketBuffer),
		done:     make(chan struct{}),
	}
	go s.readPump()

	return s, nil
}

// Messages returns the channel of inbound frames. It is closed when the
// connection ends; Err then reports why.
func (s *AgentSocket) Messages() <-chan model.AgentMessage {
	return s.messages
}

// Send writes one frame.
func (s *AgentSocket) Send(msg model.AgentMessage) error {
	select {
	case <-s.done:
		return ErrSocketClosed
	default:
	}

	if msg.ClientID == "" {
		msg.ClientID = s.ClientID
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("writing agent message: %w", err)
	}
	return nil
}

// Close sends a close frame and releases the connection. Safe to call
// more than once.
func (s *AgentSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)

		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		s.writeMu.Unlock()

		err = s.conn.Close()
	})
	return err
}

// Err returns the error that ended the read pump, or nil after a normal
// close. It is only meaningful once Messages has been closed.
func (s *AgentSocket) Err() error {
	return s.err
}

func (s *AgentSocket) readPump() {
	defer close(s.messages)

	for {
		var msg model.AgentMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.err = err
				}
			}
			return
		}

		select {
		case s.messages <- msg:
		case <-s.done:
			return
		}
	}
}
