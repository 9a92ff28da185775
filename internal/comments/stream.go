package comments

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rewired-gh/stockwatch/internal/logger"
)

// Stream is a symbol-scoped subscription to the comment backend's push
// channel. Events are delivered to the handler in arrival order on a single
// goroutine; closing the stream (or canceling its context) releases the
// connection and guarantees no further handler calls.
type Stream struct {
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	closeOne sync.Once
}

// Subscribe opens the push channel for one symbol. handler is invoked for
// every well-formed insert/update event; malformed frames are logged and
// skipped. The subscription ends when ctx is canceled, Close is called, or
// the connection drops.
func Subscribe(ctx context.Context, streamURL, symbol string, handler func(Event)) (*Stream, error) {
	u, err := url.Parse(streamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid stream URL: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithCancel(ctx)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open comment stream for %s: %w", symbol, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s := &Stream{
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// The read loop owns the connection; ctx cancellation unblocks the
	// pending read by closing it.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go s.readLoop(ctx, symbol, handler)

	return s, nil
}

func (s *Stream) readLoop(ctx context.Context, symbol string, handler func(Event)) {
	defer close(s.done)
	defer s.cancel()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("comment stream for %s closed: %v", symbol, err)
			}
			return
		}

		ev, err := ParseEvent(data)
		if err != nil {
			logger.Debug("skipping malformed realtime frame for %s: %v", symbol, err)
			continue
		}

		// The subscription may have been torn down between the read and
		// here; a closed stream must never mutate a dead view.
		select {
		case <-ctx.Done():
			return
		default:
		}

		handler(ev)
	}
}

// Close releases the subscription. It is safe to call more than once and
// returns after the read loop has stopped, so no handler call can follow it.
func (s *Stream) Close() {
	s.closeOne.Do(func() {
		s.cancel()
		_ = s.conn.Close()
	})
	<-s.done
}
