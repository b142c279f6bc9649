package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/gridstream-io/gridstream/common/models"
)

// Handler consumes events received from upstream workers.
type Handler func(ctx context.Context, event *models.Event)

// Listener accepts framed TCP connections from upstream workers and
// feeds decoded events to the handler. One goroutine per connection;
// a connection is dropped on the first malformed frame.
type Listener struct {
	ln      net.Listener
	handler Handler
	logger  *slog.Logger
}

func NewListener(addr string, handler Handler, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, handler: handler, logger: logger}, nil
}

// Addr returns the bound listener address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until the listener is closed.
func (l *Listener) Serve(ctx context.Context) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("intake accept failed", slog.String("error", err.Error()))
			continue
		}
		go l.serveConn(ctx, conn)
	}
}

// Close stops accepting connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

func (l *Listener) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	for {
		payload, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.logger.Warn("intake read failed",
					slog.String("remote", remote),
					slog.String("error", err.Error()))
			}
			return
		}

		var event models.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			l.logger.Warn("intake frame rejected",
				slog.String("remote", remote),
				slog.String("error", err.Error()))
			return
		}

		l.handler(ctx, &event)
	}
}
