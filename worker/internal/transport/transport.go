// Package transport moves events between workers. The Transport
// contract is deliberately small: connect, send, fail. The concrete
// implementation frames JSON documents with a 4-byte big-endian length
// prefix over TCP.
package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gridstream-io/gridstream/common/models"
)

// MaxFramePayload caps a single framed document at 16 MiB. Anything
// larger is a protocol violation, not an event.
const MaxFramePayload = 16 << 20

// Conn is an established connection to a downstream worker.
type Conn interface {
	Send(ctx context.Context, event *models.Event) error
	Close() error
}

// Transport dials downstream workers.
type Transport interface {
	Connect(ctx context.Context, addr string) (Conn, error)
}

// TCP is the framed-JSON-over-TCP transport.
type TCP struct {
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

func NewTCP(dialTimeout, writeTimeout time.Duration) *TCP {
	return &TCP{dialTimeout: dialTimeout, writeTimeout: writeTimeout}
}

func (t *TCP) Connect(ctx context.Context, addr string) (Conn, error) {
	d := net.Dialer{Timeout: t.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpConn{conn: conn, writeTimeout: t.writeTimeout}, nil
}

type tcpConn struct {
	conn         net.Conn
	writeTimeout time.Duration
}

func (c *tcpConn) Send(ctx context.Context, event *models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return WriteFrame(c.conn, payload)
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

// WriteFrame writes one length-prefixed payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFramePayload {
		return fmt.Errorf("frame payload %d exceeds limit", len(payload))
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFramePayload {
		return nil, fmt.Errorf("frame payload %d exceeds limit", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
