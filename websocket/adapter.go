package websocket

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/Pranita-10/LiveCodeApp/domain"
	"github.com/Pranita-10/LiveCodeApp/protocol"
)

const (
	sendBufferSize = 256
	readBufferSize = 64 * 1024
)

// ErrSendBufferFull is returned by Send when the outbound channel is full.
// The message is dropped; the peer is treated as a faulted recipient.
var ErrSendBufferFull = errors.New("send buffer full")

// Conn adapts one hijacked TCP connection to the hub. Sends are queued to a
// buffered channel drained by a write pump, so a slow peer never blocks the
// dispatcher or a room fan-out.
type Conn struct {
	id      string
	sock    net.Conn
	reader  *bufio.Reader
	send    chan []byte
	done    chan struct{}
	rooms   domain.Coordinator
	handler domain.MessageHandler
}

func NewConn(id string, sock net.Conn, reader *bufio.Reader, rooms domain.Coordinator, handler domain.MessageHandler) *Conn {
	return &Conn{
		id:      id,
		sock:    sock,
		reader:  reader,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		rooms:   rooms,
		handler: handler,
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Conn) Close() error {
	return c.sock.Close()
}

// Start registers the connection, queues the welcome event carrying the
// assigned client id and begins both pumps. The welcome is queued before the
// read pump starts so it precedes any command response on the wire.
func (c *Conn) Start() {
	c.rooms.Register(c)

	if data, err := json.Marshal(domain.NewConnected(c.id)); err == nil {
		if err := c.Send(data); err != nil {
			slog.Warn("welcome send failed", "clientId", c.id, "error", err)
		}
	}

	go c.writePump()
	go c.readPump()
}

// readPump reads one chunk per Read call and hands it to the frame decoder
// whole; there is no reassembly across reads. Malformed chunks are dropped.
// Teardown runs the room-leave cleanup before the pump returns, so no later
// event can observe this connection.
func (c *Conn) readPump() {
	defer func() {
		c.handler.Disconnect(c)
		close(c.done)
		c.sock.Close()
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.reader.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Debug("read error", "clientId", c.id, "error", err)
			}
			return
		}

		payload, ok := protocol.DecodeFrame(buf[:n])
		if !ok {
			slog.Warn("malformed frame dropped", "clientId", c.id, "bytes", n)
			continue
		}
		c.handler.Handle(c, payload)
	}
}

func (c *Conn) writePump() {
	defer c.sock.Close()

	for {
		select {
		case message := <-c.send:
			if _, err := c.sock.Write(protocol.EncodeFrame(message)); err != nil {
				slog.Debug("write error", "clientId", c.id, "error", err)
				return
			}
		case <-c.done:
			return
		}
	}
}
