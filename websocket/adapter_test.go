package websocket

import (
	"bufio"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pranita-10/LiveCodeApp/domain"
	"github.com/Pranita-10/LiveCodeApp/protocol"
)

type recordingHandler struct {
	mu           sync.Mutex
	payloads     [][]byte
	disconnected bool
}

func (r *recordingHandler) Handle(conn domain.Sender, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, data)
}

func (r *recordingHandler) Disconnect(conn domain.Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = true
}

func (r *recordingHandler) snapshot() ([][]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte{}, r.payloads...), r.disconnected
}

type nopCoordinator struct {
	mu         sync.Mutex
	registered []string
}

func (n *nopCoordinator) Register(conn domain.Sender) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registered = append(n.registered, conn.ID())
}

func (n *nopCoordinator) Unregister(string) (domain.Departure, bool) { return domain.Departure{}, false }
func (n *nopCoordinator) CreateRoom(string, string) (domain.RoomState, *domain.Departure, bool) {
	return domain.RoomState{}, nil, false
}
func (n *nopCoordinator) JoinRoom(string, string, string) (domain.RoomState, domain.User, *domain.Departure, error) {
	return domain.RoomState{}, domain.User{}, nil, domain.ErrRoomNotFound
}
func (n *nopCoordinator) SetCode(string, string) (string, bool)     { return "", false }
func (n *nopCoordinator) SetLanguage(string, string) (string, bool) { return "", false }
func (n *nopCoordinator) Member(string) (string, string, bool)      { return "", "", false }
func (n *nopCoordinator) LeaveRoom(string) (domain.Departure, bool) { return domain.Departure{}, false }
func (n *nopCoordinator) Broadcast(string, []byte, string)          {}
func (n *nopCoordinator) Stats() (int, int)                         { return 0, 0 }

// maskFrame builds a client-style masked text frame.
func maskFrame(payload []byte) []byte {
	key := [4]byte{0x11, 0x22, 0x33, 0x44}
	frame := []byte{0x81, 0x80 | byte(len(payload))}
	frame = append(frame, key[:]...)
	for i, b := range payload {
		frame = append(frame, b^key[i%4])
	}
	return frame
}

func TestConn_Lifecycle(t *testing.T) {
	server, client := net.Pipe()
	handler := &recordingHandler{}
	coord := &nopCoordinator{}

	conn := NewConn("c1", server, bufio.NewReader(server), coord, handler)
	conn.Start()

	// The welcome frame arrives first, encoded and unmasked.
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, err := client.Read(buf)
	require.NoError(t, err)
	welcome, ok := protocol.DecodeFrame(buf[:n])
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"connected","clientId":"c1"}`, string(welcome))
	assert.Equal(t, []string{"c1"}, coord.registered)

	// Inbound masked frames reach the handler; garbage between them is dropped.
	_, err = client.Write(maskFrame([]byte(`{"type":"chat"}`)))
	require.NoError(t, err)
	_, err = client.Write([]byte{0x81})
	require.NoError(t, err)
	_, err = client.Write(maskFrame([]byte(`{"type":"leave_room"}`)))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		payloads, _ := handler.snapshot()
		return len(payloads) == 2
	}, 2*time.Second, 10*time.Millisecond)
	payloads, _ := handler.snapshot()
	assert.Equal(t, `{"type":"chat"}`, string(payloads[0]))
	assert.Equal(t, `{"type":"leave_room"}`, string(payloads[1]))

	// Transport close triggers the disconnect cleanup.
	client.Close()
	require.Eventually(t, func() bool {
		_, disconnected := handler.snapshot()
		return disconnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConn_SendBufferFull(t *testing.T) {
	server, _ := net.Pipe()
	defer server.Close()

	// No write pump running, so the channel fills and overflow is reported
	// instead of blocking.
	conn := NewConn("c1", server, bufio.NewReader(server), &nopCoordinator{}, &recordingHandler{})
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, conn.Send([]byte("x")))
	}
	assert.ErrorIs(t, conn.Send([]byte("x")), ErrSendBufferFull)
}
