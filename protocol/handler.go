package protocol

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Pranita-10/LiveCodeApp/domain"
)

// Handler maps inbound commands to registry mutations and outbound events.
// A command from a sender with no current room is silently ignored unless it
// creates or joins one.
type Handler struct {
	rooms domain.Coordinator
}

func NewHandler(rooms domain.Coordinator) *Handler {
	return &Handler{rooms: rooms}
}

func (h *Handler) Handle(conn domain.Sender, data []byte) {
	var cmd domain.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		slog.Warn("invalid command", "clientId", conn.ID(), "error", err)
		return
	}

	switch cmd.Type {
	case domain.CmdCreateRoom:
		h.createRoom(conn, cmd)
	case domain.CmdJoinRoom:
		h.joinRoom(conn, cmd)
	case domain.CmdCodeChange:
		h.codeChange(conn, cmd)
	case domain.CmdLanguageChange:
		h.languageChange(conn, cmd)
	case domain.CmdCursorMove:
		h.cursorMove(conn, cmd)
	case domain.CmdChat:
		h.chat(conn, cmd)
	case domain.CmdLeaveRoom:
		h.leaveRoom(conn)
	default:
		slog.Debug("unknown command type", "clientId", conn.ID(), "type", cmd.Type)
	}
}

// Disconnect runs the same leave path as an explicit leave_room, then drops
// the connection from the registry. Called by the transport before its read
// loop returns, so no later event for this connection can observe the room.
func (h *Handler) Disconnect(conn domain.Sender) {
	dep, ok := h.rooms.Unregister(conn.ID())
	if ok {
		h.announceLeft(dep)
	}
}

func (h *Handler) createRoom(conn domain.Sender, cmd domain.Command) {
	state, left, ok := h.rooms.CreateRoom(conn.ID(), cmd.Name)
	if !ok {
		return
	}
	if left != nil {
		h.announceLeft(*left)
	}
	h.reply(conn, domain.NewRoomJoined(state))
}

func (h *Handler) joinRoom(conn domain.Sender, cmd domain.Command) {
	state, joiner, left, err := h.rooms.JoinRoom(conn.ID(), cmd.RoomID, cmd.Name)
	if errors.Is(err, domain.ErrRoomNotFound) {
		h.reply(conn, domain.NewError("Room not found"))
		return
	}
	if err != nil {
		slog.Warn("join failed", "clientId", conn.ID(), "error", err)
		return
	}
	if left != nil {
		h.announceLeft(*left)
	}
	h.reply(conn, domain.NewRoomJoined(state))
	h.broadcast(state.ID, domain.NewUserJoined(joiner, state.Users), conn.ID())
}

func (h *Handler) codeChange(conn domain.Sender, cmd domain.Command) {
	roomID, ok := h.rooms.SetCode(conn.ID(), cmd.Code)
	if !ok {
		return
	}
	h.broadcast(roomID, domain.NewCodeUpdate(cmd.Code, cmd.Cursor, conn.ID()), conn.ID())
}

func (h *Handler) languageChange(conn domain.Sender, cmd domain.Command) {
	roomID, ok := h.rooms.SetLanguage(conn.ID(), cmd.Language)
	if !ok {
		return
	}
	h.broadcast(roomID, domain.NewLanguageUpdate(cmd.Language), conn.ID())
}

func (h *Handler) cursorMove(conn domain.Sender, cmd domain.Command) {
	name, roomID, ok := h.rooms.Member(conn.ID())
	if !ok || roomID == "" {
		return
	}
	h.broadcast(roomID, domain.NewCursorUpdate(conn.ID(), name, cmd.Position), conn.ID())
}

func (h *Handler) chat(conn domain.Sender, cmd domain.Command) {
	name, roomID, ok := h.rooms.Member(conn.ID())
	if !ok || roomID == "" {
		return
	}
	msg := domain.NewChatMessage(conn.ID(), name, cmd.Message, time.Now().UnixMilli())
	h.broadcast(roomID, msg, "")
}

func (h *Handler) leaveRoom(conn domain.Sender) {
	dep, ok := h.rooms.LeaveRoom(conn.ID())
	if !ok {
		return
	}
	h.announceLeft(dep)
}

// announceLeft tells the remaining members that someone left. Nothing is
// sent when the room was deleted with the departure.
func (h *Handler) announceLeft(dep domain.Departure) {
	if len(dep.Remaining) == 0 {
		return
	}
	h.broadcast(dep.RoomID, domain.NewUserLeft(dep.UserID, dep.Name, dep.Remaining), "")
}

func (h *Handler) reply(conn domain.Sender, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("marshal error", "clientId", conn.ID(), "error", err)
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Warn("send failed", "clientId", conn.ID(), "error", err)
	}
}

func (h *Handler) broadcast(roomID string, event any, excludeID string) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("marshal error", "room", roomID, "error", err)
		return
	}
	h.rooms.Broadcast(roomID, data, excludeID)
}
