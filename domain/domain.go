package domain

import (
	"encoding/json"
	"errors"
)

// ErrRoomNotFound is returned when a command references a room id that is not
// registered, either because it never existed or because its last member left.
var ErrRoomNotFound = errors.New("room not found")

// Command type tags accepted from clients.
const (
	CmdCreateRoom     = "create_room"
	CmdJoinRoom       = "join_room"
	CmdCodeChange     = "code_change"
	CmdLanguageChange = "language_change"
	CmdCursorMove     = "cursor_move"
	CmdChat           = "chat"
	CmdLeaveRoom      = "leave_room"
)

// Event type tags sent to clients.
const (
	EvtConnected      = "connected"
	EvtRoomJoined     = "room_joined"
	EvtUserJoined     = "user_joined"
	EvtCodeUpdate     = "code_update"
	EvtLanguageUpdate = "language_update"
	EvtCursorUpdate   = "cursor_update"
	EvtChatMessage    = "chat_message"
	EvtUserLeft       = "user_left"
	EvtError          = "error"
)

// Command is the inbound envelope. Fields other than Type are populated only
// for the command kinds that use them; unknown fields are ignored. Cursor and
// Position are opaque client state relayed without interpretation.
type Command struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId,omitempty"`
	Name     string          `json:"name,omitempty"`
	Code     string          `json:"code,omitempty"`
	Cursor   json.RawMessage `json:"cursor,omitempty"`
	Language string          `json:"language,omitempty"`
	Position json.RawMessage `json:"position,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// User is the wire-level view of a room member.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomState is a snapshot of a room taken under the registry lock, safe to
// marshal after the lock is released.
type RoomState struct {
	ID       string
	Code     string
	Language string
	Users    []User
}

// Departure describes a member leaving a room. Remaining is nil when the
// room was deleted because the departing member was the last one.
type Departure struct {
	RoomID    string
	UserID    string
	Name      string
	Remaining []User
}

type Connected struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

type RoomJoined struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Language string `json:"language"`
	Users    []User `json:"users"`
}

type UserJoined struct {
	Type  string `json:"type"`
	User  User   `json:"user"`
	Users []User `json:"users"`
}

type CodeUpdate struct {
	Type   string          `json:"type"`
	Code   string          `json:"code"`
	Cursor json.RawMessage `json:"cursor,omitempty"`
	UserID string          `json:"userId"`
}

type LanguageUpdate struct {
	Type     string `json:"type"`
	Language string `json:"language"`
}

type CursorUpdate struct {
	Type     string          `json:"type"`
	UserID   string          `json:"userId"`
	Name     string          `json:"name"`
	Position json.RawMessage `json:"position,omitempty"`
}

type ChatMessage struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type UserLeft struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Users  []User `json:"users"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewConnected(clientID string) Connected {
	return Connected{Type: EvtConnected, ClientID: clientID}
}

func NewRoomJoined(state RoomState) RoomJoined {
	return RoomJoined{Type: EvtRoomJoined, RoomID: state.ID, Code: state.Code, Language: state.Language, Users: state.Users}
}

func NewUserJoined(user User, users []User) UserJoined {
	return UserJoined{Type: EvtUserJoined, User: user, Users: users}
}

func NewCodeUpdate(code string, cursor json.RawMessage, userID string) CodeUpdate {
	return CodeUpdate{Type: EvtCodeUpdate, Code: code, Cursor: cursor, UserID: userID}
}

func NewLanguageUpdate(language string) LanguageUpdate {
	return LanguageUpdate{Type: EvtLanguageUpdate, Language: language}
}

func NewCursorUpdate(userID, name string, position json.RawMessage) CursorUpdate {
	return CursorUpdate{Type: EvtCursorUpdate, UserID: userID, Name: name, Position: position}
}

func NewChatMessage(userID, name, message string, timestamp int64) ChatMessage {
	return ChatMessage{Type: EvtChatMessage, UserID: userID, Name: name, Message: message, Timestamp: timestamp}
}

func NewUserLeft(userID, name string, users []User) UserLeft {
	return UserLeft{Type: EvtUserLeft, UserID: userID, Name: name, Users: users}
}

func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: EvtError, Message: message}
}

// Sender is one client's outbound half. Send must not block: delivery is
// fire-and-forget and a full peer must not stall a room fan-out.
type Sender interface {
	ID() string
	Send(data []byte) error
}

// Coordinator owns the connection and room registries. All methods serialize
// against each other; snapshots they return are safe to use outside the lock.
type Coordinator interface {
	Register(conn Sender)
	Unregister(clientID string) (Departure, bool)
	CreateRoom(clientID, name string) (RoomState, *Departure, bool)
	JoinRoom(clientID, roomID, name string) (RoomState, User, *Departure, error)
	SetCode(clientID, code string) (string, bool)
	SetLanguage(clientID, language string) (string, bool)
	Member(clientID string) (name, roomID string, ok bool)
	LeaveRoom(clientID string) (Departure, bool)
	Broadcast(roomID string, data []byte, excludeID string)
	Stats() (rooms, clients int)
}

// MessageHandler consumes decoded text payloads from a connection and is
// notified when the connection goes away.
type MessageHandler interface {
	Handle(conn Sender, data []byte)
	Disconnect(conn Sender)
}
