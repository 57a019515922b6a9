package usecase

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/room"
)

// Inbound actions.
const (
	ActionJoinRoom = "room:join"
	ActionGameTurn = "game:turn"
	ActionRematch  = "game:rematch"
)

// Outbound actions.
const (
	ActionRoomJoined    = "room:joined"
	ActionGameState     = "game:state"
	ActionRematchStatus = "game:rematch_status"
	ActionOpponentLeft  = "room:opponent_left"
	ActionError         = "error"
)

// Message is the envelope carried in both directions: an action type and a
// JSON payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage wraps a payload into an envelope. Payloads are our own structs,
// so a marshal failure is a programming error.
func NewMessage(action string, payload any) Message {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Errorf("failed to marshal %s payload: %w", action, err))
	}

	return Message{Action: action, Payload: raw}
}

type JoinRequest struct {
	PlayerName  string `json:"playerName"`
	RoomCode    string `json:"roomCode"`
	AsSpectator bool   `json:"asSpectator,omitempty"`
}

type TurnRequest struct {
	RoomCode string `json:"roomCode"`
	Cell     int    `json:"cell"`
}

type RematchRequest struct {
	RoomCode string `json:"roomCode"`
}

// RoomJoinedPayload goes to the joining connection only. Mark is empty for
// spectators.
type RoomJoinedPayload struct {
	RoomCode  string            `json:"roomCode"`
	Mark      string            `json:"mark,omitempty"`
	Players   []room.PlayerInfo `json:"players"`
	Status    string            `json:"status"`
	Spectator bool              `json:"spectator,omitempty"`
}

type RematchStatusPayload struct {
	ReadyCount int `json:"readyCount"`
}

type OpponentLeftPayload struct {
	Message string `json:"message"`
}

// ErrorPayload goes to the originating connection only. SpectatorMode marks
// the auto-demotion notice for a player join into a full room.
type ErrorPayload struct {
	Message       string `json:"message"`
	SpectatorMode bool   `json:"spectatorMode,omitempty"`
}
