package room

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const maxPlayers = 2

// Player occupies one of the two mark slots in a room.
type Player struct {
	ConnID string
	Name   string
	Mark   string
}

// PlayerInfo is the identity-free roster entry shared with clients.
type PlayerInfo struct {
	Name string `json:"name"`
	Mark string `json:"mark"`
}

// Room is one isolated game session: a board, at most two players, any
// number of spectators and the rematch consent set. Every exported method
// takes the room mutex, so operations on one room never interleave while
// distinct rooms stay fully concurrent.
type Room struct {
	code string

	mu           sync.Mutex
	players      []*Player
	spectators   map[string]string
	state        entity.GameState
	rematchReady map[string]struct{}
}

func New(code string) *Room {
	return &Room{
		code:         code,
		spectators:   make(map[string]string),
		state:        entity.NewGameState(),
		rematchReady: make(map[string]struct{}),
	}
}

func (that *Room) Code() string {
	return that.code
}

// AddPlayer - admits a connection into a free mark slot. The first joiner
// gets X, the second O; after a mid-game departure the newcomer gets
// whichever mark the remaining player does not hold, so marks stay unique.
func (that *Room) AddPlayer(connID, name string) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.players) >= maxPlayers {
		return "", apperror.ErrRoomFull
	}

	mark := entity.PlayerX
	if len(that.players) == 1 && that.players[0].Mark == entity.PlayerX {
		mark = entity.PlayerO
	}

	that.players = append(that.players, &Player{ConnID: connID, Name: name, Mark: mark})

	if len(that.players) == maxPlayers {
		that.state.Status = entity.StatusPlaying
	}

	return mark, nil
}

// AddSpectator - always succeeds; spectators never affect the game status.
func (that *Room) AddSpectator(connID, name string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.spectators[connID] = name
}

// RemovePlayer - drops the connection from the room. A departing player
// forces a full game reset; a departing spectator leaves the game untouched.
// Reports whether the connection was a player.
func (that *Room) RemovePlayer(connID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	for i, player := range that.players {
		if player.ConnID != connID {
			continue
		}

		that.players = append(that.players[:i], that.players[i+1:]...)
		that.resetGame()

		return true
	}

	delete(that.spectators, connID)

	return false
}

// ResetGame - starts a fresh round: empty board, X to move, no winner.
// The status reflects the current player count.
func (that *Room) ResetGame() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.resetGame()
}

// resetGame - must be called with the room mutex held.
func (that *Room) resetGame() {
	that.state = entity.NewGameState()
	if len(that.players) == maxPlayers {
		that.state.Status = entity.StatusPlaying
	}

	that.rematchReady = make(map[string]struct{})
}

// MakeMove - applies one move for the given connection. The win check runs
// before the draw check, so a full board with a completed line is a win.
func (that *Room) MakeMove(connID string, cell int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	player := that.playerByConn(connID)
	if player == nil {
		return apperror.ErrNotAPlayer
	}

	if !that.state.IsPlaying() {
		return apperror.ErrGameNotInProgress
	}

	if cell < 0 || cell >= len(that.state.Board) {
		return apperror.ErrInvalidCell
	}

	if that.state.Turn != player.Mark {
		return apperror.ErrNotYourTurn
	}

	if that.state.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.state.Board[cell] = player.Mark

	switch {
	case entity.DetermineWinner(that.state.Board) == player.Mark:
		that.state.Status = entity.StatusFinished
		that.state.Winner = player.Mark
	case entity.BoardFull(that.state.Board):
		that.state.Status = entity.StatusFinished
		that.state.Winner = entity.WinnerDraw
	default:
		that.state.Turn = entity.ToggleMark(player.Mark)
	}

	return nil
}

// AddRematchReady - records rematch consent for a current player. Adding
// twice has no extra effect and consent from non-players is ignored.
// Consent is accepted in any status, not only after a finished round.
// Once both players consented the round restarts and the consent set is
// cleared, so the reported count drops back to zero.
func (that *Room) AddRematchReady(connID string) (int, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.playerByConn(connID) == nil {
		return len(that.rematchReady), false
	}

	that.rematchReady[connID] = struct{}{}

	if len(that.rematchReady) == maxPlayers {
		that.resetGame()
		return len(that.rematchReady), true
	}

	return len(that.rematchReady), false
}

// PublicState - a copy of the game state safe to broadcast to the whole
// room; it carries no connection IDs or display names.
func (that *Room) PublicState() entity.GameState {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

// Roster - the current players in join order, without connection IDs.
func (that *Room) Roster() []PlayerInfo {
	that.mu.Lock()
	defer that.mu.Unlock()

	roster := make([]PlayerInfo, 0, len(that.players))
	for _, player := range that.players {
		roster = append(roster, PlayerInfo{Name: player.Name, Mark: player.Mark})
	}

	return roster
}

func (that *Room) PlayerCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.players)
}

// Empty - reports whether the room has no players and no spectators left.
func (that *Room) Empty() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.players) == 0 && len(that.spectators) == 0
}

// playerByConn - must be called with the room mutex held.
func (that *Room) playerByConn(connID string) *Player {
	for _, player := range that.players {
		if player.ConnID == connID {
			return player
		}
	}

	return nil
}
