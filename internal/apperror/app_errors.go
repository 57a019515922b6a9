package apperror

import "errors"

var (
	ErrRoomFull          = errors.New("room is full")
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotAPlayer        = errors.New("you are not a player in this room")
	ErrGameNotInProgress = errors.New("game is not in progress")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrInvalidCell       = errors.New("invalid cell index")

	ErrNameTooShort     = errors.New("name must be at least 3 characters")
	ErrRoomCodeRequired = errors.New("room code is required")
)
