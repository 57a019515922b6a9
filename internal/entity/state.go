package entity

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"

	PlayerX    = "X"
	PlayerO    = "O"
	WinnerDraw = "draw"
	WinnerNone = ""

	EmptyCell = ""
)

// WinCombos - the 8 fixed line triples: 3 rows, 3 columns, 2 diagonals.
var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// GameState holds one round of the game: the board, whose turn it is,
// the status and the winner. It is a plain value owned by a Room.
type GameState struct {
	Board  [9]string `json:"board"`
	Turn   string    `json:"turn"`
	Status string    `json:"status"`
	Winner string    `json:"winner"`
}

func NewGameState() GameState {
	return GameState{
		Board:  [9]string{},
		Turn:   PlayerX,
		Status: StatusWaiting,
		Winner: WinnerNone,
	}
}

// DetermineWinner - checks the fixed triples; a line wins when all three
// cells are non-empty and identical. Returns WinnerNone if no line is complete.
func DetermineWinner(board [9]string) string {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	return WinnerNone
}

// BoardFull - reports whether every cell is occupied.
func BoardFull(board [9]string) bool {
	for _, cell := range board {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// ToggleMark - returns the opposing mark.
func ToggleMark(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}

	return PlayerX
}

func (that *GameState) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *GameState) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *GameState) IsFinished() bool {
	return that.Status == StatusFinished
}
