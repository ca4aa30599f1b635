package qwixx

import (
	"fmt"
	"strconv"
	"strings"

	"qwixxserver/games"
)

const (
	minNumber = 2
	maxNumber = 12

	// every row locks on its highest number once it has locksAfter marks
	lockNumber = maxNumber
	locksAfter = 5

	noMovePenalty = 5
)

var rowNames = [4]string{"A", "B", "C", "D"}

// Move is one mark on a row. Special moves add a coloured die to a white one
// instead of summing the two white dice.
type Move struct {
	Row     string `json:"row"`
	Number  int    `json:"number"`
	Special bool   `json:"special"`
}

func (m Move) String() string { return m.Row + strconv.Itoa(m.Number) }

// rowIndex maps "A".."D" to 0..3.
func rowIndex(row string) (int, bool) {
	for i, name := range rowNames {
		if name == row {
			return i, true
		}
	}
	return 0, false
}

// boardEntry is a parsed boardState element: a mark like "A7" or a lock
// marker like "AL".
type boardEntry struct {
	row    int
	number int
	lock   bool
}

func parseBoardEntry(entry string) (boardEntry, error) {
	if len(entry) < 2 {
		return boardEntry{}, fmt.Errorf("bad board entry %q", entry)
	}
	row, ok := rowIndex(entry[:1])
	if !ok {
		return boardEntry{}, fmt.Errorf("bad board entry %q: unknown row", entry)
	}
	if entry[1:] == "L" {
		return boardEntry{row: row, lock: true}, nil
	}
	n, err := strconv.Atoi(entry[1:])
	if err != nil || n < minNumber || n > maxNumber {
		return boardEntry{}, fmt.Errorf("bad board entry %q: number", entry)
	}
	return boardEntry{row: row, number: n}, nil
}

// rowMarks returns the numbers marked on row in play order and whether the
// board carries that row's lock marker. Entries are assumed validated.
func rowMarks(board []string, row int) (marks []int, locked bool) {
	for _, entry := range board {
		e, err := parseBoardEntry(entry)
		if err != nil || e.row != row {
			continue
		}
		if e.lock {
			locked = true
			continue
		}
		marks = append(marks, e.number)
	}
	return marks, locked
}

// diceAllow reports whether the roll can produce m.
func diceAllow(m Move, row int, roll [6]int) bool {
	if !m.Special {
		return m.Number == roll[white1]+roll[white2]
	}
	coloured := roll[row]
	return m.Number == coloured+roll[white1] || m.Number == coloured+roll[white2]
}

// ValidateMove checks m against a player's board, the room's latest roll and
// the room's row locks. It returns the row index of the move.
func ValidateMove(m Move, board []string, roll [6]int, locks [4]*int, roundIndex int) (int, error) {
	row, ok := rowIndex(strings.ToUpper(m.Row))
	if !ok {
		return 0, fmt.Errorf("%w: unknown row %q", games.ErrInvalidMove, m.Row)
	}
	if m.Number < minNumber || m.Number > maxNumber {
		return row, fmt.Errorf("%w: number %d out of range", games.ErrInvalidMove, m.Number)
	}
	if locks[row] != nil && *locks[row] < roundIndex {
		return row, fmt.Errorf("%w: row %s is locked", games.ErrInvalidMove, rowNames[row])
	}

	marks, lockedByPlayer := rowMarks(board, row)
	if lockedByPlayer {
		return row, fmt.Errorf("%w: row %s is locked", games.ErrInvalidMove, rowNames[row])
	}
	if !diceAllow(m, row, roll) {
		return row, fmt.Errorf("%w: %d cannot be made from %v", games.ErrInvalidMove, m.Number, roll)
	}
	// marks never go below an earlier mark of the same row
	for _, prior := range marks {
		if prior > m.Number {
			return row, fmt.Errorf("%w: row %s already has %d", games.ErrInvalidMove, rowNames[row], prior)
		}
	}
	if m.Number == lockNumber && len(marks) < locksAfter {
		return row, fmt.Errorf("%w: row %s needs %d marks before locking, has %d",
			games.ErrInvalidMove, rowNames[row], locksAfter, len(marks))
	}
	return row, nil
}

// applyMove appends m to board, adding the lock marker when m locks its row.
// It reports whether the row was locked.
func applyMove(board []string, m Move, row int) ([]string, bool) {
	board = append(board, rowNames[row]+strconv.Itoa(m.Number))
	if m.Number == lockNumber {
		return append(board, rowNames[row]+"L"), true
	}
	return board, false
}
