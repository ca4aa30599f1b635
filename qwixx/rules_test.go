package qwixx

import (
	"testing"

	"qwixxserver/games"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestValidateMoveDice(t *testing.T) {
	roll := [6]int{1, 4, 2, 6, 3, 5}
	var locks [4]*int

	tests := []struct {
		name string
		move Move
		ok   bool
	}{
		{"white sum", Move{Row: "A", Number: 8}, true},
		{"white sum on row D", Move{Row: "D", Number: 8}, true},
		{"wrong white sum", Move{Row: "A", Number: 7}, false},
		{"coloured plus first white", Move{Row: "B", Number: 7, Special: true}, true},
		{"coloured plus second white", Move{Row: "B", Number: 9, Special: true}, true},
		{"special cannot use white sum", Move{Row: "B", Number: 8, Special: true}, false},
		{"special uses the die of its own row", Move{Row: "A", Number: 7, Special: true}, false},
		{"lower case row", Move{Row: "c", Number: 8}, true},
		{"unknown row", Move{Row: "E", Number: 8}, false},
		{"number out of range", Move{Row: "A", Number: 13}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateMove(tt.move, nil, roll, locks, 0)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, games.ErrInvalidMove)
			}
		})
	}
}

func TestValidateMoveRowOrder(t *testing.T) {
	var locks [4]*int

	for _, row := range rowNames {
		t.Run(row, func(t *testing.T) {
			board := []string{row + "2", row + "5", row + "9"}

			_, err := ValidateMove(Move{Row: row, Number: 7}, board, [6]int{1, 1, 1, 1, 3, 4}, locks, 0)
			assert.ErrorIs(t, err, games.ErrInvalidMove)

			_, err = ValidateMove(Move{Row: row, Number: 9}, board, [6]int{1, 1, 1, 1, 4, 5}, locks, 0)
			assert.NoError(t, err, "the same number again is allowed")

			_, err = ValidateMove(Move{Row: row, Number: 11}, board, [6]int{1, 1, 1, 1, 5, 6}, locks, 0)
			assert.NoError(t, err)
		})
	}

	// marks on other rows do not count
	_, err := ValidateMove(Move{Row: "B", Number: 7}, []string{"A2", "A5", "A9"}, [6]int{1, 1, 1, 1, 3, 4}, locks, 0)
	assert.NoError(t, err)

	_, err = ValidateMove(Move{Row: "A", Number: 11}, []string{"A2", "A5", "A11"}, [6]int{1, 1, 1, 1, 5, 6}, locks, 0)
	assert.NoError(t, err)
}

func TestValidateMoveLockGating(t *testing.T) {
	var locks [4]*int
	sixes := [6]int{1, 1, 1, 1, 6, 6}

	_, err := ValidateMove(Move{Row: "A", Number: 12}, []string{"A2", "A3", "A4", "A5"}, sixes, locks, 0)
	assert.ErrorIs(t, err, games.ErrInvalidMove)

	board := []string{"A2", "A3", "A4", "A5", "A6"}
	row, err := ValidateMove(Move{Row: "A", Number: 12}, board, sixes, locks, 0)
	require.NoError(t, err)

	board, locked := applyMove(board, Move{Row: "A", Number: 12}, row)
	assert.True(t, locked)
	assert.Equal(t, []string{"A2", "A3", "A4", "A5", "A6", "A12", "AL"}, board)

	// C and D lock on 12 as well
	_, err = ValidateMove(Move{Row: "C", Number: 12}, []string{"C2", "C5", "C9"}, sixes, locks, 0)
	assert.ErrorIs(t, err, games.ErrInvalidMove)
	row, err = ValidateMove(Move{Row: "D", Number: 12}, []string{"D2", "D5", "D9", "D9", "D10"}, sixes, locks, 0)
	require.NoError(t, err)
	_, locked = applyMove(nil, Move{Row: "D", Number: 12}, row)
	assert.True(t, locked)

	// 2 is an ordinary mark on every row
	ones := [6]int{1, 1, 1, 1, 1, 1}
	board, locked = applyMove(nil, Move{Row: "C", Number: 2}, 2)
	assert.False(t, locked)
	_, err = ValidateMove(Move{Row: "C", Number: 2}, board, ones, locks, 0)
	assert.NoError(t, err)
}

func TestValidateMoveLockedRows(t *testing.T) {
	roll := [6]int{1, 1, 1, 1, 3, 4}

	// a row locked in the current round is still open to the others
	locks := [4]*int{intPtr(2)}
	_, err := ValidateMove(Move{Row: "A", Number: 7}, nil, roll, locks, 2)
	assert.NoError(t, err)

	_, err = ValidateMove(Move{Row: "A", Number: 7}, nil, roll, locks, 3)
	assert.ErrorIs(t, err, games.ErrInvalidMove)

	// the player who locked it cannot add to it
	var open [4]*int
	_, err = ValidateMove(Move{Row: "A", Number: 7}, []string{"A12", "AL"}, roll, open, 0)
	assert.ErrorIs(t, err, games.ErrInvalidMove)
}

func TestParseBoardEntry(t *testing.T) {
	e, err := parseBoardEntry("D11")
	require.NoError(t, err)
	assert.Equal(t, boardEntry{row: 3, number: 11}, e)

	e, err = parseBoardEntry("BL")
	require.NoError(t, err)
	assert.True(t, e.lock)

	for _, bad := range []string{"", "A", "X7", "A1", "A13", "Ax"} {
		_, err := parseBoardEntry(bad)
		assert.Error(t, err, bad)
	}
}
