package qwixx

import (
	"encoding/json"
	"fmt"

	"qwixxserver/games"
)

// GameID is the gameId rooms use to select Qwixx.
const GameID = "qwixx"

// Dice order inside a roll: the four coloured dice match rows A to D, then the
// two white dice.
const (
	white1 = 4
	white2 = 5
)

// placeholderRoll is the roll a room starts with before anyone rolls.
var placeholderRoll = [6]int{1, 1, 1, 1, 1, 1}

// RoomState is the Qwixx record stored in Room.RoomData.
type RoomState struct {
	Game       string  `json:"game"`
	TurnUser   string  `json:"turnUser"`
	RoundIndex int     `json:"roundIndex"`
	LatestRoll [6]int  `json:"latestRoll"`
	Locks      [4]*int `json:"locks"` // round in which each row was locked, nil while open
}

// UserState is the Qwixx record stored in User.UserData.
type UserState struct {
	Game             string   `json:"game"`
	LatestRoundIndex int      `json:"latestRoundIndex"`
	BoardState       []string `json:"boardState"`
	Penalty          int      `json:"penalty"`
}

func newRoomState(turnUser string) RoomState {
	return RoomState{Game: GameID, TurnUser: turnUser, LatestRoll: placeholderRoll}
}

func newUserState() UserState {
	return UserState{Game: GameID, BoardState: []string{}}
}

// DecodeRoomState parses and validates RoomData. Empty data means the room
// has not been started.
func DecodeRoomState(data []byte) (RoomState, error) {
	var rs RoomState
	if len(data) == 0 {
		return rs, games.ErrGameNotStarted
	}
	if err := json.Unmarshal(data, &rs); err != nil {
		return rs, fmt.Errorf("decode room state: %w", err)
	}
	if rs.Game != GameID {
		return rs, fmt.Errorf("decode room state: tagged %q, want %q", rs.Game, GameID)
	}
	if rs.TurnUser == "" {
		return rs, fmt.Errorf("decode room state: no turn user")
	}
	if rs.RoundIndex < 0 {
		return rs, fmt.Errorf("decode room state: negative round %d", rs.RoundIndex)
	}
	for i, die := range rs.LatestRoll {
		if die < 1 || die > 6 {
			return rs, fmt.Errorf("decode room state: die %d out of range: %d", i, die)
		}
	}
	for i, round := range rs.Locks {
		if round != nil && (*round < 0 || *round > rs.RoundIndex) {
			return rs, fmt.Errorf("decode room state: row %s locked in round %d", rowNames[i], *round)
		}
	}
	return rs, nil
}

func (rs RoomState) Encode() ([]byte, error) {
	rs.Game = GameID
	return json.Marshal(rs)
}

// DecodeUserState parses and validates UserData.
func DecodeUserState(data []byte) (UserState, error) {
	var us UserState
	if len(data) == 0 {
		return us, games.ErrGameNotStarted
	}
	if err := json.Unmarshal(data, &us); err != nil {
		return us, fmt.Errorf("decode user state: %w", err)
	}
	if us.Game != GameID {
		return us, fmt.Errorf("decode user state: tagged %q, want %q", us.Game, GameID)
	}
	if us.LatestRoundIndex < 0 || us.Penalty < 0 {
		return us, fmt.Errorf("decode user state: negative counters")
	}
	for _, entry := range us.BoardState {
		if _, err := parseBoardEntry(entry); err != nil {
			return us, fmt.Errorf("decode user state: %w", err)
		}
	}
	if us.BoardState == nil {
		us.BoardState = []string{}
	}
	return us, nil
}

func (us UserState) Encode() ([]byte, error) {
	us.Game = GameID
	if us.BoardState == nil {
		us.BoardState = []string{}
	}
	return json.Marshal(us)
}
