// Package qwixx is the server-side rule set of the dice game Qwixx: dice
// rolls, move validation against each player's board, row locks and the
// round/turn cycle.
package qwixx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"qwixxserver/database"
	"qwixxserver/games"
	"qwixxserver/models"

	"go.uber.org/zap"
)

const (
	EventRoll        = "qwixx:roll"
	EventPlay        = "qwixx:play"
	EventRollResult  = "qwixx:rollResult"
	EventCurrentTurn = "qwixx:currentTurn"
)

// Dice yields uniform integers in [0, n).
type Dice interface {
	Intn(n int) int
}

// lockedRand makes a *rand.Rand safe to share between rooms.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func createLocalRandGenerator() *rand.Rand {
	source := rand.NewSource(time.Now().UnixNano())
	return rand.New(source)
}

type Module struct {
	store  database.SessionStore
	logger *zap.Logger
	dice   Dice
}

type Option func(*Module)

// WithDice replaces the random source, e.g. with a fixed sequence in tests.
func WithDice(d Dice) Option {
	return func(m *Module) { m.dice = d }
}

func New(store database.SessionStore, logger *zap.Logger, opts ...Option) *Module {
	m := &Module{
		store:  store,
		logger: logger,
		dice:   &lockedRand{r: createLocalRandGenerator()},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) GameID() string { return GameID }

func (m *Module) Handlers() map[string]games.Handler {
	return map[string]games.Handler{
		EventRoll: m.handleRoll,
		EventPlay: m.handlePlay,
	}
}

func (m *Module) InitRoomState(ctx context.Context, room *models.Room, members []models.User) (games.Seed, error) {
	if len(members) == 0 {
		return games.Seed{}, fmt.Errorf("start room %s: no members", room.RoomID)
	}
	rs := newRoomState(members[0].UserID)
	roomData, err := rs.Encode()
	if err != nil {
		return games.Seed{}, err
	}

	userData := make(map[string][]byte, len(members))
	for _, member := range members {
		data, err := newUserState().Encode()
		if err != nil {
			return games.Seed{}, err
		}
		userData[member.UserID] = data
	}

	turn, err := currentTurnMessage(rs)
	if err != nil {
		return games.Seed{}, err
	}
	return games.Seed{
		RoomData: roomData,
		UserData: userData,
		Announce: []games.Outbound{games.Broadcast(room.RoomID, turn)},
	}, nil
}

func (m *Module) OnLeave(ctx context.Context, roomID string) ([]games.Outbound, error) {
	room, err := m.store.FetchRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, database.ErrRoomNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if room.IsWaiting {
		return nil, nil
	}
	rs, err := DecodeRoomState(room.RoomData)
	if err != nil {
		return nil, err
	}
	return m.advanceRound(ctx, room.RoomID, rs)
}

func (m *Module) loadRoom(ctx context.Context, roomID string) (RoomState, error) {
	room, err := m.store.FetchRoom(ctx, roomID)
	if err != nil {
		return RoomState{}, err
	}
	if room.IsWaiting {
		return RoomState{}, games.ErrGameNotStarted
	}
	return DecodeRoomState(room.RoomData)
}

func (m *Module) handleRoll(ctx context.Context, req games.Request) ([]games.Outbound, error) {
	roomID := req.User.RoomID
	rs, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	for i := range rs.LatestRoll {
		rs.LatestRoll[i] = m.dice.Intn(6) + 1
	}
	data, err := rs.Encode()
	if err != nil {
		return nil, err
	}
	if err := m.store.UpdateRoomData(ctx, roomID, data); err != nil {
		return nil, err
	}
	m.logger.Info("Dice rolled", zap.String("roomId", roomID), zap.String("userId", req.User.UserID), zap.Ints("roll", rs.LatestRoll[:]))

	args := make([]interface{}, len(rs.LatestRoll))
	for i, die := range rs.LatestRoll {
		args[i] = die
	}
	msg, err := models.NewMessage(EventRollResult, args...)
	if err != nil {
		return nil, err
	}
	return []games.Outbound{games.Broadcast(roomID, msg)}, nil
}

// parseMoves reads the [normal, special] pair. Either element may be null or
// missing.
func parseMoves(args []json.RawMessage) ([2]*Move, error) {
	var moves [2]*Move
	if len(args) == 0 {
		return moves, fmt.Errorf("%w: missing moves", games.ErrBadRequest)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(args[0], &raw); err != nil {
		return moves, fmt.Errorf("%w: moves must be an array: %v", games.ErrBadRequest, err)
	}
	if len(raw) > 2 {
		return moves, fmt.Errorf("%w: at most two moves", games.ErrBadRequest)
	}
	for i, item := range raw {
		if string(item) == "null" {
			continue
		}
		var mv Move
		if err := json.Unmarshal(item, &mv); err != nil {
			return moves, fmt.Errorf("%w: move %d: %v", games.ErrBadRequest, i, err)
		}
		moves[i] = &mv
	}
	// the second slot always scores with a coloured die
	if moves[1] != nil {
		moves[1].Special = true
	}
	return moves, nil
}

func (m *Module) handlePlay(ctx context.Context, req games.Request) ([]games.Outbound, error) {
	user := req.User
	roomID := user.RoomID

	moves, err := parseMoves(req.Args)
	if err != nil {
		return nil, err
	}
	rs, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	us, err := DecodeUserState(user.UserData)
	if err != nil {
		return nil, err
	}
	if us.LatestRoundIndex != rs.RoundIndex {
		return nil, fmt.Errorf("%w: round %d", games.ErrAlreadyPlayed, rs.RoundIndex)
	}

	board := append([]string(nil), us.BoardState...)
	locks := rs.Locks
	locksChanged := false
	kinds := [2]string{"normal", "special"}
	var accepted []games.Outbound

	for i, mv := range moves {
		if mv == nil {
			continue
		}
		if mv.Special && user.UserID != rs.TurnUser {
			return nil, fmt.Errorf("%w: only %s may use a coloured die this round", games.ErrNotAuthorized, rs.TurnUser)
		}
		row, err := ValidateMove(*mv, board, rs.LatestRoll, locks, rs.RoundIndex)
		if err != nil {
			return nil, fmt.Errorf("%s move: %w", kinds[i], err)
		}
		var locked bool
		board, locked = applyMove(board, *mv, row)
		if locked && locks[row] == nil {
			round := rs.RoundIndex
			locks[row] = &round
			locksChanged = true
		}

		played := Move{Row: rowNames[row], Number: mv.Number, Special: mv.Special}
		msg, err := models.NewMessage(EventPlay, user.UserID, played, kinds[i])
		if err != nil {
			return nil, err
		}
		accepted = append(accepted, games.Broadcast(roomID, msg))
	}

	if moves[0] == nil && moves[1] == nil {
		us.Penalty += noMovePenalty
	}
	us.BoardState = board
	us.LatestRoundIndex++

	userData, err := us.Encode()
	if err != nil {
		return nil, err
	}
	if err := m.store.UpdateUserData(ctx, user.UserID, userData); err != nil {
		return nil, err
	}
	if locksChanged {
		rs.Locks = locks
		roomData, err := rs.Encode()
		if err != nil {
			return nil, err
		}
		if err := m.store.UpdateRoomData(ctx, roomID, roomData); err != nil {
			return nil, err
		}
	}
	m.logger.Info("Play accepted",
		zap.String("roomId", roomID),
		zap.String("userId", user.UserID),
		zap.Int("round", rs.RoundIndex),
		zap.Int("marks", len(accepted)),
		zap.Int("penalty", us.Penalty))

	turn, err := m.advanceRound(ctx, roomID, rs)
	if err != nil {
		return accepted, err
	}
	return append(accepted, turn...), nil
}

// advanceRound closes the round once every current member has played in it.
// The turn passes to the member after the turn holder in join order, or to
// the earliest member when the turn holder has left.
func (m *Module) advanceRound(ctx context.Context, roomID string, rs RoomState) ([]games.Outbound, error) {
	members, err := m.store.ListRoomUsers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	next := members[0].UserID
	for i, member := range members {
		us, err := DecodeUserState(member.UserData)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", member.UserID, err)
		}
		if us.LatestRoundIndex <= rs.RoundIndex {
			return nil, nil
		}
		if member.UserID == rs.TurnUser {
			next = members[(i+1)%len(members)].UserID
		}
	}

	rs.TurnUser = next
	rs.RoundIndex++
	data, err := rs.Encode()
	if err != nil {
		return nil, err
	}
	if err := m.store.UpdateRoomData(ctx, roomID, data); err != nil {
		return nil, err
	}
	m.logger.Info("Round completed", zap.String("roomId", roomID), zap.Int("round", rs.RoundIndex), zap.String("turnUser", next))

	msg, err := currentTurnMessage(rs)
	if err != nil {
		return nil, err
	}
	return []games.Outbound{games.Broadcast(roomID, msg)}, nil
}

func currentTurnMessage(rs RoomState) (models.Message, error) {
	return models.NewMessage(EventCurrentTurn, rs.TurnUser, rs.RoundIndex)
}
